package folio

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"sort"
)

// Position is the derived holding of a single security: the number of shares
// currently held and the total cost paid for them. It is never persisted on
// its own; it is recomputed from the transaction log.
type Position struct {
	Ticker    string
	Shares    Quantity
	CostBasis Money
}

// AverageCost returns the average price paid per share currently held.
func (p Position) AverageCost() Money {
	if p.Shares.IsZero() {
		return M(0, p.CostBasis.Currency())
	}
	return p.CostBasis.Div(p.Shares)
}

// Ledger represents a portfolio: its header (identity, starting cash,
// creation date, cash rate) and its list of buy/sell transactions.
//
// In a Ledger transactions are always in chronological order; same-day
// transactions keep their insertion order.
type Ledger struct {
	name         string
	id           string
	currency     string
	created      Date
	startingCash Money
	annualRate   float64
	transactions []Transaction
}

// NewLedger creates a ledger for a new portfolio.
func NewLedger(on Date, id, name, currency string, startingCash Money, annualRate float64) (*Ledger, error) {
	init := NewInit(on, id, name, currency, startingCash, annualRate)
	l := &Ledger{}
	if err := l.apply(init); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Name() string        { return l.name }
func (l *Ledger) ID() string          { return l.id }
func (l *Ledger) Currency() string    { return l.currency }
func (l *Ledger) Created() Date       { return l.created }
func (l *Ledger) StartingCash() Money { return l.startingCash }
func (l *Ledger) AnnualRate() float64 { return l.annualRate }
func (l *Ledger) Len() int            { return len(l.transactions) }

// SetName overrides the ledger name (used when the name derives from the file path).
func (l *Ledger) SetName(name string) { l.name = name }

// apply validates a transaction against the current ledger state and records it.
func (l *Ledger) apply(tx Transaction) error {
	switch v := tx.(type) {
	case Init:
		if err := v.validate(); err != nil {
			return fmt.Errorf("invalid init transaction: %w", err)
		}
		if l.id != "" {
			return fmt.Errorf("portfolio %q already initialized", l.name)
		}
		l.id, l.name, l.currency = v.ID, v.Name, v.Currency
		l.created, l.startingCash, l.annualRate = v.Date, v.Cash, v.AnnualRate
		return nil
	case Buy:
		if l.id == "" {
			return fmt.Errorf("ledger has no init header")
		}
		if err := v.validate(); err != nil {
			return fmt.Errorf("invalid %s transaction on %s: %w", tx.What(), tx.When(), err)
		}
	case Sell:
		if l.id == "" {
			return fmt.Errorf("ledger has no init header")
		}
		if err := v.validate(); err != nil {
			return fmt.Errorf("invalid %s transaction on %s: %w", tx.What(), tx.When(), err)
		}
		if err := l.checkOversell(v); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported transaction type: %T", tx)
	}
	l.transactions = append(l.transactions, tx)
	l.stableSort()
	return nil
}

// checkOversell verifies that a candidate sell would not drive the holding of
// its security negative on any date. Checking only the candidate's own date is
// not enough: a backdated sell can leave earlier sells without shares to
// cover them. The whole timeline is replayed with the candidate in place,
// leaving the ledger untouched on failure.
func (l *Ledger) checkOversell(candidate Sell) error {
	txs := make([]Transaction, 0, len(l.transactions)+1)
	txs = append(txs, l.transactions...)
	txs = append(txs, candidate)
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].When().Before(txs[j].When())
	})
	var held Quantity
	for _, tx := range txs {
		switch v := tx.(type) {
		case Buy:
			if v.Security == candidate.Security {
				held = held.Add(v.Quantity)
			}
		case Sell:
			if v.Security != candidate.Security {
				continue
			}
			if v.Quantity.GreaterThan(held) {
				return fmt.Errorf("on %s, cannot sell %s shares of %s, only %s held: %w",
					v.Date, v.Quantity, v.Security, held, ErrOversell)
			}
			held = held.Sub(v.Quantity)
		}
	}
	return nil
}

// Append validates and appends transactions to this ledger, maintaining the
// chronological order of transactions. The first failing transaction stops
// the append; earlier ones remain applied.
func (l *Ledger) Append(txs ...Transaction) error {
	for _, tx := range txs {
		if err := l.apply(tx); err != nil {
			return err
		}
	}
	return nil
}

// stableSort sorts the ledger by transaction date. The sort is stable, meaning
// transactions on the same day maintain their original relative order.
func (l *Ledger) stableSort() {
	sort.SliceStable(l.transactions, func(i, j int) bool {
		return l.transactions[i].When().Before(l.transactions[j].When())
	})
}

// Transactions returns an iterator that yields each transaction in chronological order.
func (l *Ledger) Transactions() iter.Seq2[int, Transaction] {
	return func(yield func(int, Transaction) bool) {
		for i, tx := range l.transactions {
			if !yield(i, tx) {
				return
			}
		}
	}
}

// OldestTransactionDate returns the date of the earliest trade in the ledger,
// or the zero date if the ledger has no trades.
func (l *Ledger) OldestTransactionDate() Date {
	if len(l.transactions) == 0 {
		return Date{}
	}
	return l.transactions[0].When()
}

// NewestTransactionDate returns the date of the latest trade in the ledger,
// or the zero date if the ledger has no trades.
func (l *Ledger) NewestTransactionDate() Date {
	if len(l.transactions) == 0 {
		return Date{}
	}
	return l.transactions[len(l.transactions)-1].When()
}

// Position computes the holding of a single security on a specific date.
func (l *Ledger) Position(on Date, ticker string) Position {
	pos := Position{Ticker: ticker, CostBasis: M(0, l.currency)}
	for _, tx := range l.transactions {
		if tx.When().After(on) {
			// The ledger is sorted by date, so it's safe to break.
			break
		}
		switch v := tx.(type) {
		case Buy:
			if v.Security == ticker {
				pos.Shares = pos.Shares.Add(v.Quantity)
				pos.CostBasis = pos.CostBasis.Add(v.Amount)
			}
		case Sell:
			if v.Security == ticker && !pos.Shares.IsZero() {
				// Reduce the cost basis proportionally to the average cost.
				costOfSale := pos.CostBasis.Mul(v.Quantity).Div(pos.Shares)
				pos.CostBasis = pos.CostBasis.Sub(costOfSale)
				pos.Shares = pos.Shares.Sub(v.Quantity)
			}
		}
	}
	return pos
}

// Positions computes all open holdings on a specific date. Positions whose
// share count reached exactly zero are not included.
func (l *Ledger) Positions(on Date) []Position {
	open := make(map[string]Position)
	for _, tx := range l.transactions {
		if tx.When().After(on) {
			break
		}
		switch v := tx.(type) {
		case Buy:
			pos, ok := open[v.Security]
			if !ok {
				pos = Position{Ticker: v.Security, CostBasis: M(0, l.currency)}
			}
			pos.Shares = pos.Shares.Add(v.Quantity)
			pos.CostBasis = pos.CostBasis.Add(v.Amount)
			open[v.Security] = pos
		case Sell:
			pos, ok := open[v.Security]
			if !ok || pos.Shares.IsZero() {
				continue
			}
			costOfSale := pos.CostBasis.Mul(v.Quantity).Div(pos.Shares)
			pos.CostBasis = pos.CostBasis.Sub(costOfSale)
			pos.Shares = pos.Shares.Sub(v.Quantity)
			if pos.Shares.IsZero() {
				delete(open, v.Security)
			} else {
				open[v.Security] = pos
			}
		}
	}
	tickers := slices.Collect(maps.Keys(open))
	slices.Sort(tickers)
	positions := make([]Position, 0, len(open))
	for _, t := range tickers {
		positions = append(positions, open[t])
	}
	return positions
}

// CashBalance computes the cash balance on a specific date: the starting cash
// plus sale proceeds, minus purchase costs. Interest is not included; the
// replay engine accrues it separately.
func (l *Ledger) CashBalance(on Date) Money {
	balance := l.startingCash
	for _, tx := range l.transactions {
		if tx.When().After(on) {
			break
		}
		switch v := tx.(type) {
		case Buy:
			balance = balance.Sub(v.Amount)
		case Sell:
			balance = balance.Add(v.Amount)
		}
	}
	return balance
}

// Tickers returns the sorted set of security tickers that appear in the ledger.
func (l *Ledger) Tickers() []string {
	seen := make(map[string]struct{})
	for _, tx := range l.transactions {
		switch v := tx.(type) {
		case Buy:
			seen[v.Security] = struct{}{}
		case Sell:
			seen[v.Security] = struct{}{}
		}
	}
	tickers := slices.Collect(maps.Keys(seen))
	slices.Sort(tickers)
	return tickers
}

// HeldTickers returns the sorted tickers with a non-zero position on the date.
func (l *Ledger) HeldTickers(on Date) []string {
	positions := l.Positions(on)
	tickers := make([]string, 0, len(positions))
	for _, p := range positions {
		tickers = append(tickers, p.Ticker)
	}
	return tickers
}
