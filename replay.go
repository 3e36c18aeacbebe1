package folio

import (
	"context"

	"go.uber.org/zap"
)

// PriceResolver is the view of market data the replay engine needs. It is
// satisfied by *PriceStore; tests supply an in-memory fake.
type PriceResolver interface {
	Series(ctx context.Context, ticker string, r Range) (History[float64], error)
	Live(ctx context.Context, ticker string) (Quote, error)
}

// Auto stride switches from daily to weekly sampling above one year.
const autoStrideCutoverDays = 366

// ReplayOptions controls a replay run.
type ReplayOptions struct {
	Range Range

	// Stride is the sampling interval in days. Zero selects automatically:
	// daily up to one year, weekly beyond.
	Stride int

	// Today overrides the wall-clock date, for reproducible runs.
	Today Date

	// LiveCash, when set, is the authoritative current cash balance and
	// replaces the simulated balance in the snapshot for today.
	LiveCash *Money
}

func (o ReplayOptions) stride() int {
	if o.Stride > 0 {
		return o.Stride
	}
	if o.Range.Days() > autoStrideCutoverDays {
		return 7
	}
	return 1
}

func (o ReplayOptions) today() Date {
	if o.Today.IsZero() {
		return Today()
	}
	return o.Today
}

type holding struct {
	shares Quantity
	cost   Money
}

func (h *holding) averageCost() Money {
	if h.shares.IsZero() {
		return M(0, h.cost.Currency())
	}
	return h.cost.Div(h.shares)
}

// Replay reconstructs the portfolio day by day over the requested range and
// returns one snapshot per sampled date.
//
// It is a single forward pass: transactions are applied in date order,
// interest accrues piecewise on the cash balance in effect between
// cash-changing events, and open positions are valued through the resolver.
// The snapshot for today uses live quotes (and LiveCash when supplied)
// instead of the simulated values; every other date is a historical estimate.
//
// Replaying the same ledger and range twice yields identical snapshots,
// today's live override aside.
func (l *Ledger) Replay(ctx context.Context, prices PriceResolver, opts ReplayOptions, log *zap.Logger) ([]Snapshot, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if l.Len() == 0 {
		return nil, nil
	}
	today := opts.today()

	// Load each ticker's close history once, from inception so that
	// transactions before the requested range still value correctly.
	series := make(map[string]History[float64])
	for _, ticker := range l.Tickers() {
		h, err := prices.Series(ctx, ticker, Range{From: l.created, To: opts.Range.To})
		if err != nil {
			log.Warn("price history unavailable, will value at average cost",
				zap.String("ticker", ticker), zap.Error(err))
			continue
		}
		series[ticker] = h
	}

	cash := l.startingCash
	interest := M(0, l.currency)
	lastAccrual := l.created
	holdings := make(map[string]*holding)

	accrue := func(to Date) {
		if !lastAccrual.Before(to) {
			return
		}
		interest = interest.Add(InterestEarned(cash, l.annualRate, to.DaysSince(lastAccrual)))
		lastAccrual = to
	}

	var snapshots []Snapshot
	ti := 0
	for on := range opts.Range.Dates(opts.stride()) {
		// Apply every transaction up to and including this date. Interest is
		// settled at each transaction date first, so it compounds on the
		// balance in effect over each sub-interval.
		for ti < len(l.transactions) && !l.transactions[ti].When().After(on) {
			switch v := l.transactions[ti].(type) {
			case Buy:
				accrue(v.Date)
				cash = cash.Sub(v.Amount)
				h := holdings[v.Security]
				if h == nil {
					h = &holding{cost: M(0, l.currency)}
					holdings[v.Security] = h
				}
				h.shares = h.shares.Add(v.Quantity)
				h.cost = h.cost.Add(v.Amount)
			case Sell:
				accrue(v.Date)
				cash = cash.Add(v.Amount)
				if h := holdings[v.Security]; h != nil {
					costOfSale := h.cost.Mul(v.Quantity.Div(h.shares))
					h.cost = h.cost.Sub(costOfSale)
					h.shares = h.shares.Sub(v.Quantity)
					if h.shares.IsZero() {
						delete(holdings, v.Security)
					}
				}
			}
			ti++
		}
		accrue(on)

		positions := M(0, l.currency)
		sources := make(map[string]PriceSource, len(holdings))
		for ticker, h := range holdings {
			price, source := l.resolvePrice(ctx, prices, series, ticker, h, on, today, log)
			positions = positions.Add(price.Mul(h.shares))
			sources[ticker] = source
		}

		snapCash := cash
		if on == today && opts.LiveCash != nil {
			snapCash = *opts.LiveCash
		}
		snapshots = append(snapshots, Snapshot{
			PortfolioID:    l.id,
			Date:           on,
			TotalValue:     positions.Add(snapCash).Add(interest),
			PositionsValue: positions,
			Cash:           snapCash,
			InterestEarned: interest,
			Sources:        sources,
		})
	}
	return snapshots, nil
}

// resolvePrice picks the valuation price for one held ticker: live quote for
// today, else the close in force on the date, else average cost.
func (l *Ledger) resolvePrice(ctx context.Context, prices PriceResolver, series map[string]History[float64], ticker string, h *holding, on, today Date, log *zap.Logger) (Money, PriceSource) {
	if on == today {
		q, err := prices.Live(ctx, ticker)
		if err == nil {
			return M(q.Price, l.currency), PriceLive
		}
		log.Warn("live quote unavailable, falling back to historical close",
			zap.String("ticker", ticker), zap.Error(err))
	}
	if s, ok := series[ticker]; ok {
		if close, ok := ResolveClose(s, on); ok {
			return M(close, l.currency), PriceHistorical
		}
	}
	log.Warn("no historical price, valuing at average cost",
		zap.String("ticker", ticker), zap.Stringer("date", on))
	return h.averageCost(), PriceFallback
}
