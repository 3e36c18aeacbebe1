package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/quarry/folio"
)

// --- Init Command ---

type initCmd struct {
	date     string
	name     string
	currency string
	cash     float64
	rate     float64
}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "open a new portfolio ledger" }
func (*initCmd) Usage() string {
	return `folio init -n <name> [-d <date>] [-c <currency>] [-cash <amount>] [-rate <annual_rate>]

  Opens a new portfolio: writes the init header transaction with the starting
  cash and the annual rate earned on idle cash.
`
}

func (c *initCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", folio.Today().String(), "Creation date (YYYY-MM-DD)")
	f.StringVar(&c.name, "n", "", "Portfolio name")
	f.StringVar(&c.currency, "c", "USD", "Portfolio currency")
	f.Float64Var(&c.cash, "cash", 0, "Starting cash amount")
	f.Float64Var(&c.rate, "rate", 0, "Annual interest rate on idle cash (e.g. 0.042)")
}

func (c *initCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	day, err := folio.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	tx := folio.NewInit(day, "", c.name, c.currency, folio.M(c.cash, c.currency), c.rate)
	return appendTransaction(tx)
}

// --- Buy Command ---

type buyCmd struct {
	date     string
	security string
	quantity float64
	price    float64
	memo     string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "purchase shares to open or add to a position" }
func (*buyCmd) Usage() string {
	return `folio buy -s <security> -q <quantity> -p <price> [-d <date>] [-m <memo>]

  Purchases shares of a security. The total cost is debited from the cash
  account on replay.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", folio.Today().String(), "Transaction date (YYYY-MM-DD)")
	f.StringVar(&c.security, "s", "", "Security ticker")
	f.Float64Var(&c.quantity, "q", 0, "Number of shares")
	f.Float64Var(&c.price, "p", 0, "Price per share")
	f.StringVar(&c.memo, "m", "", "An optional rationale or note for the transaction")
}

func (c *buyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.security == "" || c.quantity <= 0 || c.price <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	day, err := folio.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	ledger, err := DecodeLedgerFile()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	tx := folio.NewBuy(day, c.memo, c.security, folio.Q(c.quantity), folio.M(c.price, ledger.Currency()))
	return appendTransaction(tx)
}

// --- Sell Command ---

type sellCmd struct {
	date     string
	security string
	quantity float64
	price    float64
	memo     string
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "sell shares to trim or close a position" }
func (*sellCmd) Usage() string {
	return `folio sell -s <security> -q <quantity> -p <price> [-d <date>] [-m <memo>]

  Sells shares of a security. Selling more shares than held on the date is
  rejected. The proceeds are credited to the cash account on replay.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", folio.Today().String(), "Transaction date (YYYY-MM-DD)")
	f.StringVar(&c.security, "s", "", "Security ticker")
	f.Float64Var(&c.quantity, "q", 0, "Number of shares")
	f.Float64Var(&c.price, "p", 0, "Price per share")
	f.StringVar(&c.memo, "m", "", "An optional rationale or note for the transaction")
}

func (c *sellCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.security == "" || c.quantity <= 0 || c.price <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	day, err := folio.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	ledger, err := DecodeLedgerFile()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	tx := folio.NewSell(day, c.memo, c.security, folio.Q(c.quantity), folio.M(c.price, ledger.Currency()))
	return appendTransaction(tx)
}
