package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/quarry/folio"
)

type fetchCmd struct {
	apiKey string
	dsn    string
	start  string
	date   string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "gap-fill historical prices for the ledger's tickers" }
func (*fetchCmd) Usage() string {
	return `folio fetch [-s <start_date>] [-d <end_date>] [-api-key <key>] [-dsn <postgres_dsn>]

  Downloads daily closes from EODHD for every ticker in the ledger and stores
  them. Only the missing head and tail of the requested range are fetched;
  ranges already covered cost no API call.

  Without a -dsn (or FOLIO_DB_DSN), prices are fetched into memory and
  discarded, which is only useful to validate the API key.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.apiKey, "api-key", "", "EODHD API key (defaults to EODHD_API_KEY)")
	f.StringVar(&c.dsn, "dsn", "", "Postgres DSN (defaults to FOLIO_DB_DSN)")
	f.StringVar(&c.start, "s", "", "Start of the range (defaults to the portfolio creation date)")
	f.StringVar(&c.date, "d", "0d", "End of the range (defaults to today)")
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, err := DecodeLedgerFile()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	tickers := ledger.Tickers()
	if len(tickers) == 0 {
		fmt.Println("No tickers in the ledger. Nothing to fetch.")
		return subcommands.ExitSuccess
	}

	r, status := c.parseRange(ledger)
	if status != subcommands.ExitSuccess {
		return status
	}

	st, closeStore, err := openStore(ctx, c.dsn)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeStore()

	prices, err := newPriceStore(c.apiKey, st, logger())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if err := prices.Ensure(ctx, tickers, r); err != nil {
		if errors.Is(err, folio.ErrRateLimited) {
			fmt.Fprintln(os.Stderr, "Provider rate limited: partial results were kept. Re-run later to complete.")
			return subcommands.ExitFailure
		}
		fmt.Fprintf(os.Stderr, "Error fetching prices: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Price coverage ensured for %d tickers from %s to %s.\n", len(tickers), r.From, r.To)
	return subcommands.ExitSuccess
}

func (c *fetchCmd) parseRange(ledger *folio.Ledger) (folio.Range, subcommands.ExitStatus) {
	startStr := c.start
	if startStr == "" {
		startStr = ledger.Created().String()
	}
	start, err := folio.ParseDate(startStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing start date: %v\n", err)
		return folio.Range{}, subcommands.ExitUsageError
	}
	end, err := folio.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing end date: %v\n", err)
		return folio.Range{}, subcommands.ExitUsageError
	}
	return folio.NewRange(start, end), subcommands.ExitSuccess
}
