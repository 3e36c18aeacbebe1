package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/quarry/folio"
	"github.com/quarry/folio/renderer"
)

type chartCmd struct {
	apiKey   string
	dsn      string
	start    string
	date     string
	stride   int
	liveCash float64
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "chart the portfolio valuation over a date range" }
func (*chartCmd) Usage() string {
	return `folio chart [-s <start_date>] [-d <end_date>] [-stride <days>] [-live-cash <amount>]

  Replays the ledger against historical closes and prints one valuation
  snapshot per sampled day: total value, positions, cash and accrued
  interest. Ranges longer than a year are sampled weekly unless -stride says
  otherwise; the last day of the range is always included.

  When the range ends today, live quotes replace the close for the last row,
  and -live-cash can override the replayed cash balance with the actual one.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.apiKey, "api-key", "", "EODHD API key (defaults to EODHD_API_KEY)")
	f.StringVar(&c.dsn, "dsn", "", "Postgres DSN (defaults to FOLIO_DB_DSN)")
	f.StringVar(&c.start, "s", "", "Start of the range (defaults to the portfolio creation date)")
	f.StringVar(&c.date, "d", "0d", "End of the range (defaults to today)")
	f.IntVar(&c.stride, "stride", 0, "Days between snapshots (0 = auto: daily up to a year, weekly beyond)")
	f.Float64Var(&c.liveCash, "live-cash", 0, "Override today's cash balance with the actual amount")
}

func (c *chartCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, err := DecodeLedgerFile()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if ledger.ID() == "" {
		fmt.Fprintln(os.Stderr, "Error: the ledger is empty; run 'folio init' first.")
		return subcommands.ExitFailure
	}

	startStr := c.start
	if startStr == "" {
		startStr = ledger.Created().String()
	}
	start, err := folio.ParseDate(startStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing start date: %v\n", err)
		return subcommands.ExitUsageError
	}
	end, err := folio.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing end date: %v\n", err)
		return subcommands.ExitUsageError
	}

	st, closeStore, err := openStore(ctx, c.dsn)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeStore()

	log := logger()
	prices, err := newPriceStore(c.apiKey, st, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	opts := folio.ReplayOptions{Range: folio.NewRange(start, end), Stride: c.stride}
	if c.liveCash != 0 {
		cash := folio.M(c.liveCash, ledger.Currency())
		opts.LiveCash = &cash
	}

	charter := folio.NewCharter(st, prices, log)
	snapshots, err := charter.Series(ctx, ledger, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error charting portfolio: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.ChartMarkdown(ledger.Name(), snapshots))
	return subcommands.ExitSuccess
}
