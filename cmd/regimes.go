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

type regimesCmd struct {
	dsn  string
	date string
}

func (*regimesCmd) Name() string     { return "regimes" }
func (*regimesCmd) Synopsis() string { return "report factor drift and scenario P&L per regime" }
func (*regimesCmd) Usage() string {
	return `folio regimes [-d <as_of_date>] [-dsn <postgres_dsn>]

  Aggregates the latest factor exposures of held positions, compares them
  against the target profile, and computes the expected portfolio shock under
  each regime with a published probability.

  Requires a Postgres store holding exposures and regime probabilities.
`
}

func (c *regimesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dsn, "dsn", "", "Postgres DSN (defaults to FOLIO_DB_DSN)")
	f.StringVar(&c.date, "d", "0d", "Date on which to read held positions (defaults to today)")
}

func (c *regimesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, err := DecodeLedgerFile()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	asOf, err := folio.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	st, closeStore, err := openStore(ctx, c.dsn)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeStore()

	exposures, err := st.LatestExposures(ctx, ledger.HeldTickers(asOf))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading exposures: %v\n", err)
		return subcommands.ExitFailure
	}

	probs, err := st.LatestRegimeProbabilities(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading regime probabilities: %v\n", err)
		return subcommands.ExitFailure
	}

	report := folio.BuildRiskReport(exposures, probs, folio.DefaultRiskOptions())
	printMarkdown(renderer.RiskMarkdown(report))
	return subcommands.ExitSuccess
}
