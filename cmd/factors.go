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

type factorsCmd struct {
	dsn      string
	date     string
	lookback int
	minObs   int
}

func (*factorsCmd) Name() string     { return "factors" }
func (*factorsCmd) Synopsis() string { return "estimate factor exposures for held positions" }
func (*factorsCmd) Usage() string {
	return `folio factors [-d <as_of_date>] [-lookback <days>] [-min-obs <n>] [-dsn <postgres_dsn>]

  Regresses each held position's daily returns against the factor return
  series stored in the database and prints the estimated betas. Tickers with
  too few aligned observations are skipped.

  Requires a Postgres store holding factor and position return series.
`
}

func (c *factorsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dsn, "dsn", "", "Postgres DSN (defaults to FOLIO_DB_DSN)")
	f.StringVar(&c.date, "d", "0d", "Estimation date (defaults to today)")
	f.IntVar(&c.lookback, "lookback", 0, "Days of returns to regress over (0 = default)")
	f.IntVar(&c.minObs, "min-obs", 0, "Minimum aligned observations per ticker (0 = default)")
}

func (c *factorsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	tickers := ledger.HeldTickers(asOf)
	if len(tickers) == 0 {
		fmt.Printf("No positions held on %s. Nothing to estimate.\n", asOf)
		return subcommands.ExitSuccess
	}

	st, closeStore, err := openStore(ctx, c.dsn)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeStore()

	estimator := folio.NewFactorEstimator(st, st, logger())
	if c.lookback > 0 {
		estimator.Lookback = c.lookback
	}
	if c.minObs > 0 {
		estimator.MinObservations = c.minObs
	}

	exposures, err := estimator.Run(ctx, tickers, asOf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error estimating exposures: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.ExposuresMarkdown(exposures))
	return subcommands.ExitSuccess
}
