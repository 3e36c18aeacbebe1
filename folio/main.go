// Command folio manages a portfolio ledger and its valuation, factor and
// regime analytics.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
	"github.com/quarry/folio/cmd"
)

func main() {
	// Shell completion: a no-op unless invoked by the shell's completion hook.
	completion().Complete("folio")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

func completion() *complete.Command {
	dateFlags := map[string]complete.Predictor{
		"d": predict.Nothing,
		"s": predict.Nothing,
	}
	storeFlags := map[string]complete.Predictor{
		"dsn":     predict.Nothing,
		"api-key": predict.Nothing,
	}
	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"ledger-file": predict.Files("*.jsonl"),
			"v":           predict.Nothing,
		},
		Sub: map[string]*complete.Command{
			"init":    {Flags: dateFlags},
			"buy":     {Flags: dateFlags},
			"sell":    {Flags: dateFlags},
			"tx":      {Flags: dateFlags},
			"fmt":     {},
			"fetch":   {Flags: storeFlags},
			"chart":   {Flags: storeFlags},
			"factors": {Flags: storeFlags},
			"regimes": {Flags: storeFlags},
			"daemon":  {Flags: map[string]complete.Predictor{"config": predict.Files("*.yaml")}},
			"assist":  {},
			"topic":   {},
		},
	}
}
