package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quarry/folio"
	"github.com/quarry/folio/marketdata"
	"github.com/quarry/folio/store"
	"go.uber.org/zap"
)

var verbose = flag.Bool("v", false, "Enable verbose logging")

// logger returns the CLI logger: silent by default, a development zap logger
// with -v.
func logger() *zap.Logger {
	if !*verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// openStore connects to Postgres when a DSN is given, and falls back to an
// in-memory store otherwise. The in-memory store only lives for the duration
// of the command, so snapshots and prices are not cached across runs.
func openStore(ctx context.Context, dsn string) (store.Store, func(), error) {
	if dsn == "" {
		dsn = os.Getenv("FOLIO_DB_DSN")
	}
	if dsn == "" {
		return store.NewMemory(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to %q: %w", dsn, err)
	}
	pg := store.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("could not ensure schema: %w", err)
	}
	return pg, pool.Close, nil
}

// newPriceStore builds the gap-filling price store on top of the EODHD
// provider. The API key defaults to the EODHD_API_KEY environment variable.
func newPriceStore(apiKey string, storage folio.PriceStorage, log *zap.Logger) (*folio.PriceStore, error) {
	if apiKey == "" {
		apiKey = os.Getenv("EODHD_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("an EODHD API key is required: use -api-key or set EODHD_API_KEY")
	}
	provider := marketdata.NewEODHD(apiKey, log)
	return folio.NewPriceStore(storage, provider, log), nil
}
