package cmd

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quarry/folio"
	"github.com/quarry/folio/config"
	"github.com/quarry/folio/job"
	"github.com/quarry/folio/marketdata"
	"github.com/quarry/folio/metrics"
	"github.com/quarry/folio/store"
	"go.uber.org/zap"
)

type daemonCmd struct {
	configFile string
	envOnly    bool
}

func (*daemonCmd) Name() string     { return "daemon" }
func (*daemonCmd) Synopsis() string { return "run the engine as a background service" }
func (*daemonCmd) Usage() string {
	return `folio daemon [-config <file>] [-env-only]

  Runs the valuation and factor engine as a long-lived service: scheduled
  snapshot and factor jobs against a Postgres store, with Prometheus metrics
  served over HTTP.

  Configuration comes from a YAML file plus FOLIO_-prefixed environment
  variables; -env-only skips the file entirely.
`
}

func (c *daemonCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configFile, "config", "folio.yaml", "Path to the YAML configuration file")
	f.BoolVar(&c.envOnly, "env-only", false, "Configure from environment variables only")
}

func (c *daemonCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load(c.configFile, c.envOnly)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}

	log, err := newDaemonLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building logger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.run(ctx, cfg, log); err != nil {
		log.Error("daemon failed", zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *daemonCmd) run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	pool, err := newPool(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("could not connect to the database: %w", err)
	}
	defer pool.Close()

	st := store.NewPostgres(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("could not ensure schema: %w", err)
	}

	provider := marketdata.NewEODHD(cfg.EODHD.APIKey, log, eodhdOptions(cfg.EODHD)...)
	prices := folio.NewPriceStore(st, provider, log)
	charter := folio.NewCharter(st, prices, log)

	estimator := folio.NewFactorEstimator(st, st, log)
	if cfg.Factor.LookbackDays > 0 {
		estimator.Lookback = cfg.Factor.LookbackDays
	}
	if cfg.Factor.MinObservations > 0 {
		estimator.MinObservations = cfg.Factor.MinObservations
	}

	loader := func() (*folio.Ledger, error) {
		f, err := os.Open(cfg.Portfolio.LedgerFile)
		if err != nil {
			return nil, fmt.Errorf("could not open ledger file %q: %w", cfg.Portfolio.LedgerFile, err)
		}
		defer f.Close()
		return folio.DecodeLedger(f)
	}

	jobs := job.New(loader, charter, estimator, log)
	runner := job.NewRunner(log, ctx)
	if cfg.Cron.Enabled {
		if _, err := runner.Add("snapshot", cfg.Cron.SnapshotJob, jobs.Snapshot); err != nil {
			return fmt.Errorf("could not schedule snapshot job: %w", err)
		}
		if _, err := runner.Add("factor", cfg.Cron.FactorJob, jobs.Factor); err != nil {
			return fmt.Errorf("could not schedule factor job: %w", err)
		}
		runner.Start()
		defer runner.Stop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		log.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	log.Info("daemon started",
		zap.String("ledger", cfg.Portfolio.LedgerFile),
		zap.Bool("cron", cfg.Cron.Enabled))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("metrics server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("metrics server shutdown", zap.Error(err))
	}
	log.Info("daemon stopped")
	return nil
}

func newPool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.ConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnLifetime
	}
	return pgxpool.NewWithConfig(ctx, pc)
}

func eodhdOptions(cfg config.EODHDConfig) []marketdata.Option {
	var opts []marketdata.Option
	if cfg.BaseURL != "" {
		opts = append(opts, marketdata.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MinSpacing > 0 {
		opts = append(opts, marketdata.WithMinSpacing(cfg.MinSpacing))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, marketdata.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return opts
}

func newDaemonLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	if cfg.Encoding != "" {
		zc.Encoding = cfg.Encoding
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zc.Level = level
	}
	return zc.Build()
}
