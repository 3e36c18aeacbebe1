package job

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quarry/folio"
	"github.com/quarry/folio/metrics"
)

// LedgerLoader reloads the transaction log at the start of each run, so a job
// always sees transactions recorded since the previous cycle.
type LedgerLoader func() (*folio.Ledger, error)

// Jobs bundles the scheduled computations over one portfolio.
type Jobs struct {
	loadLedger LedgerLoader
	charter    *folio.Charter
	estimator  *folio.FactorEstimator
	log        *zap.Logger
}

func New(loadLedger LedgerLoader, charter *folio.Charter, estimator *folio.FactorEstimator, log *zap.Logger) *Jobs {
	if log == nil {
		log = zap.NewNop()
	}
	return &Jobs{
		loadLedger: loadLedger,
		charter:    charter,
		estimator:  estimator,
		log:        log,
	}
}

// Factor re-estimates factor exposures for every ticker with a live position
// as of the given date.
func (j *Jobs) Factor(ctx context.Context, asOf folio.Date) error {
	ledger, err := j.loadLedger()
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	tickers := ledger.HeldTickers(asOf)
	if len(tickers) == 0 {
		j.log.Info("no live positions, nothing to estimate", zap.Stringer("asOf", asOf))
		return nil
	}

	exposures, err := j.estimator.Run(ctx, tickers, asOf)
	if err != nil {
		return err
	}
	metrics.ExposuresEstimated.Add(float64(len(exposures)))
	j.log.Info("factor exposures estimated",
		zap.Stringer("asOf", asOf),
		zap.Int("tickers", len(tickers)),
		zap.Int("estimated", len(exposures)))
	return nil
}

// Snapshot precomputes the daily snapshot series from inception to the given
// date, so chart reads come from the cache instead of a live replay.
func (j *Jobs) Snapshot(ctx context.Context, asOf folio.Date) error {
	ledger, err := j.loadLedger()
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	if ledger.Len() == 0 {
		j.log.Info("empty ledger, nothing to snapshot")
		return nil
	}

	snapshots, err := j.charter.Series(ctx, ledger, folio.ReplayOptions{
		Range: folio.Range{From: ledger.Created(), To: asOf},
		Today: asOf,
	})
	if err != nil {
		return err
	}
	metrics.SnapshotsComputed.Add(float64(len(snapshots)))
	degraded := 0
	for _, s := range snapshots {
		if s.Degraded() {
			degraded++
		}
	}
	if degraded > 0 {
		metrics.DegradedValuations.Add(float64(degraded))
		j.log.Warn("degraded valuations in series", zap.Int("count", degraded))
	}
	j.log.Info("snapshots precomputed",
		zap.Stringer("through", asOf),
		zap.Int("snapshots", len(snapshots)))
	return nil
}
