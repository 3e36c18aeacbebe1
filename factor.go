package folio

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ReturnFeed supplies the two time-aligned return feeds the estimator
// consumes read-only: factor returns keyed by date, position returns keyed by
// (ticker, date).
type ReturnFeed interface {
	FactorReturns(ctx context.Context, r Range) ([]FactorReturn, error)
	PositionReturns(ctx context.Context, ticker string, r Range) ([]PositionReturn, error)
}

// ExposureStorage persists factor exposures with upsert semantics on
// (date, ticker), so re-running the estimator for the same day overwrites
// rather than duplicates.
type ExposureStorage interface {
	SaveExposure(ctx context.Context, e Exposure) error
	LatestExposures(ctx context.Context, tickers []string) ([]Exposure, error)
}

const (
	defaultLookbackDays    = 60
	defaultMinObservations = 10
)

// FactorEstimator computes per-ticker ordinary-least-squares betas against
// each systematic factor over a rolling lookback window, one factor at a
// time.
type FactorEstimator struct {
	feed    ReturnFeed
	storage ExposureStorage
	log     *zap.Logger

	// Lookback is the window length in calendar days ending at the as-of
	// date. MinObservations is the least number of aligned return dates a
	// ticker needs to be estimated at all.
	Lookback        int
	MinObservations int
}

func NewFactorEstimator(feed ReturnFeed, storage ExposureStorage, log *zap.Logger) *FactorEstimator {
	if log == nil {
		log = zap.NewNop()
	}
	return &FactorEstimator{
		feed:            feed,
		storage:         storage,
		log:             log,
		Lookback:        defaultLookbackDays,
		MinObservations: defaultMinObservations,
	}
}

// Run estimates and stores one exposure row per ticker with sufficient
// aligned history in the lookback window ending at asOf. Tickers with too few
// aligned observations are skipped, not failed; a storage write failure is
// logged and the exposure still returned.
func (e *FactorEstimator) Run(ctx context.Context, tickers []string, asOf Date) ([]Exposure, error) {
	window := Range{From: asOf.Add(-e.Lookback), To: asOf}
	factorRows, err := e.feed.FactorReturns(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("load factor returns: %w", err)
	}
	factorsByDate := make(map[Date]map[string]float64, len(factorRows))
	for _, row := range factorRows {
		factorsByDate[row.Date] = row.Factors
	}

	var exposures []Exposure
	for _, ticker := range tickers {
		exp, ok := e.estimate(ctx, ticker, window, factorsByDate)
		if !ok {
			continue
		}
		if err := e.storage.SaveExposure(ctx, exp); err != nil {
			e.log.Error("save exposure failed", zap.String("ticker", ticker), zap.Error(err))
		}
		exposures = append(exposures, exp)
	}
	return exposures, nil
}

func (e *FactorEstimator) estimate(ctx context.Context, ticker string, window Range, factorsByDate map[Date]map[string]float64) (Exposure, bool) {
	returns, err := e.feed.PositionReturns(ctx, ticker, window)
	if err != nil {
		e.log.Warn("position returns unavailable", zap.String("ticker", ticker), zap.Error(err))
		return Exposure{}, false
	}

	// Intersect the ticker's return dates with the factor dates; rows are
	// date-ordered, so the last aligned element keys the exposure.
	type aligned struct {
		ret     float64
		factors map[string]float64
	}
	var obs []aligned
	var last Date
	for _, r := range returns {
		f, ok := factorsByDate[r.Date]
		if !ok {
			continue
		}
		obs = append(obs, aligned{ret: r.Return, factors: f})
		if r.Date.After(last) {
			last = r.Date
		}
	}
	if len(obs) < e.MinObservations {
		e.log.Debug("insufficient aligned observations, skipping",
			zap.String("ticker", ticker), zap.Int("observations", len(obs)))
		return Exposure{}, false
	}

	names := make(map[string]struct{})
	for _, o := range obs {
		for name := range o.factors {
			names[name] = struct{}{}
		}
	}

	betas := make(map[string]float64, len(names))
	for name := range names {
		var xs, ys []float64
		for _, o := range obs {
			x, ok := o.factors[name]
			if !ok {
				continue
			}
			xs = append(xs, x)
			ys = append(ys, o.ret)
		}
		betas[name] = olsBeta(xs, ys)
	}
	return Exposure{Date: last, Ticker: ticker, Betas: betas}, true
}

// olsBeta is the single-regressor slope cov(x,y)/var(x). A flat factor series
// carries no explanatory information, so zero variance yields beta 0. The
// covariance and variance share a denominator, so y == x gives exactly 1.
func olsBeta(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	n := float64(len(x))
	var sx, sy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
	}
	mx, my := sx/n, sy/n
	var sxx, sxy float64
	for i := range x {
		dx := x[i] - mx
		sxx += dx * dx
		sxy += dx * (y[i] - my)
	}
	if sxx == 0 {
		return 0
	}
	return sxy / sxx
}
