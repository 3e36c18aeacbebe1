package folio

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// PriceStorage persists daily closes and remembers, per ticker, the date range
// already fetched from the provider. Coverage is what makes the store a
// gap-filling cache: a covered span with no point in it is a known
// non-trading day, not a hole.
type PriceStorage interface {
	SavePrices(ctx context.Context, ticker string, points []PricePoint) error
	Prices(ctx context.Context, ticker string, r Range) ([]PricePoint, error)
	Coverage(ctx context.Context, ticker string) (Range, bool, error)
	SaveCoverage(ctx context.Context, ticker string, r Range) error
}

// Provider fetches prices from an external market data source.
//
// DailyCloses returns ErrRateLimited (possibly wrapped) when the source
// refuses the call; callers must stop issuing further calls for the run.
type Provider interface {
	DailyCloses(ctx context.Context, ticker string, r Range) ([]PricePoint, error)
	LiveQuote(ctx context.Context, ticker string) (Quote, error)
}

// PriceStore serves historical closes out of PriceStorage, fetching only the
// spans not yet covered.
type PriceStore struct {
	storage  PriceStorage
	provider Provider
	log      *zap.Logger
}

func NewPriceStore(storage PriceStorage, provider Provider, log *zap.Logger) *PriceStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &PriceStore{storage: storage, provider: provider, log: log}
}

// Ensure makes the storage cover r for every ticker, fetching missing spans
// from the provider. It fetches at most two spans per ticker (before and
// after the current coverage) and widens the recorded coverage to the union.
//
// On ErrRateLimited it stops calling the provider for the remaining tickers,
// keeps everything fetched so far, and returns the error. Other provider
// errors abort only the affected ticker.
func (s *PriceStore) Ensure(ctx context.Context, tickers []string, r Range) error {
	var firstErr error
	for _, ticker := range tickers {
		err := s.ensure(ctx, ticker, r)
		if errors.Is(err, ErrRateLimited) {
			s.log.Warn("price fetch rate limited, keeping partial results", zap.String("ticker", ticker))
			return err
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("ensure prices for %s: %w", ticker, err)
		}
	}
	return firstErr
}

func (s *PriceStore) ensure(ctx context.Context, ticker string, r Range) error {
	cov, ok, err := s.storage.Coverage(ctx, ticker)
	if err != nil {
		return err
	}
	if !ok {
		// Nothing cached yet, fetch the whole range.
		if err := s.fetch(ctx, ticker, r); err != nil {
			return err
		}
		return s.storage.SaveCoverage(ctx, ticker, r)
	}

	newCov := cov
	if r.From.Before(cov.From) {
		span := Range{From: r.From, To: cov.From.Add(-1)}
		if err := s.fetch(ctx, ticker, span); err != nil {
			return err
		}
		newCov.From = r.From
	}
	if cov.To.Before(r.To) {
		span := Range{From: cov.To.Add(1), To: r.To}
		if err := s.fetch(ctx, ticker, span); err != nil {
			// The head extension may already be stored; keep coverage honest.
			if newCov != cov {
				if serr := s.storage.SaveCoverage(ctx, ticker, newCov); serr != nil {
					s.log.Error("save coverage", zap.String("ticker", ticker), zap.Error(serr))
				}
			}
			return err
		}
		newCov.To = r.To
	}
	if newCov == cov {
		return nil
	}
	return s.storage.SaveCoverage(ctx, ticker, newCov)
}

func (s *PriceStore) fetch(ctx context.Context, ticker string, r Range) error {
	points, err := s.provider.DailyCloses(ctx, ticker, r)
	if err != nil {
		return err
	}
	s.log.Debug("fetched daily closes",
		zap.String("ticker", ticker),
		zap.Stringer("from", r.From),
		zap.Stringer("to", r.To),
		zap.Int("points", len(points)))
	if len(points) == 0 {
		return nil
	}
	return s.storage.SavePrices(ctx, ticker, points)
}

// Series loads the stored closes of ticker over r into a date-indexed history.
func (s *PriceStore) Series(ctx context.Context, ticker string, r Range) (History[float64], error) {
	points, err := s.storage.Prices(ctx, ticker, r)
	if err != nil {
		return History[float64]{}, fmt.Errorf("load prices for %s: %w", ticker, err)
	}
	var h History[float64]
	for _, p := range points {
		h.Append(p.Date, p.Close)
	}
	return h, nil
}

// Live fetches the provider's current quote for ticker.
func (s *PriceStore) Live(ctx context.Context, ticker string) (Quote, error) {
	return s.provider.LiveQuote(ctx, ticker)
}

// ResolveClose finds the price in force on a date: the most recent close on or
// before it, so weekends and holidays resolve to the prior trading day. Dates
// before the first known close resolve to that first close. ok is false only
// when the history is empty.
func ResolveClose(h History[float64], on Date) (price float64, ok bool) {
	if v, ok := h.ValueAsOf(on); ok {
		return v, true
	}
	if h.Len() == 0 {
		return 0, false
	}
	_, v := h.Earliest()
	return v, true
}
