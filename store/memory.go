package store

import (
	"context"
	"sort"
	"sync"

	"github.com/quarry/folio"
)

// Memory implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type Memory struct {
	mu              sync.RWMutex
	prices          map[string]map[folio.Date]float64
	coverage        map[string]folio.Range
	snapshots       map[string]map[folio.Date]folio.Snapshot
	exposures       map[folio.Date]map[string]folio.Exposure
	factorReturns   map[folio.Date]map[string]float64
	positionReturns map[string]map[folio.Date]float64
	regimes         []folio.RegimeProbabilities
}

func NewMemory() *Memory {
	return &Memory{
		prices:          make(map[string]map[folio.Date]float64),
		coverage:        make(map[string]folio.Range),
		snapshots:       make(map[string]map[folio.Date]folio.Snapshot),
		exposures:       make(map[folio.Date]map[string]folio.Exposure),
		factorReturns:   make(map[folio.Date]map[string]float64),
		positionReturns: make(map[string]map[folio.Date]float64),
	}
}

func (s *Memory) SavePrices(_ context.Context, ticker string, points []folio.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.prices[ticker]
	if m == nil {
		m = make(map[folio.Date]float64)
		s.prices[ticker] = m
	}
	for _, p := range points {
		m[p.Date] = p.Close
	}
	return nil
}

func (s *Memory) Prices(_ context.Context, ticker string, r folio.Range) ([]folio.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var points []folio.PricePoint
	for on, close := range s.prices[ticker] {
		if r.Contains(on) {
			points = append(points, folio.PricePoint{Date: on, Close: close})
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

func (s *Memory) Coverage(_ context.Context, ticker string) (folio.Range, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.coverage[ticker]
	return r, ok, nil
}

func (s *Memory) SaveCoverage(_ context.Context, ticker string, r folio.Range) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.coverage[ticker] = r
	return nil
}

func (s *Memory) Snapshots(_ context.Context, portfolioID string, r folio.Range) ([]folio.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snapshots []folio.Snapshot
	for on, snap := range s.snapshots[portfolioID] {
		if r.Contains(on) {
			snapshots = append(snapshots, snap)
		}
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Date.Before(snapshots[j].Date) })
	return snapshots, nil
}

func (s *Memory) SaveSnapshots(_ context.Context, snapshots []folio.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snapshots {
		m := s.snapshots[snap.PortfolioID]
		if m == nil {
			m = make(map[folio.Date]folio.Snapshot)
			s.snapshots[snap.PortfolioID] = m
		}
		m[snap.Date] = snap
	}
	return nil
}

func (s *Memory) SaveExposure(_ context.Context, e folio.Exposure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.exposures[e.Date]
	if m == nil {
		m = make(map[string]folio.Exposure)
		s.exposures[e.Date] = m
	}
	m[e.Ticker] = e
	return nil
}

func (s *Memory) LatestExposures(_ context.Context, tickers []string) ([]folio.Exposure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]folio.Exposure)
	for on, byTicker := range s.exposures {
		for ticker, e := range byTicker {
			if prev, ok := latest[ticker]; !ok || on.After(prev.Date) {
				latest[ticker] = e
			}
		}
	}

	var exposures []folio.Exposure
	for _, ticker := range tickers {
		if e, ok := latest[ticker]; ok {
			exposures = append(exposures, e)
		}
	}
	return exposures, nil
}

func (s *Memory) FactorReturns(_ context.Context, r folio.Range) ([]folio.FactorReturn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []folio.FactorReturn
	for on, factors := range s.factorReturns {
		if r.Contains(on) {
			rows = append(rows, folio.FactorReturn{Date: on, Factors: factors})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

func (s *Memory) PositionReturns(_ context.Context, ticker string, r folio.Range) ([]folio.PositionReturn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []folio.PositionReturn
	for on, ret := range s.positionReturns[ticker] {
		if r.Contains(on) {
			rows = append(rows, folio.PositionReturn{Ticker: ticker, Date: on, Return: ret})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

func (s *Memory) SaveFactorReturns(_ context.Context, rows []folio.FactorReturn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		s.factorReturns[row.Date] = row.Factors
	}
	return nil
}

func (s *Memory) SavePositionReturns(_ context.Context, rows []folio.PositionReturn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		m := s.positionReturns[row.Ticker]
		if m == nil {
			m = make(map[folio.Date]float64)
			s.positionReturns[row.Ticker] = m
		}
		m[row.Date] = row.Return
	}
	return nil
}

func (s *Memory) SaveRegimeProbabilities(_ context.Context, p folio.RegimeProbabilities) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.regimes {
		if s.regimes[i].AsOf == p.AsOf {
			s.regimes[i] = p
			return nil
		}
	}
	s.regimes = append(s.regimes, p)
	return nil
}

func (s *Memory) LatestRegimeProbabilities(_ context.Context) (folio.RegimeProbabilities, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest folio.RegimeProbabilities
	for _, p := range s.regimes {
		if latest.AsOf.IsZero() || p.AsOf.After(latest.AsOf) {
			latest = p
		}
	}
	return latest, nil
}
