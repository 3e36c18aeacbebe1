package job

import (
	"context"
	"errors"
	"testing"

	"github.com/quarry/folio"
	"github.com/quarry/folio/store"
)

func day(s string) folio.Date { return folio.MustParseDate(s) }

// flatProvider serves a constant close for every requested day.
type flatProvider struct {
	close float64
}

func (p *flatProvider) DailyCloses(_ context.Context, _ string, r folio.Range) ([]folio.PricePoint, error) {
	var points []folio.PricePoint
	for d := range r.Dates(1) {
		points = append(points, folio.PricePoint{Date: d, Close: p.close})
	}
	return points, nil
}

func (p *flatProvider) LiveQuote(_ context.Context, _ string) (folio.Quote, error) {
	return folio.Quote{Price: p.close, AsOf: folio.Today()}, nil
}

func testLedgerLoader(t *testing.T) LedgerLoader {
	t.Helper()
	ledger, err := folio.NewLedger(day("2025-01-02"), "p1", "growth", "USD", folio.M(50000, "USD"), 0.042)
	if err != nil {
		t.Fatal(err)
	}
	if err := ledger.Append(folio.NewBuy(day("2025-01-10"), "", "AAPL.US", folio.Q(10), folio.M(150, "USD"))); err != nil {
		t.Fatal(err)
	}
	return func() (*folio.Ledger, error) { return ledger, nil }
}

func TestSnapshotJobFillsCache(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	prices := folio.NewPriceStore(mem, &flatProvider{close: 160}, nil)
	charter := folio.NewCharter(mem, prices, nil)

	jobs := New(testLedgerLoader(t), charter, nil, nil)

	asOf := day("2025-03-31")
	if err := jobs.Snapshot(ctx, asOf); err != nil {
		t.Fatalf("snapshot job failed: %v", err)
	}

	cached, err := mem.Snapshots(ctx, "p1", folio.Range{From: day("2025-01-02"), To: asOf})
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) == 0 {
		t.Fatal("snapshot job left the cache empty")
	}
	first, last := cached[0], cached[len(cached)-1]
	if first.Date != day("2025-01-02") || last.Date != asOf {
		t.Errorf("cached series spans %s..%s, want 2025-01-02..%s", first.Date, last.Date, asOf)
	}

	// A second run is idempotent.
	if err := jobs.Snapshot(ctx, asOf); err != nil {
		t.Fatalf("second snapshot run failed: %v", err)
	}
	again, err := mem.Snapshots(ctx, "p1", folio.Range{From: day("2025-01-02"), To: asOf})
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != len(cached) {
		t.Errorf("second run changed the cache size from %d to %d", len(cached), len(again))
	}
}

func TestFactorJobEstimatesHeldTickers(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	// Fifteen days of identical factor and position returns: beta must be 1.
	var factorRows []folio.FactorReturn
	var positionRows []folio.PositionReturn
	d := day("2025-03-10")
	for i := 0; i < 15; i++ {
		ret := 0.01 * float64(i%3)
		factorRows = append(factorRows, folio.FactorReturn{Date: d, Factors: map[string]float64{"market": ret}})
		positionRows = append(positionRows, folio.PositionReturn{Ticker: "AAPL.US", Date: d, Return: ret})
		d = d.Add(1)
	}
	if err := mem.SaveFactorReturns(ctx, factorRows); err != nil {
		t.Fatal(err)
	}
	if err := mem.SavePositionReturns(ctx, positionRows); err != nil {
		t.Fatal(err)
	}

	estimator := folio.NewFactorEstimator(mem, mem, nil)
	jobs := New(testLedgerLoader(t), nil, estimator, nil)

	if err := jobs.Factor(ctx, day("2025-03-31")); err != nil {
		t.Fatalf("factor job failed: %v", err)
	}

	exposures, err := mem.LatestExposures(ctx, []string{"AAPL.US"})
	if err != nil {
		t.Fatal(err)
	}
	if len(exposures) != 1 {
		t.Fatalf("got %d exposures, want 1", len(exposures))
	}
	if beta := exposures[0].Betas["market"]; beta != 1.0 {
		t.Errorf("market beta = %v, want exactly 1.0", beta)
	}
}

func TestFactorJobNoPositions(t *testing.T) {
	ledger, err := folio.NewLedger(day("2025-01-02"), "p1", "growth", "USD", folio.M(50000, "USD"), 0)
	if err != nil {
		t.Fatal(err)
	}
	jobs := New(func() (*folio.Ledger, error) { return ledger, nil }, nil, nil, nil)

	// No held tickers: the job must be a no-op, not a nil dereference.
	if err := jobs.Factor(context.Background(), day("2025-03-31")); err != nil {
		t.Errorf("factor job with no positions failed: %v", err)
	}
}

func TestJobsSurfaceLoaderErrors(t *testing.T) {
	sentinel := errors.New("ledger unreadable")
	jobs := New(func() (*folio.Ledger, error) { return nil, sentinel }, nil, nil, nil)

	if err := jobs.Snapshot(context.Background(), day("2025-03-31")); !errors.Is(err, sentinel) {
		t.Errorf("snapshot job error = %v, want wrapped loader error", err)
	}
	if err := jobs.Factor(context.Background(), day("2025-03-31")); !errors.Is(err, sentinel) {
		t.Errorf("factor job error = %v, want wrapped loader error", err)
	}
}

func TestRunnerRejectsInvalidSpec(t *testing.T) {
	r := NewRunner(nil, nil)
	if _, err := r.Add("broken", "not a cron spec", func(context.Context, folio.Date) error { return nil }); err == nil {
		t.Error("expected an error for an invalid cron spec")
	}
	if _, err := r.Add("ok", "0 30 6 * * *", func(context.Context, folio.Date) error { return nil }); err != nil {
		t.Errorf("valid six-field spec rejected: %v", err)
	}
	r.Start()
	r.Stop()
}
