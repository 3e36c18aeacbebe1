package folio

import (
	"context"
	"math"
	"testing"
)

// farFuture keeps "today" out of test ranges so no live override kicks in.
var farFuture = day("2099-01-01")

func TestReplaySingleBuyScenario(t *testing.T) {
	// Starting cash 50,000,000; one buy of 100 shares at $100 on day 0;
	// 4.2% annual cash rate; flat $100 price for a year.
	created := day("2025-01-01")
	end := created.Add(365)
	l := testLedger(created, USD(50_000_000), 0.042)
	if err := l.Append(NewBuy(created, "", "NVDA.US", Q(100), USD(100))); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	resolver := &fakeResolver{series: map[string]History[float64]{
		"NVDA.US": flatSeries(Range{From: created, To: end}, 100),
	}}

	snapshots, err := l.Replay(context.Background(), resolver, ReplayOptions{
		Range: Range{From: created, To: end},
		Today: farFuture,
	}, nil)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(snapshots) != 366 {
		t.Fatalf("len(snapshots) = %d, want 366 daily snapshots", len(snapshots))
	}

	last := snapshots[len(snapshots)-1]
	if last.Date != end {
		t.Fatalf("last date = %s, want %s", last.Date, end)
	}
	if !last.PositionsValue.Equal(USD(10_000)) {
		t.Errorf("positionsValue = %s, want $10,000.00", last.PositionsValue)
	}
	if !last.Cash.Equal(USD(49_990_000)) {
		t.Errorf("cash = %s, want $49,990,000.00", last.Cash)
	}
	wantInterest := 49_990_000 * 0.042
	if diff := math.Abs(last.InterestEarned.AsFloat() - wantInterest); diff > 1.0 {
		t.Errorf("interestEarned = %v, want ≈ %v", last.InterestEarned.AsFloat(), wantInterest)
	}
	if src := last.Sources["NVDA.US"]; src != PriceHistorical {
		t.Errorf("price source = %s, want historical", src)
	}
}

func TestReplayTotalValueIdentity(t *testing.T) {
	created := day("2025-01-01")
	end := day("2025-03-31")
	l := testLedger(created, USD(1_000_000), 0.03)
	if err := l.Append(
		NewBuy(day("2025-01-15"), "", "NVDA.US", Q(100), USD(120)),
		NewBuy(day("2025-02-01"), "", "MSFT.US", Q(50), USD(400)),
		NewSell(day("2025-03-01"), "", "NVDA.US", Q(40), USD(130)),
	); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	resolver := &fakeResolver{series: map[string]History[float64]{
		"NVDA.US": flatSeries(Range{From: created, To: end}, 125),
		"MSFT.US": flatSeries(Range{From: created, To: end}, 410),
	}}

	snapshots, err := l.Replay(context.Background(), resolver, ReplayOptions{
		Range: Range{From: created, To: end},
		Today: farFuture,
	}, nil)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	// totalValue = positionsValue + cash + interestEarned, exactly, for
	// every snapshot.
	for _, s := range snapshots {
		want := s.PositionsValue.Add(s.Cash).Add(s.InterestEarned)
		if !s.TotalValue.Equal(want) {
			t.Fatalf("%s: totalValue = %s, want exactly %s", s.Date, s.TotalValue, want)
		}
	}
}

func TestReplayIdempotent(t *testing.T) {
	created := day("2025-01-01")
	end := day("2025-02-28")
	l := testLedger(created, USD(100_000), 0.02)
	if err := l.Append(NewBuy(day("2025-01-10"), "", "NVDA.US", Q(10), USD(100))); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	resolver := &fakeResolver{series: map[string]History[float64]{
		"NVDA.US": flatSeries(Range{From: created, To: end}, 105),
	}}
	opts := ReplayOptions{Range: Range{From: created, To: end}, Today: farFuture}

	first, err := l.Replay(context.Background(), resolver, opts, nil)
	if err != nil {
		t.Fatalf("first Replay() error = %v", err)
	}
	second, err := l.Replay(context.Background(), resolver, opts, nil)
	if err != nil {
		t.Fatalf("second Replay() error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].TotalValue.Equal(second[i].TotalValue) || first[i].Date != second[i].Date {
			t.Fatalf("snapshot %d differs between runs", i)
		}
	}
}

func TestReplayFallsBackToAverageCost(t *testing.T) {
	created := day("2025-01-01")
	l := testLedger(created, USD(100_000), 0)
	if err := l.Append(NewBuy(day("2025-01-10"), "", "OBSCURE.XX", Q(10), USD(50))); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	// No price series at all for the ticker.
	resolver := &fakeResolver{}

	snapshots, err := l.Replay(context.Background(), resolver, ReplayOptions{
		Range: Range{From: day("2025-01-20"), To: day("2025-01-20")},
		Today: farFuture,
	}, nil)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	s := snapshots[0]
	// 10 shares × $50 average cost.
	if !s.PositionsValue.Equal(USD(500)) {
		t.Errorf("positionsValue = %s, want $500.00 at average cost", s.PositionsValue)
	}
	if src := s.Sources["OBSCURE.XX"]; src != PriceFallback {
		t.Errorf("price source = %s, want fallback", src)
	}
	if !s.Degraded() {
		t.Error("Degraded() = false, want true")
	}
}

func TestReplaySellToZeroRemovesPosition(t *testing.T) {
	created := day("2025-01-01")
	end := day("2025-02-28")
	l := testLedger(created, USD(100_000), 0)
	if err := l.Append(
		NewBuy(day("2025-01-10"), "", "NVDA.US", Q(10), USD(100)),
		NewSell(day("2025-02-01"), "", "NVDA.US", Q(10), USD(110)),
	); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	resolver := &fakeResolver{series: map[string]History[float64]{
		"NVDA.US": flatSeries(Range{From: created, To: end}, 105),
	}}

	snapshots, err := l.Replay(context.Background(), resolver, ReplayOptions{
		Range: Range{From: created, To: end},
		Today: farFuture,
	}, nil)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	for _, s := range snapshots {
		if s.Date.Before(day("2025-02-01")) {
			continue
		}
		if !s.PositionsValue.IsZero() {
			t.Fatalf("%s: positionsValue = %s after closing the position, want zero", s.Date, s.PositionsValue)
		}
		if len(s.Sources) != 0 {
			t.Fatalf("%s: sources = %v, want none", s.Date, s.Sources)
		}
	}
}

func TestReplayLiveTodayOverride(t *testing.T) {
	created := day("2025-01-01")
	today := day("2025-03-03")
	l := testLedger(created, USD(100_000), 0)
	if err := l.Append(NewBuy(day("2025-01-10"), "", "NVDA.US", Q(10), USD(100))); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	liveCash := USD(98_765)
	resolver := &fakeResolver{
		series: map[string]History[float64]{
			"NVDA.US": flatSeries(Range{From: created, To: today}, 105),
		},
		quotes: map[string]Quote{"NVDA.US": {Price: 120, AsOf: today}},
	}

	snapshots, err := l.Replay(context.Background(), resolver, ReplayOptions{
		Range:    Range{From: day("2025-03-01"), To: today},
		Today:    today,
		LiveCash: &liveCash,
	}, nil)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	last := snapshots[len(snapshots)-1]
	if last.Date != today {
		t.Fatalf("last date = %s, want today %s", last.Date, today)
	}
	// Live quote and authoritative cash win over the simulated values.
	if !last.PositionsValue.Equal(USD(1200)) {
		t.Errorf("positionsValue = %s, want $1,200.00 from the live quote", last.PositionsValue)
	}
	if !last.Cash.Equal(liveCash) {
		t.Errorf("cash = %s, want live %s", last.Cash, liveCash)
	}
	if src := last.Sources["NVDA.US"]; src != PriceLive {
		t.Errorf("price source = %s, want live", src)
	}

	// Earlier dates still use historical closes and simulated cash.
	first := snapshots[0]
	if !first.PositionsValue.Equal(USD(1050)) {
		t.Errorf("historical positionsValue = %s, want $1,050.00", first.PositionsValue)
	}
	if !first.Cash.Equal(USD(99_000)) {
		t.Errorf("historical cash = %s, want $99,000.00", first.Cash)
	}
}

func TestReplayEmptyLedger(t *testing.T) {
	l := &Ledger{}
	snapshots, err := l.Replay(context.Background(), &fakeResolver{}, ReplayOptions{
		Range: Range{From: day("2025-01-01"), To: day("2025-01-31")},
		Today: farFuture,
	}, nil)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(snapshots) != 0 {
		t.Errorf("len(snapshots) = %d, want 0", len(snapshots))
	}
}

func TestReplayWeeklyStrideForLongRanges(t *testing.T) {
	created := day("2020-01-01")
	end := day("2024-12-31")
	l := testLedger(created, USD(100_000), 0)
	if err := l.Append(NewBuy(day("2020-01-10"), "", "NVDA.US", Q(10), USD(100))); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	resolver := &fakeResolver{series: map[string]History[float64]{
		"NVDA.US": flatSeries(Range{From: created, To: created.Add(10)}, 100),
	}}

	snapshots, err := l.Replay(context.Background(), resolver, ReplayOptions{
		Range: Range{From: created, To: end},
		Today: farFuture,
	}, nil)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	days := Range{From: created, To: end}.Days()
	if len(snapshots) >= days {
		t.Fatalf("len(snapshots) = %d for a %d-day range, want weekly sampling", len(snapshots), days)
	}
	// Weekly spacing, with the final date always emitted.
	if snapshots[1].Date != created.Add(7) {
		t.Errorf("second snapshot = %s, want %s", snapshots[1].Date, created.Add(7))
	}
	if snapshots[len(snapshots)-1].Date != end {
		t.Errorf("last snapshot = %s, want %s", snapshots[len(snapshots)-1].Date, end)
	}
}
