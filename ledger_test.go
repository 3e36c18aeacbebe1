package folio

import (
	"errors"
	"testing"
)

func TestLedgerRequiresInitFirst(t *testing.T) {
	l := &Ledger{}
	buy := NewBuy(day("2025-03-03"), "", "NVDA.US", Q(10), USD(100))
	if err := l.Append(buy); err == nil {
		t.Error("Append(buy) on uninitialized ledger succeeded, want error")
	}
}

func TestLedgerPosition(t *testing.T) {
	l := testLedger(day("2025-01-01"), USD(100_000), 0)
	if err := l.Append(
		NewBuy(day("2025-01-10"), "", "NVDA.US", Q(10), USD(100)),
		NewBuy(day("2025-02-10"), "", "NVDA.US", Q(10), USD(200)),
	); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	t.Run("before first buy", func(t *testing.T) {
		pos := l.Position(day("2025-01-05"), "NVDA.US")
		if !pos.Shares.IsZero() {
			t.Errorf("shares = %s, want 0", pos.Shares)
		}
	})

	t.Run("average cost across buys", func(t *testing.T) {
		pos := l.Position(day("2025-02-28"), "NVDA.US")
		if !pos.Shares.Equal(Q(20)) {
			t.Fatalf("shares = %s, want 20", pos.Shares)
		}
		// (10×100 + 10×200) / 20 = 150
		if !pos.AverageCost().Equal(USD(150)) {
			t.Errorf("average cost = %s, want $150.00", pos.AverageCost())
		}
	})

	t.Run("sell reduces cost basis proportionally", func(t *testing.T) {
		if err := l.Append(NewSell(day("2025-03-01"), "", "NVDA.US", Q(5), USD(300))); err != nil {
			t.Fatalf("Append(sell) error = %v", err)
		}
		pos := l.Position(day("2025-03-02"), "NVDA.US")
		if !pos.Shares.Equal(Q(15)) {
			t.Fatalf("shares = %s, want 15", pos.Shares)
		}
		// 3000 − 3000×(5/20) = 2250; average cost unchanged at 150.
		if !pos.CostBasis.Equal(USD(2250)) {
			t.Errorf("cost basis = %s, want $2,250.00", pos.CostBasis)
		}
		if !pos.AverageCost().Equal(USD(150)) {
			t.Errorf("average cost = %s, want $150.00", pos.AverageCost())
		}
	})
}

func TestLedgerRejectsOversell(t *testing.T) {
	l := testLedger(day("2025-01-01"), USD(100_000), 0)
	if err := l.Append(NewBuy(day("2025-01-10"), "", "NVDA.US", Q(10), USD(100))); err != nil {
		t.Fatalf("Append(buy) error = %v", err)
	}

	err := l.Append(NewSell(day("2025-01-20"), "", "NVDA.US", Q(11), USD(100)))
	if !errors.Is(err, ErrOversell) {
		t.Fatalf("Append(oversell) error = %v, want ErrOversell", err)
	}
	// The rejected transaction must not have been recorded.
	if got := l.Position(day("2025-01-21"), "NVDA.US"); !got.Shares.Equal(Q(10)) {
		t.Errorf("shares after rejected sell = %s, want 10", got.Shares)
	}
}

func TestLedgerBackdatedSells(t *testing.T) {
	t.Run("rejects sell that uncovers a later sell", func(t *testing.T) {
		l := testLedger(day("2025-01-01"), USD(100_000), 0)
		if err := l.Append(
			NewBuy(day("2025-01-10"), "", "NVDA.US", Q(10), USD(100)),
			NewSell(day("2025-03-01"), "", "NVDA.US", Q(10), USD(110)),
		); err != nil {
			t.Fatalf("Append() error = %v", err)
		}

		// Covered on its own date, but it would leave the March sell with
		// nothing to sell.
		err := l.Append(NewSell(day("2025-02-01"), "", "NVDA.US", Q(10), USD(105)))
		if !errors.Is(err, ErrOversell) {
			t.Fatalf("Append(backdated sell) error = %v, want ErrOversell", err)
		}
		if l.Len() != 2 {
			t.Errorf("Len() after rejected sell = %d, want 2", l.Len())
		}
		if got := l.Position(day("2025-02-02"), "NVDA.US"); !got.Shares.Equal(Q(10)) {
			t.Errorf("shares after rejected sell = %s, want 10", got.Shares)
		}
	})

	t.Run("positions never go negative", func(t *testing.T) {
		l := testLedger(day("2025-01-01"), USD(100_000), 0)
		if err := l.Append(
			NewBuy(day("2025-01-10"), "", "NVDA.US", Q(10), USD(100)),
			NewSell(day("2025-03-01"), "", "NVDA.US", Q(6), USD(110)),
		); err != nil {
			t.Fatalf("Append() error = %v", err)
		}

		err := l.Append(NewSell(day("2025-02-01"), "", "NVDA.US", Q(6), USD(105)))
		if !errors.Is(err, ErrOversell) {
			t.Fatalf("Append(backdated sell) error = %v, want ErrOversell", err)
		}
		for _, pos := range l.Positions(day("2025-03-02")) {
			if pos.Shares.IsNegative() {
				t.Errorf("position %s has %s shares, want non-negative", pos.Ticker, pos.Shares)
			}
		}
	})

	t.Run("accepts a covered backdated sell", func(t *testing.T) {
		l := testLedger(day("2025-01-01"), USD(100_000), 0)
		if err := l.Append(
			NewBuy(day("2025-01-10"), "", "NVDA.US", Q(20), USD(100)),
			NewSell(day("2025-03-01"), "", "NVDA.US", Q(5), USD(110)),
		); err != nil {
			t.Fatalf("Append() error = %v", err)
		}

		if err := l.Append(NewSell(day("2025-02-01"), "", "NVDA.US", Q(5), USD(105))); err != nil {
			t.Fatalf("Append(backdated sell) error = %v", err)
		}
		if got := l.Position(day("2025-03-02"), "NVDA.US"); !got.Shares.Equal(Q(10)) {
			t.Errorf("shares = %s, want 10", got.Shares)
		}
	})
}

func TestLedgerCashBalance(t *testing.T) {
	l := testLedger(day("2025-01-01"), USD(10_000), 0)
	if err := l.Append(
		NewBuy(day("2025-01-10"), "", "NVDA.US", Q(10), USD(100)),
		NewSell(day("2025-02-10"), "", "NVDA.US", Q(10), USD(150)),
	); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	tests := []struct {
		on   Date
		want Money
	}{
		{day("2025-01-05"), USD(10_000)},
		{day("2025-01-10"), USD(9_000)},
		{day("2025-02-10"), USD(10_500)},
	}
	for _, tt := range tests {
		if got := l.CashBalance(tt.on); !got.Equal(tt.want) {
			t.Errorf("CashBalance(%s) = %s, want %s", tt.on, got, tt.want)
		}
	}
}

func TestLedgerPositionsDropsClosed(t *testing.T) {
	l := testLedger(day("2025-01-01"), USD(100_000), 0)
	if err := l.Append(
		NewBuy(day("2025-01-10"), "", "NVDA.US", Q(10), USD(100)),
		NewBuy(day("2025-01-10"), "", "MSFT.US", Q(5), USD(400)),
		NewSell(day("2025-01-20"), "", "NVDA.US", Q(10), USD(110)),
	); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	positions := l.Positions(day("2025-01-31"))
	if len(positions) != 1 {
		t.Fatalf("len(positions) = %d, want 1", len(positions))
	}
	if positions[0].Ticker != "MSFT.US" {
		t.Errorf("ticker = %s, want MSFT.US", positions[0].Ticker)
	}
	if got := l.HeldTickers(day("2025-01-31")); len(got) != 1 || got[0] != "MSFT.US" {
		t.Errorf("HeldTickers = %v, want [MSFT.US]", got)
	}
}

func TestLedgerStableSort(t *testing.T) {
	l := testLedger(day("2025-01-01"), USD(100_000), 0)
	// Appended out of order, iterated in date order.
	if err := l.Append(
		NewBuy(day("2025-03-01"), "", "NVDA.US", Q(1), USD(100)),
		NewBuy(day("2025-02-01"), "", "NVDA.US", Q(1), USD(100)),
	); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	var dates []Date
	for _, tx := range l.Transactions() {
		dates = append(dates, tx.When())
	}
	for i := 1; i < len(dates); i++ {
		if dates[i].Before(dates[i-1]) {
			t.Fatalf("transactions out of order: %v", dates)
		}
	}
}
