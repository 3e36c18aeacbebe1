package folio

import (
	"math"
	"testing"
)

func TestInterestEarned(t *testing.T) {
	t.Run("one year of simple interest", func(t *testing.T) {
		got := InterestEarned(USD(50_000_000), 0.042, 365)
		want := 50_000_000 * 0.042
		if diff := math.Abs(got.AsFloat() - want); diff > 0.01 {
			t.Errorf("InterestEarned = %v, want ≈ %v", got.AsFloat(), want)
		}
	})

	t.Run("zero days earns nothing", func(t *testing.T) {
		if got := InterestEarned(USD(1000), 0.042, 0); !got.IsZero() {
			t.Errorf("InterestEarned = %s, want zero", got)
		}
	})

	t.Run("negative days floored at zero", func(t *testing.T) {
		if got := InterestEarned(USD(1000), 0.042, -5); !got.IsZero() {
			t.Errorf("InterestEarned = %s, want zero", got)
		}
	})

	t.Run("zero rate earns nothing", func(t *testing.T) {
		if got := InterestEarned(USD(1000), 0, 100); !got.IsZero() {
			t.Errorf("InterestEarned = %s, want zero", got)
		}
	})
}

func TestDailyRate(t *testing.T) {
	if got := DailyRate(0.365); math.Abs(got-0.001) > 1e-12 {
		t.Errorf("DailyRate(0.365) = %v, want 0.001", got)
	}
}
