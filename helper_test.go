package folio

import "context"

// Test helpers shared across the package tests.

func USD(v float64) Money { return M(v, "USD") }
func EUR(v float64) Money { return M(v, "EUR") }

func day(s string) Date { return MustParseDate(s) }

// testLedger builds a USD ledger created on the given day.
func testLedger(created Date, startingCash Money, annualRate float64) *Ledger {
	l, err := NewLedger(created, "test-portfolio", "Test", "USD", startingCash, annualRate)
	if err != nil {
		panic(err)
	}
	return l
}

// fakeResolver serves static price histories and quotes, it stands in for the
// price store in replay tests.
type fakeResolver struct {
	series    map[string]History[float64]
	quotes    map[string]Quote
	seriesErr error
	liveErr   error
}

func (f *fakeResolver) Series(_ context.Context, ticker string, _ Range) (History[float64], error) {
	if f.seriesErr != nil {
		return History[float64]{}, f.seriesErr
	}
	return f.series[ticker], nil
}

func (f *fakeResolver) Live(_ context.Context, ticker string) (Quote, error) {
	if f.liveErr != nil {
		return Quote{}, f.liveErr
	}
	q, ok := f.quotes[ticker]
	if !ok {
		return Quote{}, ErrNoPrice
	}
	return q, nil
}

// flatSeries builds a history with the same close on every date of r.
func flatSeries(r Range, close float64) History[float64] {
	var h History[float64]
	for on := range r.Dates(1) {
		h.Append(on, close)
	}
	return h
}
