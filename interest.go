package folio

// DailyRate converts an annual cash interest rate into a daily rate using a
// 365-day year.
func DailyRate(annualRate float64) float64 { return annualRate / 365 }

// InterestEarned computes the simple interest earned by a cash balance over a
// number of elapsed calendar days. Negative day counts are floored at zero so
// interest is never negative.
//
// The replay engine applies this piecewise between cash-changing events, so
// interest always accrues on the balance in effect during each sub-interval.
func InterestEarned(cash Money, annualRate float64, daysElapsed int) Money {
	if daysElapsed < 0 {
		daysElapsed = 0
	}
	return cash.MulFloat(DailyRate(annualRate) * float64(daysElapsed))
}
