package folio

// PriceSource tags how a position's valuation price was resolved, so that
// consumers can distinguish estimate quality instead of treating every number
// as ground truth.
type PriceSource int

const (
	// PriceHistorical is a stored daily close on or before the valuation date.
	PriceHistorical PriceSource = iota
	// PriceFallback is the position's average cost, used when no historical
	// price could be resolved. Degraded accuracy.
	PriceFallback
	// PriceLive is a live quote, used for the current date only.
	PriceLive
)

func (s PriceSource) String() string {
	switch s {
	case PriceHistorical:
		return "historical"
	case PriceFallback:
		return "fallback"
	case PriceLive:
		return "live"
	default:
		return "unknown"
	}
}

// Snapshot is a single date's fully resolved portfolio valuation.
//
// The invariant TotalValue = PositionsValue + Cash + InterestEarned holds
// exactly for every snapshot the replay engine emits: TotalValue is computed
// as that sum in decimal arithmetic, never re-derived independently.
type Snapshot struct {
	PortfolioID    string
	Date           Date
	TotalValue     Money
	PositionsValue Money
	Cash           Money
	InterestEarned Money

	// Sources records, per held ticker, how its valuation price was resolved.
	// Nil when read back from the snapshot cache.
	Sources map[string]PriceSource
}

// Degraded reports whether any position in the snapshot was valued by the
// average-cost fallback.
func (s Snapshot) Degraded() bool {
	for _, src := range s.Sources {
		if src == PriceFallback {
			return true
		}
	}
	return false
}

// PricePoint is one daily closing price of a security. The ticker is implied
// by the series the point belongs to. Non-trading days (weekends, holidays)
// have no point by design.
type PricePoint struct {
	Date  Date    `json:"date"`
	Close float64 `json:"close"`
}

// Quote is a live price with the date it was observed.
type Quote struct {
	Price float64
	AsOf  Date
}

// FactorReturn is one day's return of every systematic factor, keyed by
// factor name.
type FactorReturn struct {
	Date    Date
	Factors map[string]float64
}

// PositionReturn is one day's return of a single security, aligned with
// FactorReturn rows by shared date.
type PositionReturn struct {
	Ticker string
	Date   Date
	Return float64
}

// Exposure holds a security's regression coefficients against each factor, as
// of the last aligned observation date of the rolling window that produced it.
type Exposure struct {
	Date   Date
	Ticker string
	Betas  map[string]float64
}

// RegimeProbabilities is the externally supplied probability of each macro
// regime as of a date. Probabilities are reported as-is; they are not required
// to sum to 1 and are never normalized here.
type RegimeProbabilities struct {
	AsOf          Date
	Probabilities map[string]float64
}
