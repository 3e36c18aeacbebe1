package folio

import (
	"maps"
	"math"
	"slices"
)

// ShockVector maps factor names to the return shock a regime applies to them.
type ShockVector map[string]float64

// RiskOptions carries the fixed inputs of the risk report: target exposures,
// the drift threshold above which a deviation is flagged, and the
// hand-specified shock vector per regime label.
type RiskOptions struct {
	Targets        map[string]float64
	DriftThreshold float64
	Shocks         map[string]ShockVector

	// DefaultRegime names the shock vector used for a regime label with no
	// vector of its own.
	DefaultRegime string
}

// DefaultRiskOptions returns the reference configuration: a long-market book
// with small size and neutral value tilts, and three stylized regimes.
func DefaultRiskOptions() RiskOptions {
	return RiskOptions{
		Targets: map[string]float64{
			"market": 1.0,
			"size":   0.15,
			"value":  0.0,
		},
		DriftThreshold: 0.1,
		Shocks: map[string]ShockVector{
			"expansion": {"market": 0.03, "size": 0.01, "value": 0.0},
			"slowdown":  {"market": -0.02, "size": -0.005, "value": 0.005},
			"stress":    {"market": -0.05, "size": -0.02, "value": 0.01},
		},
		DefaultRegime: "slowdown",
	}
}

// Drift is one factor's aggregate exposure against its target.
type Drift struct {
	Factor  string
	Beta    float64
	Target  float64
	Drift   float64
	Notable bool
}

// ScenarioPnL is the expected portfolio shock under one regime, reported
// alongside that regime's probability. Probabilities are carried through
// as supplied; they are not required to sum to 1.
type ScenarioPnL struct {
	Regime        string
	Probability   float64
	ExpectedShock float64

	// DefaultShock marks that the regime had no shock vector of its own and
	// the default regime's vector was used instead.
	DefaultShock bool
}

// RiskReport is a stateless recomputation from the latest exposures and
// regime probabilities; nothing in it is persisted or carried between runs.
type RiskReport struct {
	AsOf           Date
	AggregateBetas map[string]float64
	Drift          []Drift
	Scenarios      []ScenarioPnL
}

// AggregateBetas sums each factor's beta across all exposures. The sum is
// unweighted: it does not account for position size unless the caller scaled
// the betas beforehand, a known simplification.
func AggregateBetas(exposures []Exposure) map[string]float64 {
	agg := make(map[string]float64)
	for _, e := range exposures {
		for factor, beta := range e.Betas {
			agg[factor] += beta
		}
	}
	return agg
}

// BuildRiskReport turns current exposures and regime probabilities into drift
// diagnostics and per-scenario expected shocks.
func BuildRiskReport(exposures []Exposure, probs RegimeProbabilities, opts RiskOptions) RiskReport {
	agg := AggregateBetas(exposures)

	report := RiskReport{
		AsOf:           probs.AsOf,
		AggregateBetas: agg,
	}

	factors := slices.Collect(maps.Keys(opts.Targets))
	for factor := range agg {
		if _, ok := opts.Targets[factor]; !ok {
			factors = append(factors, factor)
		}
	}
	slices.Sort(factors)
	for _, factor := range factors {
		drift := agg[factor] - opts.Targets[factor]
		report.Drift = append(report.Drift, Drift{
			Factor:  factor,
			Beta:    agg[factor],
			Target:  opts.Targets[factor],
			Drift:   drift,
			Notable: math.Abs(drift) > opts.DriftThreshold,
		})
	}

	regimes := slices.Collect(maps.Keys(probs.Probabilities))
	slices.Sort(regimes)
	for _, regime := range regimes {
		shock, ok := opts.Shocks[regime]
		if !ok {
			shock = opts.Shocks[opts.DefaultRegime]
		}
		var expected float64
		for factor, s := range shock {
			expected += s * agg[factor]
		}
		report.Scenarios = append(report.Scenarios, ScenarioPnL{
			Regime:        regime,
			Probability:   probs.Probabilities[regime],
			ExpectedShock: expected,
			DefaultShock:  !ok,
		})
	}
	return report
}
