package renderer

import (
	"strings"
	"testing"

	"github.com/quarry/folio"
)

func day(s string) folio.Date { return folio.MustParseDate(s) }

func TestChartMarkdownFlagsDegradedRows(t *testing.T) {
	snapshots := []folio.Snapshot{
		{
			PortfolioID: "p1", Date: day("2025-03-03"),
			TotalValue: folio.M(1050, "USD"), PositionsValue: folio.M(1000, "USD"),
			Cash: folio.M(50, "USD"), InterestEarned: folio.M(0, "USD"),
			Sources: map[string]folio.PriceSource{"AAPL.US": folio.PriceHistorical},
		},
		{
			PortfolioID: "p1", Date: day("2025-03-04"),
			TotalValue: folio.M(1040, "USD"), PositionsValue: folio.M(990, "USD"),
			Cash: folio.M(50, "USD"), InterestEarned: folio.M(0, "USD"),
			Sources: map[string]folio.PriceSource{"AAPL.US": folio.PriceFallback},
		},
	}

	out := ChartMarkdown("growth", snapshots)

	if !strings.Contains(out, "# Valuation of growth") {
		t.Errorf("missing title in output:\n%s", out)
	}
	lines := strings.Split(out, "\n")
	var okLine, degradedLine string
	for _, l := range lines {
		if strings.Contains(l, "2025-03-03") {
			okLine = l
		}
		if strings.Contains(l, "2025-03-04") {
			degradedLine = l
		}
	}
	if !strings.Contains(okLine, "ok") {
		t.Errorf("clean snapshot not marked ok: %q", okLine)
	}
	if !strings.Contains(degradedLine, "degraded") {
		t.Errorf("fallback snapshot not marked degraded: %q", degradedLine)
	}
}

func TestChartMarkdownMarksLiveTickers(t *testing.T) {
	snapshots := []folio.Snapshot{{
		PortfolioID: "p1", Date: day("2025-03-05"),
		TotalValue: folio.M(1000, "USD"), PositionsValue: folio.M(1000, "USD"),
		Cash: folio.M(0, "USD"), InterestEarned: folio.M(0, "USD"),
		Sources: map[string]folio.PriceSource{"NVDA.US": folio.PriceLive},
	}}

	out := ChartMarkdown("growth", snapshots)
	if !strings.Contains(out, "live (NVDA.US)") {
		t.Errorf("live source not surfaced:\n%s", out)
	}
}

func TestChartMarkdownEmpty(t *testing.T) {
	out := ChartMarkdown("growth", nil)
	if !strings.Contains(out, "No snapshots") {
		t.Errorf("unexpected output for empty series:\n%s", out)
	}
}

func TestExposuresMarkdownSortsFactors(t *testing.T) {
	out := ExposuresMarkdown([]folio.Exposure{
		{Date: day("2025-03-03"), Ticker: "AAPL.US", Betas: map[string]float64{"value": 0.1, "market": 1.2}},
		{Date: day("2025-03-03"), Ticker: "NVDA.US", Betas: map[string]float64{"market": 1.8, "size": -0.2}},
	})

	header := ""
	for _, l := range strings.Split(out, "\n") {
		if strings.Contains(l, "Ticker") {
			header = l
			break
		}
	}
	market := strings.Index(header, "market")
	size := strings.Index(header, "size")
	value := strings.Index(header, "value")
	if market < 0 || size < 0 || value < 0 || !(market < size && size < value) {
		t.Errorf("factor columns not sorted: %q", header)
	}
	if !strings.Contains(out, "1.2000") || !strings.Contains(out, "-0.2000") {
		t.Errorf("betas missing from table:\n%s", out)
	}
}

func TestRiskMarkdown(t *testing.T) {
	report := folio.RiskReport{
		AsOf: day("2025-03-03"),
		Drift: []folio.Drift{
			{Factor: "market", Beta: 1.25, Target: 1, Drift: 0.25, Notable: true},
			{Factor: "size", Beta: 0.1, Target: 0.15, Drift: -0.05},
		},
		Scenarios: []folio.ScenarioPnL{
			{Regime: "expansion", Probability: 0.5, ExpectedShock: 0.025},
			{Regime: "stress", Probability: 0.1, ExpectedShock: -0.0625, DefaultShock: true},
		},
	}

	out := RiskMarkdown(report)
	if !strings.Contains(out, "rebalance") {
		t.Errorf("notable drift not flagged:\n%s", out)
	}
	if strings.Count(out, "rebalance") != 1 {
		t.Errorf("only the notable drift should carry the flag:\n%s", out)
	}
	if !strings.Contains(out, "default shock") {
		t.Errorf("default shock scenario not annotated:\n%s", out)
	}
	if !strings.Contains(out, "+0.0250") || !strings.Contains(out, "-0.0625") {
		t.Errorf("expected shocks missing:\n%s", out)
	}
}

func TestPositionsMarkdown(t *testing.T) {
	l, err := folio.NewLedger(day("2025-01-02"), "p1", "growth", "USD", folio.M(10000, "USD"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Append(folio.NewBuy(day("2025-01-10"), "", "AAPL.US", folio.Q(10), folio.M(150, "USD"))); err != nil {
		t.Fatal(err)
	}

	out := PositionsMarkdown(l, day("2025-02-01"))
	if !strings.Contains(out, "AAPL.US") {
		t.Errorf("position missing:\n%s", out)
	}
	if !strings.Contains(out, "Cash: $8,500.00") {
		t.Errorf("cash balance missing or wrong:\n%s", out)
	}
}
