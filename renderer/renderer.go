// Package renderer turns engine results into markdown reports for the CLI.
package renderer

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/quarry/folio"
)

// ChartMarkdown renders a valuation series as a markdown table, one row per
// snapshot. Degraded snapshots are flagged so the reader knows which rows
// were valued from a fallback price.
func ChartMarkdown(name string, snapshots []folio.Snapshot) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Valuation of %s\n\n", name)
	if len(snapshots) == 0 {
		b.WriteString("No snapshots in the requested range.\n")
		return b.String()
	}

	t := newTable("Date", "Total Value", "Positions", "Cash", "Interest", "Quality")
	for _, s := range snapshots {
		quality := "ok"
		if s.Degraded() {
			quality = "degraded"
		}
		if src, live := liveSources(s); live {
			quality = "live (" + src + ")"
		}
		t.row(s.Date.String(), s.TotalValue.String(), s.PositionsValue.String(),
			s.Cash.String(), s.InterestEarned.String(), quality)
	}
	t.write(&b)
	return b.String()
}

func liveSources(s folio.Snapshot) (string, bool) {
	var live []string
	for ticker, src := range s.Sources {
		if src == folio.PriceLive {
			live = append(live, ticker)
		}
	}
	if len(live) == 0 {
		return "", false
	}
	sort.Strings(live)
	return strings.Join(live, ", "), true
}

// PositionsMarkdown renders the open positions of a portfolio on a given day.
func PositionsMarkdown(l *folio.Ledger, on folio.Date) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Positions of %s on %s\n\n", l.Name(), on)

	positions := l.Positions(on)
	if len(positions) == 0 {
		b.WriteString("No open positions.\n")
	} else {
		t := newTable("Ticker", "Shares", "Cost Basis", "Avg Cost")
		for _, p := range positions {
			t.row(p.Ticker, p.Shares.String(), p.CostBasis.String(), p.AverageCost().String())
		}
		t.write(&b)
	}

	fmt.Fprintf(&b, "\nCash: %s\n", l.CashBalance(on))
	return b.String()
}

// Transactions renders a chronological list of transactions, one line each.
func Transactions(txs []folio.Transaction) string {
	var b bytes.Buffer
	b.WriteString("# Transactions\n\n")
	for _, tx := range txs {
		fmt.Fprintf(&b, "- %s: %s\n", tx.When(), Transaction(tx))
	}
	return b.String()
}

// Transaction renders a single transaction to a human readable line.
func Transaction(tx folio.Transaction) string {
	switch v := tx.(type) {
	case folio.Init:
		return fmt.Sprintf("Opened portfolio %q with %s at %.2f%% annual cash rate", v.Name, v.Cash, v.AnnualRate*100)
	case folio.Buy:
		return fmt.Sprintf("Bought %s of %s at %s", v.Quantity, v.Security, v.Price)
	case folio.Sell:
		return fmt.Sprintf("Sold %s of %s at %s", v.Quantity, v.Security, v.Price)
	default:
		return string(tx.What())
	}
}

// ExposuresMarkdown renders factor exposures, one row per ticker, one column
// per factor. Factors appear in sorted order so the output is stable.
func ExposuresMarkdown(exposures []folio.Exposure) string {
	var b bytes.Buffer
	b.WriteString("# Factor Exposures\n\n")
	if len(exposures) == 0 {
		b.WriteString("No exposures estimated.\n")
		return b.String()
	}

	factors := factorNames(exposures)
	headers := append([]string{"Ticker", "As Of"}, factors...)
	t := newTable(headers...)
	for _, e := range exposures {
		cells := []string{e.Ticker, e.Date.String()}
		for _, f := range factors {
			cells = append(cells, fmt.Sprintf("%.4f", e.Betas[f]))
		}
		t.row(cells...)
	}
	t.write(&b)
	return b.String()
}

func factorNames(exposures []folio.Exposure) []string {
	seen := make(map[string]bool)
	var names []string
	for _, e := range exposures {
		for f := range e.Betas {
			if !seen[f] {
				seen[f] = true
				names = append(names, f)
			}
		}
	}
	sort.Strings(names)
	return names
}

// RiskMarkdown renders a full risk report: aggregate betas with drift against
// targets, then the scenario P&L per regime.
func RiskMarkdown(r folio.RiskReport) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Risk Report as of %s\n\n", r.AsOf)

	b.WriteString("## Factor Drift\n\n")
	if len(r.Drift) == 0 {
		b.WriteString("No factor exposures to report.\n")
	} else {
		t := newTable("Factor", "Beta", "Target", "Drift", "")
		for _, d := range r.Drift {
			mark := ""
			if d.Notable {
				mark = "⚠ rebalance"
			}
			t.row(d.Factor, fmt.Sprintf("%.4f", d.Beta), fmt.Sprintf("%.4f", d.Target),
				fmt.Sprintf("%+.4f", d.Drift), mark)
		}
		t.write(&b)
	}

	b.WriteString("\n## Scenario P&L\n\n")
	if len(r.Scenarios) == 0 {
		b.WriteString("No regime probabilities available.\n")
		return b.String()
	}
	t := newTable("Regime", "Probability", "Expected Shock", "")
	for _, s := range r.Scenarios {
		note := ""
		if s.DefaultShock {
			note = "default shock"
		}
		t.row(s.Regime, fmt.Sprintf("%.2f", s.Probability),
			fmt.Sprintf("%+.4f", s.ExpectedShock), note)
	}
	t.write(&b)
	return b.String()
}
