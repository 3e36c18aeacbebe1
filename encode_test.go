package folio

import (
	"bytes"
	"strings"
	"testing"
)

func TestLedgerEncodeDecodeRoundTrip(t *testing.T) {
	l := testLedger(day("2025-01-01"), USD(50_000), 0.042)
	if err := l.Append(
		NewBuy(day("2025-01-10"), "first position", "NVDA.US", Q(10), USD(100)),
		NewSell(day("2025-02-10"), "", "NVDA.US", Q(4), USD(120)),
	); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	var buf bytes.Buffer
	if err := EncodeLedger(&buf, l); err != nil {
		t.Fatalf("EncodeLedger() error = %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 3 {
		t.Fatalf("encoded %d lines, want 3", got)
	}

	decoded, err := DecodeLedger(&buf)
	if err != nil {
		t.Fatalf("DecodeLedger() error = %v", err)
	}
	if decoded.Len() != l.Len() {
		t.Fatalf("decoded %d transactions, want %d", decoded.Len(), l.Len())
	}
	if decoded.Name() != "Test" || decoded.Currency() != "USD" {
		t.Errorf("header = %q %q, want Test USD", decoded.Name(), decoded.Currency())
	}
	if !decoded.StartingCash().Equal(USD(50_000)) {
		t.Errorf("startingCash = %s, want $50,000.00", decoded.StartingCash())
	}
	if decoded.AnnualRate() != 0.042 {
		t.Errorf("annualRate = %v, want 0.042", decoded.AnnualRate())
	}

	for i, tx := range l.Transactions() {
		var match Transaction
		for j, other := range decoded.Transactions() {
			if i == j {
				match = other
			}
		}
		if match == nil || !tx.Equal(match) {
			t.Errorf("transaction %d does not round-trip: %v vs %v", i, tx, match)
		}
	}
}

func TestDecodeLedgerOutOfOrderLines(t *testing.T) {
	// The buy line precedes the init line in the stream; decode still builds
	// a valid ledger.
	var buf bytes.Buffer
	l := testLedger(day("2025-01-01"), USD(10_000), 0)
	if err := l.Append(NewBuy(day("2025-01-10"), "", "NVDA.US", Q(1), USD(100))); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	var lines []string
	var tmp bytes.Buffer
	if err := EncodeLedger(&tmp, l); err != nil {
		t.Fatalf("EncodeLedger() error = %v", err)
	}
	lines = strings.Split(strings.TrimSpace(tmp.String()), "\n")
	buf.WriteString(lines[1] + "\n" + lines[0] + "\n")

	decoded, err := DecodeLedger(&buf)
	if err != nil {
		t.Fatalf("DecodeLedger() error = %v", err)
	}
	if decoded.Len() != 2 {
		t.Errorf("decoded %d transactions, want 2", decoded.Len())
	}
}

func TestDecodeLedgerUnknownCommand(t *testing.T) {
	_, err := DecodeLedger(strings.NewReader(`{"command":"teleport","date":"2025-01-01"}` + "\n"))
	if err == nil {
		t.Fatal("DecodeLedger(unknown command) succeeded, want error")
	}
}

func TestDecodeLedgerSkipsEmptyLines(t *testing.T) {
	var buf bytes.Buffer
	l := testLedger(day("2025-01-01"), USD(10_000), 0)
	if err := EncodeLedger(&buf, l); err != nil {
		t.Fatalf("EncodeLedger() error = %v", err)
	}
	buf.WriteString("\n\n")

	decoded, err := DecodeLedger(&buf)
	if err != nil {
		t.Fatalf("DecodeLedger() error = %v", err)
	}
	if decoded.Len() != 1 {
		t.Errorf("decoded %d transactions, want 1", decoded.Len())
	}
}
