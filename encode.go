package folio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// DecodeLedger reads a JSONL stream, one transaction per line, and returns
// the replayable ledger. Lines may appear in any order; the init line is
// applied first so validation sees a complete header before any trade.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	var txs []Transaction
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var identifier struct {
			Command CommandType `json:"command"`
		}
		if err := json.Unmarshal(line, &identifier); err != nil {
			return nil, fmt.Errorf("could not identify command in line %q: %w", string(line), err)
		}

		var decoded Transaction
		var err error
		switch identifier.Command {
		case CmdInit:
			var tx Init
			err = json.Unmarshal(line, &tx)
			decoded = tx
		case CmdBuy:
			var tx Buy
			err = json.Unmarshal(line, &tx)
			decoded = tx
		case CmdSell:
			var tx Sell
			err = json.Unmarshal(line, &tx)
			decoded = tx
		default:
			err = fmt.Errorf("unknown transaction command: %q", identifier.Command)
		}
		if err != nil {
			return nil, err
		}
		txs = append(txs, decoded)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}

	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].When() != txs[j].When() {
			return txs[i].When().Before(txs[j].When())
		}
		return txs[i].What() == CmdInit && txs[j].What() != CmdInit
	})

	ledger := &Ledger{}
	if err := ledger.Append(txs...); err != nil {
		return nil, err
	}
	return ledger, nil
}

// EncodeTransaction writes a single transaction as one JSON line.
func EncodeTransaction(w io.Writer, tx Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write transaction: %w", err)
	}
	return nil
}

// EncodeLedger persists the ledger to a JSONL stream, one transaction per
// line in date order. Field order within each line is fixed, so encoding is
// canonical and diff-friendly.
func EncodeLedger(w io.Writer, ledger *Ledger) error {
	for _, tx := range ledger.Transactions() {
		if err := EncodeTransaction(w, tx); err != nil {
			return err
		}
	}
	return nil
}
