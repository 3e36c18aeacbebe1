package folio

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommandType is a typed string for identifying transaction commands.
type CommandType string

// Command types used for identifying transactions in a ledger file.
const (
	CmdInit CommandType = "init"
	CmdBuy  CommandType = "buy"
	CmdSell CommandType = "sell"
)

// Transaction defines the common interface for all entries recorded in a
// ledger file: the portfolio header and the trades.
type Transaction interface {
	What() CommandType // What returns the command type of the transaction (e.g., "buy", "sell").
	When() Date        // When returns the date on which the transaction occurred.
	Equal(Transaction) bool
}

type baseCmd struct {
	Command CommandType `json:"command"`      // Command specifies the type of transaction.
	Date    Date        `json:"date"`         // Date is the date when the transaction took place.
	ID      string      `json:"id,omitempty"` // ID uniquely identifies the transaction.
	Memo    string      `json:"memo,omitempty"`
}

func (t baseCmd) What() CommandType { return t.Command }
func (t baseCmd) When() Date        { return t.Date }

// MarshalJSON implements the json.Marshaler interface for baseCmd.
func (t baseCmd) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("command", t.Command)
	w.Append("date", t.Date)
	w.Optional("id", t.ID)
	w.Optional("memo", t.Memo)
	return w.MarshalJSON()
}

// secCmd is a component for security-based transactions (buy, sell).
type secCmd struct {
	baseCmd
	Security string `json:"security"` // Security is the ticker symbol involved in the transaction.
}

func (t secCmd) validate() error {
	if t.Security == "" {
		return errors.New("security ticker is missing")
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for secCmd.
func (t secCmd) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseCmd)
	w.Append("security", t.Security)
	return w.MarshalJSON()
}

// amountCmd is a specialized struct to read a ledger amount split in two fields.
type amountCmd struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (a amountCmd) Money() Money { return M(a.Amount, a.Currency) }

// Init declares the portfolio a ledger file belongs to: its identity, its
// reporting currency, its starting cash balance, creation date and the annual
// interest rate the cash balance earns. It must be the first line of a ledger.
type Init struct {
	baseCmd
	Name       string  `json:"name"`
	Currency   string  `json:"currency"`
	Cash       Money   `json:"-"`
	AnnualRate float64 `json:"annualRate"`
}

// NewInit creates the portfolio header transaction. A fresh portfolio ID is
// generated when id is empty.
func NewInit(on Date, id, name, currency string, cash Money, annualRate float64) Init {
	if id == "" {
		id = uuid.NewString()
	}
	return Init{
		baseCmd:    baseCmd{Command: CmdInit, Date: on, ID: id},
		Name:       name,
		Currency:   currency,
		Cash:       cash,
		AnnualRate: annualRate,
	}
}

// MarshalJSON implements the json.Marshaler interface for Init.
func (t Init) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseCmd)
	w.Append("name", t.Name)
	w.Append("currency", t.Currency)
	w.Append("cash", t.Cash.value)
	w.Append("annualRate", t.AnnualRate)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Init.
func (t *Init) UnmarshalJSON(data []byte) error {
	var temp struct {
		baseCmd
		Name       string          `json:"name"`
		Currency   string          `json:"currency"`
		Cash       decimal.Decimal `json:"cash"`
		AnnualRate float64         `json:"annualRate"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.baseCmd = temp.baseCmd
	t.Name = temp.Name
	t.Currency = temp.Currency
	t.Cash = M(temp.Cash, temp.Currency)
	t.AnnualRate = temp.AnnualRate
	return nil
}

func (t Init) Equal(other Transaction) bool {
	o, ok := other.(Init)
	return ok && t.baseCmd == o.baseCmd && t.Name == o.Name && t.Currency == o.Currency &&
		t.Cash.Equal(o.Cash) && t.AnnualRate == o.AnnualRate
}

func (t Init) validate() error {
	if t.Name == "" {
		return errors.New("portfolio name is missing")
	}
	if t.Cash.IsNegative() {
		return fmt.Errorf("starting cash must not be negative, got %s", t.Cash)
	}
	if t.AnnualRate < 0 {
		return fmt.Errorf("annual cash rate must not be negative, got %v", t.AnnualRate)
	}
	return nil
}

// Buy represents a transaction where a quantity of a security is purchased
// for a specified amount.
type Buy struct {
	secCmd
	Quantity Quantity // Quantity is the number of shares or units bought.
	Price    Money    // Price is the price paid per share.
	Amount   Money    // Amount is the total cost of the purchase.
}

// NewBuy creates a new Buy transaction. The total amount is derived from the
// per-share price.
func NewBuy(day Date, memo, security string, quantity Quantity, price Money) Buy {
	return Buy{
		secCmd:   secCmd{baseCmd: baseCmd{Command: CmdBuy, Date: day, ID: uuid.NewString(), Memo: memo}, Security: security},
		Quantity: quantity,
		Price:    price,
		Amount:   price.Mul(quantity),
	}
}

// MarshalJSON implements the json.Marshaler interface for Buy.
func (t Buy) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.secCmd)
	w.Append("quantity", t.Quantity)
	w.Append("price", t.Price.value)
	w.EmbedFrom(t.Amount)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Buy.
// It handles the custom structure where amount and currency are separate fields.
func (t *Buy) UnmarshalJSON(data []byte) error {
	var temp struct {
		secCmd
		amountCmd
		Quantity Quantity        `json:"quantity"`
		Price    decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.secCmd = temp.secCmd
	t.Quantity = temp.Quantity
	t.Price = M(temp.Price, temp.Currency)
	t.Amount = temp.Money()
	return nil
}

func (t Buy) Equal(other Transaction) bool {
	o, ok := other.(Buy)
	return ok && t.secCmd == o.secCmd && t.Quantity.Equal(o.Quantity) &&
		t.Price.Equal(o.Price) && t.Amount.Equal(o.Amount)
}

func (t Buy) Currency() string { return t.Amount.Currency() }

func (t Buy) validate() error {
	if err := t.secCmd.validate(); err != nil {
		return err
	}
	if !t.Quantity.IsPositive() {
		return fmt.Errorf("buy transaction quantity must be positive, got %s", t.Quantity)
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("buy transaction price must be positive, got %s", t.Price)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("buy transaction amount must be positive, got %s", t.Amount)
	}
	return nil
}

// Sell represents a transaction where a quantity of a security is sold
// for a specified amount.
type Sell struct {
	secCmd
	Quantity Quantity // Quantity is the number of shares or units sold.
	Price    Money    // Price is the price received per share.
	Amount   Money    // Amount is the total proceeds from the sale.
}

// NewSell creates a new Sell transaction.
func NewSell(day Date, memo, security string, quantity Quantity, price Money) Sell {
	return Sell{
		secCmd:   secCmd{baseCmd: baseCmd{Command: CmdSell, Date: day, ID: uuid.NewString(), Memo: memo}, Security: security},
		Quantity: quantity,
		Price:    price,
		Amount:   price.Mul(quantity),
	}
}

// MarshalJSON implements the json.Marshaler interface for Sell.
func (t Sell) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.secCmd)
	w.Append("quantity", t.Quantity)
	w.Append("price", t.Price.value)
	w.EmbedFrom(t.Amount)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Sell.
func (t *Sell) UnmarshalJSON(data []byte) error {
	var temp struct {
		secCmd
		amountCmd
		Quantity Quantity        `json:"quantity"`
		Price    decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.secCmd = temp.secCmd
	t.Quantity = temp.Quantity
	t.Price = M(temp.Price, temp.Currency)
	t.Amount = temp.Money()
	return nil
}

func (t Sell) Equal(other Transaction) bool {
	o, ok := other.(Sell)
	return ok && t.secCmd == o.secCmd && t.Quantity.Equal(o.Quantity) &&
		t.Price.Equal(o.Price) && t.Amount.Equal(o.Amount)
}

func (t Sell) Currency() string { return t.Amount.Currency() }

func (t Sell) validate() error {
	if err := t.secCmd.validate(); err != nil {
		return err
	}
	if !t.Quantity.IsPositive() {
		return fmt.Errorf("sell transaction quantity must be positive, got %s", t.Quantity)
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("sell transaction price must be positive, got %s", t.Price)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("sell transaction amount must be positive, got %s", t.Amount)
	}
	return nil
}
