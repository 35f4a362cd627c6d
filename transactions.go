package taxlot

import (
	"fmt"
	"strings"

	"github.com/etnz/taxlot/date"
)

// TransactionType identifies the kind of event a Transaction records.
type TransactionType string

// Transaction types.
const (
	TxBuy      TransactionType = "buy"
	TxSell     TransactionType = "sell"
	TxDividend TransactionType = "dividend"
	TxTransfer TransactionType = "transfer"
	TxOther    TransactionType = "other"
)

// ParseTransactionType parses a transaction type, case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToLower(strings.TrimSpace(s))); t {
	case TxBuy, TxSell, TxDividend, TxTransfer, TxOther:
		return t, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

// Transaction is an append-only event recorded in one account.
//
// The full set of transactions across every account, taxable or not, is what
// the wash-sale detector scans: a replacement bought in an IRA still disallows
// a loss realized in a brokerage account.
type Transaction struct {
	ID        string
	AccountID string
	Date      date.Date
	Type      TransactionType
	Symbol    string
	Quantity  Quantity // signed, negative for shares leaving the account
	Price     Money    // per share
	Amount    Money    // total, only its magnitude is meaningful
	CostBasis Money    // known basis of the shares sold, zero when unknown
}

// NormalizeSymbol returns the canonical form of a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Shares returns the absolute number of shares moved by the transaction.
func (t Transaction) Shares() Quantity { return t.Quantity.Abs() }

// Total returns the absolute amount of the transaction. When no amount was
// recorded it is derived from the price.
func (t Transaction) Total() Money {
	if !t.Amount.IsZero() {
		return t.Amount.Abs()
	}
	return t.Price.Mul(t.Shares()).Abs()
}

// IsAcquisition reports whether the transaction brings shares into the account.
func (t Transaction) IsAcquisition() bool {
	switch t.Type {
	case TxBuy:
		return true
	case TxDividend, TxTransfer:
		return t.Quantity.IsPositive()
	default:
		return false
	}
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s %s %s %s@%s in %s", t.Date, t.Type, NormalizeSymbol(t.Symbol), t.Shares(), t.Price, t.AccountID)
}
