package taxlot

import (
	"testing"

	"github.com/etnz/taxlot/date"
	"github.com/stretchr/testify/assert"
)

// assertMoney compares amounts by value, decimals have several
// representations of the same number.
func assertMoney(t *testing.T, want, got Money, msgAndArgs ...any) bool {
	t.Helper()
	return assert.Truef(t, want.Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func assertQuantity(t *testing.T, want, got Quantity, msgAndArgs ...any) bool {
	t.Helper()
	return assert.Truef(t, want.Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

// day is a shortcut for date.MustParse.
func day(s string) date.Date { return date.MustParse(s) }

// openLot is a shortcut for an open lot created by purchase id.
func openLot(id, account, symbol string, qty, basis float64, acquired string) TaxLot {
	return TaxLot{
		ID:                  id,
		AccountID:           account,
		Symbol:              symbol,
		SourceTransactionID: id,
		OriginalQuantity:    Q(qty),
		RemainingQuantity:   Q(qty),
		CostBasisPerShare:   USD(basis),
		TotalCostBasis:      USD(basis * qty),
		AcquisitionDate:     day(acquired),
		AcquisitionType:     AcquiredByPurchase,
	}
}

func buy(id, account, symbol string, qty, price float64, on string) Transaction {
	return Transaction{
		ID:        id,
		AccountID: account,
		Date:      day(on),
		Type:      TxBuy,
		Symbol:    symbol,
		Quantity:  Q(qty),
		Price:     USD(price),
		Amount:    USD(price * qty),
	}
}

func sell(id, account, symbol string, qty, price float64, on string) Transaction {
	return Transaction{
		ID:        id,
		AccountID: account,
		Date:      day(on),
		Type:      TxSell,
		Symbol:    symbol,
		Quantity:  Q(-qty),
		Price:     USD(price),
		Amount:    USD(price * qty),
	}
}
