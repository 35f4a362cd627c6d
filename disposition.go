package taxlot

import (
	"github.com/etnz/taxlot/date"
)

// SaleRequest describes a pending sale of one security.
type SaleRequest struct {
	SaleID         string // optional id of the sale transaction
	AccountID      string // optional, defaults to each lot's account
	Symbol         string // optional, defaults to each lot's symbol
	Quantity       Quantity
	PricePerShare  Money
	SaleDate       date.Date
	Method         CostBasisMethod
	SpecificLotIDs []string
	// History is the transaction history of every account. When nil the
	// wash-sale check is skipped; an empty non-nil slice means the history is
	// known to be empty.
	History []Transaction
}

// LotDisposition is the part of a sale allocated to one lot.
type LotDisposition struct {
	Lot              TaxLot // the lot as it was before the sale
	Quantity         Quantity
	Proceeds         Money
	CostBasis        Money
	GainLoss         Money
	HoldingPeriod    HoldingPeriod
	DaysHeld         int
	DisallowedLoss   Money
	AdjustedGainLoss Money
	WashSale         *WashSaleResult // nil when not checked
}

// IsWashSale reports whether part of the disposition's loss is disallowed.
func (d LotDisposition) IsWashSale() bool { return d.WashSale != nil && d.WashSale.IsWashSale }

// SaleResult is the outcome of allocating a sale to lots.
type SaleResult struct {
	Request      SaleRequest
	Dispositions []LotDisposition

	TotalQuantity  Quantity
	TotalProceeds  Money
	TotalCostBasis Money
	// TotalGainLoss is the gain or loss before any wash-sale adjustment.
	TotalGainLoss       Money
	TotalDisallowedLoss Money

	// ShortTermGainLoss and LongTermGainLoss are adjusted for wash sales.
	ShortTermGainLoss Money
	LongTermGainLoss  Money
	NetGainLoss       Money

	WashSaleChecked bool
	Warnings        []string
}

// Shortfall returns the quantity requested that no open lot could cover.
func (r SaleResult) Shortfall() Quantity {
	return r.Request.Quantity.Sub(r.TotalQuantity)
}

// IsComplete reports whether the whole requested quantity was allocated.
func (r SaleResult) IsComplete() bool { return !r.Shortfall().IsPositive() }

// HasWashSale reports whether any disposition triggered the wash-sale rule.
func (r SaleResult) HasWashSale() bool { return !r.TotalDisallowedLoss.IsZero() }

// CalculateSaleResult allocates req to lots in the order given by the
// requested cost basis method, computing the realized gain or loss of each
// lot and the wash-sale adjustments.
//
// Lots are consumed until the requested quantity is reached or lots are
// exhausted, in which case the result covers less than requested. The lots
// are not modified; use Ledger.Commit to apply the result.
//
// Losses that exceed 365 days of holding are long-term, else short-term. When
// the acquisition date of a lot is unknown, its disposition is short-term.
func CalculateSaleResult(lots []TaxLot, req SaleRequest) SaleResult {
	ccy := req.PricePerShare.Currency()
	res := SaleResult{
		Request:             req,
		TotalProceeds:       M(0, ccy),
		TotalCostBasis:      M(0, ccy),
		TotalGainLoss:       M(0, ccy),
		TotalDisallowedLoss: M(0, ccy),
		ShortTermGainLoss:   M(0, ccy),
		LongTermGainLoss:    M(0, ccy),
		NetGainLoss:         M(0, ccy),
		WashSaleChecked:     req.History != nil,
	}

	ordered := SortLotsForSale(lots, req.Method, req.SpecificLotIDs)

	// allocate first, so that the wash-sale check knows every lot this sale consumes.
	toSell := req.Quantity
	for _, lot := range ordered {
		if !toSell.IsPositive() {
			break
		}
		q := toSell.Min(lot.RemainingQuantity)
		toSell = toSell.Sub(q)
		res.Dispositions = append(res.Dispositions, LotDisposition{Lot: lot, Quantity: q})
	}

	// purchases that created the sold lots are not replacements for this sale.
	var sold []string
	for _, d := range res.Dispositions {
		if d.Lot.SourceTransactionID != "" {
			sold = append(sold, d.Lot.SourceTransactionID)
		}
	}

	// replacement shares matched by one lot cannot be matched again by the next.
	used := make(map[string]Quantity)
	for i := range res.Dispositions {
		d := &res.Dispositions[i]
		lot := d.Lot
		d.Proceeds = req.PricePerShare.Mul(d.Quantity)
		d.CostBasis = lot.CostBasisPerShare.Mul(d.Quantity)
		d.GainLoss = d.Proceeds.Sub(d.CostBasis)
		info := CalculateHoldingPeriod(lot.AcquisitionDate, req.SaleDate)
		d.HoldingPeriod, d.DaysHeld = info.HoldingPeriod, info.DaysHeld
		d.DisallowedLoss = M(0, d.GainLoss.Currency())
		d.AdjustedGainLoss = d.GainLoss

		if d.GainLoss.IsNegative() && req.History != nil {
			sale := Transaction{
				ID:        req.SaleID,
				AccountID: firstNonEmpty(req.AccountID, lot.AccountID),
				Date:      req.SaleDate,
				Type:      TxSell,
				Symbol:    firstNonEmpty(req.Symbol, lot.Symbol),
				Quantity:  d.Quantity.Neg(),
				Price:     req.PricePerShare,
				Amount:    d.Proceeds,
				CostBasis: d.CostBasis,
			}
			ws := checkWashSale(sale, req.History, d.CostBasis, used, sold)
			d.WashSale = &ws
			d.DisallowedLoss = ws.TotalDisallowedLoss
			d.AdjustedGainLoss = d.GainLoss.Add(ws.TotalDisallowedLoss)
			res.Warnings = append(res.Warnings, ws.Warnings...)
		}

		res.TotalQuantity = res.TotalQuantity.Add(d.Quantity)
		res.TotalProceeds = res.TotalProceeds.Add(d.Proceeds)
		res.TotalCostBasis = res.TotalCostBasis.Add(d.CostBasis)
		res.TotalGainLoss = res.TotalGainLoss.Add(d.GainLoss)
		res.TotalDisallowedLoss = res.TotalDisallowedLoss.Add(d.DisallowedLoss)
		if d.HoldingPeriod == LongTerm {
			res.LongTermGainLoss = res.LongTermGainLoss.Add(d.AdjustedGainLoss)
		} else {
			res.ShortTermGainLoss = res.ShortTermGainLoss.Add(d.AdjustedGainLoss)
		}
	}
	res.NetGainLoss = res.ShortTermGainLoss.Add(res.LongTermGainLoss)
	return res
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
