package renderer

import (
	"strings"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/date"
)

// Sale is the view of a sale disposition.
type Sale struct {
	Symbol    string          `json:"symbol"`
	Account   string          `json:"account,omitempty"`
	Date      date.Date       `json:"date"`
	Method    string          `json:"method"`
	Requested taxlot.Quantity `json:"requested"`
	Price     taxlot.Money    `json:"price"`
	Committed bool            `json:"committed"`

	Quantity      taxlot.Quantity `json:"quantity"`
	Shortfall     taxlot.Quantity `json:"shortfall"`
	Proceeds      taxlot.Money    `json:"proceeds"`
	CostBasis     taxlot.Money    `json:"costBasis"`
	GainLoss      taxlot.Money    `json:"gainLoss"`
	Disallowed    taxlot.Money    `json:"disallowed"`
	ShortTerm     taxlot.Money    `json:"shortTerm"`
	LongTerm      taxlot.Money    `json:"longTerm"`
	NetGainLoss   taxlot.Money    `json:"netGainLoss"`
	WashSaleCheck bool            `json:"washSaleCheck"`
	HasWashSale   bool            `json:"hasWashSale"`
	Dispositions  []SaleLot       `json:"dispositions"`
	WashSales     []SaleWashSale  `json:"washSales"`
	Warnings      []string        `json:"warnings"`
}

// SaleLot is the part of a sale drawn from one lot.
type SaleLot struct {
	Lot        string          `json:"lot"`
	Account    string          `json:"account"`
	Acquired   date.Date       `json:"acquired"`
	Quantity   taxlot.Quantity `json:"quantity"`
	Proceeds   taxlot.Money    `json:"proceeds"`
	CostBasis  taxlot.Money    `json:"costBasis"`
	GainLoss   taxlot.Money    `json:"gainLoss"`
	Term       string          `json:"term"`
	DaysHeld   int             `json:"daysHeld"`
	Disallowed taxlot.Money    `json:"disallowed"`
	Adjusted   taxlot.Money    `json:"adjusted"`
}

// SaleWashSale is a replacement purchase that disallows part of a loss.
type SaleWashSale struct {
	Lot           string          `json:"lot"`
	Purchase      string          `json:"purchase"`
	Symbol        string          `json:"symbol"`
	Date          date.Date       `json:"date"`
	Days          int             `json:"days"`
	Shares        taxlot.Quantity `json:"shares"`
	Disallowed    taxlot.Money    `json:"disallowed"`
	AdjustedBasis taxlot.Money    `json:"adjustedBasis"`
	PerShare      taxlot.Money    `json:"perShare"`
	CrossAccount  bool            `json:"crossAccount"`
}

// NewSale creates a Sale view from a sale result.
func NewSale(r taxlot.SaleResult, committed bool) *Sale {
	s := &Sale{
		Symbol:        taxlot.NormalizeSymbol(r.Request.Symbol),
		Account:       r.Request.AccountID,
		Date:          r.Request.SaleDate,
		Method:        r.Request.Method.String(),
		Requested:     r.Request.Quantity,
		Price:         r.Request.PricePerShare,
		Committed:     committed,
		Quantity:      r.TotalQuantity,
		Shortfall:     r.Shortfall(),
		Proceeds:      r.TotalProceeds,
		CostBasis:     r.TotalCostBasis,
		GainLoss:      r.TotalGainLoss,
		Disallowed:    r.TotalDisallowedLoss,
		ShortTerm:     r.ShortTermGainLoss,
		LongTerm:      r.LongTermGainLoss,
		NetGainLoss:   r.NetGainLoss,
		WashSaleCheck: r.WashSaleChecked,
		HasWashSale:   r.HasWashSale(),
		Dispositions:  make([]SaleLot, 0, len(r.Dispositions)),
		Warnings:      r.Warnings,
	}
	if s.Symbol == "" && len(r.Dispositions) > 0 {
		s.Symbol = r.Dispositions[0].Lot.Symbol
	}
	for _, d := range r.Dispositions {
		s.Dispositions = append(s.Dispositions, SaleLot{
			Lot:        d.Lot.ID,
			Account:    firstNonEmpty(d.Lot.AccountName, d.Lot.AccountID),
			Acquired:   d.Lot.AcquisitionDate,
			Quantity:   d.Quantity,
			Proceeds:   d.Proceeds,
			CostBasis:  d.CostBasis,
			GainLoss:   d.GainLoss,
			Term:       termLabel(d.HoldingPeriod),
			DaysHeld:   d.DaysHeld,
			Disallowed: d.DisallowedLoss,
			Adjusted:   d.AdjustedGainLoss,
		})
		if !d.IsWashSale() {
			continue
		}
		for _, v := range d.WashSale.Violations {
			s.WashSales = append(s.WashSales, SaleWashSale{
				Lot:           d.Lot.ID,
				Purchase:      v.Purchase.ID,
				Symbol:        v.Purchase.Symbol,
				Date:          v.Purchase.Date,
				Days:          v.DaysFromSale,
				Shares:        v.ReplacementShares,
				Disallowed:    v.DisallowedLoss,
				AdjustedBasis: v.AdjustedBasis,
				PerShare:      v.AdjustedBasisPerShare,
				CrossAccount:  v.IsCrossAccount,
			})
		}
	}
	return s
}

// Partial reports whether fewer shares were available than requested.
func (s *Sale) Partial() bool { return s.Shortfall.IsPositive() }

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
