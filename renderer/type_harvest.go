package renderer

import (
	"strings"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/date"
)

// Harvest is the view of a harvest report.
// Numbers keep their exact decimal types so that they already contain basics
// renderers (String, SignedString etc.)
type Harvest struct {
	AsOf            date.Date    `json:"asOf"`
	Currency        string       `json:"currency"`
	ScannedHoldings int          `json:"scannedHoldings"`
	TotalLoss       taxlot.Money `json:"totalLoss"`
	TotalTaxSavings taxlot.Money `json:"totalTaxSavings"`
	Actionable      int          `json:"actionable"`
	Opportunities   []HarvestRow `json:"opportunities"`
	NeedsCostBasis  []HoldingRow `json:"needsCostBasis"`
	MissingPrices   []HoldingRow `json:"missingPrices"`
	ForeignCurrency []HoldingRow `json:"foreignCurrency"`
}

// HarvestRow is one harvesting opportunity.
type HarvestRow struct {
	Rank        int             `json:"rank"`
	Account     string          `json:"account"`
	Symbol      string          `json:"symbol"`
	Quantity    taxlot.Quantity `json:"quantity"`
	Loss        taxlot.Money    `json:"loss"`
	LossPercent taxlot.Percent  `json:"lossPercent"`
	Term        string          `json:"term"`
	Rate        taxlot.Percent  `json:"rate"`
	TaxSavings  taxlot.Money    `json:"taxSavings"`
	Risk        string          `json:"risk"`
	Substitutes string          `json:"substitutes"`
	Status      string          `json:"status"`
	Notes       []string        `json:"notes,omitempty"`
}

// HoldingRow is a holding the scanner could not evaluate.
type HoldingRow struct {
	Account  string          `json:"account"`
	Symbol   string          `json:"symbol"`
	Quantity taxlot.Quantity `json:"quantity"`
	Value    taxlot.Money    `json:"value"`
	Price    taxlot.Money    `json:"price"`
	Basis    taxlot.Money    `json:"basis"`
}

// NewHarvest creates a Harvest view from a scanner report.
func NewHarvest(r taxlot.HarvestReport, accounts []taxlot.Account) *Harvest {
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	label := func(id string) string {
		if n := names[id]; n != "" {
			return n
		}
		return id
	}

	h := &Harvest{
		AsOf:            r.AsOf,
		Currency:        r.Currency,
		ScannedHoldings: r.ScannedHoldings,
		TotalLoss:       r.TotalLoss,
		TotalTaxSavings: r.TotalTaxSavings,
		Opportunities:   make([]HarvestRow, 0, len(r.Opportunities)),
	}
	for i, o := range r.Opportunities {
		row := HarvestRow{
			Rank:        i + 1,
			Account:     label(o.Holding.AccountID),
			Symbol:      o.Holding.Symbol,
			Quantity:    o.Holding.Quantity,
			Loss:        o.UnrealizedLoss,
			LossPercent: o.LossPercent,
			Term:        termLabel(o.TaxTreatment),
			Rate:        taxlot.Percent(o.TaxSavings.CombinedRate.Shift(2).InexactFloat64()),
			TaxSavings:  o.TaxSavings.TaxSaved,
			Risk:        string(o.WashSaleRisk),
			Substitutes: strings.Join(o.Substitutes, ", "),
			Status:      "ready",
			Notes:       append(append([]string(nil), o.RiskReasons...), o.Blockers...),
		}
		if o.HoldingInfo.HoldingPeriod == taxlot.UnknownHoldings {
			row.Term += "?"
		}
		if !o.IsActionable {
			row.Status = "blocked"
		} else {
			h.Actionable++
		}
		h.Opportunities = append(h.Opportunities, row)
	}
	for _, m := range r.NeedsCostBasis {
		h.NeedsCostBasis = append(h.NeedsCostBasis, HoldingRow{
			Account:  label(m.Holding.AccountID),
			Symbol:   m.Holding.Symbol,
			Quantity: m.Holding.Quantity,
			Value:    m.CurrentValue,
		})
	}
	for _, m := range r.MissingPrices {
		h.MissingPrices = append(h.MissingPrices, HoldingRow{
			Account:  label(m.AccountID),
			Symbol:   taxlot.NormalizeSymbol(m.Symbol),
			Quantity: m.Quantity,
		})
	}
	for _, m := range r.ForeignCurrency {
		h.ForeignCurrency = append(h.ForeignCurrency, HoldingRow{
			Account:  label(m.Holding.AccountID),
			Symbol:   m.Holding.Symbol,
			Quantity: m.Holding.Quantity,
			Price:    m.CurrentPrice,
			Basis:    m.Holding.CostBasis,
		})
	}
	return h
}

func termLabel(p taxlot.HoldingPeriod) string {
	switch p {
	case taxlot.LongTerm:
		return "long"
	case taxlot.ShortTerm:
		return "short"
	default:
		return "unknown"
	}
}
