package taxlot

import (
	"github.com/shopspring/decimal"
)

// FilingStatus is the tax filing status of the taxpayer.
type FilingStatus string

const (
	Single                  FilingStatus = "single"
	MarriedFilingJointly    FilingStatus = "married_joint"
	MarriedFilingSeparately FilingStatus = "married_separate"
	HeadOfHousehold         FilingStatus = "head_of_household"
)

// TaxProfile is what a tax-rate calculator needs to know about the taxpayer.
type TaxProfile struct {
	Income       Money
	FilingStatus FilingStatus
	State        string
}

// RateComponent is one of the rates making up a combined rate.
type RateComponent struct {
	Name   string
	Rate   decimal.Decimal // as a fraction, 0.24 for 24%
	Amount Money
}

// TaxSavings is the tax saved by deducting a loss.
type TaxSavings struct {
	CombinedRate decimal.Decimal // as a fraction
	TaxSaved     Money
	Breakdown    []RateComponent
}

// TaxRateCalculator estimates the tax saved by deducting amount of loss with
// the given holding period. Implementations are pure and synchronous.
type TaxRateCalculator interface {
	CalculateTaxSavings(amount Money, gain HoldingPeriod, profile TaxProfile) TaxSavings
}

// FlatRates is a TaxRateCalculator applying fixed marginal rates, regardless
// of income and filing status. Rates are fractions.
type FlatRates struct {
	ShortTerm decimal.Decimal // federal rate on short-term gains
	LongTerm  decimal.Decimal // federal rate on long-term gains
	State     decimal.Decimal
}

// CalculateTaxSavings implements TaxRateCalculator. An unknown holding period
// is taxed as short-term.
func (r FlatRates) CalculateTaxSavings(amount Money, gain HoldingPeriod, _ TaxProfile) TaxSavings {
	amount = amount.Abs()
	federal := r.ShortTerm
	if gain == LongTerm {
		federal = r.LongTerm
	}
	res := TaxSavings{
		CombinedRate: federal.Add(r.State),
		Breakdown: []RateComponent{
			{Name: "federal", Rate: federal, Amount: amount.Scale(federal)},
		},
	}
	if !r.State.IsZero() {
		res.Breakdown = append(res.Breakdown, RateComponent{Name: "state", Rate: r.State, Amount: amount.Scale(r.State)})
	}
	res.TaxSaved = amount.Scale(res.CombinedRate)
	return res
}
