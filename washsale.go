package taxlot

import (
	"fmt"
	"slices"

	"github.com/etnz/taxlot/date"
	"github.com/shopspring/decimal"
)

// WashSaleWindowDays is the number of days before and after a loss sale during
// which buying a substantially identical security disallows the loss. The
// resulting window spans 61 days.
const WashSaleWindowDays = 30

// washSaleWindow returns the window centered on a sale or purchase date,
// both ends included.
func washSaleWindow(center date.Date) date.Range {
	return date.Around(center, WashSaleWindowDays)
}

// identicalTrades returns the transactions of type typ on a security
// substantially identical to symbol dated inside window, skipping the
// transactions whose id is in exclude. History order is preserved.
func identicalTrades(history []Transaction, symbol string, typ TransactionType, window date.Range, exclude ...string) []Transaction {
	var res []Transaction
	for _, tx := range history {
		if tx.Type != typ || !window.Contains(tx.Date) {
			continue
		}
		if tx.ID != "" && slices.Contains(exclude, tx.ID) {
			continue
		}
		if !AreSubstantiallyIdentical(symbol, tx.Symbol) {
			continue
		}
		res = append(res, tx)
	}
	return res
}

// WashSaleViolation pairs a loss sale with one purchase that triggers the
// wash-sale rule.
type WashSaleViolation struct {
	Purchase              Transaction
	DaysFromSale          int // negative when the purchase precedes the sale
	ReplacementShares     Quantity
	DisallowedRatio       decimal.Decimal
	DisallowedLoss        Money
	AdjustedBasis         Money // purchase amount plus the disallowed loss
	AdjustedBasisPerShare Money
	IsCrossAccount        bool
}

// WashSaleResult is the outcome of checking one sale against the history.
type WashSaleResult struct {
	Sale                Transaction
	GrossLoss           Money // zero when the sale is not a loss
	IsWashSale          bool
	Violations          []WashSaleViolation
	TotalDisallowedLoss Money
	AllowedLoss         Money
	// Capped is set when the per-purchase disallowed amounts added up to more
	// than the gross loss and were scaled down proportionally.
	Capped   bool
	Warnings []string
}

// CheckWashSale checks whether sale, realized with the given cost basis,
// triggers the wash-sale rule against history.
//
// history must hold the transactions of every account, including the
// tax-advantaged ones. Purchases whose id is listed in excludeIDs are not
// considered as replacements; it is used to skip the purchase that created the
// lot being sold. The sale itself is always skipped.
//
// Every purchase of a substantially identical security within 30 days of the
// sale produces one violation. When the purchases together replace more
// shares than were sold, the disallowed amounts are scaled down so that they
// sum to the gross loss exactly.
func CheckWashSale(sale Transaction, history []Transaction, costBasis Money, excludeIDs ...string) WashSaleResult {
	return checkWashSale(sale, history, costBasis, nil, excludeIDs)
}

// checkWashSale is CheckWashSale with a record of the replacement shares of
// each purchase already matched by earlier sales. A replacement share is
// matched at most once; used is updated when not nil.
func checkWashSale(sale Transaction, history []Transaction, costBasis Money, used map[string]Quantity, excludeIDs []string) WashSaleResult {
	proceeds := sale.Total()
	ccy := cur(proceeds, costBasis)
	res := WashSaleResult{
		Sale:                sale,
		GrossLoss:           M(0, ccy),
		TotalDisallowedLoss: M(0, ccy),
		AllowedLoss:         M(0, ccy),
	}

	gross := costBasis.Sub(proceeds)
	soldShares := sale.Shares()
	if !gross.IsPositive() || soldShares.IsZero() {
		return res
	}
	res.GrossLoss = gross
	res.AllowedLoss = gross

	exclude := append([]string{sale.ID}, excludeIDs...)
	purchases := identicalTrades(history, sale.Symbol, TxBuy, washSaleWindow(sale.Date), exclude...)

	total := M(0, ccy)
	for _, p := range purchases {
		available := p.Shares().Sub(used[p.ID])
		if !available.IsPositive() {
			continue
		}
		replacement := soldShares.Min(available)
		ratio := replacement.Div(soldShares)
		v := WashSaleViolation{
			Purchase:          p,
			DaysFromSale:      p.Date.Sub(sale.Date),
			ReplacementShares: replacement,
			DisallowedRatio:   ratio,
			DisallowedLoss:    M(gross.Decimal().Mul(replacement.Decimal()).Div(soldShares.Decimal()), ccy),
			IsCrossAccount:    p.AccountID != sale.AccountID,
		}
		v.setAdjustedBasis()
		total = total.Add(v.DisallowedLoss)
		res.Violations = append(res.Violations, v)
		if v.IsCrossAccount {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"purchase of %s %s on %s in account %q disallows part of the loss realized in account %q",
				p.Shares(), NormalizeSymbol(p.Symbol), p.Date, p.AccountID, sale.AccountID))
		}
	}
	if len(res.Violations) == 0 {
		return res
	}
	res.IsWashSale = true

	if total.GreaterThan(gross) {
		res.Capped = true
		remaining := gross
		for i := range res.Violations {
			v := &res.Violations[i]
			if i == len(res.Violations)-1 {
				v.DisallowedLoss = remaining
			} else {
				v.DisallowedLoss = M(v.DisallowedLoss.Decimal().Mul(gross.Decimal()).Div(total.Decimal()), ccy)
				remaining = remaining.Sub(v.DisallowedLoss)
			}
			v.DisallowedRatio = v.DisallowedLoss.Ratio(gross)
			v.setAdjustedBasis()
		}
		total = gross
	}

	if used != nil {
		for _, v := range res.Violations {
			if v.Purchase.ID != "" {
				used[v.Purchase.ID] = used[v.Purchase.ID].Add(v.ReplacementShares)
			}
		}
	}
	res.TotalDisallowedLoss = total
	res.AllowedLoss = gross.Sub(total).Max(M(0, ccy))
	return res
}

func (v *WashSaleViolation) setAdjustedBasis() {
	v.AdjustedBasis = v.Purchase.Total().Add(v.DisallowedLoss)
	if shares := v.Purchase.Shares(); !shares.IsZero() {
		v.AdjustedBasisPerShare = v.AdjustedBasis.Div(shares)
	}
}

// SafeSaleDate answers when symbol can be sold at a loss without a recorded
// purchase turning it into a wash sale.
type SafeSaleDate struct {
	Symbol            string
	AsOf              date.Date
	SafeDate          date.Date
	IsSafeNow         bool
	DaysToWait        int
	BlockingPurchases []Transaction
}

// FindSafeToSellDate returns the earliest date on or after asOf whose
// wash-sale window contains no purchase of a security identical to symbol.
func FindSafeToSellDate(symbol string, history []Transaction, asOf date.Date) SafeSaleDate {
	res := SafeSaleDate{Symbol: NormalizeSymbol(symbol), AsOf: asOf, SafeDate: asOf}
	for {
		buys := identicalTrades(history, symbol, TxBuy, washSaleWindow(res.SafeDate))
		if len(buys) == 0 {
			break
		}
		latest := buys[0].Date
		for _, b := range buys[1:] {
			if b.Date.After(latest) {
				latest = b.Date
			}
		}
		res.SafeDate = latest.Add(WashSaleWindowDays + 1)
	}
	res.IsSafeNow = res.SafeDate == asOf
	if !res.IsSafeNow {
		// successive windows overlap, so this range covers every purchase met above.
		blocking := date.Range{From: asOf.Add(-WashSaleWindowDays), To: res.SafeDate.Add(-WashSaleWindowDays - 1)}
		res.BlockingPurchases = identicalTrades(history, symbol, TxBuy, blocking)
	}
	res.DaysToWait = res.SafeDate.Sub(asOf)
	return res
}

// PurchaseTrigger is a recorded loss sale that a purchase would turn into a
// wash sale.
type PurchaseTrigger struct {
	Sale         Transaction
	Loss         Money
	DaysFromSale int // negative when the purchase precedes the sale
}

// PurchaseCheck is the outcome of CheckPurchaseTriggersWashSale.
type PurchaseCheck struct {
	Purchase         Transaction
	TriggersWashSale bool
	Triggers         []PurchaseTrigger
	// PotentialTriggers are sales in the window whose cost basis is unknown.
	PotentialTriggers []Transaction
	Warnings          []string
}

// CheckPurchaseTriggersWashSale looks for sales of a security identical to
// the purchased one within 30 days of the purchase. Sales with a known loss
// are triggers; sales with an unknown cost basis are reported as potential
// triggers.
func CheckPurchaseTriggersWashSale(purchase Transaction, history []Transaction) PurchaseCheck {
	res := PurchaseCheck{Purchase: purchase}
	sales := identicalTrades(history, purchase.Symbol, TxSell, washSaleWindow(purchase.Date), purchase.ID)
	for _, s := range sales {
		days := purchase.Date.Sub(s.Date)
		if s.CostBasis.IsZero() {
			res.PotentialTriggers = append(res.PotentialTriggers, s)
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"sale of %s %s on %s in account %q has no known cost basis, it would be a wash sale if it was a loss",
				s.Shares(), NormalizeSymbol(s.Symbol), s.Date, s.AccountID))
			continue
		}
		loss := s.CostBasis.Abs().Sub(s.Total())
		if !loss.IsPositive() {
			continue
		}
		res.Triggers = append(res.Triggers, PurchaseTrigger{Sale: s, Loss: loss, DaysFromSale: days})
	}
	res.TriggersWashSale = len(res.Triggers) > 0
	return res
}
