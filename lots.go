package taxlot

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/etnz/taxlot/date"
	"github.com/google/uuid"
)

// AcquisitionType tells how the shares of a lot came into the account.
type AcquisitionType string

const (
	AcquiredByPurchase             AcquisitionType = "purchase"
	AcquiredByGift                 AcquisitionType = "gift"
	AcquiredByInheritance          AcquisitionType = "inheritance"
	AcquiredByTransfer             AcquisitionType = "transfer"
	AcquiredByDividendReinvestment AcquisitionType = "dividend_reinvestment"
)

// HoldingPeriod classifies how long shares were held, which determines the
// applicable tax rate.
type HoldingPeriod string

const (
	ShortTerm       HoldingPeriod = "short_term"
	LongTerm        HoldingPeriod = "long_term"
	UnknownHoldings HoldingPeriod = "unknown"
)

// LongTermThreshold is the number of days shares must be held strictly beyond
// to qualify as long-term.
const LongTermThreshold = 365

// TaxLot is a discrete batch of shares of one security acquired on one date at
// one basis.
type TaxLot struct {
	ID                  string
	AccountID           string
	AccountName         string
	Symbol              string
	SourceTransactionID string // the acquisition that created the lot

	OriginalQuantity  Quantity
	RemainingQuantity Quantity // 0 <= RemainingQuantity <= OriginalQuantity

	CostBasisPerShare Money
	TotalCostBasis    Money // OriginalQuantity * CostBasisPerShare at creation

	AcquisitionDate date.Date
	AcquisitionType AcquisitionType
}

// IsFullyDisposed reports whether no share remains in the lot.
func (l TaxLot) IsFullyDisposed() bool { return l.RemainingQuantity.IsZero() }

// RemainingCostBasis returns the basis of the shares still held.
func (l TaxLot) RemainingCostBasis() Money { return l.CostBasisPerShare.Mul(l.RemainingQuantity) }

// NewLotFromPurchase builds a lot from an acquisition transaction.
//
// The per-share basis is the total amount divided by the quantity. A zero
// quantity yields a degenerate lot with a zero basis that is already fully
// disposed.
func NewLotFromPurchase(tx Transaction) (TaxLot, error) {
	if !tx.IsAcquisition() {
		return TaxLot{}, fmt.Errorf("cannot create a lot from %s transaction %q: %w", tx.Type, tx.ID, ErrNotAcquisition)
	}
	id := tx.ID
	if id == "" {
		id = uuid.NewString()
	}
	acq := AcquiredByPurchase
	switch tx.Type {
	case TxDividend:
		acq = AcquiredByDividendReinvestment
	case TxTransfer:
		acq = AcquiredByTransfer
	}

	lot := TaxLot{
		ID:                  id,
		AccountID:           tx.AccountID,
		Symbol:              NormalizeSymbol(tx.Symbol),
		SourceTransactionID: tx.ID,
		OriginalQuantity:    tx.Shares(),
		RemainingQuantity:   tx.Shares(),
		AcquisitionDate:     tx.Date,
		AcquisitionType:     acq,
	}
	cur := tx.Total().Currency()
	if tx.Shares().IsZero() {
		lot.CostBasisPerShare = M(0, cur)
		lot.TotalCostBasis = M(0, cur)
		return lot, nil
	}
	lot.CostBasisPerShare = tx.Total().Div(tx.Shares())
	lot.TotalCostBasis = lot.CostBasisPerShare.Mul(lot.OriginalQuantity)
	return lot, nil
}

// HoldingInfo is the classification of a holding period as of a given date.
type HoldingInfo struct {
	HoldingPeriod HoldingPeriod
	DaysHeld      int
}

// CalculateHoldingPeriod classifies shares acquired on acquired and evaluated
// on asOf. Exactly 365 days held is short-term; 366 and more is long-term. A
// zero acquisition date yields an unknown holding period.
func CalculateHoldingPeriod(acquired, asOf date.Date) HoldingInfo {
	if acquired.IsZero() {
		return HoldingInfo{HoldingPeriod: UnknownHoldings}
	}
	days := asOf.Sub(acquired)
	if days > LongTermThreshold {
		return HoldingInfo{HoldingPeriod: LongTerm, DaysHeld: days}
	}
	return HoldingInfo{HoldingPeriod: ShortTerm, DaysHeld: days}
}

// EnrichedLot is a lot projected on current market data.
type EnrichedLot struct {
	TaxLot
	Enriched              bool // false when no price was available
	CurrentPrice          Money
	CurrentValue          Money
	UnrealizedGainLoss    Money
	UnrealizedGainLossPct Percent
}

// EnrichLotsWithMarketData adds the current value and unrealized gain or loss
// to every lot that has a price in prices and shares left. Other lots are
// returned unchanged with Enriched set to false.
func EnrichLotsWithMarketData(lots []TaxLot, prices map[string]Money) []EnrichedLot {
	res := make([]EnrichedLot, 0, len(lots))
	for _, lot := range lots {
		e := EnrichedLot{TaxLot: lot}
		price, ok := prices[NormalizeSymbol(lot.Symbol)]
		if ok && !lot.RemainingQuantity.IsZero() {
			basis := lot.RemainingCostBasis()
			e.Enriched = true
			e.CurrentPrice = price
			e.CurrentValue = price.Mul(lot.RemainingQuantity)
			e.UnrealizedGainLoss = e.CurrentValue.Sub(basis)
			e.UnrealizedGainLossPct = percentOf(e.UnrealizedGainLoss, basis)
		}
		res = append(res, e)
	}
	return res
}

// LotGroup aggregates the open lots of one symbol.
type LotGroup struct {
	Symbol                string
	Lots                  []TaxLot
	TotalQuantity         Quantity
	TotalCostBasis        Money
	AverageCostPerShare   Money // weighted by remaining quantity
	OldestAcquisitionDate date.Date
	NewestAcquisitionDate date.Date
}

// GroupLotsBySymbol aggregates open lots per symbol, sorted by symbol. Fully
// disposed lots are ignored.
func GroupLotsBySymbol(lots []TaxLot) []LotGroup {
	index := make(map[string]int)
	var groups []LotGroup
	for _, lot := range lots {
		if lot.IsFullyDisposed() {
			continue
		}
		sym := NormalizeSymbol(lot.Symbol)
		i, ok := index[sym]
		if !ok {
			i = len(groups)
			index[sym] = i
			groups = append(groups, LotGroup{
				Symbol:                sym,
				OldestAcquisitionDate: lot.AcquisitionDate,
				NewestAcquisitionDate: lot.AcquisitionDate,
			})
		}
		g := &groups[i]
		g.Lots = append(g.Lots, lot)
		g.TotalQuantity = g.TotalQuantity.Add(lot.RemainingQuantity)
		g.TotalCostBasis = g.TotalCostBasis.Add(lot.RemainingCostBasis())
		if lot.AcquisitionDate.Before(g.OldestAcquisitionDate) {
			g.OldestAcquisitionDate = lot.AcquisitionDate
		}
		if lot.AcquisitionDate.After(g.NewestAcquisitionDate) {
			g.NewestAcquisitionDate = lot.AcquisitionDate
		}
	}
	for i := range groups {
		g := &groups[i]
		if !g.TotalQuantity.IsZero() {
			g.AverageCostPerShare = g.TotalCostBasis.Div(g.TotalQuantity)
		}
	}
	slices.SortFunc(groups, func(a, b LotGroup) int { return cmp.Compare(a.Symbol, b.Symbol) })
	return groups
}
