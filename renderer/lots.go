package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/date"
)

// LotsMarkdown renders the open lots, one table per symbol, with their
// unrealized gain when a price is known.
func LotsMarkdown(lots []taxlot.EnrichedLot, asOf date.Date) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Tax Lots as of %s\n\n", asOf)

	open := make([]taxlot.TaxLot, 0, len(lots))
	enriched := make(map[string]taxlot.EnrichedLot, len(lots))
	for _, l := range lots {
		if l.IsFullyDisposed() {
			continue
		}
		open = append(open, l.TaxLot)
		enriched[l.ID] = l
	}
	groups := taxlot.GroupLotsBySymbol(open)
	if len(groups) == 0 {
		fmt.Fprintln(&b, "No open lot.")
		return b.String()
	}

	fmt.Fprintln(&b, "| Symbol | Lots | Quantity | Cost Basis | Average Cost | Oldest | Newest |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|:---|:---|")
	for _, g := range groups {
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s | %s |\n",
			g.Symbol,
			len(g.Lots),
			g.TotalQuantity,
			g.TotalCostBasis,
			g.AverageCostPerShare,
			orUnknown(g.OldestAcquisitionDate),
			orUnknown(g.NewestAcquisitionDate),
		)
	}

	for _, g := range groups {
		fmt.Fprintf(&b, "\n## %s\n\n", g.Symbol)
		fmt.Fprintln(&b, "| Lot | Account | Acquired | Term | Remaining | Cost/Share | Cost Basis | Price | Value | Unrealized |")
		fmt.Fprintln(&b, "|:---|:---|:---|:---|---:|---:|---:|---:|---:|---:|")
		for _, lot := range g.Lots {
			e := enriched[lot.ID]
			info := taxlot.CalculateHoldingPeriod(lot.AcquisitionDate, asOf)
			price, value, gain := "", "", ""
			if e.Enriched {
				price = e.CurrentPrice.String()
				value = e.CurrentValue.String()
				gain = fmt.Sprintf("%s (%s)", e.UnrealizedGainLoss.SignedString(), e.UnrealizedGainLossPct.SignedString())
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
				lot.ID,
				firstNonEmpty(lot.AccountName, lot.AccountID),
				orUnknown(lot.AcquisitionDate),
				termLabel(info.HoldingPeriod),
				lot.RemainingQuantity,
				lot.CostBasisPerShare,
				lot.RemainingCostBasis(),
				price,
				value,
				gain,
			)
		}
	}

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "\nNo price for: ")
		var missing []string
		for _, g := range groups {
			for _, lot := range g.Lots {
				if !enriched[lot.ID].Enriched {
					missing = append(missing, g.Symbol)
					break
				}
			}
		}
		fmt.Fprintln(w, strings.Join(missing, ", "))
		return len(missing) > 0
	})
	return b.String()
}

func orUnknown(d date.Date) string {
	if d.IsZero() {
		return "unknown"
	}
	return d.String()
}
