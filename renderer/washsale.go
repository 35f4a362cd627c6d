package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/taxlot"
)

// WashSaleMarkdown renders the wash-sale check of a single sale.
func WashSaleMarkdown(r taxlot.WashSaleResult) string {
	var b strings.Builder
	sale := r.Sale
	fmt.Fprintf(&b, "# Wash Sale Check: %s %s on %s\n\n", sale.Shares(), taxlot.NormalizeSymbol(sale.Symbol), sale.Date)

	switch {
	case r.GrossLoss.IsZero():
		fmt.Fprintln(&b, "The sale is not at a loss, the wash sale rule does not apply.")
	case !r.IsWashSale:
		fmt.Fprintf(&b, "No replacement purchase within %d days: the loss of %s is fully deductible.\n", taxlot.WashSaleWindowDays, r.GrossLoss)
	default:
		fmt.Fprintln(&b, "| Loss | Disallowed | Allowed |")
		fmt.Fprintln(&b, "|---:|---:|---:|")
		fmt.Fprintf(&b, "| %s | %s | %s |\n", r.GrossLoss, r.TotalDisallowedLoss, r.AllowedLoss)

		fmt.Fprint(&b, "\n## Replacement Purchases\n\n")
		fmt.Fprintln(&b, "| Purchase | Account | Symbol | Date | Days | Shares | Ratio | Disallowed | Adjusted Basis | Per Share |")
		fmt.Fprintln(&b, "|:---|:---|:---|:---|---:|---:|---:|---:|---:|---:|")
		for _, v := range r.Violations {
			account := v.Purchase.AccountID
			if v.IsCrossAccount {
				account += " (other)"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %+d | %s | %s | %s | %s | %s |\n",
				v.Purchase.ID,
				account,
				v.Purchase.Symbol,
				v.Purchase.Date,
				v.DaysFromSale,
				v.ReplacementShares,
				v.DisallowedRatio.Shift(2).StringFixed(2)+"%",
				v.DisallowedLoss,
				v.AdjustedBasis,
				v.AdjustedBasisPerShare,
			)
		}
	}
	writeWarnings(&b, r.Warnings)
	return b.String()
}

// SafeDateMarkdown renders the first date a symbol can be sold at a loss
// without triggering a wash sale.
func SafeDateMarkdown(s taxlot.SafeSaleDate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Safe Sale Date: %s\n\n", s.Symbol)
	if s.IsSafeNow {
		fmt.Fprintf(&b, "%s can be sold at a loss today (%s).\n", s.Symbol, s.AsOf)
		return b.String()
	}
	fmt.Fprintf(&b, "Wait %d days: %s can be sold at a loss on **%s**.\n", s.DaysToWait, s.Symbol, s.SafeDate)

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "\n## Blocking Purchases\n\n")
		fmt.Fprintln(w, "| Purchase | Account | Symbol | Date | Shares |")
		fmt.Fprintln(w, "|:---|:---|:---|:---|---:|")
		for _, tx := range s.BlockingPurchases {
			fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n", tx.ID, tx.AccountID, tx.Symbol, tx.Date, tx.Shares())
		}
		return len(s.BlockingPurchases) > 0
	})
	return b.String()
}

// PurchaseCheckMarkdown renders whether a planned purchase would turn recent
// loss sales into wash sales.
func PurchaseCheckMarkdown(c taxlot.PurchaseCheck) string {
	var b strings.Builder
	p := c.Purchase
	fmt.Fprintf(&b, "# Purchase Check: %s %s on %s\n\n", p.Shares(), taxlot.NormalizeSymbol(p.Symbol), p.Date)

	switch {
	case c.TriggersWashSale:
		fmt.Fprintln(&b, "**This purchase triggers a wash sale.**")
	case len(c.PotentialTriggers) > 0:
		fmt.Fprintln(&b, "This purchase may trigger a wash sale.")
	default:
		fmt.Fprintln(&b, "This purchase does not trigger any wash sale.")
	}

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "\n## Loss Sales\n\n")
		fmt.Fprintln(w, "| Sale | Account | Symbol | Date | Days | Shares | Loss |")
		fmt.Fprintln(w, "|:---|:---|:---|:---|---:|---:|---:|")
		for _, t := range c.Triggers {
			fmt.Fprintf(w, "| %s | %s | %s | %s | %+d | %s | %s |\n",
				t.Sale.ID, t.Sale.AccountID, t.Sale.Symbol, t.Sale.Date, t.DaysFromSale, t.Sale.Shares(), t.Loss)
		}
		for _, tx := range c.PotentialTriggers {
			fmt.Fprintf(w, "| %s | %s | %s | %s | %+d | %s | unknown |\n",
				tx.ID, tx.AccountID, tx.Symbol, tx.Date, p.Date.Sub(tx.Date), tx.Shares())
		}
		return len(c.Triggers)+len(c.PotentialTriggers) > 0
	})
	writeWarnings(&b, c.Warnings)
	return b.String()
}

func writeWarnings(w io.Writer, warnings []string) {
	ConditionalBlock(w, func(w io.Writer) bool {
		fmt.Fprint(w, "\n## Warnings\n\n")
		for _, msg := range warnings {
			fmt.Fprintf(w, "- %s\n", msg)
		}
		return len(warnings) > 0
	})
}
