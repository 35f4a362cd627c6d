package taxlot

import (
	"cmp"
	"slices"
)

// SortLotsForSale returns the open lots of lots in the order a sale consumes
// them under method. The input slice is never modified.
//
// For SpecificID the order of specificLotIDs is preserved; ids that do not
// resolve to an open lot, and repeated ids, are silently dropped. Other
// methods ignore specificLotIDs.
//
// Ties are broken deterministically: by lot ID for FIFO and LIFO, by
// acquisition date then lot ID for HIFO.
func SortLotsForSale(lots []TaxLot, method CostBasisMethod, specificLotIDs []string) []TaxLot {
	open := make([]TaxLot, 0, len(lots))
	for _, lot := range lots {
		if lot.RemainingQuantity.IsPositive() {
			open = append(open, lot)
		}
	}

	switch method {
	case FIFO:
		slices.SortStableFunc(open, func(a, b TaxLot) int {
			return cmp.Or(compareDates(a, b), cmp.Compare(a.ID, b.ID))
		})
	case LIFO:
		slices.SortStableFunc(open, func(a, b TaxLot) int {
			return cmp.Or(compareDates(b, a), cmp.Compare(a.ID, b.ID))
		})
	case HIFO:
		slices.SortStableFunc(open, func(a, b TaxLot) int {
			return cmp.Or(
				b.CostBasisPerShare.Decimal().Cmp(a.CostBasisPerShare.Decimal()),
				compareDates(a, b),
				cmp.Compare(a.ID, b.ID),
			)
		})
	case SpecificID:
		byID := make(map[string]TaxLot, len(open))
		for _, lot := range open {
			byID[lot.ID] = lot
		}
		selected := make([]TaxLot, 0, len(specificLotIDs))
		for _, id := range specificLotIDs {
			lot, ok := byID[id]
			if !ok {
				continue
			}
			selected = append(selected, lot)
			delete(byID, id)
		}
		return selected
	}
	return open
}

func compareDates(a, b TaxLot) int {
	switch {
	case a.AcquisitionDate.Before(b.AcquisitionDate):
		return -1
	case a.AcquisitionDate.After(b.AcquisitionDate):
		return 1
	default:
		return 0
	}
}
