package taxlot

import (
	"fmt"
	"strings"
)

// CostBasisMethod defines the order in which open lots are consumed by a sale.
type CostBasisMethod int

const (
	// FIFO (First-In, First-Out) sells the oldest lots first.
	FIFO CostBasisMethod = iota
	// LIFO (Last-In, First-Out) sells the most recent lots first.
	LIFO
	// HIFO (Highest-In, First-Out) sells the lots with the highest per-share
	// basis first, which maximizes the harvested loss.
	HIFO
	// SpecificID sells the lots the caller names, in the order given.
	SpecificID
)

func (m CostBasisMethod) String() string {
	switch m {
	case FIFO:
		return "fifo"
	case LIFO:
		return "lifo"
	case HIFO:
		return "hifo"
	case SpecificID:
		return "specific"
	default:
		return "unknown"
	}
}

// ParseCostBasisMethod parses a string into a CostBasisMethod.
func ParseCostBasisMethod(s string) (CostBasisMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fifo":
		return FIFO, nil
	case "lifo":
		return LIFO, nil
	case "hifo":
		return HIFO, nil
	case "specific", "specific-id", "specific_id":
		return SpecificID, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// CostBasisMethods lists the supported methods' names.
func CostBasisMethods() []string {
	return []string{FIFO.String(), LIFO.String(), HIFO.String(), SpecificID.String()}
}
