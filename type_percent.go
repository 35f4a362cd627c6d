package taxlot

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percent is a ratio expressed in percent (5 means 5%).
type Percent float64

// percentOf returns part/whole in percent, zero when whole is zero.
func percentOf(part, whole Money) Percent {
	if whole.IsZero() {
		return 0
	}
	return Percent(part.Ratio(whole).Mul(decimal.NewFromInt(100)).InexactFloat64())
}

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p))
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", float64(p))
	if res == "+0.00%" {
		return "-"
	}
	return res
}
