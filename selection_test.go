package taxlot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(lots []TaxLot) []string {
	var res []string
	for _, l := range lots {
		res = append(res, l.ID)
	}
	return res
}

func selectionLots() []TaxLot {
	closed := openLot("closed", "brk", "VOO", 10, 500, "2020-01-01")
	closed.RemainingQuantity = Q(0)
	return []TaxLot{
		openLot("b", "brk", "VOO", 10, 80, "2024-03-01"),
		openLot("a", "brk", "VOO", 10, 100, "2024-01-01"),
		closed,
		openLot("c", "brk", "VOO", 10, 120, "2024-02-01"),
		openLot("d", "brk", "VOO", 10, 100, "2024-02-01"),
	}
}

func TestSortLotsForSale(t *testing.T) {
	tests := []struct {
		method   CostBasisMethod
		specific []string
		want     []string
	}{
		{FIFO, nil, []string{"a", "c", "d", "b"}},
		{LIFO, nil, []string{"b", "c", "d", "a"}},
		{HIFO, nil, []string{"c", "a", "d", "b"}},
		{SpecificID, []string{"d", "unknown", "closed", "a", "d"}, []string{"d", "a"}},
		{SpecificID, nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			got := SortLotsForSale(selectionLots(), tt.method, tt.specific)
			assert.Equal(t, tt.want, append([]string{}, ids(got)...))
		})
	}
}

func TestSortLotsForSaleHIFOScenario(t *testing.T) {
	lots := []TaxLot{
		openLot("l100", "brk", "VOO", 10, 100, "2024-01-01"),
		openLot("l80", "brk", "VOO", 10, 80, "2024-02-01"),
		openLot("l120", "brk", "VOO", 10, 120, "2024-03-01"),
	}
	got := SortLotsForSale(lots, HIFO, nil)
	require.Len(t, got, 3)
	assert.Equal(t, "l120", got[0].ID)
}

func TestSortLotsForSaleOrderProperties(t *testing.T) {
	lots := selectionLots()
	fifo := SortLotsForSale(lots, FIFO, nil)
	for i := 1; i < len(fifo); i++ {
		assert.False(t, fifo[i].AcquisitionDate.Before(fifo[i-1].AcquisitionDate), "fifo not ascending at %d", i)
	}
	lifo := SortLotsForSale(lots, LIFO, nil)
	for i := 1; i < len(lifo); i++ {
		assert.False(t, lifo[i].AcquisitionDate.After(lifo[i-1].AcquisitionDate), "lifo not descending at %d", i)
	}
	hifo := SortLotsForSale(lots, HIFO, nil)
	for i := 1; i < len(hifo); i++ {
		assert.False(t, hifo[i].CostBasisPerShare.GreaterThan(hifo[i-1].CostBasisPerShare), "hifo not descending at %d", i)
	}
	for _, l := range append(append(fifo, lifo...), hifo...) {
		assert.True(t, l.RemainingQuantity.IsPositive(), "closed lot %q selected", l.ID)
	}
}

func TestSortLotsForSaleIsDeterministic(t *testing.T) {
	lots := selectionLots()
	reversed := make([]TaxLot, len(lots))
	for i, l := range lots {
		reversed[len(lots)-1-i] = l
	}
	for _, m := range []CostBasisMethod{FIFO, LIFO, HIFO} {
		assert.Equal(t, ids(SortLotsForSale(lots, m, nil)), ids(SortLotsForSale(reversed, m, nil)), m.String())
	}
}

func TestSortLotsForSaleDoesNotModifyInput(t *testing.T) {
	lots := selectionLots()
	before := ids(lots)
	SortLotsForSale(lots, HIFO, nil)
	assert.Equal(t, before, ids(lots))
}

func TestParseCostBasisMethod(t *testing.T) {
	for _, name := range CostBasisMethods() {
		m, err := ParseCostBasisMethod(name)
		require.NoError(t, err)
		assert.Equal(t, name, m.String())
	}
	m, err := ParseCostBasisMethod(" HIFO ")
	require.NoError(t, err)
	assert.Equal(t, HIFO, m)

	_, err = ParseCostBasisMethod("average")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}
