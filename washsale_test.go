package taxlot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckWashSaleScenarios(t *testing.T) {
	saleDate := "2025-06-15"

	t.Run("no offsetting purchase", func(t *testing.T) {
		sale := sell("s", "brk", "XYZ", 100, 40, saleDate)
		res := CheckWashSale(sale, []Transaction{sale}, USD(5000))
		assert.False(t, res.IsWashSale)
		assert.Empty(t, res.Violations)
		assertMoney(t, USD(1000), res.GrossLoss)
		assertMoney(t, USD(1000), res.AllowedLoss)
		assertMoney(t, USD(0), res.TotalDisallowedLoss)
	})

	t.Run("buy 10 days later in another account", func(t *testing.T) {
		sale := sell("s", "brk", "XYZ", 100, 40, saleDate)
		history := []Transaction{sale, buy("b", "ira", "XYZ", 100, 41, "2025-06-25")}
		res := CheckWashSale(sale, history, USD(5000))
		require.Len(t, res.Violations, 1)
		v := res.Violations[0]
		assert.True(t, v.IsCrossAccount)
		assert.Equal(t, 10, v.DaysFromSale)
		assertMoney(t, USD(1000), v.DisallowedLoss)
		assertMoney(t, USD(5100), v.AdjustedBasis)
		assertMoney(t, USD(51), v.AdjustedBasisPerShare)
		assertMoney(t, USD(0), res.AllowedLoss)
		assertMoney(t, USD(1000), res.TotalDisallowedLoss)
		assert.Len(t, res.Warnings, 1)
		assert.False(t, res.Capped)
	})

	t.Run("two prior partial purchases", func(t *testing.T) {
		sale := sell("s", "brk", "XYZ", 200, 40, saleDate)
		history := []Transaction{
			buy("b1", "brk", "XYZ", 50, 45, "2025-05-20"),
			buy("b2", "brk", "XYZ", 50, 42, "2025-06-01"),
			sale,
		}
		res := CheckWashSale(sale, history, USD(10000))
		assertMoney(t, USD(2000), res.GrossLoss)
		require.Len(t, res.Violations, 2)
		for _, v := range res.Violations {
			assertMoney(t, USD(500), v.DisallowedLoss)
			assert.True(t, v.DisallowedRatio.Equal(Q(0.25).Decimal()))
			assert.False(t, v.IsCrossAccount)
			assert.Negative(t, v.DaysFromSale)
		}
		assertMoney(t, USD(1000), res.TotalDisallowedLoss)
		assertMoney(t, USD(1000), res.AllowedLoss)
		assert.Empty(t, res.Warnings)
	})
}

func TestCheckWashSaleGain(t *testing.T) {
	sale := sell("s", "brk", "XYZ", 100, 60, "2025-06-15")
	history := []Transaction{buy("b", "brk", "XYZ", 100, 61, "2025-06-16")}
	res := CheckWashSale(sale, history, USD(5000))
	assert.False(t, res.IsWashSale)
	assert.True(t, res.GrossLoss.IsZero())
	assert.True(t, res.AllowedLoss.IsZero())
}

func TestCheckWashSaleWindowBoundaries(t *testing.T) {
	sale := sell("s", "brk", "XYZ", 10, 40, "2025-06-15")
	tests := []struct {
		on   string
		want bool
	}{
		{"2025-05-15", false}, // 31 days before
		{"2025-05-16", true},  // 30 days before
		{"2025-06-15", true},  // same day
		{"2025-07-15", true},  // 30 days after
		{"2025-07-16", false}, // 31 days after
	}
	for _, tt := range tests {
		t.Run(tt.on, func(t *testing.T) {
			res := CheckWashSale(sale, []Transaction{buy("b", "brk", "XYZ", 10, 40, tt.on)}, USD(500))
			assert.Equal(t, tt.want, res.IsWashSale)
		})
	}
}

func TestCheckWashSaleFilters(t *testing.T) {
	sale := sell("s", "brk", "VOO", 10, 40, "2025-06-15")
	history := []Transaction{
		sale,
		sell("other-sale", "brk", "VOO", 10, 40, "2025-06-16"),
		buy("unrelated", "brk", "QQQ", 10, 40, "2025-06-16"),
		buy("own", "brk", "VOO", 10, 50, "2025-06-01"),
		buy("identical", "hsa", "splg", 5, 40, "2025-06-20"),
	}
	res := CheckWashSale(sale, history, USD(500), "own")
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "identical", res.Violations[0].Purchase.ID)
	assertMoney(t, USD(50), res.TotalDisallowedLoss)
}

func TestCheckWashSaleProportionalCap(t *testing.T) {
	// 100 shares sold, 150 replaced across three purchases.
	sale := sell("s", "brk", "XYZ", 100, 40, "2025-06-15")
	history := []Transaction{
		buy("b1", "brk", "XYZ", 100, 41, "2025-06-01"),
		buy("b2", "ira", "XYZ", 25, 41, "2025-06-20"),
		buy("b3", "brk", "XYZ", 25, 41, "2025-06-25"),
	}
	res := CheckWashSale(sale, history, USD(4600))
	assertMoney(t, USD(600), res.GrossLoss)
	require.Len(t, res.Violations, 3)
	assert.True(t, res.Capped)

	// uncapped amounts would be 600, 150 and 150.
	total := USD(0)
	for _, v := range res.Violations {
		assert.False(t, v.DisallowedLoss.GreaterThan(res.GrossLoss))
		total = total.Add(v.DisallowedLoss)
	}
	assertMoney(t, USD(400), res.Violations[0].DisallowedLoss)
	assertMoney(t, USD(100), res.Violations[1].DisallowedLoss)
	assertMoney(t, USD(100), res.Violations[2].DisallowedLoss)
	assertMoney(t, USD(4500), res.Violations[0].AdjustedBasis)
	assertMoney(t, USD(600), total)
	assertMoney(t, USD(600), res.TotalDisallowedLoss)
	assertMoney(t, USD(0), res.AllowedLoss)
}

func TestCheckWashSaleLossConservation(t *testing.T) {
	sale := sell("s", "brk", "XYZ", 30, 10, "2025-06-15")
	for _, n := range []int{0, 1, 2, 3, 7} {
		var history []Transaction
		for i := range n {
			history = append(history, buy(string(rune('a'+i)), "brk", "XYZ", 7, 10, "2025-06-10"))
		}
		res := CheckWashSale(sale, history, USD(600))
		assert.False(t, res.TotalDisallowedLoss.GreaterThan(res.GrossLoss), "n=%d", n)
		assert.False(t, res.AllowedLoss.IsNegative(), "n=%d", n)
		assertMoney(t, res.GrossLoss, res.AllowedLoss.Add(res.TotalDisallowedLoss), "n=%d", n)
	}
}

func TestIdenticalSecurities(t *testing.T) {
	got := IdenticalSecurities("voo")
	require.NotEmpty(t, got)
	assert.Equal(t, "VOO", got[0])
	assert.Contains(t, got, "IVV")

	// IVV does not list VOO in the table, the lookup is symmetric anyway.
	assert.Contains(t, IdenticalSecurities("IVV"), "VOO")
	assert.Equal(t, []string{"UNLISTED"}, IdenticalSecurities("unlisted"))
}

func TestAreSubstantiallyIdenticalIsSymmetric(t *testing.T) {
	symbols := []string{"UNLISTED", "ZZZ"}
	for sym, peers := range identicalSecurities {
		symbols = append(symbols, sym)
		symbols = append(symbols, peers...)
	}
	for _, a := range symbols {
		assert.True(t, AreSubstantiallyIdentical(a, a))
		for _, b := range symbols {
			assert.Equal(t, AreSubstantiallyIdentical(a, b), AreSubstantiallyIdentical(b, a), "%s %s", a, b)
		}
	}
	assert.True(t, AreSubstantiallyIdentical("spy", "VOO"))
	assert.False(t, AreSubstantiallyIdentical("VOO", "QQQ"))
}

func TestSubstituteSecurities(t *testing.T) {
	assert.Equal(t, []string{"VTI", "SCHX", "IWB"}, SubstituteSecurities("VOO"))
	// IVV has no entry of its own, it borrows the one of VOO.
	assert.Equal(t, []string{"VTI", "SCHX", "IWB"}, SubstituteSecurities("ivv"))
	assert.Empty(t, SubstituteSecurities("UNLISTED"))
}

func TestFindSafeToSellDate(t *testing.T) {
	asOf := day("2025-06-15")

	t.Run("nothing bought", func(t *testing.T) {
		res := FindSafeToSellDate("VOO", nil, asOf)
		assert.True(t, res.IsSafeNow)
		assert.Equal(t, asOf, res.SafeDate)
		assert.Zero(t, res.DaysToWait)
		assert.Empty(t, res.BlockingPurchases)
	})

	t.Run("recent identical purchase", func(t *testing.T) {
		history := []Transaction{
			buy("old", "brk", "VOO", 1, 1, "2025-01-01"),
			buy("b", "ira", "IVV", 1, 1, "2025-06-05"),
		}
		res := FindSafeToSellDate("VOO", history, asOf)
		assert.False(t, res.IsSafeNow)
		assert.Equal(t, day("2025-07-06"), res.SafeDate)
		assert.Equal(t, 21, res.DaysToWait)
		require.Len(t, res.BlockingPurchases, 1)
		assert.Equal(t, "b", res.BlockingPurchases[0].ID)
	})

	t.Run("chained purchases", func(t *testing.T) {
		history := []Transaction{
			buy("b1", "brk", "VOO", 1, 1, "2025-06-10"),
			buy("b2", "brk", "VOO", 1, 1, "2025-07-30"),
		}
		res := FindSafeToSellDate("VOO", history, asOf)
		// 2025-07-11 is within 30 days of b2.
		assert.Equal(t, day("2025-08-30"), res.SafeDate)
		assert.Len(t, res.BlockingPurchases, 2)
	})
}

func TestCheckPurchaseTriggersWashSale(t *testing.T) {
	loss := sell("loss", "brk", "VOO", 10, 40, "2025-06-01")
	loss.CostBasis = USD(500)
	gain := sell("gain", "brk", "VOO", 10, 40, "2025-06-02")
	gain.CostBasis = USD(300)
	unknown := sell("unknown", "ira", "IVV", 10, 40, "2025-06-03")
	old := sell("old", "brk", "VOO", 10, 40, "2025-01-01")
	old.CostBasis = USD(500)
	history := []Transaction{old, loss, gain, unknown}

	res := CheckPurchaseTriggersWashSale(buy("p", "brk", "VOO", 5, 40, "2025-06-20"), history)
	assert.True(t, res.TriggersWashSale)
	require.Len(t, res.Triggers, 1)
	assert.Equal(t, "loss", res.Triggers[0].Sale.ID)
	assertMoney(t, USD(100), res.Triggers[0].Loss)
	assert.Equal(t, 19, res.Triggers[0].DaysFromSale)
	require.Len(t, res.PotentialTriggers, 1)
	assert.Equal(t, "unknown", res.PotentialTriggers[0].ID)
	assert.Len(t, res.Warnings, 1)

	res = CheckPurchaseTriggersWashSale(buy("p", "brk", "QQQ", 5, 40, "2025-06-20"), history)
	assert.False(t, res.TriggersWashSale)
	assert.Empty(t, res.PotentialTriggers)
}
