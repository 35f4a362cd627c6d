package renderer

import (
	"io/fs"
	"strings"
	"testing"
	"text/template"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesParse(t *testing.T) {
	files, err := fs.Glob(templates, "*.md")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, file := range files {
		t.Run(file, func(t *testing.T) {
			content, err := fs.ReadFile(templates, file)
			require.NoError(t, err)
			_, err = template.New(file).Parse(string(content))
			assert.NoError(t, err)
		})
	}
}

// HELPER

func testLot() taxlot.TaxLot {
	return taxlot.TaxLot{
		ID:                  "L1",
		AccountID:           "brokerage",
		Symbol:              "VOO",
		SourceTransactionID: "L1",
		OriginalQuantity:    taxlot.Q(10),
		RemainingQuantity:   taxlot.Q(10),
		CostBasisPerShare:   taxlot.USD(500),
		TotalCostBasis:      taxlot.USD(5000),
		AcquisitionDate:     date.New(2025, 1, 2),
		AcquisitionType:     taxlot.AcquiredByPurchase,
	}
}

func testBuy(id, account string, on date.Date) taxlot.Transaction {
	return taxlot.Transaction{
		ID:        id,
		AccountID: account,
		Date:      on,
		Type:      taxlot.TxBuy,
		Symbol:    "VOO",
		Quantity:  taxlot.Q(10),
		Price:     taxlot.USD(455),
	}
}

func testSale() taxlot.Transaction {
	return taxlot.Transaction{
		ID:        "S1",
		AccountID: "brokerage",
		Date:      date.New(2025, 6, 2),
		Type:      taxlot.TxSell,
		Symbol:    "VOO",
		Quantity:  taxlot.Q(-10),
		Price:     taxlot.USD(450),
		Amount:    taxlot.USD(4500),
		CostBasis: taxlot.USD(5000),
	}
}

func TestRenderSale(t *testing.T) {
	req := taxlot.SaleRequest{
		Symbol:        "VOO",
		Quantity:      taxlot.Q(10),
		PricePerShare: taxlot.USD(450),
		SaleDate:      date.New(2025, 6, 2),
		Method:        taxlot.FIFO,
		History:       []taxlot.Transaction{testBuy("B2", "brokerage", date.New(2025, 6, 20))},
	}
	res := taxlot.CalculateSaleResult([]taxlot.TaxLot{testLot()}, req)

	got := RenderSale(NewSale(res, false), SaleRenderOptions{})
	assert.Contains(t, got, "# Sale Preview: 10 VOO on 2025-06-02")
	assert.Contains(t, got, "Method: fifo")
	assert.Contains(t, got, "| L1 | brokerage | 2025-01-02 |")
	assert.Contains(t, got, "## Wash Sales")
	assert.Contains(t, got, "| L1 | B2 | VOO | 2025-06-20 | 18 | 10 | $500.00 |")
	assert.NotContains(t, got, "Only")
	assert.NotContains(t, got, "error")

	got = RenderSale(NewSale(res, true), SaleRenderOptions{SkipWashSales: true})
	assert.Contains(t, got, "# Sale: 10 VOO on 2025-06-02")
	assert.NotContains(t, got, "## Wash Sales")
}

func TestRenderSalePartial(t *testing.T) {
	req := taxlot.SaleRequest{
		Symbol:        "VOO",
		Quantity:      taxlot.Q(15),
		PricePerShare: taxlot.USD(550),
		SaleDate:      date.New(2025, 6, 2),
		Method:        taxlot.HIFO,
	}
	res := taxlot.CalculateSaleResult([]taxlot.TaxLot{testLot()}, req)

	got := RenderSale(NewSale(res, false), SaleRenderOptions{})
	assert.Contains(t, got, "**Only 10 of the 15 requested shares are available (5 short).**")
	assert.Contains(t, got, "Wash sales were not checked")
	assert.Contains(t, got, "+$500.00")
	assert.NotContains(t, got, "## Warnings")
}

func TestRenderHarvest(t *testing.T) {
	accounts := []taxlot.Account{
		{ID: "brokerage", Name: "Taxable", Type: "brokerage"},
		{ID: "ira", Name: "IRA", Type: "Traditional IRA"},
	}
	report := taxlot.HarvestReport{
		AsOf:            date.New(2025, 6, 2),
		Currency:        "USD",
		ScannedHoldings: 3,
		TotalLoss:       taxlot.USD(1000),
		TotalTaxSavings: taxlot.USD(450),
		Opportunities: []taxlot.HarvestOpportunity{{
			Account:        accounts[0],
			Holding:        taxlot.Holding{AccountID: "brokerage", Symbol: "VOO", Quantity: taxlot.Q(10)},
			UnrealizedLoss: taxlot.USD(1000),
			LossPercent:    20,
			HoldingInfo:    taxlot.HoldingInfo{HoldingPeriod: taxlot.ShortTerm, DaysHeld: 100},
			TaxTreatment:   taxlot.ShortTerm,
			TaxSavings:     taxlot.TaxSavings{CombinedRate: decimal.RequireFromString("0.45"), TaxSaved: taxlot.USD(450)},
			WashSaleRisk:   taxlot.RiskHigh,
			RiskReasons:    []string{`VOO is held in account "IRA"`},
			Substitutes:    []string{"VTI", "SCHX"},
			Blockers:       []string{"a substantially identical security is held or bought in a tax-advantaged account"},
		}},
		NeedsCostBasis: []taxlot.MissingCostBasis{{
			Account:      accounts[0],
			Holding:      taxlot.Holding{AccountID: "brokerage", Symbol: "XYZ", Quantity: taxlot.Q(50)},
			CurrentValue: taxlot.USD(2500),
		}},
		ForeignCurrency: []taxlot.ForeignCurrency{{
			Account:      accounts[0],
			Holding:      taxlot.Holding{AccountID: "brokerage", Symbol: "SAP", Quantity: taxlot.Q(4), CostBasis: taxlot.USD(800)},
			CurrentPrice: taxlot.M(180, "EUR"),
		}},
	}

	got := RenderHarvest(NewHarvest(report, accounts))
	assert.Contains(t, got, "# Tax-Loss Harvesting as of 2025-06-02")
	assert.Contains(t, got, "| 3 | 1 | 0 | $1,000.00 | $450.00 |")
	assert.Contains(t, got, "| 1 | Taxable | VOO | 10 | $1,000.00 | 20.00% | short | 45.00% | $450.00 | high | VTI, SCHX | blocked |")
	assert.Contains(t, got, `- #1 VOO: VOO is held in account "IRA"`)
	assert.Contains(t, got, "## Missing Cost Basis")
	assert.Contains(t, got, "| Taxable | XYZ | 50 | $2,500.00 |")
	assert.NotContains(t, got, "## Missing Prices")
	assert.Contains(t, got, "## Other Currencies")
	assert.Contains(t, got, "These holdings are not valued in USD and were not evaluated.")
	assert.Contains(t, got, "| Taxable | SAP | 4 |")
	assert.Contains(t, got, "| $800.00 |")
	assert.NotContains(t, got, "error")
}

func TestRenderHarvestEmpty(t *testing.T) {
	got := RenderHarvest(NewHarvest(taxlot.HarvestReport{AsOf: date.New(2025, 6, 2)}, nil))
	assert.Contains(t, got, "No harvesting opportunity above the thresholds.")
	assert.NotContains(t, got, "## Opportunities")
}

func TestLotsMarkdown(t *testing.T) {
	closed := testLot()
	closed.ID = "L0"
	closed.RemainingQuantity = taxlot.Q(0)
	other := testLot()
	other.ID = "L2"
	other.Symbol = "ABC"

	lots := taxlot.EnrichLotsWithMarketData([]taxlot.TaxLot{testLot(), closed, other}, map[string]taxlot.Money{"VOO": taxlot.USD(450)})
	got := LotsMarkdown(lots, date.New(2025, 6, 2))

	assert.Contains(t, got, "# Tax Lots as of 2025-06-02")
	assert.Contains(t, got, "| VOO | 1 | 10 | $5,000.00 | $500.00 | 2025-01-02 | 2025-01-02 |")
	assert.Contains(t, got, "## VOO")
	assert.Contains(t, got, "| L1 | brokerage | 2025-01-02 | short | 10 | $500.00 | $5,000.00 | $450.00 | $4,500.00 | -$500.00 (-10.00%) |")
	assert.NotContains(t, got, "| L0 |")
	assert.Contains(t, got, "No price for: ABC")
}

func TestLotsMarkdownEmpty(t *testing.T) {
	got := LotsMarkdown(nil, date.New(2025, 6, 2))
	assert.Contains(t, got, "No open lot.")
}

func TestWashSaleMarkdown(t *testing.T) {
	res := taxlot.CheckWashSale(testSale(), []taxlot.Transaction{testBuy("B2", "ira", date.New(2025, 6, 20))}, taxlot.USD(5000))
	require.True(t, res.IsWashSale)

	got := WashSaleMarkdown(res)
	assert.Contains(t, got, "# Wash Sale Check: 10 VOO on 2025-06-02")
	assert.Contains(t, got, "| $500.00 | $500.00 | $0.00 |")
	assert.Contains(t, got, "| B2 | ira (other) | VOO | 2025-06-20 | +18 | 10 | 100.00% | $500.00 | $5,050.00 | $505.00 |")
	assert.Contains(t, got, "## Warnings")
}

func TestWashSaleMarkdownNoLoss(t *testing.T) {
	sale := testSale()
	sale.Amount = taxlot.USD(6000)
	got := WashSaleMarkdown(taxlot.CheckWashSale(sale, nil, taxlot.USD(5000)))
	assert.Contains(t, got, "the wash sale rule does not apply")
	assert.NotContains(t, got, "## Warnings")
}

func TestSafeDateMarkdown(t *testing.T) {
	history := []taxlot.Transaction{testBuy("B2", "brokerage", date.New(2025, 6, 20))}

	got := SafeDateMarkdown(taxlot.FindSafeToSellDate("VOO", history, date.New(2025, 6, 25)))
	assert.Contains(t, got, "Wait 26 days: VOO can be sold at a loss on **2025-07-21**.")
	assert.Contains(t, got, "| B2 | brokerage | VOO | 2025-06-20 | 10 |")

	got = SafeDateMarkdown(taxlot.FindSafeToSellDate("VOO", history, date.New(2025, 8, 1)))
	assert.Contains(t, got, "VOO can be sold at a loss today (2025-08-01).")
	assert.NotContains(t, got, "Blocking")
}

func TestPurchaseCheckMarkdown(t *testing.T) {
	purchase := testBuy("B3", "brokerage", date.New(2025, 6, 10))

	got := PurchaseCheckMarkdown(taxlot.CheckPurchaseTriggersWashSale(purchase, []taxlot.Transaction{testSale()}))
	assert.Contains(t, got, "**This purchase triggers a wash sale.**")
	assert.Contains(t, got, "| S1 | brokerage | VOO | 2025-06-02 | +8 | 10 | $500.00 |")

	got = PurchaseCheckMarkdown(taxlot.CheckPurchaseTriggersWashSale(purchase, nil))
	assert.Contains(t, got, "This purchase does not trigger any wash sale.")
	assert.NotContains(t, got, "## Loss Sales")
}

func TestHTML(t *testing.T) {
	got, err := HTML("| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.Contains(t, got, "<table>")
	assert.True(t, strings.Contains(got, "<td>1</td>"))
}
