package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

const book = `{"record":"account","id":"brk","name":"Brokerage","type":"brokerage"}
{"record":"account","id":"ira","name":"IRA","type":"Traditional IRA"}
{"record":"lot","id":"t1","account":"brk","symbol":"VOO","source":"t1","quantity":10,"basis":500,"acquired":"2025-01-02"}
{"record":"tx","id":"t1","account":"brk","date":"2025-01-02","type":"buy","symbol":"VOO","quantity":10,"price":500,"amount":5000}
{"record":"tx","id":"b2","account":"ira","date":"2025-06-20","type":"buy","symbol":"IVV","quantity":4,"price":455,"amount":1820}
`

func testDesk(t *testing.T) *Desk {
	t.Helper()
	b, err := taxlot.DecodeBook(strings.NewReader(book), "")
	require.NoError(t, err)
	return &Desk{
		Book:     b,
		Prices:   map[string]taxlot.Money{"VOO": taxlot.USD(450)},
		Currency: "USD",
		Method:   taxlot.FIFO,
		Scanner:  taxlot.NewScanner(taxlot.FlatRates{ShortTerm: decimal.RequireFromString("0.3")}),
		Today:    date.New(2025, 6, 25),
	}
}

func call(t *testing.T, lib Library, name string, args map[string]any) map[string]any {
	t.Helper()
	resp := lib(context.Background(), &genai.FunctionCall{ID: "1", Name: name, Args: args})
	require.NotNil(t, resp)
	assert.Equal(t, "1", resp.ID)
	assert.Equal(t, name, resp.Name)
	return resp.Response
}

func TestDeskFunctions(t *testing.T) {
	lib := NewLibrary(testDesk(t).Functions())

	t.Run("lots", func(t *testing.T) {
		got := call(t, lib, "ListLots", map[string]any{"symbol": "voo"})
		require.Contains(t, got, "output")
		assert.Contains(t, got["output"], "# Tax Lots as of 2025-06-25")
		assert.Contains(t, got["output"], "| t1 | brk | 2025-01-02 | short |")
	})

	t.Run("sale", func(t *testing.T) {
		got := call(t, lib, "PreviewSale", map[string]any{"symbol": "VOO", "quantity": 10.0, "date": "2025-06-10"})
		require.Contains(t, got, "output")
		out := got["output"].(string)
		assert.Contains(t, out, "# Sale Preview: 10 VOO on 2025-06-10")
		assert.Contains(t, out, "## Wash Sales")
		assert.Contains(t, out, "| t1 | b2 | IVV | 2025-06-20 | 10 | 4 | $200.00 |")
	})

	t.Run("sale needs a price", func(t *testing.T) {
		got := call(t, lib, "PreviewSale", map[string]any{"symbol": "ABC", "quantity": "3"})
		assert.Equal(t, "no current price for ABC, give the sale price", got["error"])
	})

	t.Run("sale method", func(t *testing.T) {
		got := call(t, lib, "PreviewSale", map[string]any{"symbol": "VOO", "quantity": 1.0, "method": "average"})
		assert.Contains(t, got["error"], "average")
	})

	t.Run("safe date", func(t *testing.T) {
		got := call(t, lib, "SafeSaleDate", map[string]any{"symbol": "VOO"})
		assert.Contains(t, got["output"], "**2025-07-21**")
	})

	t.Run("purchase", func(t *testing.T) {
		got := call(t, lib, "CheckPurchase", map[string]any{"symbol": "SPY", "account": "brk"})
		assert.Contains(t, got["output"], "This purchase does not trigger any wash sale.")
	})

	t.Run("harvest", func(t *testing.T) {
		got := call(t, lib, "Harvest", nil)
		out := got["output"].(string)
		assert.Contains(t, out, "# Tax-Loss Harvesting as of 2025-06-25")
		assert.Contains(t, out, "| 1 | Brokerage | VOO | 10 | $500.00 |")
		assert.Contains(t, out, "| high |")
	})

	t.Run("topic", func(t *testing.T) {
		got := call(t, lib, "Topic", map[string]any{"name": "methods"})
		assert.Contains(t, got["output"], "# Lot selection methods")
	})

	t.Run("bad date", func(t *testing.T) {
		got := call(t, lib, "ListLots", map[string]any{"date": "yesterday"})
		assert.Contains(t, got["error"], `argument 'date' must be a valid date got "yesterday"`)
	})

	t.Run("unknown", func(t *testing.T) {
		got := call(t, lib, "Nope", nil)
		assert.Equal(t, "unknown function Nope", got["error"])
	})
}

func TestArgs(t *testing.T) {
	_, err := stringArg(map[string]any{}, "symbol", true)
	assert.EqualError(t, err, `argument "symbol" is required`)
	_, err = stringArg(map[string]any{"symbol": 3.0}, "symbol", false)
	assert.EqualError(t, err, `argument "symbol" is not a string as expected but float64`)

	d, err := decimalArg(map[string]any{"quantity": "2.5"}, "quantity", true)
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("2.5")))
	_, err = decimalArg(map[string]any{"quantity": true}, "quantity", true)
	assert.Error(t, err)

	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
}

func TestDeclarations(t *testing.T) {
	desk := testDesk(t)
	advisor := NewTaxAdvisor(DefaultModel, desk)
	trader := NewTrader(DefaultModel)
	a := New(&strings.Builder{}, strings.NewReader(""), DefaultModel, trader, advisor)

	decls := a.Facilitator.Config.Tools[0].FunctionDeclarations
	require.Len(t, decls, 2)
	assert.Equal(t, "Trader", decls[0].Name)
	assert.Equal(t, "TaxAdvisor", decls[1].Name)
	assert.Equal(t, []string{"question"}, decls[1].Parameters.Required)

	names := make([]string, 0)
	for _, d := range advisor.Config.Tools[0].FunctionDeclarations {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"ListLots", "PreviewSale", "SafeSaleDate", "CheckPurchase", "Harvest", "Topic"}, names)
}
