package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/date"
	"github.com/etnz/taxlot/docs"
	"github.com/etnz/taxlot/renderer"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// Desk gives the experts a read-only access to the user's book. Every
// function answers in markdown.
type Desk struct {
	Book     *taxlot.Book
	Prices   map[string]taxlot.Money
	Currency string // of prices given as arguments
	Method   taxlot.CostBasisMethod
	Scanner  *taxlot.Scanner
	Today    date.Date // zero means the current day
	Log      zerolog.Logger
}

func (d *Desk) today() date.Date {
	if d.Today.IsZero() {
		return date.Today()
	}
	return d.Today
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

var dateDoc = `Today is the default.
Otherwise it uses a flexible date format based on YYYY-MM-DD:

` + must(docs.GetTopic("dates"))

func stringSchema(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description}
}

func numberSchema(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Description: description}
}

var markdownResponse = &genai.Schema{
	Type:        genai.TypeString,
	Description: "A markdown report.",
}

// Functions returns the functions of the desk.
func (d *Desk) Functions() []Function {
	return []Function{
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "ListLots",
				Description: "ListLots lists the open tax lots, grouped by symbol, with their cost basis, holding period and unrealized gain at current prices.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"symbol":  stringSchema("Only list the lots of this symbol. All symbols by default."),
						"account": stringSchema("Only list the lots of this account id. All accounts by default."),
						"date":    stringSchema("The date used to compute holding periods. " + dateDoc),
					},
				},
				Response: markdownResponse,
			},
			Func: d.listLots,
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name: "PreviewSale",
				Description: `PreviewSale simulates the sale of shares: which lots are sold, the realized gain or loss
				split in short and long term, and the part of the loss disallowed by wash sales. Nothing is recorded.`,
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"symbol":   stringSchema("The symbol to sell."),
						"quantity": numberSchema("The number of shares to sell."),
						"price":    numberSchema("The sale price per share. The current price by default."),
						"account":  stringSchema("Only sell lots of this account id. All accounts by default."),
						"method":   stringSchema("The lot selection method: " + strings.Join(taxlot.CostBasisMethods(), ", ") + ". The user's default otherwise."),
						"lots":     stringSchema("Comma separated lot ids, in order, for the specific method."),
						"date":     stringSchema("The sale date. " + dateDoc),
					},
					Required: []string{"symbol", "quantity"},
				},
				Response: markdownResponse,
			},
			Func: d.previewSale,
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "SafeSaleDate",
				Description: "SafeSaleDate returns the first date a symbol can be sold at a loss without recorded purchases of identical securities making it a wash sale.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"symbol": stringSchema("The symbol to sell."),
						"date":   stringSchema("The earliest date considered. " + dateDoc),
					},
					Required: []string{"symbol"},
				},
				Response: markdownResponse,
			},
			Func: d.safeSaleDate,
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "CheckPurchase",
				Description: "CheckPurchase tells whether buying a symbol would turn recent loss sales of identical securities into wash sales.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"symbol":   stringSchema("The symbol to buy."),
						"quantity": numberSchema("The number of shares to buy. 1 by default."),
						"account":  stringSchema("The account id of the purchase."),
						"date":     stringSchema("The purchase date. " + dateDoc),
					},
					Required: []string{"symbol"},
				},
				Response: markdownResponse,
			},
			Func: d.checkPurchase,
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "Harvest",
				Description: "Harvest scans the holdings of taxable accounts for unrealized losses worth selling, ranked by estimated tax savings, with their wash sale risk and substitute securities.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"date": stringSchema("The date of the scan. " + dateDoc),
					},
				},
				Response: markdownResponse,
			},
			Func: d.harvest,
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "Topic",
				Description: "Topic returns a documentation topic about the tax rules the tools apply. The topic 'readme' lists them all.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name": stringSchema("The topic name."),
					},
					Required: []string{"name"},
				},
				Response: markdownResponse,
			},
			Func: func(_ context.Context, args map[string]any) (string, error) {
				name, err := stringArg(args, "name", true)
				if err != nil {
					return "", err
				}
				return docs.GetTopic(name)
			},
		},
	}
}

func (d *Desk) listLots(_ context.Context, args map[string]any) (string, error) {
	symbol, err := stringArg(args, "symbol", false)
	if err != nil {
		return "", err
	}
	account, err := stringArg(args, "account", false)
	if err != nil {
		return "", err
	}
	on, err := d.dateArg(args)
	if err != nil {
		return "", err
	}
	lots := d.Book.Ledger.OpenLots(account, symbol)
	return renderer.LotsMarkdown(taxlot.EnrichLotsWithMarketData(lots, d.Prices), on), nil
}

func (d *Desk) previewSale(_ context.Context, args map[string]any) (string, error) {
	symbol, err := stringArg(args, "symbol", true)
	if err != nil {
		return "", err
	}
	symbol = taxlot.NormalizeSymbol(symbol)
	quantity, err := decimalArg(args, "quantity", true)
	if err != nil {
		return "", err
	}
	account, err := stringArg(args, "account", false)
	if err != nil {
		return "", err
	}
	on, err := d.dateArg(args)
	if err != nil {
		return "", err
	}

	price, ok := d.Prices[symbol]
	if p, err := decimalArg(args, "price", false); err != nil {
		return "", err
	} else if !p.IsZero() {
		price, ok = taxlot.M(p, d.Currency), true
	}
	if !ok {
		return "", fmt.Errorf("no current price for %s, give the sale price", symbol)
	}

	method := d.Method
	if m, err := stringArg(args, "method", false); err != nil {
		return "", err
	} else if m != "" {
		if method, err = taxlot.ParseCostBasisMethod(m); err != nil {
			return "", err
		}
	}
	lots, err := stringArg(args, "lots", false)
	if err != nil {
		return "", err
	}

	req := taxlot.SaleRequest{
		AccountID:      account,
		Symbol:         symbol,
		Quantity:       taxlot.Q(quantity),
		PricePerShare:  price,
		SaleDate:       on,
		Method:         method,
		SpecificLotIDs: splitList(lots),
		History:        d.Book.Ledger.History(),
	}
	res := taxlot.CalculateSaleResult(d.Book.Ledger.OpenLots(account, symbol), req)
	d.Log.Debug().Str("symbol", symbol).Stringer("quantity", res.TotalQuantity).Stringer("gain", res.NetGainLoss).Msg("sale previewed")
	return renderer.RenderSale(renderer.NewSale(res, false), renderer.SaleRenderOptions{}), nil
}

func (d *Desk) safeSaleDate(_ context.Context, args map[string]any) (string, error) {
	symbol, err := stringArg(args, "symbol", true)
	if err != nil {
		return "", err
	}
	on, err := d.dateArg(args)
	if err != nil {
		return "", err
	}
	return renderer.SafeDateMarkdown(taxlot.FindSafeToSellDate(symbol, d.Book.Ledger.History(), on)), nil
}

func (d *Desk) checkPurchase(_ context.Context, args map[string]any) (string, error) {
	symbol, err := stringArg(args, "symbol", true)
	if err != nil {
		return "", err
	}
	quantity, err := decimalArg(args, "quantity", false)
	if err != nil {
		return "", err
	}
	if quantity.IsZero() {
		quantity = decimal.NewFromInt(1)
	}
	account, err := stringArg(args, "account", false)
	if err != nil {
		return "", err
	}
	on, err := d.dateArg(args)
	if err != nil {
		return "", err
	}
	purchase := taxlot.Transaction{
		AccountID: account,
		Date:      on,
		Type:      taxlot.TxBuy,
		Symbol:    taxlot.NormalizeSymbol(symbol),
		Quantity:  taxlot.Q(quantity),
		Price:     d.Prices[taxlot.NormalizeSymbol(symbol)],
	}
	return renderer.PurchaseCheckMarkdown(taxlot.CheckPurchaseTriggersWashSale(purchase, d.Book.Ledger.History())), nil
}

func (d *Desk) harvest(_ context.Context, args map[string]any) (string, error) {
	on, err := d.dateArg(args)
	if err != nil {
		return "", err
	}
	report := d.Scanner.Scan(d.Book.Portfolio(on, d.Prices))
	return renderer.RenderHarvest(renderer.NewHarvest(report, d.Book.Accounts)), nil
}

// stringArg returns the string argument name. Absent optional arguments are
// empty.
func stringArg(args map[string]any, name string, required bool) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("argument %q is required", name)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q is not a string as expected but %T", name, v)
	}
	s = strings.TrimSpace(s)
	if s == "" && required {
		return "", fmt.Errorf("argument %q is required", name)
	}
	return s, nil
}

// decimalArg returns the numeric argument name, given as a number or a
// string. Absent optional arguments are zero.
func decimalArg(args map[string]any, name string, required bool) (decimal.Decimal, error) {
	v, ok := args[name]
	if !ok || v == nil {
		if required {
			return decimal.Zero, fmt.Errorf("argument %q is required", name)
		}
		return decimal.Zero, nil
	}
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case string:
		dec, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero, fmt.Errorf("argument %q must be a number, got %q", name, n)
		}
		return dec, nil
	default:
		return decimal.Zero, fmt.Errorf("argument %q is not a number as expected but %T", name, v)
	}
}

func (d *Desk) dateArg(args map[string]any) (date.Date, error) {
	s, err := stringArg(args, "date", false)
	if err != nil || s == "" {
		return d.today(), err
	}
	on, err := date.Parse(s)
	if err != nil {
		return d.today(), fmt.Errorf("argument 'date' must be a valid date got %q. Below is the doc about the format date\n\n%s ", s, must(docs.GetTopic("dates")))
	}
	return on, nil
}

func splitList(s string) []string {
	var res []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			res = append(res, v)
		}
	}
	return res
}
