package taxlot

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

// DecodePrices reads a price snapshot from any JSON document. path is a
// jsonpath expression ("$" when empty) selecting either an object of prices
// by symbol, or a list of objects with "symbol" and "price" fields. A price
// is a number, a numeric string, or an object with a "price", "close" or
// "last" field.
//
// Prices are expressed in currency, or DefaultCurrency when empty.
func DecodePrices(r io.Reader, path, currency string) (map[string]Money, error) {
	if path == "" {
		path = "$"
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var jobj any
	if err := dec.Decode(&jobj); err != nil {
		return nil, fmt.Errorf("error decoding prices: %w", err)
	}
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("error evaluating %q in prices: %w", path, err)
	}
	// wildcards and filters return a list of answers, keep the first answer.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 && isQuery(path) {
		if m, ok := jlist[0].(map[string]any); ok && m["symbol"] == nil {
			jval = m
		}
	}

	prices := make(map[string]Money)
	switch v := jval.(type) {
	case map[string]any:
		for sym, raw := range v {
			price, err := priceValue(raw)
			if err != nil {
				return nil, fmt.Errorf("price of %q: %w", sym, err)
			}
			prices[NormalizeSymbol(sym)] = M(price, currency)
		}
	case []any:
		for i, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("price #%d: want an object, got %T", i, item)
			}
			sym, _ := obj["symbol"].(string)
			if sym == "" {
				return nil, fmt.Errorf("price #%d: missing symbol", i)
			}
			price, err := priceValue(obj)
			if err != nil {
				return nil, fmt.Errorf("price of %q: %w", sym, err)
			}
			prices[NormalizeSymbol(sym)] = M(price, currency)
		}
	default:
		return nil, fmt.Errorf("%q in prices is neither an object nor a list: %T", path, jval)
	}
	return prices, nil
}

func isQuery(path string) bool {
	return strings.ContainsAny(path, "*?") || strings.Contains(path, "..")
}

func priceValue(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case json.Number:
		return decimal.NewFromString(v.String())
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		return decimal.NewFromString(v)
	case map[string]any:
		for _, key := range []string{"price", "close", "last"} {
			if p, ok := v[key]; ok {
				return priceValue(p)
			}
		}
		return decimal.Decimal{}, fmt.Errorf("no price field in %v", v)
	default:
		return decimal.Decimal{}, fmt.Errorf("not a price: %v", raw)
	}
}
