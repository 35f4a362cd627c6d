// Package eodhd fetches the last closes of securities from EOD Historical
// Data (https://eodhd.com), to refresh the prices the harvest scanner uses.
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/etnz/taxlot/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the EODHD API root.
const DefaultBaseURL = "https://eodhd.com/api"

// DefaultRateLimit is the number of requests per second sent to EODHD.
const DefaultRateLimit = 10

// lookBack is how many days before the requested date a close is searched,
// to cover weekends and holidays.
const lookBack = 7

// Client fetches prices from EODHD.
type Client struct {
	APIKey      string
	Exchange    string // appended to symbols, "US" by default
	BaseURL     string
	HTTP        *http.Client
	Parallelism int           // concurrent requests, 4 by default
	Limiter     *rate.Limiter // nil means unlimited
	Log         zerolog.Logger
}

// NewClient returns a client whose responses are cached in the temporary
// directory for the day.
func NewClient(apiKey, exchange string, log zerolog.Logger) *Client {
	return &Client{
		APIKey:   apiKey,
		Exchange: exchange,
		BaseURL:  DefaultBaseURL,
		HTTP:     newDailyCachingClient(os.TempDir(), log),
		Limiter:  rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		Log:      log,
	}
}

// Close is the closing price of a symbol on a day.
type Close struct {
	Symbol string
	Date   date.Date
	Price  decimal.Decimal
}

// Ticker returns the EODHD ticker of symbol: share classes use a dash
// ("BRK.B" is "BRK-B") and the exchange code is appended.
func (c *Client) Ticker(symbol string) string {
	exchange := c.Exchange
	if exchange == "" {
		exchange = "US"
	}
	return strings.ReplaceAll(strings.ToUpper(symbol), ".", "-") + "." + exchange
}

// LastClose returns the last close of symbol on or before on.
func (c *Client) LastClose(ctx context.Context, symbol string, on date.Date) (Close, error) {
	// https://eodhd.com/api/eod/MCD.US?api_token=demo&fmt=json&from=2024-02-06&to=2024-02-13
	// [
	//	{
	//		"date": "2024-02-13",
	//		"open": 675.066,
	//		"high": 684.219,
	//		"low": 648.659,
	//		"close": 668.445,
	//		"adjusted_close": 67.705,
	//		"volume": 0
	//	},
	// bounds are included in the response.
	ticker := c.Ticker(symbol)
	q := url.Values{}
	q.Set("fmt", "json")
	q.Set("api_token", c.APIKey)
	q.Set("from", on.Add(-lookBack).String())
	q.Set("to", on.String())
	addr := fmt.Sprintf("%s/eod/%s?%s", strings.TrimSuffix(c.BaseURL, "/"), url.PathEscape(ticker), q.Encode())

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return Close{}, err
		}
	}

	type Info struct {
		Date  date.Date       `json:"date"`
		Close decimal.Decimal `json:"close"`
	}
	content := make([]Info, 0)
	if err := jwget(ctx, c.HTTP, addr, &content); err != nil {
		return Close{}, fmt.Errorf("fetching %s: %w", ticker, err)
	}

	var last Close
	for _, info := range content {
		if info.Date.After(on) || info.Date.Before(last.Date) {
			continue
		}
		last = Close{Symbol: symbol, Date: info.Date, Price: info.Close}
	}
	if last.Date.IsZero() {
		return Close{}, fmt.Errorf("no close for %s between %s and %s", ticker, on.Add(-lookBack), on)
	}
	return last, nil
}

// LastCloses returns the last close of every symbol on or before on. Symbols
// are fetched concurrently and the first error cancels the others.
func (c *Client) LastCloses(ctx context.Context, symbols []string, on date.Date) (map[string]Close, error) {
	closes := make([]Close, len(symbols))
	g, ctx := errgroup.WithContext(ctx)
	limit := c.Parallelism
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)
	for i, symbol := range symbols {
		g.Go(func() error {
			cl, err := c.LastClose(ctx, symbol, on)
			if err != nil {
				return err
			}
			c.Log.Debug().Str("symbol", symbol).Stringer("date", cl.Date).Stringer("close", cl.Price).Msg("close fetched")
			closes[i] = cl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := make(map[string]Close, len(closes))
	for _, cl := range closes {
		res[cl.Symbol] = cl
	}
	return res, nil
}

// jwget performs an HTTP GET request to the given address and unmarshals the
// JSON response body into data.
func jwget(ctx context.Context, client *http.Client, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(data)
}
