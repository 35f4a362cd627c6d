package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/date"
	"github.com/etnz/taxlot/eodhd"
	"github.com/google/subcommands"
)

// pricesCmd refreshes the prices file from EODHD.
type pricesCmd struct {
	date     string
	exchange string
}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "refresh the prices file with the last closes" }
func (*pricesCmd) Usage() string {
	return `tlx prices [-d <date>] [-exchange <code>] [<symbol>...]

  Fetches the last close on or before -d of every symbol from EODHD, and
  writes them to the prices file. Without symbols, the symbols of the open
  lots and of the holdings are fetched. Requires EODHD_API_KEY.
`
}

func (c *pricesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", date.Today().String(), "Date of the closes. See the user manual for supported date formats.")
	f.StringVar(&c.exchange, "exchange", "", "EODHD exchange code. The configured one by default.")
}

func (c *pricesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	s, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if s.cfg.EODHD.APIKey == "" {
		fmt.Fprintln(os.Stderr, "Error: EODHD_API_KEY is not set")
		return subcommands.ExitFailure
	}
	exchange := s.cfg.EODHD.Exchange
	if c.exchange != "" {
		exchange = c.exchange
	}

	symbols := f.Args()
	if len(symbols) == 0 {
		symbols = bookSymbols(s.book)
	}
	for i, symbol := range symbols {
		symbols[i] = taxlot.NormalizeSymbol(symbol)
	}
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no symbol to fetch")
		return subcommands.ExitUsageError
	}

	client := eodhd.NewClient(s.cfg.EODHD.APIKey, exchange, s.log)
	client.Parallelism = s.cfg.Harvest.Parallelism
	closes, err := client.LastCloses(ctx, symbols, on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching prices: %v\n", err)
		return subcommands.ExitFailure
	}

	for symbol, cl := range closes {
		s.prices[symbol] = taxlot.M(cl.Price, s.cfg.Currency)
	}
	if err := encodePrices(s.cfg.Prices.Path, s.prices); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving prices: %v\n", err)
		return subcommands.ExitFailure
	}
	s.log.Info().Int("symbols", len(closes)).Str("prices", s.cfg.Prices.Path).Msg("prices saved")

	var b strings.Builder
	fmt.Fprintf(&b, "# Prices as of %s\n\n", on)
	b.WriteString("| Symbol | Date | Close |\n|:---|:---|---:|\n")
	for _, symbol := range symbols {
		cl := closes[symbol]
		fmt.Fprintf(&b, "| %s | %s | %s |\n", symbol, cl.Date, taxlot.M(cl.Price, s.cfg.Currency))
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}

// bookSymbols returns the sorted symbols of the open lots and holdings.
func bookSymbols(book *taxlot.Book) []string {
	var symbols []string
	for _, lot := range book.Ledger.OpenLots("", "") {
		symbols = append(symbols, lot.Symbol)
	}
	for _, h := range book.Holdings {
		symbols = append(symbols, h.Symbol)
	}
	slices.Sort(symbols)
	return slices.Compact(symbols)
}

// encodePrices writes prices as a JSON object of numbers by symbol, the
// format DecodePrices reads with the "$" path. The file is replaced only once
// fully written.
func encodePrices(path string, prices map[string]taxlot.Money) error {
	obj := make(map[string]json.Number, len(prices))
	for symbol, p := range prices {
		obj[symbol] = json.Number(p.Decimal().String())
	}
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op once renamed
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
