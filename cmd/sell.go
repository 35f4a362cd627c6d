package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/date"
	"github.com/etnz/taxlot/renderer"
	"github.com/google/subcommands"
)

// sellCmd previews, and optionally records, a sale.
type sellCmd struct {
	id       string
	account  string
	symbol   string
	quantity float64
	price    float64
	date     string
	method   string
	lots     string
	commit   bool
	skipWash bool
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "preview or record the sale of shares" }
func (*sellCmd) Usage() string {
	return `tlx sell -s <symbol> -q <quantity> [-p <price>] [-a <account>] [-d <date>] [-method <method>] [-lots <id,id>] [-commit]

  Computes which lots a sale consumes, its short and long-term gains, and the
  losses disallowed by wash sales. With -commit, the lots are reduced, the
  replacement lots get the disallowed losses and the sale is recorded.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Sale transaction id. A random one by default.")
	f.StringVar(&c.account, "a", "", "Only sell lots of this account id")
	f.StringVar(&c.symbol, "s", "", "Symbol")
	f.Float64Var(&c.quantity, "q", 0, "Number of shares")
	f.Float64Var(&c.price, "p", 0, "Price per share. The current price by default.")
	f.StringVar(&c.date, "d", date.Today().String(), "Sale date. See the user manual for supported date formats.")
	f.StringVar(&c.method, "method", "", "Lot selection method ("+strings.Join(taxlot.CostBasisMethods(), ", ")+"). The configured one by default.")
	f.StringVar(&c.lots, "lots", "", "Comma separated lot ids, in order, for the specific method")
	f.BoolVar(&c.commit, "commit", false, "record the sale in the book")
	f.BoolVar(&c.skipWash, "no-wash-details", false, "do not detail the wash sales")
}

func (c *sellCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" || c.quantity <= 0 {
		fmt.Fprintln(os.Stderr, "-s and -q are required, quantity must be positive")
		return subcommands.ExitUsageError
	}
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

	method := s.cfg.CostBasisMethod()
	if c.method != "" {
		if method, err = taxlot.ParseCostBasisMethod(c.method); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing cost basis method: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	var specific []string
	for _, id := range strings.Split(c.lots, ",") {
		if id = strings.TrimSpace(id); id != "" {
			specific = append(specific, id)
		}
	}
	if method == taxlot.SpecificID && len(specific) == 0 {
		fmt.Fprintln(os.Stderr, "-lots is required with the specific method")
		return subcommands.ExitUsageError
	}

	price, err := s.price(c.symbol, c.price)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	req := taxlot.SaleRequest{
		SaleID:         c.id,
		AccountID:      c.account,
		Symbol:         c.symbol,
		Quantity:       taxlot.Q(c.quantity),
		PricePerShare:  price,
		SaleDate:       on,
		Method:         method,
		SpecificLotIDs: specific,
		History:        s.book.Ledger.History(),
	}
	res := taxlot.CalculateSaleResult(s.book.Ledger.OpenLots(c.account, c.symbol), req)
	s.log.Debug().Str("method", method.String()).Int("lots", len(res.Dispositions)).Stringer("gain", res.NetGainLoss).Msg("sale computed")

	if c.commit {
		if !res.IsComplete() {
			fmt.Fprintf(os.Stderr, "Error: only %s shares available, the sale is not recorded\n", res.TotalQuantity)
			return subcommands.ExitFailure
		}
		if err := s.book.Ledger.Commit(res); err != nil {
			fmt.Fprintf(os.Stderr, "Error recording sale: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := EncodeBook(s.cfg, s.book); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving book: %v\n", err)
			return subcommands.ExitFailure
		}
		s.log.Info().Stringer("quantity", res.TotalQuantity).Str("symbol", taxlot.NormalizeSymbol(c.symbol)).Msg("sale recorded")
	}

	printMarkdown(renderer.RenderSale(renderer.NewSale(res, c.commit), renderer.SaleRenderOptions{SkipWashSales: c.skipWash}))
	return subcommands.ExitSuccess
}
