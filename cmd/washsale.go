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

// washSaleCmd checks a recorded or planned sale against the wash sale rule.
type washSaleCmd struct {
	account  string
	symbol   string
	quantity float64
	price    float64
	basis    float64
	date     string
}

func (*washSaleCmd) Name() string     { return "washsale" }
func (*washSaleCmd) Synopsis() string { return "check a sale against the wash sale rule" }
func (*washSaleCmd) Usage() string {
	return `tlx washsale <sale id>
tlx washsale -s <symbol> -q <quantity> -basis <total cost> [-p <price>] [-a <account>] [-d <date>]

  Checks whether purchases of substantially identical securities within 30
  days of a loss sale disallow part of the loss. Either a sale recorded in
  the book or a planned one described by the flags.
`
}

func (c *washSaleCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account id of the sale")
	f.StringVar(&c.symbol, "s", "", "Symbol")
	f.Float64Var(&c.quantity, "q", 0, "Number of shares")
	f.Float64Var(&c.price, "p", 0, "Price per share. The current price by default.")
	f.Float64Var(&c.basis, "basis", 0, "Total cost basis of the shares sold")
	f.StringVar(&c.date, "d", date.Today().String(), "Sale date. See the user manual for supported date formats.")
}

func (c *washSaleCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "at most one sale id")
		return subcommands.ExitUsageError
	}
	if f.NArg() == 0 && (c.symbol == "" || c.quantity <= 0 || c.basis <= 0) {
		fmt.Fprintln(os.Stderr, "give a sale id, or -s, -q and -basis")
		return subcommands.ExitUsageError
	}

	s, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	history := s.book.Ledger.History()

	if f.NArg() == 1 {
		id := f.Arg(0)
		for _, tx := range history {
			if tx.ID == id && tx.Type == taxlot.TxSell {
				printMarkdown(renderer.WashSaleMarkdown(taxlot.CheckWashSale(tx, history, tx.CostBasis)))
				return subcommands.ExitSuccess
			}
		}
		fmt.Fprintf(os.Stderr, "Error: no sale %q in %s\n", id, s.cfg.Book)
		return subcommands.ExitFailure
	}

	on, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	price, err := s.price(c.symbol, c.price)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	sale := taxlot.Transaction{
		AccountID: c.account,
		Date:      on,
		Type:      taxlot.TxSell,
		Symbol:    taxlot.NormalizeSymbol(c.symbol),
		Quantity:  taxlot.Q(-c.quantity),
		Price:     price,
		Amount:    price.Mul(taxlot.Q(c.quantity)),
	}
	printMarkdown(renderer.WashSaleMarkdown(taxlot.CheckWashSale(sale, history, s.cfg.Money(c.basis))))
	return subcommands.ExitSuccess
}

// safeDateCmd tells when symbols can be sold at a loss.
type safeDateCmd struct {
	date string
}

func (*safeDateCmd) Name() string     { return "safedate" }
func (*safeDateCmd) Synopsis() string { return "find when a symbol can be sold at a loss" }
func (*safeDateCmd) Usage() string {
	return `tlx safedate [-d <date>] <symbol>...

  Prints the first date on or after -d when each symbol can be sold at a loss
  without a recorded purchase of an identical security making it a wash sale.
`
}

func (c *safeDateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", date.Today().String(), "Earliest sale date. See the user manual for supported date formats.")
}

func (c *safeDateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "at least one symbol is required")
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
	history := s.book.Ledger.History()

	var b strings.Builder
	for i, symbol := range f.Args() {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(renderer.SafeDateMarkdown(taxlot.FindSafeToSellDate(symbol, history, on)))
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}

// canBuyCmd tells whether a purchase would disallow recent losses.
type canBuyCmd struct {
	account  string
	quantity float64
	date     string
}

func (*canBuyCmd) Name() string     { return "canbuy" }
func (*canBuyCmd) Synopsis() string { return "check whether a purchase triggers a wash sale" }
func (*canBuyCmd) Usage() string {
	return `tlx canbuy [-q <quantity>] [-a <account>] [-d <date>] <symbol>

  Checks whether buying symbol on -d would turn a loss sale of an identical
  security, within 30 days, into a wash sale. The exit status is 1 when it
  does.
`
}

func (c *canBuyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account id of the purchase")
	f.Float64Var(&c.quantity, "q", 1, "Number of shares")
	f.StringVar(&c.date, "d", date.Today().String(), "Purchase date. See the user manual for supported date formats.")
}

func (c *canBuyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "exactly one symbol is required")
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
	symbol := taxlot.NormalizeSymbol(f.Arg(0))
	purchase := taxlot.Transaction{
		AccountID: c.account,
		Date:      on,
		Type:      taxlot.TxBuy,
		Symbol:    symbol,
		Quantity:  taxlot.Q(c.quantity),
		Price:     s.prices[symbol],
	}
	check := taxlot.CheckPurchaseTriggersWashSale(purchase, s.book.Ledger.History())
	printMarkdown(renderer.PurchaseCheckMarkdown(check))
	if check.TriggersWashSale {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
