package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/date"
	"github.com/etnz/taxlot/renderer"
	"github.com/google/subcommands"
)

// buyCmd records a purchase and the lot it creates.
type buyCmd struct {
	id       string
	account  string
	symbol   string
	quantity float64
	price    float64
	amount   float64
	date     string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a purchase and its tax lot" }
func (*buyCmd) Usage() string {
	return `tlx buy -a <account> -s <symbol> -q <quantity> -p <price> [-amount <total>] [-d <date>] [-id <id>]

  Records a purchase in the book and creates its tax lot. The purchase is
  checked against recent loss sales first: a warning is printed when it
  turns one of them into a wash sale.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Transaction id. A random one by default.")
	f.StringVar(&c.account, "a", "", "Account id")
	f.StringVar(&c.symbol, "s", "", "Symbol")
	f.Float64Var(&c.quantity, "q", 0, "Number of shares")
	f.Float64Var(&c.price, "p", 0, "Price per share")
	f.Float64Var(&c.amount, "amount", 0, "Total paid, fees included. Quantity times price by default.")
	f.StringVar(&c.date, "d", date.Today().String(), "Purchase date. See the user manual for supported date formats.")
}

func (c *buyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.symbol == "" || c.quantity <= 0 || c.price <= 0 {
		fmt.Fprintln(os.Stderr, "-a, -s, -q and -p are required, quantity and price must be positive")
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
	if _, ok := s.book.Account(c.account); !ok {
		s.log.Warn().Str("account", c.account).Msg("unknown account, it is considered taxable")
	}

	tx := taxlot.Transaction{
		ID:        c.id,
		AccountID: c.account,
		Date:      on,
		Type:      taxlot.TxBuy,
		Symbol:    c.symbol,
		Quantity:  taxlot.Q(c.quantity),
		Price:     s.cfg.Money(c.price),
	}
	if c.amount != 0 {
		tx.Amount = s.cfg.Money(c.amount)
	}

	check := taxlot.CheckPurchaseTriggersWashSale(tx, s.book.Ledger.History())
	if check.TriggersWashSale || len(check.PotentialTriggers) > 0 {
		printMarkdown(renderer.PurchaseCheckMarkdown(check))
	}

	lot, err := s.book.Ledger.AddPurchase(tx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error recording purchase: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := EncodeBook(s.cfg, s.book); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving book: %v\n", err)
		return subcommands.ExitFailure
	}
	s.log.Info().Str("lot", lot.ID).Stringer("basis", lot.TotalCostBasis).Msg("purchase recorded")
	fmt.Fprintf(stdout, "Recorded lot %s: %s %s at %s per share in %s\n", lot.ID, lot.OriginalQuantity, lot.Symbol, lot.CostBasisPerShare, s.cfg.Book)
	return subcommands.ExitSuccess
}
