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

// lotsCmd holds the flags for the 'lots' subcommand.
type lotsCmd struct {
	date    string
	symbol  string
	account string
}

func (*lotsCmd) Name() string     { return "lots" }
func (*lotsCmd) Synopsis() string { return "list the open tax lots" }
func (*lotsCmd) Usage() string {
	return `tlx lots [-d <date>] [-s <symbol>] [-a <account>]

  Lists the open tax lots grouped by symbol, with their holding period and
  their unrealized gain at current prices.
`
}

func (c *lotsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", date.Today().String(), "Date used for holding periods. See the user manual for supported date formats.")
	f.StringVar(&c.symbol, "s", "", "Only list the lots of this symbol")
	f.StringVar(&c.account, "a", "", "Only list the lots of this account id")
}

func (c *lotsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	lots := s.book.Ledger.OpenLots(c.account, c.symbol)
	printMarkdown(renderer.LotsMarkdown(taxlot.EnrichLotsWithMarketData(lots, s.prices), on))
	return subcommands.ExitSuccess
}
