package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type formatBookCmd struct{}

func (*formatBookCmd) Name() string     { return "format-book" }
func (*formatBookCmd) Synopsis() string { return "formats the book file into a canonical form" }
func (*formatBookCmd) Usage() string {
	return `tlx format-book

  Rewrites the book file in canonical form: the profile, accounts, holdings
  and lots first, then the transactions in chronological order.
`
}

func (*formatBookCmd) SetFlags(f *flag.FlagSet) {}

func (*formatBookCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	log := newLogger(cfg)

	book, err := DecodeBook(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding book: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := EncodeBook(cfg, book); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding book: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(stdout, "Book file '%s' has been formatted.\n", cfg.Book)
	return subcommands.ExitSuccess
}
