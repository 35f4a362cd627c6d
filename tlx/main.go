// Command tlx manages tax lots: lot selection on sales, wash sales and
// tax-loss harvesting.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/etnz/taxlot/cmd"
	"github.com/google/subcommands"
)

func main() {
	cmd.Completion().Complete("tlx")

	commander := subcommands.NewCommander(flag.CommandLine, "tlx")
	commander.Register(commander.HelpCommand(), "help")
	commander.Register(commander.FlagsCommand(), "help")
	commander.Register(commander.CommandsCommand(), "help")
	cmd.Register(commander)

	flag.Parse()

	// Unknown subcommands are looked up as tlx-<name> extensions.
	if name := flag.Arg(0); name != "" && !registered(commander, name) {
		if found, code := cmd.RunExtension(name, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}
	os.Exit(int(commander.Execute(context.Background())))
}

func registered(commander *subcommands.Commander, name string) bool {
	found := false
	commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		found = found || c.Name() == name
	})
	return found
}
