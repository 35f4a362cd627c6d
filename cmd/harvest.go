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
	"github.com/shopspring/decimal"
)

// harvestCmd holds the flags for the 'harvest' subcommand.
type harvestCmd struct {
	date          string
	minLoss       float64
	minTaxSavings float64
	actionable    bool
}

func (*harvestCmd) Name() string     { return "harvest" }
func (*harvestCmd) Synopsis() string { return "find tax-loss harvesting opportunities" }
func (*harvestCmd) Usage() string {
	return `tlx harvest [-d <date>] [-min-loss <amount>] [-min-savings <amount>] [-actionable]

  Scans the holdings of taxable accounts for unrealized losses, ranked by the
  tax they save, with their wash sale risk and substitute securities.
`
}

func (c *harvestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", date.Today().String(), "Date of the scan. See the user manual for supported date formats.")
	f.Float64Var(&c.minLoss, "min-loss", 0, "Smallest loss worth harvesting. The configured one by default.")
	f.Float64Var(&c.minTaxSavings, "min-savings", 0, "Smallest tax saving worth reporting. The configured one by default.")
	f.BoolVar(&c.actionable, "actionable", false, "only list the opportunities without blockers")
}

func (c *harvestCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	if c.minLoss > 0 {
		s.cfg.Harvest.MinLoss = c.minLoss
	}
	if c.minTaxSavings > 0 {
		s.cfg.Harvest.MinTaxSavings = c.minTaxSavings
	}

	p := s.book.Portfolio(on, s.prices)
	if p.Profile == (taxlot.TaxProfile{}) {
		p.Profile = s.cfg.Profile()
	}
	opts := append(s.cfg.ScannerOptions(), taxlot.WithLogger(s.log))
	report := taxlot.NewScanner(s.cfg.Rates(), opts...).Scan(p)

	if c.actionable {
		var kept []taxlot.HarvestOpportunity
		loss, savings := report.TotalLoss.Scale(decimal.Zero), report.TotalTaxSavings.Scale(decimal.Zero)
		for _, o := range report.Opportunities {
			if o.IsActionable {
				kept = append(kept, o)
				loss = loss.Add(o.UnrealizedLoss)
				savings = savings.Add(o.TaxSavings.TaxSaved)
			}
		}
		report.Opportunities, report.TotalLoss, report.TotalTaxSavings = kept, loss, savings
	}
	s.log.Debug().Int("scanned", report.ScannedHoldings).Int("opportunities", len(report.Opportunities)).Msg("harvest scan done")

	printMarkdown(renderer.RenderHarvest(renderer.NewHarvest(report, s.book.Accounts)))
	return subcommands.ExitSuccess
}
