package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/agent"
	"github.com/google/subcommands"
	"google.golang.org/genai"
)

// assistCmd is the subcommand for the AI assistant.
type assistCmd struct{}

func (*assistCmd) Name() string     { return "assist" }
func (*assistCmd) Synopsis() string { return "start an interactive session with the AI tax assistant" }
func (*assistCmd) Usage() string {
	return `tlx assist [<question>]

  Start an interactive session with the AI tax assistant. It reads the book
  and simulates sales, it never records anything. Requires GEMINI_API_KEY.
`
}

func (*assistCmd) SetFlags(_ *flag.FlagSet) {}

func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	initialPrompt := strings.Join(f.Args(), " ")

	s, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if s.cfg.Gemini.APIKey == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY is not set")
		return subcommands.ExitFailure
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: s.cfg.Gemini.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}

	if s.book.Profile == (taxlot.TaxProfile{}) {
		s.book.Profile = s.cfg.Profile()
	}
	opts := append(s.cfg.ScannerOptions(), taxlot.WithLogger(s.log))
	desk := &agent.Desk{
		Book:     s.book,
		Prices:   s.prices,
		Currency: s.cfg.Currency,
		Method:   s.cfg.CostBasisMethod(),
		Scanner:  taxlot.NewScanner(s.cfg.Rates(), opts...),
		Log:      s.log,
	}

	model := s.cfg.Gemini.Model
	trader := agent.NewTrader(model)
	advisor := agent.NewTaxAdvisor(model, desk)
	a := agent.New(stdout, os.Stdin, model, trader, advisor)
	a.Print = func(_ io.Writer, md string) { printMarkdown(md) }

	if err := a.Run(ctx, client, initialPrompt); err != nil {
		fmt.Fprintln(os.Stderr, "Agent failed:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
