// Package cmd implements the tlx command line application.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/config"
	"github.com/etnz/taxlot/renderer"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Commands are the tlx subcommands, by group.
var Commands = []struct {
	Group    string
	Commands []subcommands.Command
}{
	{"lots", []subcommands.Command{&lotsCmd{}, &buyCmd{}, &sellCmd{}, &formatBookCmd{}}},
	{"wash sales", []subcommands.Command{&washSaleCmd{}, &safeDateCmd{}, &canBuyCmd{}}},
	{"harvest", []subcommands.Command{&harvestCmd{}, &pricesCmd{}, &assistCmd{}}},
	{"help", []subcommands.Command{&topicCmd{}}},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, g := range Commands {
		for _, cmd := range g.Commands {
			c.Register(cmd, g.Group)
		}
	}
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile = flag.String("config", config.DefaultFile, "Path to the configuration file (TOML format)")
	bookFile   = flag.String("book", "", "Path to the book file (JSONL format). Overrides the configuration.")
	pricesFile = flag.String("prices", "", "Path to the prices file (JSON format). Overrides the configuration.")
	output     = flag.String("output", "term", "Output format: term, markdown or html")
	Verbose    = flag.Bool("v", false, "verbose logging")
)

// stdout receives the reports.
var stdout io.Writer = os.Stdout

// loadConfig loads the configuration and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if *bookFile != "" {
		cfg.Book = *bookFile
	}
	if *pricesFile != "" {
		cfg.Prices.Path = *pricesFile
	}
	if *Verbose {
		cfg.Logging.Level = zerolog.LevelDebugValue
	}
	return cfg, nil
}

// newLogger returns the application logger, writing to stderr.
func newLogger(cfg *config.Config) zerolog.Logger {
	return config.NewLogger(cfg.Logging.Level)
}

// DecodeBook decodes the book from the configured file. If the file does not
// exist, it returns a new empty book.
func DecodeBook(cfg *config.Config, log zerolog.Logger) (*taxlot.Book, error) {
	f, err := os.Open(cfg.Book)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("book", cfg.Book).Msg("book does not exist, starting with an empty book")
		return taxlot.NewBook(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open book file %q: %w", cfg.Book, err)
	}
	defer f.Close()

	book, err := taxlot.DecodeBook(f, cfg.Currency)
	if err != nil {
		return nil, fmt.Errorf("could not decode book file %q: %w", cfg.Book, err)
	}
	log.Debug().Str("book", cfg.Book).Int("lots", len(book.Ledger.Lots())).Int("accounts", len(book.Accounts)).Msg("book loaded")
	return book, nil
}

// EncodeBook writes the book to the configured file. The file is replaced
// only once the book is fully written.
func EncodeBook(cfg *config.Config, book *taxlot.Book) error {
	tmp, err := os.CreateTemp(filepath.Dir(cfg.Book), filepath.Base(cfg.Book)+".*")
	if err != nil {
		return fmt.Errorf("error creating book file %q: %w", cfg.Book, err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if err := taxlot.EncodeBook(tmp, book); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing book file %q: %w", cfg.Book, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error writing book file %q: %w", cfg.Book, err)
	}
	return os.Rename(tmp.Name(), cfg.Book)
}

// DecodePrices reads the current prices from the configured file. A missing
// file means no price is known.
func DecodePrices(cfg *config.Config, log zerolog.Logger) (map[string]taxlot.Money, error) {
	f, err := os.Open(cfg.Prices.Path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("prices", cfg.Prices.Path).Msg("prices file does not exist, no price is known")
		return map[string]taxlot.Money{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open prices file %q: %w", cfg.Prices.Path, err)
	}
	defer f.Close()

	prices, err := taxlot.DecodePrices(f, cfg.Prices.JSONPath, cfg.Currency)
	if err != nil {
		return nil, fmt.Errorf("could not decode prices file %q: %w", cfg.Prices.Path, err)
	}
	log.Debug().Str("prices", cfg.Prices.Path).Int("symbols", len(prices)).Msg("prices loaded")
	return prices, nil
}

// printMarkdown prints a markdown report in the requested output format.
func printMarkdown(md string) {
	switch *output {
	case "markdown", "md":
		fmt.Fprint(stdout, md)
	case "html":
		html, err := renderer.HTML(md)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprint(stdout, md)
			return
		}
		fmt.Fprint(stdout, html)
	default:
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
		if err != nil {
			fmt.Fprint(stdout, md)
			return
		}
		out, err := r.Render(md)
		if err != nil {
			fmt.Fprint(stdout, md)
			return
		}
		fmt.Fprint(stdout, out)
	}
}

// session is what a command needs: the configuration, the logger, the book
// and the prices.
type session struct {
	cfg    *config.Config
	log    zerolog.Logger
	book   *taxlot.Book
	prices map[string]taxlot.Money
}

// openSession loads the configuration, the book and the prices.
func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: newLogger(cfg)}
	if s.book, err = DecodeBook(cfg, s.log); err != nil {
		return nil, err
	}
	if s.prices, err = DecodePrices(cfg, s.log); err != nil {
		return nil, err
	}
	return s, nil
}

// price returns the price flag when set, else the current price of symbol.
func (s *session) price(symbol string, flagValue float64) (taxlot.Money, error) {
	if flagValue != 0 {
		return s.cfg.Money(flagValue), nil
	}
	p, ok := s.prices[taxlot.NormalizeSymbol(symbol)]
	if !ok {
		return taxlot.Money{}, fmt.Errorf("no price for %s in %q, use -p", taxlot.NormalizeSymbol(symbol), s.cfg.Prices.Path)
	}
	return p, nil
}
