// Package config loads the tlx configuration: defaults, then TOML files, then
// environment variables, each overriding the previous ones.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/etnz/taxlot"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// DefaultFile is the configuration file read when none is given.
const DefaultFile = "tlx.toml"

// Config holds all configuration for tlx.
type Config struct {
	Book     string        `toml:"book"`     // path to the book file (JSONL)
	Method   string        `toml:"method"`   // default cost basis method
	Currency string        `toml:"currency"` // currency of amounts without one
	Prices   PricesConfig  `toml:"prices"`
	Harvest  HarvestConfig `toml:"harvest"`
	Tax      TaxConfig     `toml:"tax"`
	Logging  LoggingConfig `toml:"logging"`
	Gemini   GeminiConfig  `toml:"gemini"`
	EODHD    EODHDConfig   `toml:"eodhd"`
}

// PricesConfig locates the current prices.
type PricesConfig struct {
	Path     string `toml:"path"`
	JSONPath string `toml:"jsonpath"` // where the prices are in the document
}

// HarvestConfig holds the scanner thresholds.
type HarvestConfig struct {
	MinLoss       float64 `toml:"min_loss"`
	MinTaxSavings float64 `toml:"min_tax_savings"`
	Materiality   float64 `toml:"materiality"`
	Parallelism   int     `toml:"parallelism"` // 0 means one worker per CPU
}

// TaxConfig describes the taxpayer and the flat rates used to estimate
// savings. Rates are fractions, 0.24 for 24%.
type TaxConfig struct {
	Income        float64 `toml:"income"`
	FilingStatus  string  `toml:"filing_status"`
	State         string  `toml:"state"`
	ShortTermRate float64 `toml:"short_term_rate"`
	LongTermRate  float64 `toml:"long_term_rate"`
	StateRate     float64 `toml:"state_rate"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// GeminiConfig holds the assistant configuration.
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// EODHDConfig holds the price provider configuration.
type EODHDConfig struct {
	APIKey   string `toml:"api_key"`
	Exchange string `toml:"exchange"` // eodhd code of the exchange, "US" for all US venues
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Book:     "book.jsonl",
		Method:   taxlot.HIFO.String(),
		Currency: taxlot.DefaultCurrency,
		Prices:   PricesConfig{Path: "prices.json", JSONPath: "$"},
		Harvest: HarvestConfig{
			MinLoss:       100,
			MinTaxSavings: 25,
			Materiality:   500,
		},
		Tax: TaxConfig{
			FilingStatus:  string(taxlot.Single),
			ShortTermRate: 0.24,
			LongTermRate:  0.15,
		},
		Logging: LoggingConfig{Level: "warn"},
		Gemini:  GeminiConfig{Model: "gemini-2.5-pro"},
		EODHD:   EODHDConfig{Exchange: "US"},
	}
}

// Load loads configuration from files with environment overrides. Missing
// files are skipped; a .env file in the working directory is loaded into the
// environment first, without overriding variables already set.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load() // the .env file is optional

	config := NewDefaultConfig()
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	if _, err := taxlot.ParseCostBasisMethod(config.Method); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// applyEnvOverrides applies TLX_* environment variables to config.
func applyEnvOverrides(config *Config) error {
	strs := map[string]*string{
		"TLX_BOOK":           &config.Book,
		"TLX_METHOD":         &config.Method,
		"TLX_CURRENCY":       &config.Currency,
		"TLX_PRICES":         &config.Prices.Path,
		"TLX_PRICES_PATH":    &config.Prices.JSONPath,
		"TLX_FILING_STATUS":  &config.Tax.FilingStatus,
		"TLX_STATE":          &config.Tax.State,
		"TLX_LOG_LEVEL":      &config.Logging.Level,
		"TLX_GEMINI_MODEL":   &config.Gemini.Model,
		"GEMINI_API_KEY":     &config.Gemini.APIKey,
		"TLX_EODHD_EXCHANGE": &config.EODHD.Exchange,
		"EODHD_API_KEY":      &config.EODHD.APIKey,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"TLX_MIN_LOSS":        &config.Harvest.MinLoss,
		"TLX_MIN_TAX_SAVINGS": &config.Harvest.MinTaxSavings,
		"TLX_MATERIALITY":     &config.Harvest.Materiality,
		"TLX_INCOME":          &config.Tax.Income,
		"TLX_SHORT_TERM_RATE": &config.Tax.ShortTermRate,
		"TLX_LONG_TERM_RATE":  &config.Tax.LongTermRate,
		"TLX_STATE_RATE":      &config.Tax.StateRate,
	}
	for key, dst := range floats {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", key, v, err)
		}
		*dst = f
	}

	if v := os.Getenv("TLX_PARALLELISM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TLX_PARALLELISM=%q: %w", v, err)
		}
		config.Harvest.Parallelism = n
	}
	return nil
}

// CostBasisMethod returns the configured default method.
func (c *Config) CostBasisMethod() taxlot.CostBasisMethod {
	m, err := taxlot.ParseCostBasisMethod(c.Method)
	if err != nil {
		return taxlot.HIFO
	}
	return m
}

// Money returns v in the configured currency.
func (c *Config) Money(v float64) taxlot.Money { return taxlot.M(v, c.Currency) }

// Rates returns the flat-rate calculator described by the tax section.
func (c *Config) Rates() taxlot.FlatRates {
	return taxlot.FlatRates{
		ShortTerm: decimal.NewFromFloat(c.Tax.ShortTermRate),
		LongTerm:  decimal.NewFromFloat(c.Tax.LongTermRate),
		State:     decimal.NewFromFloat(c.Tax.StateRate),
	}
}

// Profile returns the taxpayer profile.
func (c *Config) Profile() taxlot.TaxProfile {
	return taxlot.TaxProfile{
		Income:       c.Money(c.Tax.Income),
		FilingStatus: taxlot.FilingStatus(c.Tax.FilingStatus),
		State:        c.Tax.State,
	}
}

// ScannerOptions returns the harvest scanner options of the configuration.
func (c *Config) ScannerOptions() []taxlot.Option {
	return []taxlot.Option{
		taxlot.WithMinLoss(c.Money(c.Harvest.MinLoss)),
		taxlot.WithMinTaxSavings(c.Money(c.Harvest.MinTaxSavings)),
		taxlot.WithMaterialityThreshold(c.Money(c.Harvest.Materiality)),
		taxlot.WithParallelism(c.Harvest.Parallelism),
	}
}
