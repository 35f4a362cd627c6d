package taxlot

import (
	"cmp"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"unicode"

	"github.com/etnz/taxlot/date"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Policies applied when the input is incomplete. Both err on the side of
// showing an opportunity rather than hiding it.
const (
	// DefaultTaxableWhenAmbiguous is the classification of an account type
	// that matches no known keyword.
	DefaultTaxableWhenAmbiguous = true
	// AssumedHoldingPeriodWhenUnknown is the holding period used to estimate
	// tax savings when the purchase date is unknown.
	AssumedHoldingPeriodWhenUnknown = ShortTerm
)

var (
	taxAdvantagedKeywords = []string{"401k", "403b", "457", "ira", "roth", "hsa", "529", "pension", "tsp", "keogh", "coverdell", "retirement"}
	taxableKeywords       = []string{"brokerage", "taxable", "individual", "joint", "trust", "margin"}
)

// IsTaxableAccount classifies an account by its type. Keywords match whole
// words of the type, or two adjacent words written together like "401(k)".
// Tax-advantaged keywords are matched first, then taxable ones; an unknown
// type is taxable.
func IsTaxableAccount(accountType string) bool {
	words := strings.FieldsFunc(strings.ToLower(accountType), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i := range len(words) - 1 {
		words = append(words, words[i]+words[i+1])
	}
	for _, k := range taxAdvantagedKeywords {
		if slices.Contains(words, k) {
			return false
		}
	}
	for _, k := range taxableKeywords {
		if slices.Contains(words, k) {
			return true
		}
	}
	return DefaultTaxableWhenAmbiguous
}

// Account is a brokerage or retirement account.
type Account struct {
	ID   string
	Name string
	Type string // free text, like "brokerage" or "Roth IRA"
}

// IsTaxable reports whether gains in the account are taxed when realized.
func (a Account) IsTaxable() bool { return IsTaxableAccount(a.Type) }

// Holding is a position of one security in one account.
type Holding struct {
	AccountID    string
	Symbol       string
	Quantity     Quantity
	CostBasis    Money     // total; zero when unknown
	PurchaseDate date.Date // zero when unknown
	CurrentPrice Money     // zero to use the portfolio prices
}

// HasCostBasis reports whether the cost basis of the holding is known.
func (h Holding) HasCostBasis() bool { return !h.CostBasis.IsZero() }

// HoldingsFromLots aggregates open lots into holdings per account and symbol.
// The purchase date of a holding is its most recent acquisition, so that its
// holding period is never overestimated.
func HoldingsFromLots(lots []TaxLot) []Holding {
	type key struct{ account, symbol string }
	index := make(map[key]int)
	var res []Holding
	for _, lot := range lots {
		if lot.IsFullyDisposed() {
			continue
		}
		k := key{lot.AccountID, NormalizeSymbol(lot.Symbol)}
		i, ok := index[k]
		if !ok {
			i = len(res)
			index[k] = i
			res = append(res, Holding{AccountID: k.account, Symbol: k.symbol, PurchaseDate: lot.AcquisitionDate})
		}
		h := &res[i]
		h.Quantity = h.Quantity.Add(lot.RemainingQuantity)
		h.CostBasis = h.CostBasis.Add(lot.RemainingCostBasis())
		if lot.AcquisitionDate.IsZero() || h.PurchaseDate.IsZero() {
			h.PurchaseDate = date.Date{}
		} else if lot.AcquisitionDate.After(h.PurchaseDate) {
			h.PurchaseDate = lot.AcquisitionDate
		}
	}
	return res
}

// Portfolio is the snapshot the harvest scanner works on.
type Portfolio struct {
	AsOf         date.Date
	Accounts     []Account
	Holdings     []Holding
	Prices       map[string]Money
	Transactions []Transaction // history of every account
	Profile      TaxProfile
}

func (p Portfolio) account(id string) Account {
	for _, a := range p.Accounts {
		if a.ID == id {
			return a
		}
	}
	return Account{ID: id, Name: id}
}

// WashSaleRisk tells how likely selling a holding now results in a wash sale.
type WashSaleRisk string

const (
	RiskNone    WashSaleRisk = "none"
	RiskWarning WashSaleRisk = "warning"
	RiskHigh    WashSaleRisk = "high"
)

func (r WashSaleRisk) rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskWarning:
		return 1
	default:
		return 0
	}
}

// HarvestOpportunity is a holding whose loss is worth realizing.
type HarvestOpportunity struct {
	Account        Account
	Holding        Holding
	CurrentPrice   Money
	CurrentValue   Money
	UnrealizedLoss Money // positive
	LossPercent    Percent
	HoldingInfo    HoldingInfo
	// TaxTreatment is the holding period used to estimate the savings.
	TaxTreatment HoldingPeriod
	TaxSavings   TaxSavings
	WashSaleRisk WashSaleRisk
	RiskReasons  []string
	Substitutes  []string
	IsActionable bool
	Blockers     []string
}

// MissingCostBasis is a material holding that could not be evaluated because
// its cost basis is unknown.
type MissingCostBasis struct {
	Account      Account
	Holding      Holding
	CurrentValue Money
}

// ForeignCurrency is a holding that could not be evaluated because its price
// or cost basis is not in the currency of the scan.
type ForeignCurrency struct {
	Account      Account
	Holding      Holding
	CurrentPrice Money
}

// HarvestReport is the result of a portfolio scan. Amounts are in the
// currency of the scanner thresholds.
type HarvestReport struct {
	AsOf            date.Date
	Currency        string
	Opportunities   []HarvestOpportunity // by tax savings, highest first
	NeedsCostBasis  []MissingCostBasis
	MissingPrices   []Holding
	ForeignCurrency []ForeignCurrency
	ScannedHoldings int
	TotalLoss       Money
	TotalTaxSavings Money
}

// Scanner looks for tax-loss harvesting opportunities in a portfolio.
type Scanner struct {
	calc                 TaxRateCalculator
	minLoss              Money
	minTaxSavings        Money
	materialityThreshold Money
	parallelism          int
	log                  zerolog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithMinLoss sets the smallest unrealized loss worth harvesting (default 100).
// Its currency is the currency of the scan: holdings valued in another one
// are reported apart.
func WithMinLoss(m Money) Option { return func(s *Scanner) { s.minLoss = m } }

// WithMinTaxSavings sets the smallest tax saving worth reporting (default 25).
func WithMinTaxSavings(m Money) Option { return func(s *Scanner) { s.minTaxSavings = m } }

// WithMaterialityThreshold sets the value above which a holding without cost
// basis is reported (default 500).
func WithMaterialityThreshold(m Money) Option {
	return func(s *Scanner) { s.materialityThreshold = m }
}

// WithParallelism sets how many holdings are evaluated at once. Values below
// one mean GOMAXPROCS.
func WithParallelism(n int) Option { return func(s *Scanner) { s.parallelism = n } }

// WithLogger sets the logger receiving the scan decisions, at debug level.
// Holdings skipped for their currency are logged as warnings.
func WithLogger(l zerolog.Logger) Option { return func(s *Scanner) { s.log = l } }

// NewScanner returns a Scanner estimating savings with calc.
func NewScanner(calc TaxRateCalculator, opts ...Option) *Scanner {
	s := &Scanner{
		calc:                 calc,
		minLoss:              USD(100),
		minTaxSavings:        USD(25),
		materialityThreshold: USD(500),
		log:                  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.parallelism < 1 {
		s.parallelism = runtime.GOMAXPROCS(0)
	}
	return s
}

// evaluation is the outcome for one holding; at most one field is set.
type evaluation struct {
	opportunity     *HarvestOpportunity
	needsCostBasis  *MissingCostBasis
	missingPrice    bool
	foreignCurrency *ForeignCurrency
}

// currency returns the currency of the scan.
func (s *Scanner) currency() string {
	return cmp.Or(s.minLoss.Currency(), DefaultCurrency)
}

// Scan evaluates every holding of taxable accounts. Holdings are independent
// and evaluated concurrently; the report does not depend on the parallelism.
func (s *Scanner) Scan(p Portfolio) HarvestReport {
	if p.AsOf.IsZero() {
		p.AsOf = date.Today()
	}
	report := HarvestReport{AsOf: p.AsOf}

	var candidates []int
	for i, h := range p.Holdings {
		if acc := p.account(h.AccountID); !acc.IsTaxable() {
			s.log.Debug().Str("account", acc.ID).Str("symbol", h.Symbol).Msg("skip holding in tax-advantaged account")
			continue
		}
		candidates = append(candidates, i)
	}

	ccy := s.currency()
	results := make([]evaluation, len(candidates))
	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for j, i := range candidates {
		g.Go(func() error {
			results[j] = s.evaluate(p, i, ccy)
			return nil
		})
	}
	// evaluate has no failure: holdings it cannot value are reported in
	// their own bucket.
	_ = g.Wait()

	report.Currency = ccy
	report.TotalLoss, report.TotalTaxSavings = M(0, ccy), M(0, ccy)
	report.ScannedHoldings = len(candidates)
	for j, r := range results {
		switch {
		case r.opportunity != nil:
			report.Opportunities = append(report.Opportunities, *r.opportunity)
			report.TotalLoss = report.TotalLoss.Add(r.opportunity.UnrealizedLoss)
			report.TotalTaxSavings = report.TotalTaxSavings.Add(r.opportunity.TaxSavings.TaxSaved)
		case r.needsCostBasis != nil:
			report.NeedsCostBasis = append(report.NeedsCostBasis, *r.needsCostBasis)
		case r.missingPrice:
			report.MissingPrices = append(report.MissingPrices, p.Holdings[candidates[j]])
		case r.foreignCurrency != nil:
			report.ForeignCurrency = append(report.ForeignCurrency, *r.foreignCurrency)
		}
	}
	slices.SortStableFunc(report.Opportunities, func(a, b HarvestOpportunity) int {
		return cmp.Or(
			b.TaxSavings.TaxSaved.Decimal().Cmp(a.TaxSavings.TaxSaved.Decimal()),
			b.UnrealizedLoss.Decimal().Cmp(a.UnrealizedLoss.Decimal()),
			cmp.Compare(a.Holding.Symbol, b.Holding.Symbol),
			cmp.Compare(a.Account.ID, b.Account.ID),
		)
	})
	return report
}

// evaluate classifies holding i of p. Amounts are compared only in currency
// ccy.
func (s *Scanner) evaluate(p Portfolio, i int, ccy string) evaluation {
	h := p.Holdings[i]
	h.Symbol = NormalizeSymbol(h.Symbol)
	acc := p.account(h.AccountID)
	log := s.log.With().Str("account", acc.ID).Str("symbol", h.Symbol).Logger()

	price := h.CurrentPrice
	if price.IsZero() {
		var ok bool
		if price, ok = p.Prices[h.Symbol]; !ok {
			log.Debug().Msg("skip holding without price")
			return evaluation{missingPrice: true}
		}
	}
	if !inCurrency(ccy, price) || (h.HasCostBasis() && !inCurrency(ccy, h.CostBasis)) {
		log.Warn().Str("price", price.Currency()).Str("basis", h.CostBasis.Currency()).Str("currency", ccy).Msg("skip holding in another currency")
		return evaluation{foreignCurrency: &ForeignCurrency{Account: acc, Holding: h, CurrentPrice: price}}
	}
	value := price.Mul(h.Quantity)

	if !h.HasCostBasis() {
		if value.GreaterThan(s.materialityThreshold) {
			log.Debug().Stringer("value", value).Msg("holding needs a cost basis")
			return evaluation{needsCostBasis: &MissingCostBasis{Account: acc, Holding: h, CurrentValue: value}}
		}
		log.Debug().Msg("skip immaterial holding without cost basis")
		return evaluation{}
	}

	loss := h.CostBasis.Sub(value)
	if loss.LessThan(s.minLoss) {
		log.Debug().Stringer("loss", loss).Msg("skip holding below minimum loss")
		return evaluation{}
	}

	o := HarvestOpportunity{
		Account:        acc,
		Holding:        h,
		CurrentPrice:   price,
		CurrentValue:   value,
		UnrealizedLoss: loss,
		LossPercent:    percentOf(loss, h.CostBasis),
		HoldingInfo:    CalculateHoldingPeriod(h.PurchaseDate, p.AsOf),
	}
	o.TaxTreatment = o.HoldingInfo.HoldingPeriod
	if o.TaxTreatment == UnknownHoldings {
		o.TaxTreatment = AssumedHoldingPeriodWhenUnknown
		o.Blockers = append(o.Blockers, "purchase date unknown, the holding period cannot be determined")
	}

	o.TaxSavings = s.calc.CalculateTaxSavings(loss, o.TaxTreatment, p.Profile)
	if o.TaxSavings.TaxSaved.LessThan(s.minTaxSavings) {
		log.Debug().Stringer("savings", o.TaxSavings.TaxSaved).Msg("skip holding below minimum tax savings")
		return evaluation{}
	}

	o.WashSaleRisk, o.RiskReasons = s.washSaleRisk(p, h)
	if o.WashSaleRisk == RiskHigh {
		o.Blockers = append(o.Blockers, "a substantially identical security is held or bought in a tax-advantaged account")
	}
	o.Substitutes = SubstituteSecurities(h.Symbol)
	o.IsActionable = len(o.Blockers) == 0
	log.Debug().Stringer("loss", loss).Stringer("savings", o.TaxSavings.TaxSaved).Str("risk", string(o.WashSaleRisk)).Msg("opportunity")
	return evaluation{opportunity: &o}
}

// washSaleRisk classifies the risk of selling h now. Identical securities
// held in another account, or bought in any account during the last 30 days,
// raise the risk: to high when the account is tax-advantaged, to warning
// otherwise.
func (s *Scanner) washSaleRisk(p Portfolio, h Holding) (WashSaleRisk, []string) {
	risk := RiskNone
	var reasons []string
	raise := func(acc Account, reason string) {
		r := RiskWarning
		if !acc.IsTaxable() {
			r = RiskHigh
		}
		if r.rank() > risk.rank() {
			risk = r
		}
		reasons = append(reasons, reason)
	}

	for _, other := range p.Holdings {
		if other.AccountID == h.AccountID || !other.Quantity.IsPositive() {
			continue
		}
		if !AreSubstantiallyIdentical(h.Symbol, other.Symbol) {
			continue
		}
		acc := p.account(other.AccountID)
		raise(acc, fmt.Sprintf("%s is held in account %q", NormalizeSymbol(other.Symbol), accountLabel(acc)))
	}

	recent := date.Range{From: p.AsOf.Add(-WashSaleWindowDays), To: p.AsOf}
	for _, tx := range identicalTrades(p.Transactions, h.Symbol, TxBuy, recent) {
		acc := p.account(tx.AccountID)
		raise(acc, fmt.Sprintf("%s was bought on %s in account %q", NormalizeSymbol(tx.Symbol), tx.Date, accountLabel(acc)))
	}
	return risk, reasons
}

// inCurrency reports whether m is in ccy. An amount without currency is in
// any.
func inCurrency(ccy string, m Money) bool {
	return m.Currency() == "" || m.Currency() == ccy
}

func accountLabel(a Account) string { return firstNonEmpty(a.Name, a.ID) }
