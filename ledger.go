package taxlot

import (
	"fmt"
	"iter"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Ledger holds the tax lots and the transaction history of a set of accounts.
//
// Calculations never modify the ledger: a SaleResult is computed from a copy
// of the lots and applied afterwards with Commit. Commits are serialized by
// the ledger, so concurrent sales against the same lots cannot interleave.
//
// In a Ledger transactions are always in chronological order.
type Ledger struct {
	mu           sync.Mutex
	lots         []TaxLot
	index        map[string]int // lot position by id
	transactions []Transaction
	// stepUps holds disallowed losses waiting for the lot of their
	// replacement purchase, by purchase id.
	stepUps map[string][]stepUp
	// replaced holds the lots whose shares already replaced sold ones.
	replaced map[string]bool
}

type stepUp struct {
	amount Money
	shares Quantity // replacement shares
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		index:    make(map[string]int),
		stepUps:  make(map[string][]stepUp),
		replaced: make(map[string]bool),
	}
}

// Add adds lots to the ledger. Lot ids must be unique.
func (l *Ledger) Add(lots ...TaxLot) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, lot := range lots {
		if err := l.add(lot); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) add(lot TaxLot) error {
	if lot.ID == "" {
		lot.ID = uuid.NewString()
	}
	if _, exists := l.index[lot.ID]; exists {
		return fmt.Errorf("duplicate lot %q", lot.ID)
	}
	if lot.RemainingQuantity.IsNegative() || lot.RemainingQuantity.GreaterThan(lot.OriginalQuantity) {
		return fmt.Errorf("lot %q: remaining quantity %s out of [0, %s]", lot.ID, lot.RemainingQuantity, lot.OriginalQuantity)
	}
	lot.Symbol = NormalizeSymbol(lot.Symbol)
	l.index[lot.ID] = len(l.lots)
	l.lots = append(l.lots, lot)
	if id := lot.SourceTransactionID; id != "" {
		for _, s := range l.stepUps[id] {
			l.allocate(id, s)
		}
		delete(l.stepUps, id)
	}
	return nil
}

// AddPurchase records an acquisition transaction and creates its lot.
func (l *Ledger) AddPurchase(tx Transaction) (TaxLot, error) {
	lot, err := NewLotFromPurchase(tx)
	if err != nil {
		return TaxLot{}, err
	}
	if tx.ID == "" {
		tx.ID = lot.ID
		lot.SourceTransactionID = lot.ID
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.add(lot); err != nil {
		return TaxLot{}, err
	}
	l.append(tx)
	return l.lots[l.index[lot.ID]], nil
}

// Append appends transactions to the history and maintains its chronological
// order. It does not create lots.
func (l *Ledger) Append(txs ...Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.append(txs...)
}

func (l *Ledger) append(txs ...Transaction) {
	for _, tx := range txs {
		tx.Symbol = NormalizeSymbol(tx.Symbol)
		l.transactions = append(l.transactions, tx)
	}
	// stable: transactions of the same day keep their relative order.
	sort.SliceStable(l.transactions, func(i, j int) bool {
		return l.transactions[i].Date.Before(l.transactions[j].Date)
	})
}

// Transactions returns an iterator over the transactions accepted by every
// filter, in chronological order.
func (l *Ledger) Transactions(filters ...func(Transaction) bool) iter.Seq2[int, Transaction] {
	txs := l.History()
	return func(yield func(int, Transaction) bool) {
		for i, tx := range txs {
			accept := true
			for _, filter := range filters {
				if !filter(tx) {
					accept = false
					break
				}
			}
			if !accept {
				continue
			}
			if !yield(i, tx) {
				return
			}
		}
	}
}

// BySymbol is a transaction filter on securities identical to symbol.
func BySymbol(symbol string) func(Transaction) bool {
	return func(tx Transaction) bool { return AreSubstantiallyIdentical(symbol, tx.Symbol) }
}

// ByAccount is a transaction filter on one account.
func ByAccount(accountID string) func(Transaction) bool {
	return func(tx Transaction) bool { return tx.AccountID == accountID }
}

// History returns a copy of all the transactions, in chronological order.
// The result is never nil.
func (l *Ledger) History() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Transaction{}, l.transactions...)
}

// Lots returns a copy of every lot, including fully disposed ones.
func (l *Ledger) Lots() []TaxLot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.lots)
}

// Lot returns the lot with the given id.
func (l *Ledger) Lot(id string) (TaxLot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[id]
	if !ok {
		return TaxLot{}, fmt.Errorf("%w: %q", ErrUnknownLot, id)
	}
	return l.lots[i], nil
}

// OpenLots returns the lots with shares left for symbol in accountID. An
// empty accountID or symbol matches any.
func (l *Ledger) OpenLots(accountID, symbol string) []TaxLot {
	symbol = NormalizeSymbol(symbol)
	l.mu.Lock()
	defer l.mu.Unlock()
	var res []TaxLot
	for _, lot := range l.lots {
		if lot.IsFullyDisposed() {
			continue
		}
		if accountID != "" && lot.AccountID != accountID {
			continue
		}
		if symbol != "" && lot.Symbol != symbol {
			continue
		}
		res = append(res, lot)
	}
	return res
}

// Commit applies a sale result to the ledger.
//
// The result must have been computed against the current state of its lots:
// if any lot changed since, ErrStaleDisposition is returned and nothing is
// applied. Otherwise the remaining quantity of every disposed lot is
// decremented, the disallowed losses are added to the basis of the
// replacement shares of the purchases that triggered them and a sell
// transaction per account is recorded in the history. A lot holding more
// shares than were replaced is split in two.
//
// A negative remaining quantity after commit is a programming error and
// panics.
func (l *Ledger) Commit(res SaleResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, d := range res.Dispositions {
		i, ok := l.index[d.Lot.ID]
		if !ok {
			return fmt.Errorf("commit sale: %w: %q", ErrUnknownLot, d.Lot.ID)
		}
		if current := l.lots[i].RemainingQuantity; !current.Equal(d.Lot.RemainingQuantity) {
			return fmt.Errorf("commit sale: lot %q has %s shares left, computed with %s: %w", d.Lot.ID, current, d.Lot.RemainingQuantity, ErrStaleDisposition)
		}
	}

	for _, d := range res.Dispositions {
		lot := &l.lots[l.index[d.Lot.ID]]
		lot.RemainingQuantity = lot.RemainingQuantity.Sub(d.Quantity)
		if lot.RemainingQuantity.IsNegative() {
			panic(fmt.Sprintf("lot %q remaining quantity is negative after commit: %s", lot.ID, lot.RemainingQuantity))
		}
		if d.WashSale == nil {
			continue
		}
		for _, v := range d.WashSale.Violations {
			l.stepUp(v)
		}
	}

	l.append(res.sales()...)
	return nil
}

// stepUp adds a violation's disallowed loss to the basis of the shares of its
// purchase that replaced the sold ones, or keeps it until the lot of the
// purchase is added.
func (l *Ledger) stepUp(v WashSaleViolation) {
	id := v.Purchase.ID
	if id == "" || v.DisallowedLoss.IsZero() || !v.ReplacementShares.IsPositive() {
		return
	}
	s := stepUp{amount: v.DisallowedLoss, shares: v.ReplacementShares}
	if !l.allocate(id, s) {
		l.stepUps[id] = append(l.stepUps[id], s)
	}
}

// allocate adds s to the basis of s.shares shares of the lots created by
// purchase id. Shares that did not replace sold ones yet are used first, and
// a lot larger than needed is split so that its other shares keep their
// basis. It reports whether the purchase has any lot.
func (l *Ledger) allocate(id string, s stepUp) bool {
	perShare := s.amount.Div(s.shares)
	need := s.shares
	found := false
	// a share replaces sold shares once; when every share of the purchase
	// already did, the second pass stacks the loss on them.
	for _, fresh := range []bool{true, false} {
		for i := 0; i < len(l.lots) && need.IsPositive(); i++ {
			if l.lots[i].SourceTransactionID != id {
				continue
			}
			found = true
			if fresh && l.replaced[l.lots[i].ID] {
				continue
			}
			if l.lots[i].OriginalQuantity.GreaterThan(need) {
				l.split(i, need)
			}
			lot := &l.lots[i]
			lot.CostBasisPerShare = lot.CostBasisPerShare.Add(perShare)
			lot.TotalCostBasis = lot.CostBasisPerShare.Mul(lot.OriginalQuantity)
			l.replaced[lot.ID] = true
			need = need.Sub(lot.OriginalQuantity)
		}
	}
	return found
}

// split keeps n shares in lot i and moves the others to a new lot of the same
// purchase. Remaining shares stay in lot i first.
func (l *Ledger) split(i int, n Quantity) {
	lot := &l.lots[i]
	rest := *lot
	rest.ID = l.splitID(firstNonEmpty(lot.SourceTransactionID, lot.ID))
	rest.OriginalQuantity = lot.OriginalQuantity.Sub(n)
	kept := lot.RemainingQuantity.Min(n)
	rest.RemainingQuantity = lot.RemainingQuantity.Sub(kept)
	rest.TotalCostBasis = rest.CostBasisPerShare.Mul(rest.OriginalQuantity)
	l.replaced[rest.ID] = l.replaced[lot.ID]

	lot.OriginalQuantity = n
	lot.RemainingQuantity = kept
	lot.TotalCostBasis = lot.CostBasisPerShare.Mul(n)

	l.index[rest.ID] = len(l.lots)
	l.lots = append(l.lots, rest)
}

func (l *Ledger) splitID(base string) string {
	for k := 1; ; k++ {
		id := fmt.Sprintf("%s-%d", base, k)
		if _, exists := l.index[id]; !exists {
			return id
		}
	}
}

// sales returns the sell transactions recording the result, one per account.
func (r SaleResult) sales() []Transaction {
	var res []Transaction
	index := make(map[string]int)
	for _, d := range r.Dispositions {
		account := firstNonEmpty(r.Request.AccountID, d.Lot.AccountID)
		i, ok := index[account]
		if !ok {
			i = len(res)
			index[account] = i
			res = append(res, Transaction{
				ID:        r.Request.SaleID,
				AccountID: account,
				Date:      r.Request.SaleDate,
				Type:      TxSell,
				Symbol:    firstNonEmpty(r.Request.Symbol, d.Lot.Symbol),
				Price:     r.Request.PricePerShare,
			})
		}
		tx := &res[i]
		tx.Quantity = tx.Quantity.Sub(d.Quantity)
		tx.Amount = tx.Amount.Add(d.Proceeds)
		tx.CostBasis = tx.CostBasis.Add(d.CostBasis)
	}
	for i := range res {
		switch {
		case res[i].ID == "":
			res[i].ID = uuid.NewString()
		case len(res) > 1:
			res[i].ID += "-" + res[i].AccountID
		}
	}
	return res
}
