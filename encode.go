package taxlot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/etnz/taxlot/date"
	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Book is the content of a book file: accounts, holdings, the tax profile
// and a ledger of lots and transactions.
//
// A book file is a JSONL stream where every line is one record, identified
// by its "record" field: "profile", "account", "holding", "lot" or "tx".
type Book struct {
	Profile  TaxProfile
	Accounts []Account
	Holdings []Holding
	Ledger   *Ledger
}

// NewBook returns an empty book.
func NewBook() *Book { return &Book{Ledger: NewLedger()} }

// Account returns the account with the given id.
func (b *Book) Account(id string) (Account, bool) {
	for _, a := range b.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// Portfolio returns the snapshot of the book for the harvest scanner. The
// holdings are the explicit holding records plus the open lots of the ledger
// for the positions no holding record describes.
func (b *Book) Portfolio(asOf date.Date, prices map[string]Money) Portfolio {
	p := Portfolio{
		AsOf:         asOf,
		Accounts:     b.Accounts,
		Holdings:     append([]Holding{}, b.Holdings...),
		Prices:       prices,
		Transactions: b.Ledger.History(),
		Profile:      b.Profile,
	}
	type key struct{ account, symbol string }
	explicit := make(map[key]bool)
	for _, h := range b.Holdings {
		explicit[key{h.AccountID, NormalizeSymbol(h.Symbol)}] = true
	}
	for _, h := range HoldingsFromLots(b.Ledger.Lots()) {
		if !explicit[key{h.AccountID, h.Symbol}] {
			p.Holdings = append(p.Holdings, h)
		}
	}
	return p
}

// amountRecord reads a money amount stored in two fields.
type amountRecord struct {
	Currency string `json:"currency"`
}

// money returns d in the record currency, or in fallback when the record
// names none.
func (a amountRecord) money(d decimal.Decimal, fallback string) Money {
	if a.Currency != "" {
		return M(d, a.Currency)
	}
	if fallback != "" {
		return M(d, fallback)
	}
	return M(d, DefaultCurrency)
}

type profileRecord struct {
	amountRecord
	Income decimal.Decimal `json:"income"`
	Filing FilingStatus    `json:"filing"`
	State  string          `json:"state"`
}

type accountRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type holdingRecord struct {
	amountRecord
	Account   string          `json:"account"`
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	Basis     decimal.Decimal `json:"basis"`
	Purchased date.Date       `json:"purchased"`
	Price     decimal.Decimal `json:"price"`
}

type lotRecord struct {
	amountRecord
	ID          string           `json:"id"`
	Account     string           `json:"account"`
	AccountName string           `json:"accountName"`
	Symbol      string           `json:"symbol"`
	Source      string           `json:"source"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Remaining   *decimal.Decimal `json:"remaining"`
	Basis       decimal.Decimal  `json:"basis"` // per share
	Acquired    date.Date        `json:"acquired"`
	Acquisition AcquisitionType  `json:"acquisition"`
}

type txRecord struct {
	amountRecord
	ID       string          `json:"id"`
	Account  string          `json:"account"`
	Date     date.Date       `json:"date"`
	Type     string          `json:"type"`
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Amount   decimal.Decimal `json:"amount"`
	Basis    decimal.Decimal `json:"basis"`
}

// DecodeBook decodes a book from a stream of JSONL data. Amounts of records
// without a currency are in currency, or in DefaultCurrency when it is empty.
// Lines are numbered from one in errors.
func DecodeBook(r io.Reader, currency string) (*Book, error) {
	book := NewBook()
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue // Skip empty lines
		}
		if err := book.decodeRecord(lineBytes, currency); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}
	return book, nil
}

func (b *Book) decodeRecord(lineBytes []byte, currency string) error {
	var identifier struct {
		Record string `json:"record"`
	}
	if err := json.Unmarshal(lineBytes, &identifier); err != nil {
		return fmt.Errorf("%w: could not identify record in %q: %v", ErrInvalidRecord, string(lineBytes), err)
	}

	switch identifier.Record {
	case "profile":
		var temp profileRecord
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		b.Profile = TaxProfile{Income: temp.money(temp.Income, currency), FilingStatus: temp.Filing, State: temp.State}

	case "account":
		var temp accountRecord
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		if temp.ID == "" {
			return fmt.Errorf("%w: account without id", ErrInvalidRecord)
		}
		b.Accounts = append(b.Accounts, Account(temp))

	case "holding":
		var temp holdingRecord
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		b.Holdings = append(b.Holdings, Holding{
			AccountID:    temp.Account,
			Symbol:       NormalizeSymbol(temp.Symbol),
			Quantity:     Q(temp.Quantity),
			CostBasis:    temp.money(temp.Basis, currency),
			PurchaseDate: temp.Purchased,
			CurrentPrice: temp.money(temp.Price, currency),
		})

	case "lot":
		var temp lotRecord
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		lot := TaxLot{
			ID:                  temp.ID,
			AccountID:           temp.Account,
			AccountName:         temp.AccountName,
			Symbol:              NormalizeSymbol(temp.Symbol),
			SourceTransactionID: temp.Source,
			OriginalQuantity:    Q(temp.Quantity),
			RemainingQuantity:   Q(temp.Quantity),
			CostBasisPerShare:   temp.money(temp.Basis, currency),
			AcquisitionDate:     temp.Acquired,
			AcquisitionType:     temp.Acquisition,
		}
		if temp.Remaining != nil {
			lot.RemainingQuantity = Q(*temp.Remaining)
		}
		if lot.AcquisitionType == "" {
			lot.AcquisitionType = AcquiredByPurchase
		}
		lot.TotalCostBasis = lot.CostBasisPerShare.Mul(lot.OriginalQuantity)
		if err := b.Ledger.Add(lot); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}

	case "tx":
		var temp txRecord
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		typ, err := ParseTransactionType(temp.Type)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		b.Ledger.Append(Transaction{
			ID:        temp.ID,
			AccountID: temp.Account,
			Date:      temp.Date,
			Type:      typ,
			Symbol:    NormalizeSymbol(temp.Symbol),
			Quantity:  Q(temp.Quantity),
			Price:     temp.money(temp.Price, currency),
			Amount:    temp.money(temp.Amount, currency),
			CostBasis: temp.money(temp.Basis, currency),
		})

	default:
		return fmt.Errorf("%w: unknown record %q", ErrInvalidRecord, identifier.Record)
	}
	return nil
}

// EncodeBook writes the book to w in JSONL format: the profile, accounts,
// holdings, lots and then the transactions in chronological order.
func EncodeBook(w io.Writer, book *Book) error {
	if pr := book.Profile; !pr.Income.IsZero() || pr.FilingStatus != "" || pr.State != "" {
		var o jsonObjectWriter
		o.Append("record", "profile")
		o.Optional("income", book.Profile.Income.Decimal())
		o.Optional("currency", book.Profile.Income.Currency())
		o.Optional("filing", book.Profile.FilingStatus)
		o.Optional("state", book.Profile.State)
		if err := writeRecord(w, &o); err != nil {
			return err
		}
	}
	for _, a := range book.Accounts {
		var o jsonObjectWriter
		o.Append("record", "account")
		o.Append("id", a.ID)
		o.Optional("name", a.Name)
		o.Optional("type", a.Type)
		if err := writeRecord(w, &o); err != nil {
			return err
		}
	}
	for _, h := range book.Holdings {
		var o jsonObjectWriter
		o.Append("record", "holding")
		o.Append("account", h.AccountID)
		o.Append("symbol", h.Symbol)
		o.Append("quantity", h.Quantity)
		if h.HasCostBasis() {
			o.Append("basis", h.CostBasis.Decimal())
		}
		if !h.PurchaseDate.IsZero() {
			o.Append("purchased", h.PurchaseDate)
		}
		if !h.CurrentPrice.IsZero() {
			o.Append("price", h.CurrentPrice.Decimal())
		}
		o.Optional("currency", firstNonEmpty(h.CostBasis.Currency(), h.CurrentPrice.Currency()))
		if err := writeRecord(w, &o); err != nil {
			return err
		}
	}
	for _, lot := range book.Ledger.Lots() {
		var o jsonObjectWriter
		o.Append("record", "lot")
		o.Append("id", lot.ID)
		o.Append("account", lot.AccountID)
		o.Optional("accountName", lot.AccountName)
		o.Append("symbol", lot.Symbol)
		o.Optional("source", lot.SourceTransactionID)
		o.Append("quantity", lot.OriginalQuantity)
		o.Append("remaining", lot.RemainingQuantity)
		o.Append("basis", lot.CostBasisPerShare.Decimal())
		o.Optional("currency", lot.CostBasisPerShare.Currency())
		if !lot.AcquisitionDate.IsZero() {
			o.Append("acquired", lot.AcquisitionDate)
		}
		o.Append("acquisition", lot.AcquisitionType)
		if err := writeRecord(w, &o); err != nil {
			return err
		}
	}
	for _, tx := range book.Ledger.History() {
		if err := EncodeTransaction(w, tx); err != nil {
			return err
		}
	}
	return nil
}

// EncodeTransaction writes a single transaction record to w, followed by a
// newline, in JSONL format.
func EncodeTransaction(w io.Writer, tx Transaction) error {
	var o jsonObjectWriter
	o.Append("record", "tx")
	o.Optional("id", tx.ID)
	o.Append("account", tx.AccountID)
	o.Append("date", tx.Date)
	o.Append("type", tx.Type)
	o.Append("symbol", tx.Symbol)
	o.Append("quantity", tx.Quantity)
	if !tx.Price.IsZero() {
		o.Append("price", tx.Price.Decimal())
	}
	if !tx.Amount.IsZero() {
		o.Append("amount", tx.Amount.Decimal())
	}
	if !tx.CostBasis.IsZero() {
		o.Append("basis", tx.CostBasis.Decimal())
	}
	o.Optional("currency", firstNonEmpty(tx.Amount.Currency(), tx.Price.Currency(), tx.CostBasis.Currency()))
	return writeRecord(w, &o)
}

func writeRecord(w io.Writer, o *jsonObjectWriter) error {
	data, err := o.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}
