package taxlot

import "errors"

var (
	// ErrNotAcquisition is returned when a lot is requested from a transaction
	// that does not bring shares into an account.
	ErrNotAcquisition = errors.New("not an acquisition")
	// ErrUnknownMethod is returned when parsing an unsupported cost basis method.
	ErrUnknownMethod = errors.New("unknown cost basis method")
	// ErrUnknownLot is returned when a lot id does not resolve in the ledger.
	ErrUnknownLot = errors.New("unknown lot")
	// ErrStaleDisposition is returned by Ledger.Commit when a sale result was
	// computed against lots that changed since.
	ErrStaleDisposition = errors.New("stale disposition")
	// ErrInvalidRecord is returned when a book record cannot be decoded.
	ErrInvalidRecord = errors.New("invalid record")
)
