package ledger

import "errors"

var (
	// ErrColumnOverflow is returned when a layout needs more columns than a
	// worksheet can address.
	ErrColumnOverflow = errors.New("ledger: column address out of range")

	// ErrDuplicateName is returned when a field or test label would occupy
	// two columns of the same block.
	ErrDuplicateName = errors.New("ledger: duplicate column name")

	// ErrMalformedMap is returned for a side map file that exists but cannot
	// be parsed or is structurally invalid. It is never repaired automatically.
	ErrMalformedMap = errors.New("ledger: malformed map file")

	// ErrMissingMap is returned when a sheet exists but its map file does not.
	ErrMissingMap = errors.New("ledger: sheet exists without map file")

	// ErrLayoutMismatch is returned when a map file does not cover exactly the
	// configured fields and tests.
	ErrLayoutMismatch = errors.New("ledger: map does not match configured layout")

	// ErrLedgerFull is returned when no empty row is left on a sheet.
	ErrLedgerFull = errors.New("ledger: sheet has no empty rows")

	// ErrInvalidRecord is returned for records whose test set or overall
	// status is inconsistent.
	ErrInvalidRecord = errors.New("ledger: invalid record")
)
