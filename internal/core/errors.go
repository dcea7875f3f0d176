package core

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for transport mapping.
type Kind int

const (
	// KindInput is a caller mistake (HTTP 400).
	KindInput Kind = iota + 1
	// KindNotFound is a missing batch, row, or saved record (HTTP 404).
	KindNotFound
	// KindConflict is a business-rule violation on existing state (HTTP 409).
	KindConflict
	// KindUnavailable is a transient capacity problem (HTTP 503).
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Error is a domain error with a stable machine-readable code.
type Error struct {
	Code    string
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches errors with the same code, so errors.Is(err, ErrBatchNotFound)
// holds for any BATCH_NOT_FOUND error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(kind Kind, code, format string, args ...any) *Error {
	return &Error{Code: code, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error codes.
const (
	CodeEmptyCSV            = "EMPTY_CSV"
	CodeInvalidCSVColumns   = "INVALID_CSV_COLUMNS"
	CodeNoValidRows         = "NO_VALID_ROWS"
	CodeCSVParseError       = "CSV_PARSE_ERROR"
	CodeFileTooLarge        = "FILE_TOO_LARGE"
	CodeTooManyUploads      = "TOO_MANY_UPLOADS"
	CodeInvalidStep         = "INVALID_STEP"
	CodeInvalidService      = "INVALID_SERVICE"
	CodeServiceNotAvailable = "SERVICE_NOT_AVAILABLE"
	CodeMissingShipFrom     = "MISSING_SHIP_FROM"
	CodeInvalidRows         = "INVALID_ROWS"
	CodeBatchPurchased      = "BATCH_PURCHASED"
	CodeBatchCancelled      = "BATCH_CANCELLED"
	CodeNotPurchased        = "NOT_PURCHASED"
	CodeLabelNotPurchased   = "LABEL_NOT_PURCHASED"
	CodeValidationError     = "VALIDATION_ERROR"
	CodeVersionConflict     = "VERSION_CONFLICT"
	CodeBatchLocked         = "BATCH_LOCKED"
	CodeBatchNotFound       = "BATCH_NOT_FOUND"
	CodeRowNotFound         = "ROW_NOT_FOUND"
	CodeAddressNotFound     = "ADDRESS_NOT_FOUND"
	CodePackageNotFound     = "PACKAGE_NOT_FOUND"
)

// Sentinel errors for the fixed-message cases.
var (
	ErrEmptyCSV        = newError(KindInput, CodeEmptyCSV, "CSV file is empty or has no valid data rows")
	ErrNoValidRows     = newError(KindInput, CodeNoValidRows, "No valid rows found in CSV file")
	ErrInvalidStep     = newError(KindInput, CodeInvalidStep, "Invalid step number")
	ErrMissingShipFrom = newError(KindInput, CodeMissingShipFrom, "Ship-from address is required")
	ErrBatchPurchased  = newError(KindConflict, CodeBatchPurchased, "Batch has already been purchased")
	ErrBatchCancelled  = newError(KindConflict, CodeBatchCancelled, "Batch has been cancelled")
	ErrNotPurchased    = newError(KindInput, CodeNotPurchased, "Labels not yet purchased")
	ErrLabelNotBought  = newError(KindInput, CodeLabelNotPurchased, "Label not yet purchased")
	ErrVersionConflict = newError(KindConflict, CodeVersionConflict, "Batch was modified concurrently, reload and try again")
	ErrBatchLocked     = newError(KindUnavailable, CodeBatchLocked, "Batch is busy with another operation, try again shortly")
	ErrTooManyUploads  = newError(KindUnavailable, CodeTooManyUploads, "Too many concurrent uploads, please try again later")
	ErrBatchNotFound   = newError(KindNotFound, CodeBatchNotFound, "Batch not found")
	ErrRowNotFound     = newError(KindNotFound, CodeRowNotFound, "Row not found")
	ErrAddressNotFound = newError(KindNotFound, CodeAddressNotFound, "Saved address not found")
	ErrPackageNotFound = newError(KindNotFound, CodePackageNotFound, "Saved package not found")
)

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or 0 for errors that are not domain errors.
func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return 0
}

// InputError returns a KindInput error, for transports rejecting a request
// before it reaches the service.
func InputError(code, format string, args ...any) *Error {
	return newError(KindInput, code, format, args...)
}
