package core

// # Error Codes Reference
//
// Domain errors (*Error) already carry a stable code such as BATCH_NOT_FOUND
// and a message fit for display; MapError only adds the suggested action.
//
// Infrastructure errors (database, Redis, Kafka, cancelled requests) carry
// technical text. They are mapped by case-insensitive substring match to a
// support code:
//
//	STORE001 - Connection refused: Unable to reach the batch store
//	STORE002 - Connection reset: Batch store connection was interrupted
//	STORE003 - Deadlock: Batch store was busy with conflicting operations
//	STORE004 - Timeout: Operation timed out
//	FILE001  - File too large: File exceeds the upload size limit
//	FILE002  - Encoding error: File contains invalid characters
//	FILE003  - Spreadsheet error: Workbook could not be read
//	REQ001   - Request cancelled
//	REQ002   - Request timed out
//	LOCK001  - Batch lock not obtained
//	RATE001  - Rate limited
//	ERR000   - Unknown error, check the logs for the technical error
//
// The first matching pattern wins, so more specific patterns come first.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// codeActions holds the suggested action for each domain error code.
var codeActions = map[string]string{
	CodeEmptyCSV:            "Upload a file with a header row and at least one shipment",
	CodeInvalidCSVColumns:   "Rename the columns or download the template",
	CodeNoValidRows:         "Check that rows have a recipient address",
	CodeCSVParseError:       "Ensure the file is a comma-separated CSV or an XLSX workbook",
	CodeFileTooLarge:        "Split the file into smaller batches",
	CodeTooManyUploads:      "Please wait a moment and try again",
	CodeInvalidStep:         "Steps 1 to 3 can be set directly; purchase reaches step 4",
	CodeInvalidService:      "Choose ground or priority",
	CodeServiceNotAvailable: "Choose another service or reduce the package weight",
	CodeMissingShipFrom:     "Set a ship-from address before purchasing",
	CodeInvalidRows:         "Fix invalid addresses and select a service for every row",
	CodeBatchPurchased:      "Start a new batch to make changes",
	CodeBatchCancelled:      "Start a new batch",
	CodeNotPurchased:        "Purchase the batch first",
	CodeLabelNotPurchased:   "Purchase the batch first",
	CodeValidationError:     "Correct the highlighted fields",
	CodeVersionConflict:     "Reload the batch and try again",
	CodeBatchLocked:         "Please try again in a few seconds",
	CodeBatchNotFound:       "Check the batch id",
	CodeRowNotFound:         "Reload the batch to see current rows",
	CodeAddressNotFound:     "Reload your saved addresses",
	CodePackageNotFound:     "Reload your saved packages",
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	// Store connectivity
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the batch store",
			Action:  "Please try again in a few moments",
			Code:    "STORE001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Batch store connection was interrupted",
			Action:  "Please try again",
			Code:    "STORE002",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Batch store was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "STORE003",
		},
	},

	// Request lifecycle. Deadline must precede the generic timeout pattern.
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller batch or check your connection",
			Code:    "REQ002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller batch or try again later",
			Code:    "STORE004",
		},
	},

	// Files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the upload size limit",
			Action:  "Split the file into smaller batches",
			Code:    "FILE001",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save the file as UTF-8",
			Code:    "FILE002",
		},
	},
	{
		pattern: "zip: not a valid zip file",
		msg: UserMessage{
			Message: "Workbook could not be read",
			Action:  "Save the file as .xlsx or export it to CSV",
			Code:    "FILE003",
		},
	},

	// Locks and throttling
	{
		pattern: "not obtained",
		msg: UserMessage{
			Message: "Batch is busy with another operation",
			Action:  "Please try again in a few seconds",
			Code:    "LOCK001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message. Domain errors keep
// their own code and message; other errors are matched against the known
// technical patterns, falling back to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if e, ok := AsError(err); ok {
		return UserMessage{Message: e.Message, Action: codeActions[e.Code], Code: e.Code}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	if msg.Action == "" {
		return fmt.Sprintf("%s (Code: %s)", msg.Message, msg.Code)
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
