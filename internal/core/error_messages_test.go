package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "domain error keeps its code",
			err:         ErrBatchNotFound,
			wantCode:    CodeBatchNotFound,
			wantMessage: "Batch not found",
		},
		{
			name:        "wrapped domain error is found",
			err:         fmt.Errorf("load batch: %w", ErrBatchPurchased),
			wantCode:    CodeBatchPurchased,
			wantMessage: "Batch has already been purchased",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New("dial tcp 127.0.0.1:5432: connection refused"),
			wantCode:    "STORE001",
			wantMessage: "Unable to reach the batch store",
		},
		{
			name:        "deadline wins over generic timeout",
			err:         context.DeadlineExceeded,
			wantCode:    "REQ002",
			wantMessage: "Request timed out",
		},
		{
			name:        "timeout maps correctly",
			err:         errors.New("i/o timeout"),
			wantCode:    "STORE004",
			wantMessage: "Operation timed out",
		},
		{
			name:        "redis lock maps correctly",
			err:         errors.New("redislock: not obtained"),
			wantCode:    "LOCK001",
			wantMessage: "Batch is busy with another operation",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("ERROR: DEADLOCK detected"),
			wantCode:    "STORE003",
			wantMessage: "Batch store was busy with conflicting operations",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestCodeActions_CoverEveryCode(t *testing.T) {
	for _, e := range []*Error{
		ErrEmptyCSV, ErrNoValidRows, ErrInvalidStep, ErrMissingShipFrom,
		ErrBatchPurchased, ErrBatchCancelled, ErrNotPurchased, ErrLabelNotBought,
		ErrVersionConflict, ErrBatchLocked, ErrTooManyUploads, ErrBatchNotFound,
		ErrRowNotFound, ErrAddressNotFound, ErrPackageNotFound,
	} {
		if codeActions[e.Code] == "" {
			t.Errorf("no action for %s", e.Code)
		}
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(errors.New("read tcp: connection reset by peer"))

	expected := "Batch store connection was interrupted (Code: STORE002). Please try again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"domain error is user facing", ErrRowNotFound, true},
		{"known error is user facing", errors.New("deadlock"), true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := errors.New("write: connection reset")
		userErr := NewUserError(techErr)

		if userErr.Error() != "Batch store connection was interrupted" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, techErr) {
			t.Error("Unwrap() should return original error")
		}
	})
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := newError(KindNotFound, CodeBatchNotFound, "Batch %s not found", "BATCH-1")
	if !errors.Is(err, ErrBatchNotFound) {
		t.Error("errors.Is should match on code")
	}
	if errors.Is(err, ErrRowNotFound) {
		t.Error("errors.Is matched a different code")
	}
	if KindOf(fmt.Errorf("wrap: %w", err)) != KindNotFound {
		t.Errorf("KindOf = %v, want %v", KindOf(err), KindNotFound)
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("KindOf(plain error) should be 0")
	}
}
