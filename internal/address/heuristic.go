package address

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Heuristic validates addresses locally without any network call.
// Missing fields make the address invalid; an unknown state code, an
// odd ZIP format, or a PO Box only downgrade it to a warning.
type Heuristic struct{}

// Name implements Validator.
func (Heuristic) Name() string { return "heuristic" }

// Validate implements Validator. It never returns an error.
func (Heuristic) Validate(_ context.Context, a Address) (Result, error) {
	if msgs := missingRequired(a, 3); len(msgs) > 0 {
		return invalid(msgs...), nil
	}

	var msgs []string
	state := strings.ToUpper(strings.TrimSpace(a.State))
	if !usStates[state] {
		msgs = append(msgs, fmt.Sprintf("State %q may not be a valid US state code", a.State))
	}

	zip := stripSpace(a.Zip)
	if !ValidZip(zip) {
		msgs = append(msgs, "ZIP code format may be non-standard")
	}

	if strings.Contains(strings.ToLower(a.Street1), "po box") {
		msgs = append(msgs, "PO Box addresses may have delivery restrictions")
	}

	suggested := a
	suggested.Street1 = strings.ToUpper(a.Street1)
	suggested.Street2 = strings.ToUpper(a.Street2)
	suggested.City = strings.ToUpper(a.City)
	suggested.State = state
	suggested.Zip = zip

	status := StatusValid
	if len(msgs) > 0 {
		status = StatusWarning
	} else {
		msgs = []string{}
	}

	return Result{Status: status, Messages: msgs, SuggestedAddress: &suggested}, nil
}

// Basic is the last-resort validator. It only checks that the required
// fields are present.
type Basic struct{}

// Name implements Validator.
func (Basic) Name() string { return "basic" }

// Validate implements Validator. It never returns an error.
func (Basic) Validate(_ context.Context, a Address) (Result, error) {
	if msgs := missingRequired(a, 1); len(msgs) > 0 {
		return invalid(msgs...), nil
	}

	suggested := a
	suggested.State = strings.ToUpper(a.State)

	return Result{
		Status:           StatusValid,
		Messages:         []string{"Address validation API unavailable - basic checks passed"},
		SuggestedAddress: &suggested,
	}, nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
