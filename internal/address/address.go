// Package address validates postal addresses through an ordered chain of
// strategies.
//
// A configured external provider (USPS Web Tools or Google Address
// Validation) is tried first, then the local heuristic validator, then a
// required-fields check. [Chain.Validate] never returns an error: any
// provider failure is logged and the next strategy is tried.
package address

import (
	"regexp"
	"strings"
)

// Address is a postal address as carried on shipment rows, batches, and
// saved addresses.
type Address struct {
	Name    string `json:"name" validate:"max=100"`
	Company string `json:"company" validate:"max=100"`
	Street1 string `json:"street1" validate:"max=200"`
	Street2 string `json:"street2" validate:"max=200"`
	City    string `json:"city" validate:"max=100"`
	State   string `json:"state" validate:"max=50"`
	Zip     string `json:"zip" validate:"max=20"`
	Country string `json:"country" validate:"max=50"`
	Phone   string `json:"phone" validate:"max=30"`
	Email   string `json:"email" validate:"omitempty,max=255"`
}

// Status is the verdict of a validation.
type Status string

const (
	StatusPending Status = "pending"
	StatusValid   Status = "valid"
	StatusWarning Status = "warning"
	StatusInvalid Status = "invalid"
)

// Result is the outcome of validating one address.
// SuggestedAddress is never set when Status is StatusInvalid.
type Result struct {
	Status           Status   `json:"status"`
	Messages         []string `json:"messages"`
	SuggestedAddress *Address `json:"suggestedAddress"`
	Provider         string   `json:"provider,omitempty"`
}

// zipPattern is the canonical US ZIP or ZIP+4 format.
var zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// ValidZip reports whether zip is a 5-digit or ZIP+4 code.
func ValidZip(zip string) bool {
	return zipPattern.MatchString(zip)
}

// usStates holds the state, district, and territory codes the heuristic
// validator accepts without a warning.
var usStates = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true,
	"CT": true, "DE": true, "FL": true, "GA": true, "HI": true, "ID": true,
	"IL": true, "IN": true, "IA": true, "KS": true, "KY": true, "LA": true,
	"ME": true, "MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true, "OK": true,
	"OR": true, "PA": true, "RI": true, "SC": true, "SD": true, "TN": true,
	"TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true,
	"DC": true, "PR": true, "VI": true, "GU": true, "AS": true, "MP": true,
}

// IsUSStateCode reports whether code (any case) is a known state or territory code.
func IsUSStateCode(code string) bool {
	return usStates[strings.ToUpper(strings.TrimSpace(code))]
}

// missingRequired returns one message per absent required field.
// minStreet is the shortest street1 accepted.
func missingRequired(a Address, minStreet int) []string {
	var msgs []string
	if strings.TrimSpace(a.Name) == "" {
		msgs = append(msgs, "Name is required")
	}
	if len(strings.TrimSpace(a.Street1)) < minStreet {
		msgs = append(msgs, "Street address is required")
	}
	if strings.TrimSpace(a.City) == "" {
		msgs = append(msgs, "City is required")
	}
	if strings.TrimSpace(a.State) == "" {
		msgs = append(msgs, "State is required")
	}
	if strings.TrimSpace(a.Zip) == "" {
		msgs = append(msgs, "ZIP code is required")
	}
	return msgs
}

// invalid builds an invalid result with no suggestion.
func invalid(msgs ...string) Result {
	return Result{Status: StatusInvalid, Messages: msgs}
}
