package parse

import (
	"strings"

	"github.com/ttacon/libphonenumber"
)

// Phone formats a phone number as E.164 when it is a valid number for the
// given region (default "US"). Anything else is returned trimmed but
// otherwise unchanged so the user can still see what they uploaded.
func Phone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if region == "" {
		region = "US"
	}
	num, err := libphonenumber.Parse(raw, strings.ToUpper(region))
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return raw
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}
