// Package parse extracts structured values from free-text CSV cells.
//
// Every parser here is best effort and never fails: input it cannot make
// sense of yields the documented default.
package parse

import (
	"regexp"
	"strings"

	"github.com/JonMunkholm/shipbatch/internal/address"
)

var (
	stateZipPattern  = regexp.MustCompile(`(?i)^([A-Z]{2})\s+(\d{5}(?:-\d{4})?)$`)
	bareZipPattern   = regexp.MustCompile(`^\d{5}(?:-\d{4})?$`)
	bareStatePattern = regexp.MustCompile(`(?i)^[A-Z]{2}$`)
	digitPattern     = regexp.MustCompile(`\d`)
	whitespaceRuns   = regexp.MustCompile(`\s+`)
)

// Address splits a one-line address such as
//
//	John Doe, 123 Main St, Suite 100, New York, NY 10001
//
// into its parts. A leading segment without digits is taken as the name.
// Segments between street1 and city are joined into street2.
func Address(s string) address.Address {
	var parts []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	var a address.Address
	switch n := len(parts); {
	case n >= 4:
		last := parts[n-1]
		if m := stateZipPattern.FindStringSubmatch(last); m != nil {
			a.State, a.Zip = m[1], m[2]
			a.City = parts[n-2]
			assignLeading(&a, parts[:n-2])
		} else if bareZipPattern.MatchString(last) && bareStatePattern.MatchString(parts[n-2]) {
			a.State, a.Zip = parts[n-2], last
			a.City = parts[n-3]
			assignLeading(&a, parts[:n-3])
		} else {
			positional(&a, parts)
			if a.Zip == "" && bareZipPattern.MatchString(last) {
				a.Zip = last
			}
		}
	case n == 3:
		a.Street1, a.City = parts[0], parts[1]
		if m := stateZipPattern.FindStringSubmatch(parts[2]); m != nil {
			a.State, a.Zip = m[1], m[2]
		}
	case n == 2:
		a.Street1, a.City = parts[0], parts[1]
	case n == 1:
		a.Street1 = parts[0]
	}

	a.State = strings.ToUpper(strings.TrimSpace(a.State))
	a.Country = "US"
	return a
}

// positional assigns segments by index: name, street1, city, then a
// "STATE ZIP" split of the last segment.
func positional(a *address.Address, parts []string) {
	a.Name, a.Street1, a.City = parts[0], parts[1], parts[2]
	if fields := whitespaceRuns.Split(parts[len(parts)-1], -1); len(fields) >= 2 {
		a.State = fields[0]
		a.Zip = strings.Join(fields[1:], "")
	}
}

// assignLeading fills name, street1, and street2 from the segments that
// precede the city.
func assignLeading(a *address.Address, lead []string) {
	if len(lead) == 0 {
		return
	}
	rest := lead
	if !digitPattern.MatchString(lead[0]) {
		a.Name = lead[0]
		rest = lead[1:]
	}
	if len(rest) == 0 {
		return
	}
	a.Street1 = rest[0]
	if len(rest) > 1 {
		a.Street2 = strings.Join(rest[1:], ", ")
	}
}
