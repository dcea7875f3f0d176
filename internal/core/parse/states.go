package parse

import (
	"strings"
	"unicode"
)

// UsStates maps US state names, with everything but letters removed, to
// their 2-letter codes. Removing spaces lets "New York" and "NewYork" share
// one entry.
var UsStates = map[string]string{
	"alabama":            "AL",
	"alaska":             "AK",
	"arizona":            "AZ",
	"arkansas":           "AR",
	"california":         "CA",
	"colorado":           "CO",
	"connecticut":        "CT",
	"delaware":           "DE",
	"districtofcolumbia": "DC",
	"florida":            "FL",
	"georgia":            "GA",
	"hawaii":             "HI",
	"idaho":              "ID",
	"illinois":           "IL",
	"indiana":            "IN",
	"iowa":               "IA",
	"kansas":             "KS",
	"kentucky":           "KY",
	"louisiana":          "LA",
	"maine":              "ME",
	"maryland":           "MD",
	"massachusetts":      "MA",
	"michigan":           "MI",
	"minnesota":          "MN",
	"mississippi":        "MS",
	"missouri":           "MO",
	"montana":            "MT",
	"nebraska":           "NE",
	"nevada":             "NV",
	"newhampshire":       "NH",
	"newjersey":          "NJ",
	"newmexico":          "NM",
	"newyork":            "NY",
	"northcarolina":      "NC",
	"northdakota":        "ND",
	"ohio":               "OH",
	"oklahoma":           "OK",
	"oregon":             "OR",
	"pennsylvania":       "PA",
	"rhodeisland":        "RI",
	"southcarolina":      "SC",
	"southdakota":        "SD",
	"tennessee":          "TN",
	"texas":              "TX",
	"utah":               "UT",
	"vermont":            "VT",
	"virginia":           "VA",
	"washington":         "WA",
	"westvirginia":       "WV",
	"wisconsin":          "WI",
	"wyoming":            "WY",
}

// StateCode converts a full state name to its 2-letter code.
// The second result is false when the name is not recognized.
func StateCode(name string) (string, bool) {
	key := strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		if r < 'a' || r > 'z' {
			return -1
		}
		return r
	}, name)
	code, ok := UsStates[key]
	return code, ok
}

// NormalizeUsState converts US state names to their 2-letter abbreviations.
// Anything else is trimmed and upper-cased.
func NormalizeUsState(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 2 {
		if code, ok := StateCode(s); ok {
			return code
		}
	}
	return strings.ToUpper(s)
}
