package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultWeightOz is returned by Weight for input it cannot read.
const DefaultWeightOz = 1

var (
	leadingNumber   = regexp.MustCompile(`^\d+(?:\.\d+)?`)
	dimensionTriple = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*[x×*\-]\s*(\d+(?:\.\d+)?)\s*[x×*\-]\s*(\d+(?:\.\d+)?)`)
)

// Weight reads a weight such as "15", "15 oz", or "1.5 lb" and returns
// ounces. Text mentioning pounds is converted; anything else is taken as
// ounces. Empty, non-numeric, and zero input yields DefaultWeightOz.
func Weight(s string) float64 {
	str := strings.ToLower(strings.TrimSpace(s))
	num := leadingNumber.FindString(str)
	if num == "" {
		return DefaultWeightOz
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v == 0 {
		return DefaultWeightOz
	}
	if strings.Contains(str, "lb") || strings.Contains(str, "pound") {
		return v * 16
	}
	return v
}

// Number reads a plain decimal cell. Unparseable input reads as 0.
func Number(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		// Accept a leading number followed by a unit, e.g. "12 in".
		if num := leadingNumber.FindString(strings.TrimSpace(s)); num != "" {
			v, _ = strconv.ParseFloat(num, 64)
			return v
		}
		return 0
	}
	return v
}

// Dims is a package's length, width, and height. Nil means unknown.
type Dims struct {
	Length *float64
	Width  *float64
	Height *float64
}

// Dimensions reads "LxWxH" where the separator is x, ×, *, or -, with
// optional spaces. Anything else yields all-nil dimensions.
func Dimensions(s string) Dims {
	m := dimensionTriple.FindStringSubmatch(s)
	if m == nil {
		return Dims{}
	}
	return Dims{
		Length: positive(m[1]),
		Width:  positive(m[2]),
		Height: positive(m[3]),
	}
}

// positive parses s, returning nil for zero or malformed input.
func positive(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

// PositivePtr returns &v when v > 0 and nil otherwise.
func PositivePtr(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}
