// Package rates prices shipments from weight-tiered tables.
//
// Weights are always ounces. Each service has an ascending list of tiers
// (upper bound inclusive) and a maximum weight; a package is priced at the
// first tier whose bound is at least its weight.
package rates

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Service is a shipping service level.
type Service string

const (
	ServiceNone Service = "none"
	Ground      Service = "ground"
	Priority    Service = "priority"
)

// IsSet reports whether s names a purchasable service.
func (s Service) IsSet() bool {
	return s == Ground || s == Priority
}

// ParseService maps user input to a service. The second result is false for
// anything other than ground or priority.
func ParseService(s string) (Service, bool) {
	switch Service(strings.ToLower(strings.TrimSpace(s))) {
	case Ground:
		return Ground, true
	case Priority:
		return Priority, true
	}
	return Service(s), false
}

// Money is a dollar amount serialized as a JSON number with two decimals.
type Money struct {
	decimal.Decimal
}

// NewMoney returns a Money from a float amount.
func NewMoney(v float64) Money {
	return Money{decimal.NewFromFloat(v)}
}

// MustMoney parses a decimal string and panics on malformed input.
// Intended for package-level tables.
func MustMoney(s string) Money {
	return Money{decimal.RequireFromString(s)}
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{m.Decimal.Add(o.Decimal)}
}

// Format renders m as "$X.XX".
func (m Money) Format() string {
	return "$" + m.StringFixed(2)
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

// UnmarshalJSON implements json.Unmarshaler. Quoted and bare numbers are accepted.
func (m *Money) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Money{}
		return nil
	}
	return json.Unmarshal(b, &m.Decimal)
}

// Tier is one price step. MaxWeight is inclusive, in ounces.
type Tier struct {
	MaxWeight float64
	Price     Money
}

// table describes one service's pricing.
type table struct {
	service       Service
	tiers         []Tier
	maxWeight     float64
	maxLabel      string
	delivery      string
	overweightMsg string
	maxDays       int // orders services by speed
}

var tables = map[Service]table{
	Ground: {
		service: Ground,
		tiers: []Tier{
			{4, MustMoney("2.50")},
			{8, MustMoney("2.75")},
			{12, MustMoney("2.95")},
			{16, MustMoney("3.00")},
		},
		maxWeight:     16,
		maxLabel:      "16 oz (1 lb)",
		delivery:      "5-7 business days",
		maxDays:       7,
		overweightMsg: "Ground shipping not available for packages over 1 lb (16 oz)",
	},
	Priority: {
		service: Priority,
		tiers: []Tier{
			{4, MustMoney("4.00")},
			{8, MustMoney("4.50")},
			{12, MustMoney("5.00")},
			{16, MustMoney("5.50")},
			{32, MustMoney("6.00")},
			{48, MustMoney("7.50")},
			{64, MustMoney("9.00")},
			{80, MustMoney("10.50")},
			{160, MustMoney("15.00")},
			{320, MustMoney("25.00")},
			{1120, MustMoney("50.00")},
		},
		maxWeight:     1120,
		maxLabel:      "1120 oz (70 lbs)",
		delivery:      "1-3 business days",
		maxDays:       3,
		overweightMsg: "Package exceeds maximum weight limit of 70 lbs",
	},
}

// serviceOrder is the order services are quoted in before sorting by price.
var serviceOrder = []Service{Ground, Priority}

// MaxWeight returns the heaviest package s accepts, in ounces.
func MaxWeight(s Service) float64 {
	return tables[s].maxWeight
}

// EstimatedDelivery returns the delivery window for s.
func EstimatedDelivery(s Service) string {
	return tables[s].delivery
}
