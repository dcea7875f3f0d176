package rates

import (
	"fmt"
	"sort"
	"strconv"
)

// Quote is the price of one package on one service.
// When Available is false only Error is meaningful.
type Quote struct {
	Available         bool    `json:"available"`
	ServiceType       Service `json:"serviceType,omitempty"`
	Weight            float64 `json:"weight,omitempty"`
	WeightLb          string  `json:"weightLb,omitempty"`
	Rate              Money   `json:"rate"`
	EstimatedDelivery string  `json:"estimatedDelivery,omitempty"`
	Error             string  `json:"error,omitempty"`
}

func unavailable(msg string) Quote {
	return Quote{Error: msg}
}

// Rate prices a package of weightOz ounces on service s.
func Rate(weightOz float64, s Service) Quote {
	t, ok := tables[s]
	if !ok {
		return unavailable("Invalid service type")
	}
	if weightOz <= 0 {
		return unavailable("Weight must be greater than 0")
	}
	if weightOz > t.maxWeight {
		return unavailable(t.overweightMsg)
	}

	for _, tier := range t.tiers {
		if weightOz <= tier.MaxWeight {
			return Quote{
				Available:         true,
				ServiceType:       s,
				Weight:            weightOz,
				WeightLb:          formatPounds(weightOz),
				Rate:              tier.Price,
				EstimatedDelivery: t.delivery,
			}
		}
	}

	// Unreachable while the last tier bound equals maxWeight.
	return unavailable("No pricing tier available for this weight")
}

// RateSet lists every service available for a weight.
type RateSet struct {
	Weight          float64 `json:"weight"`
	WeightLb        string  `json:"weightLb"`
	Rates           []Quote `json:"rates"`
	Cheapest        *Quote  `json:"cheapest"`
	Fastest         *Quote  `json:"fastest"`
	GroundAvailable bool    `json:"groundAvailable"`
}

// AllRates quotes weightOz on every service, dropping unavailable ones.
// Rates are sorted by price ascending; ties keep service order.
func AllRates(weightOz float64) RateSet {
	quotes := make([]Quote, 0, len(serviceOrder))
	for _, s := range serviceOrder {
		if q := Rate(weightOz, s); q.Available {
			quotes = append(quotes, q)
		}
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Rate.LessThan(quotes[j].Rate.Decimal)
	})

	set := RateSet{
		Weight:          weightOz,
		WeightLb:        formatPounds(weightOz),
		Rates:           quotes,
		GroundAvailable: weightOz <= tables[Ground].maxWeight,
	}
	if len(quotes) > 0 {
		cheapest := quotes[0]
		set.Cheapest = &cheapest

		fastest := quotes[0]
		for _, q := range quotes[1:] {
			if tables[q.ServiceType].maxDays < tables[fastest.ServiceType].maxDays {
				fastest = q
			}
		}
		set.Fastest = &fastest
	}
	return set
}

// Recommend returns the cheapest service that can carry weightOz. When no
// service can, Priority is returned so callers get its overweight message.
func Recommend(weightOz float64) Service {
	if set := AllRates(weightOz); set.Cheapest != nil {
		return set.Cheapest.ServiceType
	}
	return Priority
}

// NormalizeWeight converts a display weight to ounces.
func NormalizeWeight(weight float64, unit string) float64 {
	if unit == "lb" {
		return weight * 16
	}
	return weight
}

func formatPounds(weightOz float64) string {
	return strconv.FormatFloat(weightOz/16, 'f', 2, 64)
}

// Item is one row submitted to BatchTotal.
type Item struct {
	RowNumber  int
	Weight     float64
	WeightUnit string
	Service    Service
}

// RowError records why a row could not be priced.
type RowError struct {
	RowNumber int    `json:"rowNumber"`
	Error     string `json:"error"`
}

// Line is one row of a batch total breakdown. Rate is nil when the row
// could not be priced.
type Line struct {
	RowNumber   int     `json:"rowNumber"`
	Weight      float64 `json:"weight"`
	ServiceType Service `json:"serviceType"`
	Rate        *Money  `json:"rate"`
	Error       string  `json:"error,omitempty"`
}

// Total is the aggregate cost of a batch.
type Total struct {
	TotalCost     Money      `json:"totalCost"`
	RowCount      int        `json:"rowCount"`
	GroundCount   int        `json:"groundCount"`
	PriorityCount int        `json:"priorityCount"`
	Errors        []RowError `json:"errors"`
	Breakdown     []Line     `json:"breakdown"`
}

// BatchTotal prices every item at its selected service, defaulting unset
// services to Ground. Rows that cannot be priced are reported in Errors and
// excluded from TotalCost; the rest are still summed.
func BatchTotal(items []Item) Total {
	total := Total{
		RowCount:  len(items),
		Errors:    []RowError{},
		Breakdown: make([]Line, 0, len(items)),
	}

	for i, it := range items {
		rowNumber := it.RowNumber
		if rowNumber == 0 {
			rowNumber = i + 1
		}
		weight := NormalizeWeight(it.Weight, it.WeightUnit)
		svc := it.Service
		if svc == "" || svc == ServiceNone {
			svc = Ground
		}

		q := Rate(weight, svc)
		if !q.Available {
			total.Errors = append(total.Errors, RowError{RowNumber: rowNumber, Error: q.Error})
			total.Breakdown = append(total.Breakdown, Line{
				RowNumber:   rowNumber,
				Weight:      weight,
				ServiceType: svc,
				Error:       q.Error,
			})
			continue
		}

		total.TotalCost = total.TotalCost.Add(q.Rate)
		if svc == Ground {
			total.GroundCount++
		} else {
			total.PriorityCount++
		}
		price := q.Rate
		total.Breakdown = append(total.Breakdown, Line{
			RowNumber:   rowNumber,
			Weight:      weight,
			ServiceType: svc,
			Rate:        &price,
		})
	}

	total.TotalCost = Money{total.TotalCost.Round(2)}
	return total
}

// TierView is a display row of the pricing table.
type TierView struct {
	UpTo  string `json:"upTo"`
	Price string `json:"price"`
}

// ServiceTable is the display form of one service's pricing.
type ServiceTable struct {
	MaxWeight         string     `json:"maxWeight"`
	EstimatedDelivery string     `json:"estimatedDelivery"`
	Tiers             []TierView `json:"tiers"`
}

// PricingTable is the display form of all services.
type PricingTable struct {
	Ground   ServiceTable `json:"ground"`
	Priority ServiceTable `json:"priority"`
}

// Table returns the human-readable pricing table. Bounds up to 16 oz are
// shown in ounces, heavier ones in whole pounds.
func Table() PricingTable {
	return PricingTable{
		Ground:   viewOf(tables[Ground]),
		Priority: viewOf(tables[Priority]),
	}
}

func viewOf(t table) ServiceTable {
	v := ServiceTable{
		MaxWeight:         t.maxLabel,
		EstimatedDelivery: t.delivery,
		Tiers:             make([]TierView, len(t.tiers)),
	}
	for i, tier := range t.tiers {
		upTo := fmt.Sprintf("%g oz", tier.MaxWeight)
		if tier.MaxWeight > 16 {
			upTo = fmt.Sprintf("%.0f lbs", tier.MaxWeight/16)
		}
		v.Tiers[i] = TierView{UpTo: upTo, Price: tier.Price.Format()}
	}
	return v
}
