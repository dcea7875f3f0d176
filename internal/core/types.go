package core

import (
	"slices"
	"time"

	"github.com/JonMunkholm/shipbatch/internal/address"
	"github.com/JonMunkholm/shipbatch/internal/rates"
)

// BatchStatus is the workflow state of a batch.
type BatchStatus string

const (
	StatusDraft            BatchStatus = "draft"
	StatusValidating       BatchStatus = "validating"
	StatusValidated        BatchStatus = "validated"
	StatusShippingSelected BatchStatus = "shipping_selected"
	StatusPurchased        BatchStatus = "purchased"
	StatusCancelled        BatchStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s BatchStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusValidating, StatusValidated, StatusShippingSelected, StatusPurchased, StatusCancelled:
		return true
	}
	return false
}

// Workflow steps. StepPurchased is only reachable through Purchase.
const (
	StepUpload    = 1
	StepValidate  = 2
	StepShipping  = 3
	StepPurchased = 4
)

// stepStatus maps the steps a caller may set directly to their status.
var stepStatus = map[int]BatchStatus{
	StepUpload:   StatusDraft,
	StepValidate: StatusValidating,
	StepShipping: StatusShippingSelected,
}

// Package describes the parcel of one row. Weight is always ounces;
// WeightUnit is kept for display only.
type Package struct {
	Weight        float64  `json:"weight"`
	WeightUnit    string   `json:"weightUnit"`
	Length        *float64 `json:"length"`
	Width         *float64 `json:"width"`
	Height        *float64 `json:"height"`
	DimensionUnit string   `json:"dimensionUnit"`
}

// Validation is the address verdict stored on a row.
type Validation struct {
	Status           address.Status   `json:"status"`
	Messages         []string         `json:"messages"`
	ValidatedAt      *time.Time       `json:"validatedAt"`
	SuggestedAddress *address.Address `json:"suggestedAddress,omitempty"`
}

// Shipping is the service selected for a row.
type Shipping struct {
	ServiceType       rates.Service `json:"serviceType"`
	Rate              *rates.Money  `json:"rate"`
	EstimatedDelivery string        `json:"estimatedDelivery,omitempty"`
}

// Label is stamped on a row once, at purchase.
type Label struct {
	TrackingNumber string    `json:"trackingNumber"`
	LabelURL       string    `json:"labelUrl"`
	PurchasedAt    time.Time `json:"purchasedAt"`
}

// Row is one shipment in a batch. ID is stable for the life of the row;
// RowNumber is renumbered whenever rows are removed.
type Row struct {
	ID         string          `json:"id"`
	RowNumber  int             `json:"rowNumber"`
	Recipient  address.Address `json:"recipient"`
	Package    Package         `json:"package"`
	Reference  string          `json:"reference"`
	SKU        string          `json:"sku"`
	Notes      string          `json:"notes"`
	Validation Validation      `json:"validation"`
	Shipping   Shipping        `json:"shipping"`
	Label      *Label          `json:"label,omitempty"`
}

// resetResults clears the validation and shipping results of a row whose
// data changed.
func (r *Row) resetResults() {
	r.Validation = Validation{Status: address.StatusPending, Messages: []string{}}
	r.Shipping = Shipping{ServiceType: rates.ServiceNone}
}

// ShipFrom is the origin address of a batch, optionally copied from a
// saved address.
type ShipFrom struct {
	address.Address
	SavedAddressID string `json:"savedAddressId,omitempty"`
}

// Stats are derived from the rows by Batch.Recompute.
type Stats struct {
	TotalRows     int         `json:"totalRows"`
	ValidRows     int         `json:"validRows"`
	WarningRows   int         `json:"warningRows"`
	InvalidRows   int         `json:"invalidRows"`
	TotalWeight   float64     `json:"totalWeight"`
	EstimatedCost rates.Money `json:"estimatedCost"`
}

// Batch is a set of rows uploaded together and moved through one workflow.
type Batch struct {
	BatchID          string      `json:"batchId"`
	UserID           string      `json:"userId,omitempty"`
	Status           BatchStatus `json:"status"`
	CurrentStep      int         `json:"currentStep"`
	ShipFrom         ShipFrom    `json:"shipFrom"`
	Rows             []Row       `json:"rows"`
	Stats            Stats       `json:"stats"`
	OriginalFilename string      `json:"originalFilename"`
	UploadedAt       time.Time   `json:"uploadedAt"`
	LastModifiedAt   time.Time   `json:"lastModifiedAt"`
	PurchasedAt      *time.Time  `json:"purchasedAt,omitempty"`

	// Version is incremented by every successful save.
	Version int `json:"version"`
}

// BatchSummary is a batch without its rows, as returned by listings.
type BatchSummary struct {
	BatchID          string      `json:"batchId"`
	UserID           string      `json:"userId,omitempty"`
	Status           BatchStatus `json:"status"`
	CurrentStep      int         `json:"currentStep"`
	ShipFrom         ShipFrom    `json:"shipFrom"`
	Stats            Stats       `json:"stats"`
	OriginalFilename string      `json:"originalFilename"`
	UploadedAt       time.Time   `json:"uploadedAt"`
	LastModifiedAt   time.Time   `json:"lastModifiedAt"`
	PurchasedAt      *time.Time  `json:"purchasedAt,omitempty"`
}

// Summary drops the rows of b.
func (b *Batch) Summary() BatchSummary {
	return BatchSummary{
		BatchID:          b.BatchID,
		UserID:           b.UserID,
		Status:           b.Status,
		CurrentStep:      b.CurrentStep,
		ShipFrom:         b.ShipFrom,
		Stats:            b.Stats,
		OriginalFilename: b.OriginalFilename,
		UploadedAt:       b.UploadedAt,
		LastModifiedAt:   b.LastModifiedAt,
		PurchasedAt:      b.PurchasedAt,
	}
}

// row returns a pointer to the row with the given id.
func (b *Batch) row(rowID string) (*Row, error) {
	for i := range b.Rows {
		if b.Rows[i].ID == rowID {
			return &b.Rows[i], nil
		}
	}
	return nil, ErrRowNotFound
}

// ListOptions filters and pages batch listings. Zero values use defaults.
type ListOptions struct {
	Page   int
	Limit  int
	Status BatchStatus
	UserID string
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// BatchList is one page of batch summaries, newest first.
type BatchList struct {
	Batches    []BatchSummary `json:"batches"`
	Pagination Pagination     `json:"pagination"`
}

// AddressType distinguishes origin from destination saved addresses.
type AddressType string

const (
	AddressShipFrom AddressType = "ship_from"
	AddressShipTo   AddressType = "ship_to"
)

// SavedAddress is a reusable address template.
type SavedAddress struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId,omitempty"`
	Type      AddressType `json:"type"`
	Label     string      `json:"label"`
	IsDefault bool        `json:"isDefault"`
	address.Address
	Validated        bool             `json:"validated"`
	ValidatedAddress *address.Address `json:"validatedAddress,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// PackageType is a carrier packaging preset.
type PackageType string

const (
	PackageCustom           PackageType = "custom"
	PackageFlatRateEnvelope PackageType = "flat_rate_envelope"
	PackageFlatRateSmall    PackageType = "flat_rate_box_small"
	PackageFlatRateMedium   PackageType = "flat_rate_box_medium"
	PackageFlatRateLarge    PackageType = "flat_rate_box_large"
)

// SavedPackage is a reusable package preset.
type SavedPackage struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId,omitempty"`
	Label         string      `json:"label"`
	IsDefault     bool        `json:"isDefault"`
	Weight        float64     `json:"weight"`
	WeightUnit    string      `json:"weightUnit"`
	Length        *float64    `json:"length"`
	Width         *float64    `json:"width"`
	Height        *float64    `json:"height"`
	DimensionUnit string      `json:"dimensionUnit"`
	PackageType   PackageType `json:"packageType"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// SavedFilter narrows saved address and package listings.
type SavedFilter struct {
	UserID string
	Type   AddressType
	Search string
}

// Clone returns a deep copy of b. Stores hand out clones so a failed
// operation never leaks partial changes.
func (b *Batch) Clone() *Batch {
	c := *b
	c.PurchasedAt = clonePtr(b.PurchasedAt)
	c.Rows = make([]Row, len(b.Rows))
	for i, r := range b.Rows {
		r.Package.Length = clonePtr(r.Package.Length)
		r.Package.Width = clonePtr(r.Package.Width)
		r.Package.Height = clonePtr(r.Package.Height)
		r.Validation.Messages = slices.Clone(r.Validation.Messages)
		r.Validation.ValidatedAt = clonePtr(r.Validation.ValidatedAt)
		r.Validation.SuggestedAddress = clonePtr(r.Validation.SuggestedAddress)
		r.Shipping.Rate = clonePtr(r.Shipping.Rate)
		r.Label = clonePtr(r.Label)
		c.Rows[i] = r
	}
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
