package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/shipbatch/internal/address"
	"github.com/JonMunkholm/shipbatch/internal/logging"
	"github.com/JonMunkholm/shipbatch/internal/rates"
)

// RowRates are the available services for one row.
type RowRates struct {
	RowID            string   `json:"rowId"`
	RowNumber        int      `json:"rowNumber"`
	RecipientName    string   `json:"recipientName"`
	CurrentSelection Shipping `json:"currentSelection"`
	rates.RateSet
}

// BatchRates are the available services for every row of a batch.
type BatchRates struct {
	BatchID  string     `json:"batchId"`
	RowCount int        `json:"rowCount"`
	Rows     []RowRates `json:"rows"`
}

func rowRates(r *Row) RowRates {
	return RowRates{
		RowID:            r.ID,
		RowNumber:        r.RowNumber,
		RecipientName:    r.Recipient.Name,
		CurrentSelection: r.Shipping,
		RateSet:          rates.AllRates(r.Package.Weight),
	}
}

// RatesForRow quotes every service for one row.
func (s *Service) RatesForRow(ctx context.Context, batchID, rowID string) (*RowRates, error) {
	b, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	r, err := b.row(rowID)
	if err != nil {
		return nil, err
	}
	rr := rowRates(r)
	return &rr, nil
}

// RatesForBatch quotes every service for every row.
func (s *Service) RatesForBatch(ctx context.Context, batchID string) (*BatchRates, error) {
	b, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	out := &BatchRates{
		BatchID:  b.BatchID,
		RowCount: len(b.Rows),
		Rows:     make([]RowRates, len(b.Rows)),
	}
	for i := range b.Rows {
		out.Rows[i] = rowRates(&b.Rows[i])
	}
	return out, nil
}

func parseService(s string) (rates.Service, error) {
	svc, ok := rates.ParseService(s)
	if !ok || !svc.IsSet() {
		return "", newError(KindInput, CodeInvalidService, "Invalid service type %q", s)
	}
	return svc, nil
}

// SelectShipping sets the service of one row.
func (s *Service) SelectShipping(ctx context.Context, batchID, rowID, service string) (*Row, error) {
	svc, err := parseService(service)
	if err != nil {
		return nil, err
	}

	var selected Row
	_, err = s.withBatch(ctx, batchID, func(b *Batch) error {
		if err := s.checkEditable(ctx, b); err != nil {
			return err
		}
		r, err := b.row(rowID)
		if err != nil {
			return err
		}
		q := rates.Rate(r.Package.Weight, svc)
		if !q.Available {
			return newError(KindInput, CodeServiceNotAvailable, "%s", q.Error)
		}
		r.Shipping = shippingFor(q)
		selected = *r
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.WithFields(logging.WithBatch(ctx, batchID), "row_id", rowID, "service", svc).Info("shipping selected")
	return &selected, nil
}

func shippingFor(q rates.Quote) Shipping {
	rate := q.Rate
	return Shipping{ServiceType: q.ServiceType, Rate: &rate, EstimatedDelivery: q.EstimatedDelivery}
}

// Bulk selection strategies.
const (
	StrategyAll      = "all"
	StrategyCheapest = "cheapest"
)

// BulkSelection is the outcome of selecting a service for every row.
type BulkSelection struct {
	BatchID       string           `json:"batchId"`
	Updated       int              `json:"updated"`
	Skipped       int              `json:"skipped"`
	Errors        []rates.RowError `json:"errors"`
	EstimatedCost rates.Money      `json:"estimatedCost"`
}

// BulkSelectShipping selects a service for every row. With StrategyAll the
// given service is used, falling back to the other service for rows it
// cannot carry. With StrategyCheapest each row gets its recommended
// service. Rows no service can carry are listed in Errors.
func (s *Service) BulkSelectShipping(ctx context.Context, batchID, service, strategy string) (*BulkSelection, error) {
	if strategy == "" {
		strategy = StrategyAll
	}
	var target rates.Service
	switch strategy {
	case StrategyAll:
		svc, err := parseService(service)
		if err != nil {
			return nil, err
		}
		target = svc
	case StrategyCheapest:
	default:
		return nil, newError(KindInput, CodeValidationError, "Unknown strategy %q, use all or cheapest", strategy)
	}

	res := &BulkSelection{BatchID: batchID, Errors: []rates.RowError{}}
	b, err := s.withBatch(ctx, batchID, func(b *Batch) error {
		if err := s.checkEditable(ctx, b); err != nil {
			return err
		}
		for i := range b.Rows {
			r := &b.Rows[i]
			svc := target
			if strategy == StrategyCheapest {
				svc = rates.Recommend(r.Package.Weight)
			}
			q := rates.Rate(r.Package.Weight, svc)
			if !q.Available {
				alt := rates.Rate(r.Package.Weight, alternate(svc))
				if !alt.Available {
					res.Errors = append(res.Errors, rates.RowError{RowNumber: r.RowNumber, Error: q.Error})
					res.Skipped++
					continue
				}
				q = alt
			}
			r.Shipping = shippingFor(q)
			res.Updated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.EstimatedCost = b.Stats.EstimatedCost

	logging.WithFields(logging.WithBatch(ctx, batchID),
		"strategy", strategy,
		"updated", res.Updated,
		"skipped", res.Skipped,
	).Info("bulk shipping selection complete")
	return res, nil
}

// alternate returns the other service.
func alternate(s rates.Service) rates.Service {
	if s == rates.Ground {
		return rates.Priority
	}
	return rates.Ground
}

// PurchasedLabel is one label bought by Purchase.
type PurchasedLabel struct {
	RowNumber      int           `json:"rowNumber"`
	TrackingNumber string        `json:"trackingNumber"`
	ServiceType    rates.Service `json:"serviceType"`
	Rate           *rates.Money  `json:"rate"`
}

// PurchaseResult is the outcome of a purchase.
type PurchaseResult struct {
	Success     bool             `json:"success"`
	BatchID     string           `json:"batchId"`
	PurchasedAt time.Time        `json:"purchasedAt"`
	TotalCost   rates.Money      `json:"totalCost"`
	LabelCount  int              `json:"labelCount"`
	Labels      []PurchasedLabel `json:"labels"`
}

// LabelURL is where the label of one row is served.
func LabelURL(batchID, rowID string) string {
	return fmt.Sprintf("/api/shipping/labels/%s/%s", batchID, rowID)
}

// Purchase buys a label for every row. It requires a ship-from street and
// that no row is invalid or lacks a service; if either check fails nothing
// is changed. On success every row gets a tracking number and the batch
// moves to purchased at step 4.
func (s *Service) Purchase(ctx context.Context, batchID string) (*PurchaseResult, error) {
	ctx = logging.WithBatch(ctx, batchID)

	var labels []PurchasedLabel
	b, err := s.withBatch(ctx, batchID, func(b *Batch) error {
		if err := s.checkEditable(ctx, b); err != nil {
			return err
		}
		if b.ShipFrom.Street1 == "" {
			return ErrMissingShipFrom
		}
		if n := b.blockingRows(); n > 0 {
			return newError(KindConflict, CodeInvalidRows,
				"%d rows have validation errors or no shipping selected", n)
		}

		now := s.now()
		labels = make([]PurchasedLabel, len(b.Rows))
		for i := range b.Rows {
			r := &b.Rows[i]
			r.Label = &Label{
				TrackingNumber: s.tracking.next(r.Shipping.ServiceType, now),
				LabelURL:       LabelURL(b.BatchID, r.ID),
				PurchasedAt:    now,
			}
			labels[i] = PurchasedLabel{
				RowNumber:      r.RowNumber,
				TrackingNumber: r.Label.TrackingNumber,
				ServiceType:    r.Shipping.ServiceType,
				Rate:           r.Shipping.Rate,
			}
		}
		b.Status = StatusPurchased
		b.CurrentStep = StepPurchased
		b.PurchasedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &PurchaseResult{
		Success:     true,
		BatchID:     b.BatchID,
		PurchasedAt: *b.PurchasedAt,
		TotalCost:   b.Stats.EstimatedCost,
		LabelCount:  len(labels),
		Labels:      labels,
	}
	log := logging.FromContext(ctx)
	log.Info("batch purchased", "labels", res.LabelCount, "total_cost", res.TotalCost.Format())

	if s.events != nil {
		ev := Event{
			Type:        EventBatchPurchased,
			BatchID:     b.BatchID,
			UserID:      b.UserID,
			LabelCount:  res.LabelCount,
			TotalCost:   res.TotalCost,
			PurchasedAt: res.PurchasedAt,
		}
		if err := s.events.Publish(ctx, ev); err != nil {
			log.Warn("publish purchase event failed", "error", err)
		}
	}
	return res, nil
}

// LabelView is the printable data of one purchased label.
type LabelView struct {
	TrackingNumber string          `json:"trackingNumber"`
	PurchasedAt    time.Time       `json:"purchasedAt"`
	ServiceType    rates.Service   `json:"serviceType"`
	ShipFrom       address.Address `json:"shipFrom"`
	ShipTo         address.Address `json:"shipTo"`
	Package        Package         `json:"package"`
	Rate           *rates.Money    `json:"rate"`
	Barcode        string          `json:"barcode"`
}

// Label returns the label of one purchased row.
func (s *Service) Label(ctx context.Context, batchID, rowID string) (*LabelView, error) {
	b, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	r, err := b.row(rowID)
	if err != nil {
		return nil, err
	}
	if r.Label == nil || r.Label.TrackingNumber == "" {
		return nil, ErrLabelNotBought
	}
	return &LabelView{
		TrackingNumber: r.Label.TrackingNumber,
		PurchasedAt:    r.Label.PurchasedAt,
		ServiceType:    r.Shipping.ServiceType,
		ShipFrom:       b.ShipFrom.Address,
		ShipTo:         r.Recipient,
		Package:        r.Package,
		Rate:           r.Shipping.Rate,
		Barcode:        "*" + r.Label.TrackingNumber + "*",
	}, nil
}

// LabelSheetBatch is the batch header of a label sheet.
type LabelSheetBatch struct {
	BatchID          string          `json:"batchId"`
	OriginalFilename string          `json:"originalFilename"`
	PurchasedAt      *time.Time      `json:"purchasedAt"`
	ShipFrom         address.Address `json:"shipFrom"`
	TotalCost        rates.Money     `json:"totalCost"`
}

// LabelLine is the flattened label of one row, as consumed by renderers
// and manifest exports.
type LabelLine struct {
	RowNumber      int             `json:"rowNumber"`
	TrackingNumber string          `json:"trackingNumber"`
	PurchasedAt    time.Time       `json:"purchasedAt"`
	ServiceType    rates.Service   `json:"serviceType"`
	Rate           *rates.Money    `json:"rate"`
	Recipient      address.Address `json:"recipient"`
	Weight         float64         `json:"weight"`
	Reference      string          `json:"reference"`
}

// LabelSheet is every label of a purchased batch.
type LabelSheet struct {
	Batch  LabelSheetBatch `json:"batch"`
	Labels []LabelLine     `json:"labels"`
}

// Labels returns the label sheet of a purchased batch.
func (s *Service) Labels(ctx context.Context, batchID string) (*LabelSheet, error) {
	b, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPurchased {
		return nil, ErrNotPurchased
	}

	sheet := &LabelSheet{
		Batch: LabelSheetBatch{
			BatchID:          b.BatchID,
			OriginalFilename: b.OriginalFilename,
			PurchasedAt:      b.PurchasedAt,
			ShipFrom:         b.ShipFrom.Address,
			TotalCost:        b.Stats.EstimatedCost,
		},
		Labels: make([]LabelLine, 0, len(b.Rows)),
	}
	for i := range b.Rows {
		r := &b.Rows[i]
		line := LabelLine{
			RowNumber:   r.RowNumber,
			ServiceType: r.Shipping.ServiceType,
			Rate:        r.Shipping.Rate,
			Recipient:   r.Recipient,
			Weight:      r.Package.Weight,
			Reference:   r.Reference,
		}
		if line.Recipient.Country == "" {
			line.Recipient.Country = "US"
		}
		if line.Reference == "" {
			line.Reference = r.SKU
		}
		if r.Label != nil {
			line.TrackingNumber = r.Label.TrackingNumber
			line.PurchasedAt = r.Label.PurchasedAt
		}
		sheet.Labels = append(sheet.Labels, line)
	}
	return sheet, nil
}
