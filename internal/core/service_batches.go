package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/shipbatch/internal/address"
	"github.com/JonMunkholm/shipbatch/internal/core/parse"
	"github.com/JonMunkholm/shipbatch/internal/logging"
	"github.com/JonMunkholm/shipbatch/internal/rates"
)

// Listing defaults.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// CreateBatch ingests an upload and persists the resulting draft batch.
// Ingests are bounded by the limiter and by the configured upload timeout.
func (s *Service) CreateBatch(ctx context.Context, data []byte, filename string) (*Batch, IngestReport, error) {
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, IngestReport{}, newError(KindInput, CodeFileTooLarge,
			"File exceeds the %d byte upload limit", s.maxFileSize)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, IngestReport{}, err
	}
	defer s.limiter.Release()

	if s.ingestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ingestTimeout)
		defer cancel()
	}

	b, report, err := Ingest(ctx, data, filename)
	if err != nil {
		return nil, report, err
	}
	b.UserID = UserIDFromContext(ctx)

	if err := s.store.CreateBatch(ctx, b); err != nil {
		return nil, report, fmt.Errorf("create batch: %w", err)
	}

	logging.WithFields(logging.WithBatch(ctx, b.BatchID),
		"rows", b.Stats.TotalRows,
		"invalid", b.Stats.InvalidRows,
		"convention", report.Convention,
	).Info("batch created")
	return b, report, nil
}

// GetBatch returns a batch with its rows.
func (s *Service) GetBatch(ctx context.Context, batchID string) (*Batch, error) {
	b, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, b.UserID) {
		return nil, ErrBatchNotFound
	}
	return b, nil
}

// visible reports whether the caller may see a record owned by owner.
// Records without an owner, and callers without an identity, see all.
func visible(ctx context.Context, owner string) bool {
	caller := UserIDFromContext(ctx)
	return caller == "" || owner == "" || caller == owner
}

// ListBatches returns one page of batch summaries, newest first.
func (s *Service) ListBatches(ctx context.Context, opts ListOptions) (*BatchList, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = DefaultPageSize
	}
	if opts.Limit > MaxPageSize {
		opts.Limit = MaxPageSize
	}
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, newError(KindInput, CodeValidationError, "Unknown batch status %q", opts.Status)
	}
	if opts.UserID == "" {
		opts.UserID = UserIDFromContext(ctx)
	}

	batches, total, err := s.store.ListBatches(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	if batches == nil {
		batches = []BatchSummary{}
	}
	return &BatchList{
		Batches: batches,
		Pagination: Pagination{
			Page:  opts.Page,
			Limit: opts.Limit,
			Total: total,
			Pages: (total + opts.Limit - 1) / opts.Limit,
		},
	}, nil
}

// RecipientPatch holds the recipient fields a row update may change.
// Nil fields are left as they are.
type RecipientPatch struct {
	Name    *string `json:"name"`
	Company *string `json:"company"`
	Street1 *string `json:"street1"`
	Street2 *string `json:"street2"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	Zip     *string `json:"zip"`
	Country *string `json:"country"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
}

// PackagePatch holds the package fields a row update may change. A weight
// given with weightUnit "lb" is converted to ounces.
type PackagePatch struct {
	Weight        *float64 `json:"weight"`
	WeightUnit    *string  `json:"weightUnit"`
	Length        *float64 `json:"length"`
	Width         *float64 `json:"width"`
	Height        *float64 `json:"height"`
	DimensionUnit *string  `json:"dimensionUnit"`
}

// RowUpdate is a partial update of one row.
type RowUpdate struct {
	Recipient *RecipientPatch `json:"recipient"`
	Package   *PackagePatch   `json:"package"`
	Reference *string         `json:"reference"`
	SKU       *string         `json:"sku"`
	Notes     *string         `json:"notes"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func (p *RecipientPatch) apply(a *address.Address) {
	setString(&a.Name, p.Name)
	setString(&a.Company, p.Company)
	setString(&a.Street1, p.Street1)
	setString(&a.Street2, p.Street2)
	setString(&a.City, p.City)
	setString(&a.State, p.State)
	setString(&a.Zip, p.Zip)
	setString(&a.Country, p.Country)
	setString(&a.Email, p.Email)
	a.State = parse.NormalizeUsState(a.State)
	if a.Country == "" {
		a.Country = "US"
	}
	if p.Phone != nil {
		a.Phone = parse.Phone(*p.Phone, a.Country)
	}
}

func (p *PackagePatch) apply(pkg *Package) error {
	if p.WeightUnit != nil {
		unit := strings.ToLower(strings.TrimSpace(*p.WeightUnit))
		if unit != "oz" && unit != "lb" {
			return newError(KindInput, CodeValidationError, "weightUnit must be oz or lb")
		}
		pkg.WeightUnit = unit
	}
	if p.Weight != nil {
		if *p.Weight <= 0 {
			return newError(KindInput, CodeValidationError, "Weight must be positive")
		}
		pkg.Weight = rates.NormalizeWeight(*p.Weight, pkg.WeightUnit)
	}
	if p.Length != nil {
		pkg.Length = parse.PositivePtr(*p.Length)
	}
	if p.Width != nil {
		pkg.Width = parse.PositivePtr(*p.Width)
	}
	if p.Height != nil {
		pkg.Height = parse.PositivePtr(*p.Height)
	}
	if p.DimensionUnit != nil {
		unit := strings.ToLower(strings.TrimSpace(*p.DimensionUnit))
		if unit != "in" && unit != "cm" {
			return newError(KindInput, CodeValidationError, "dimensionUnit must be in or cm")
		}
		pkg.DimensionUnit = unit
	}
	return nil
}

// UpdateRow merges u into a row and resets its validation and shipping.
func (s *Service) UpdateRow(ctx context.Context, batchID, rowID string, u RowUpdate) (*Row, error) {
	var updated Row
	_, err := s.withBatch(ctx, batchID, func(b *Batch) error {
		if err := s.checkEditable(ctx, b); err != nil {
			return err
		}
		r, err := b.row(rowID)
		if err != nil {
			return err
		}
		if u.Recipient != nil {
			u.Recipient.apply(&r.Recipient)
		}
		if u.Package != nil {
			if err := u.Package.apply(&r.Package); err != nil {
				return err
			}
		}
		setString(&r.Reference, u.Reference)
		setString(&r.SKU, u.SKU)
		setString(&r.Notes, u.Notes)
		r.resetResults()
		updated = *r
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.WithFields(logging.WithBatch(ctx, batchID), "row_id", rowID).Info("row updated")
	return &updated, nil
}

// DeleteRow removes a row and renumbers the rest.
func (s *Service) DeleteRow(ctx context.Context, batchID, rowID string) error {
	_, err := s.withBatch(ctx, batchID, func(b *Batch) error {
		if err := s.checkEditable(ctx, b); err != nil {
			return err
		}
		for i := range b.Rows {
			if b.Rows[i].ID == rowID {
				b.Rows = append(b.Rows[:i], b.Rows[i+1:]...)
				b.renumber()
				return nil
			}
		}
		return ErrRowNotFound
	})
	if err != nil {
		return err
	}
	logging.WithFields(logging.WithBatch(ctx, batchID), "row_id", rowID).Info("row deleted")
	return nil
}

// UpdateStep moves a batch to step 1, 2, or 3 and the matching status.
// Step 4 is reached only by Purchase.
func (s *Service) UpdateStep(ctx context.Context, batchID string, step int) (*Batch, error) {
	status, ok := stepStatus[step]
	if !ok {
		return nil, ErrInvalidStep
	}
	b, err := s.withBatch(ctx, batchID, func(b *Batch) error {
		if err := s.checkEditable(ctx, b); err != nil {
			return err
		}
		b.CurrentStep = step
		b.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.WithFields(logging.WithBatch(ctx, batchID), "step", step).Info("batch step updated")
	return b, nil
}

// ShipFromInput sets a batch's origin either from a saved address or from
// an explicit address. SavedAddressID wins when both are given.
type ShipFromInput struct {
	SavedAddressID string           `json:"savedAddressId"`
	Address        *address.Address `json:"address"`
}

// SetShipFrom sets the origin address of a batch.
func (s *Service) SetShipFrom(ctx context.Context, batchID string, in ShipFromInput) (*Batch, error) {
	var from ShipFrom
	switch {
	case in.SavedAddressID != "":
		saved, err := s.GetSavedAddress(ctx, in.SavedAddressID)
		if err != nil {
			return nil, err
		}
		from = ShipFrom{Address: saved.Address, SavedAddressID: saved.ID}
	case in.Address != nil:
		from = ShipFrom{Address: *in.Address}
		from.State = parse.NormalizeUsState(from.State)
		if from.Country == "" {
			from.Country = "US"
		}
	default:
		return nil, newError(KindInput, CodeValidationError, "Ship-from address or savedAddressId is required")
	}

	b, err := s.withBatch(ctx, batchID, func(b *Batch) error {
		if err := s.checkEditable(ctx, b); err != nil {
			return err
		}
		b.ShipFrom = from
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.FromContext(logging.WithBatch(ctx, batchID)).Info("ship-from address set")
	return b, nil
}

// Cancel moves a pre-purchase batch to cancelled. Cancelling a cancelled
// batch is a no-op.
func (s *Service) Cancel(ctx context.Context, batchID string) (*Batch, error) {
	b, err := s.withBatch(ctx, batchID, func(b *Batch) error {
		if !visible(ctx, b.UserID) {
			return ErrBatchNotFound
		}
		if b.Status == StatusPurchased {
			return ErrBatchPurchased
		}
		b.Status = StatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.FromContext(logging.WithBatch(ctx, batchID)).Info("batch cancelled")
	return b, nil
}

// DeleteBatch removes a batch that has not been purchased.
func (s *Service) DeleteBatch(ctx context.Context, batchID string) error {
	unlock, err := s.lockBatch(ctx, batchID)
	if err != nil {
		return err
	}
	defer unlock()

	b, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if b.Status == StatusPurchased {
		return newError(KindConflict, CodeBatchPurchased, "Cannot delete a purchased batch")
	}
	if err := s.store.DeleteBatch(ctx, batchID); err != nil {
		return fmt.Errorf("delete batch %s: %w", batchID, err)
	}
	logging.FromContext(logging.WithBatch(ctx, batchID)).Info("batch deleted")
	return nil
}

// Stats recomputes and saves the derived statistics of a batch.
func (s *Service) Stats(ctx context.Context, batchID string) (Stats, error) {
	b, err := s.withBatch(ctx, batchID, func(b *Batch) error {
		if !visible(ctx, b.UserID) {
			return ErrBatchNotFound
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return b.Stats, nil
}

// checkEditable rejects changes to batches the caller cannot see or that
// are purchased or cancelled.
func (s *Service) checkEditable(ctx context.Context, b *Batch) error {
	if !visible(ctx, b.UserID) {
		return ErrBatchNotFound
	}
	return b.editable()
}
