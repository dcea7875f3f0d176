package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/shipbatch/internal/address"
	"github.com/JonMunkholm/shipbatch/internal/config"
	"github.com/JonMunkholm/shipbatch/internal/lock"
	"github.com/JonMunkholm/shipbatch/internal/rates"
)

// BatchStore persists batches. GetBatch returns a private copy; SaveBatch
// fails with ErrVersionConflict unless b.Version matches the stored version,
// and increments b.Version on success.
type BatchStore interface {
	CreateBatch(ctx context.Context, b *Batch) error
	GetBatch(ctx context.Context, batchID string) (*Batch, error)
	SaveBatch(ctx context.Context, b *Batch) error
	DeleteBatch(ctx context.Context, batchID string) error
	ListBatches(ctx context.Context, opts ListOptions) ([]BatchSummary, int, error)
	// DeleteStaleBatches removes batches in one of statuses last modified
	// before cutoff.
	DeleteStaleBatches(ctx context.Context, statuses []BatchStatus, cutoff time.Time) (int64, error)
}

// AddressStore persists saved addresses. SetDefaultAddress clears the other
// defaults of the same type and owner and sets the new one atomically;
// CreateAddress and UpdateAddress do the same for an address with IsDefault
// set. GetAddress fails with ErrAddressNotFound.
type AddressStore interface {
	CreateAddress(ctx context.Context, a *SavedAddress) error
	GetAddress(ctx context.Context, id string) (*SavedAddress, error)
	UpdateAddress(ctx context.Context, a *SavedAddress) error
	DeleteAddress(ctx context.Context, id string) error
	ListAddresses(ctx context.Context, f SavedFilter) ([]SavedAddress, error)
	SetDefaultAddress(ctx context.Context, id string) (*SavedAddress, error)
	DefaultAddress(ctx context.Context, userID string, t AddressType) (*SavedAddress, error)
}

// PackageStore persists saved packages with the same default semantics as
// AddressStore, scoped to the owner. GetPackage fails with
// ErrPackageNotFound.
type PackageStore interface {
	CreatePackage(ctx context.Context, p *SavedPackage) error
	GetPackage(ctx context.Context, id string) (*SavedPackage, error)
	UpdatePackage(ctx context.Context, p *SavedPackage) error
	DeletePackage(ctx context.Context, id string) error
	ListPackages(ctx context.Context, f SavedFilter) ([]SavedPackage, error)
	SetDefaultPackage(ctx context.Context, id string) (*SavedPackage, error)
}

// Store is everything the service persists.
type Store interface {
	BatchStore
	AddressStore
	PackageStore
}

// Locker provides per-batch mutual exclusion.
type Locker interface {
	Lock(ctx context.Context, key string) (lock.Unlock, error)
}

// AddressValidator validates one address. It never fails; problems are
// reported in the result.
type AddressValidator interface {
	Validate(ctx context.Context, a address.Address) address.Result
}

// EventBatchPurchased is published after a batch is purchased.
const EventBatchPurchased = "batch.purchased"

// Event is a batch lifecycle notification.
type Event struct {
	Type        string      `json:"type"`
	BatchID     string      `json:"batchId"`
	UserID      string      `json:"userId,omitempty"`
	LabelCount  int         `json:"labelCount"`
	TotalCost   rates.Money `json:"totalCost"`
	PurchasedAt time.Time   `json:"purchasedAt"`
}

// Publisher delivers events. Delivery failures are logged by the caller and
// never undo the operation that produced the event.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Deps are the collaborators of a Service. Locker defaults to an in-process
// keyed mutex; Events may be nil.
type Deps struct {
	Store     Store
	Validator AddressValidator
	Locker    Locker
	Events    Publisher
}

// Service provides the batch workflow: ingest, row edits, address
// validation, shipping selection, purchase, and saved records.
type Service struct {
	store     Store
	validator AddressValidator
	locker    Locker
	events    Publisher
	limiter   *IngestLimiter
	tracking  trackingIssuer

	workers       int
	maxFileSize   int64
	ingestTimeout time.Duration

	now func() time.Time
}

// NewService creates a Service from its collaborators and configuration.
func NewService(deps Deps, cfg *config.Config) *Service {
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}
	workers := cfg.Address.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Service{
		store:         deps.Store,
		validator:     deps.Validator,
		locker:        locker,
		events:        deps.Events,
		limiter:       NewIngestLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		workers:       workers,
		maxFileSize:   cfg.Upload.MaxFileSize,
		ingestTimeout: cfg.Upload.Timeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Limiter exposes the ingest limiter for health reporting and shutdown.
func (s *Service) Limiter() *IngestLimiter {
	return s.limiter
}

// MaxFileSize is the upload size limit in bytes, 0 for none.
func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

// lockBatch takes the batch lock, translating lock timeouts to
// ErrBatchLocked.
func (s *Service) lockBatch(ctx context.Context, batchID string) (lock.Unlock, error) {
	unlock, err := s.locker.Lock(ctx, "batch:"+batchID)
	if errors.Is(err, lock.ErrNotObtained) {
		return nil, ErrBatchLocked
	}
	if err != nil {
		return nil, fmt.Errorf("lock batch %s: %w", batchID, err)
	}
	return unlock, nil
}

// withBatch loads a batch under its lock, applies fn, recomputes derived
// fields, and saves. If fn fails nothing is saved.
func (s *Service) withBatch(ctx context.Context, batchID string, fn func(b *Batch) error) (*Batch, error) {
	unlock, err := s.lockBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	b.touch(s.now())
	if err := s.store.SaveBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("save batch %s: %w", batchID, err)
	}
	return b, nil
}
