// Package memory is an in-process core.Store. It is the default store and
// the one used by tests. Every read returns a copy, so callers never share
// state with the store.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/shipbatch/internal/core"
)

// Store holds batches and saved records in maps guarded by one mutex.
type Store struct {
	mu        sync.RWMutex
	batches   map[string]*core.Batch
	addresses map[string]*core.SavedAddress
	packages  map[string]*core.SavedPackage
}

var _ core.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		batches:   make(map[string]*core.Batch),
		addresses: make(map[string]*core.SavedAddress),
		packages:  make(map[string]*core.SavedPackage),
	}
}

// ----------------------------------------------------------------------------
// Batches
// ----------------------------------------------------------------------------

func (s *Store) CreateBatch(_ context.Context, b *core.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.Version = 1
	s.batches[b.BatchID] = b.Clone()
	return nil
}

func (s *Store) GetBatch(_ context.Context, batchID string) (*core.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[batchID]
	if !ok {
		return nil, core.ErrBatchNotFound
	}
	return b.Clone(), nil
}

func (s *Store) SaveBatch(_ context.Context, b *core.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.batches[b.BatchID]
	if !ok {
		return core.ErrBatchNotFound
	}
	if cur.Version != b.Version {
		return core.ErrVersionConflict
	}
	b.Version++
	s.batches[b.BatchID] = b.Clone()
	return nil
}

func (s *Store) DeleteBatch(_ context.Context, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[batchID]; !ok {
		return core.ErrBatchNotFound
	}
	delete(s.batches, batchID)
	return nil
}

func (s *Store) ListBatches(_ context.Context, opts core.ListOptions) ([]core.BatchSummary, int, error) {
	s.mu.RLock()
	matched := make([]core.BatchSummary, 0, len(s.batches))
	for _, b := range s.batches {
		if opts.Status != "" && b.Status != opts.Status {
			continue
		}
		if opts.UserID != "" && b.UserID != "" && b.UserID != opts.UserID {
			continue
		}
		matched = append(matched, b.Summary())
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b core.BatchSummary) int {
		if c := b.UploadedAt.Compare(a.UploadedAt); c != 0 {
			return c
		}
		return strings.Compare(a.BatchID, b.BatchID)
	})

	total := len(matched)
	start := (opts.Page - 1) * opts.Limit
	if start >= total {
		return []core.BatchSummary{}, total, nil
	}
	end := min(start+opts.Limit, total)
	return matched[start:end], total, nil
}

func (s *Store) DeleteStaleBatches(_ context.Context, statuses []core.BatchStatus, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, b := range s.batches {
		if slices.Contains(statuses, b.Status) && b.LastModifiedAt.Before(cutoff) {
			delete(s.batches, id)
			n++
		}
	}
	return n, nil
}

// ----------------------------------------------------------------------------
// Saved addresses
// ----------------------------------------------------------------------------

func cloneAddress(a *core.SavedAddress) *core.SavedAddress {
	c := *a
	if a.ValidatedAddress != nil {
		v := *a.ValidatedAddress
		c.ValidatedAddress = &v
	}
	return &c
}

// clearAddressDefaults unsets the default of every other address sharing
// a's type and owner. Callers hold s.mu.
func (s *Store) clearAddressDefaults(a *core.SavedAddress) {
	for id, other := range s.addresses {
		if id != a.ID && other.Type == a.Type && other.UserID == a.UserID {
			other.IsDefault = false
		}
	}
}

func (s *Store) CreateAddress(_ context.Context, a *core.SavedAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.IsDefault {
		s.clearAddressDefaults(a)
	}
	s.addresses[a.ID] = cloneAddress(a)
	return nil
}

func (s *Store) GetAddress(_ context.Context, id string) (*core.SavedAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.addresses[id]
	if !ok {
		return nil, core.ErrAddressNotFound
	}
	return cloneAddress(a), nil
}

func (s *Store) UpdateAddress(_ context.Context, a *core.SavedAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.addresses[a.ID]; !ok {
		return core.ErrAddressNotFound
	}
	if a.IsDefault {
		s.clearAddressDefaults(a)
	}
	s.addresses[a.ID] = cloneAddress(a)
	return nil
}

func (s *Store) DeleteAddress(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.addresses[id]; !ok {
		return core.ErrAddressNotFound
	}
	delete(s.addresses, id)
	return nil
}

func (s *Store) ListAddresses(_ context.Context, f core.SavedFilter) ([]core.SavedAddress, error) {
	s.mu.RLock()
	out := make([]core.SavedAddress, 0, len(s.addresses))
	search := strings.ToLower(f.Search)
	for _, a := range s.addresses {
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if !owned(f.UserID, a.UserID) {
			continue
		}
		if search != "" && !containsAny(search, a.Label, a.Name, a.Company, a.City) {
			continue
		}
		out = append(out, *cloneAddress(a))
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b core.SavedAddress) int {
		return byDefaultThenLabel(a.IsDefault, b.IsDefault, a.Label, b.Label)
	})
	return out, nil
}

func (s *Store) SetDefaultAddress(_ context.Context, id string) (*core.SavedAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.addresses[id]
	if !ok {
		return nil, core.ErrAddressNotFound
	}
	s.clearAddressDefaults(a)
	a.IsDefault = true
	return cloneAddress(a), nil
}

func (s *Store) DefaultAddress(_ context.Context, userID string, t core.AddressType) (*core.SavedAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.addresses {
		if a.IsDefault && a.Type == t && a.UserID == userID {
			return cloneAddress(a), nil
		}
	}
	return nil, core.ErrAddressNotFound
}

// ----------------------------------------------------------------------------
// Saved packages
// ----------------------------------------------------------------------------

func clonePackage(p *core.SavedPackage) *core.SavedPackage {
	c := *p
	c.Length = clonePtr(p.Length)
	c.Width = clonePtr(p.Width)
	c.Height = clonePtr(p.Height)
	return &c
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (s *Store) clearPackageDefaults(p *core.SavedPackage) {
	for id, other := range s.packages {
		if id != p.ID && other.UserID == p.UserID {
			other.IsDefault = false
		}
	}
}

func (s *Store) CreatePackage(_ context.Context, p *core.SavedPackage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.IsDefault {
		s.clearPackageDefaults(p)
	}
	s.packages[p.ID] = clonePackage(p)
	return nil
}

func (s *Store) GetPackage(_ context.Context, id string) (*core.SavedPackage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.packages[id]
	if !ok {
		return nil, core.ErrPackageNotFound
	}
	return clonePackage(p), nil
}

func (s *Store) UpdatePackage(_ context.Context, p *core.SavedPackage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.packages[p.ID]; !ok {
		return core.ErrPackageNotFound
	}
	if p.IsDefault {
		s.clearPackageDefaults(p)
	}
	s.packages[p.ID] = clonePackage(p)
	return nil
}

func (s *Store) DeletePackage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.packages[id]; !ok {
		return core.ErrPackageNotFound
	}
	delete(s.packages, id)
	return nil
}

func (s *Store) ListPackages(_ context.Context, f core.SavedFilter) ([]core.SavedPackage, error) {
	s.mu.RLock()
	out := make([]core.SavedPackage, 0, len(s.packages))
	for _, p := range s.packages {
		if owned(f.UserID, p.UserID) {
			out = append(out, *clonePackage(p))
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b core.SavedPackage) int {
		return byDefaultThenLabel(a.IsDefault, b.IsDefault, a.Label, b.Label)
	})
	return out, nil
}

func (s *Store) SetDefaultPackage(_ context.Context, id string) (*core.SavedPackage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packages[id]
	if !ok {
		return nil, core.ErrPackageNotFound
	}
	s.clearPackageDefaults(p)
	p.IsDefault = true
	return clonePackage(p), nil
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// owned reports whether a record owned by owner is listed for caller.
// Ownerless records are listed for everyone.
func owned(caller, owner string) bool {
	return caller == "" || owner == "" || caller == owner
}

func containsAny(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func byDefaultThenLabel(aDefault, bDefault bool, aLabel, bLabel string) int {
	if aDefault != bDefault {
		if aDefault {
			return -1
		}
		return 1
	}
	return cmp.Compare(aLabel, bLabel)
}
