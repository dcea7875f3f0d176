package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/shipbatch/internal/config"
	"github.com/JonMunkholm/shipbatch/internal/core"
)

// openTestStore connects to TEST_DATABASE_URL, skipping the test when it
// is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, config.StoreConfig{URL: url, MaxConns: 4, MinConns: 0})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return s
}

func TestStore_SaveBatchVersionConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	b := &core.Batch{
		BatchID:        "BATCH-TEST-" + uuid.NewString(),
		Status:         core.StatusDraft,
		CurrentStep:    core.StepUpload,
		UploadedAt:     now,
		LastModifiedAt: now,
	}
	if err := s.CreateBatch(ctx, b); err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	t.Cleanup(func() { _ = s.DeleteBatch(ctx, b.BatchID) })

	first, err := s.GetBatch(ctx, b.BatchID)
	if err != nil {
		t.Fatalf("GetBatch() error = %v", err)
	}
	second, _ := s.GetBatch(ctx, b.BatchID)

	first.Status = core.StatusValidated
	if err := s.SaveBatch(ctx, first); err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}
	if first.Version != 2 {
		t.Errorf("Version = %d, want 2", first.Version)
	}

	second.Status = core.StatusCancelled
	if err := s.SaveBatch(ctx, second); !errors.Is(err, core.ErrVersionConflict) {
		t.Errorf("stale SaveBatch() error = %v, want %v", err, core.ErrVersionConflict)
	}

	got, _ := s.GetBatch(ctx, b.BatchID)
	if got.Status != core.StatusValidated {
		t.Errorf("Status = %q, want %q", got.Status, core.StatusValidated)
	}
}

func TestStore_SetDefaultAddressLeavesOneDefault(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	user := "user-" + uuid.NewString()
	now := time.Now().UTC()

	ids := make([]string, 3)
	for i := range ids {
		a := &core.SavedAddress{
			ID:        uuid.NewString(),
			UserID:    user,
			Type:      core.AddressShipFrom,
			Label:     "Warehouse " + string(rune('A'+i)),
			IsDefault: true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.CreateAddress(ctx, a); err != nil {
			t.Fatalf("CreateAddress() error = %v", err)
		}
		ids[i] = a.ID
		t.Cleanup(func() { _ = s.DeleteAddress(ctx, a.ID) })
	}

	if _, err := s.SetDefaultAddress(ctx, ids[1]); err != nil {
		t.Fatalf("SetDefaultAddress() error = %v", err)
	}

	list, err := s.ListAddresses(ctx, core.SavedFilter{UserID: user})
	if err != nil {
		t.Fatalf("ListAddresses() error = %v", err)
	}
	defaults := 0
	for _, a := range list {
		if a.IsDefault {
			defaults++
			if a.ID != ids[1] {
				t.Errorf("default = %s, want %s", a.ID, ids[1])
			}
		}
	}
	if defaults != 1 {
		t.Errorf("defaults = %d, want 1", defaults)
	}
}
