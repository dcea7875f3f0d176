package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/shipbatch/internal/core"
)

func newBatch(id string, status core.BatchStatus, uploaded time.Time) *core.Batch {
	return &core.Batch{
		BatchID:        id,
		Status:         status,
		CurrentStep:    core.StepUpload,
		UploadedAt:     uploaded,
		LastModifiedAt: uploaded,
		Rows:           []core.Row{{ID: "r1", RowNumber: 1}},
	}
}

func TestStore_GetBatchReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.CreateBatch(ctx, newBatch("B1", core.StatusDraft, time.Now())); err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}

	b, _ := s.GetBatch(ctx, "B1")
	b.Rows[0].Recipient.Name = "changed"
	b.Status = core.StatusCancelled

	again, _ := s.GetBatch(ctx, "B1")
	if again.Rows[0].Recipient.Name != "" || again.Status != core.StatusDraft {
		t.Errorf("unsaved changes leaked into the store: %+v", again)
	}
}

func TestStore_GetBatchKeepsEmptyMessages(t *testing.T) {
	s := New()
	ctx := context.Background()
	b := newBatch("B1", core.StatusDraft, time.Now())
	b.Rows[0].Validation.Messages = []string{}
	_ = s.CreateBatch(ctx, b)

	got, _ := s.GetBatch(ctx, "B1")
	if got.Rows[0].Validation.Messages == nil {
		t.Fatal("Messages = nil, want empty slice")
	}
	out, err := json.Marshal(got.Rows[0].Validation)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(out), `"messages":[]`) {
		t.Errorf("validation JSON = %s, want \"messages\":[]", out)
	}
}

func TestStore_SaveBatchVersion(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.CreateBatch(ctx, newBatch("B1", core.StatusDraft, time.Now()))

	first, _ := s.GetBatch(ctx, "B1")
	second, _ := s.GetBatch(ctx, "B1")

	if err := s.SaveBatch(ctx, first); err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}
	if first.Version != 2 {
		t.Errorf("Version = %d, want 2", first.Version)
	}
	if err := s.SaveBatch(ctx, second); !errors.Is(err, core.ErrVersionConflict) {
		t.Errorf("stale SaveBatch() error = %v, want %v", err, core.ErrVersionConflict)
	}
	if err := s.SaveBatch(ctx, newBatch("missing", core.StatusDraft, time.Now())); !errors.Is(err, core.ErrBatchNotFound) {
		t.Errorf("SaveBatch(missing) error = %v, want %v", err, core.ErrBatchNotFound)
	}
}

func TestStore_ListBatches(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		status := core.StatusDraft
		if i%2 == 1 {
			status = core.StatusPurchased
		}
		_ = s.CreateBatch(ctx, newBatch(fmt.Sprintf("B%d", i), status, base.Add(time.Duration(i)*time.Hour)))
	}

	tests := []struct {
		name      string
		opts      core.ListOptions
		wantIDs   []string
		wantTotal int
	}{
		{"newest first", core.ListOptions{Page: 1, Limit: 2}, []string{"B4", "B3"}, 5},
		{"second page", core.ListOptions{Page: 2, Limit: 2}, []string{"B2", "B1"}, 5},
		{"past the end", core.ListOptions{Page: 9, Limit: 2}, []string{}, 5},
		{"status filter", core.ListOptions{Page: 1, Limit: 10, Status: core.StatusPurchased}, []string{"B3", "B1"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := s.ListBatches(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListBatches() error = %v", err)
			}
			ids := make([]string, len(got))
			for i, b := range got {
				ids[i] = b.BatchID
			}
			if diff := cmp.Diff(tt.wantIDs, ids); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
		})
	}
}

func TestStore_DeleteStaleBatches(t *testing.T) {
	s := New()
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	_ = s.CreateBatch(ctx, newBatch("old-draft", core.StatusDraft, old))
	_ = s.CreateBatch(ctx, newBatch("old-purchased", core.StatusPurchased, old))
	_ = s.CreateBatch(ctx, newBatch("new-draft", core.StatusDraft, time.Now()))

	n, err := s.DeleteStaleBatches(ctx, []core.BatchStatus{core.StatusDraft, core.StatusCancelled}, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteStaleBatches() error = %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if _, err := s.GetBatch(ctx, "old-draft"); !errors.Is(err, core.ErrBatchNotFound) {
		t.Errorf("old draft still present, err = %v", err)
	}
	for _, id := range []string{"old-purchased", "new-draft"} {
		if _, err := s.GetBatch(ctx, id); err != nil {
			t.Errorf("GetBatch(%s) error = %v", id, err)
		}
	}
}

func TestStore_AddressDefaults(t *testing.T) {
	s := New()
	ctx := context.Background()
	add := func(id, user string, typ core.AddressType, isDefault bool) {
		t.Helper()
		err := s.CreateAddress(ctx, &core.SavedAddress{ID: id, UserID: user, Type: typ, Label: id, IsDefault: isDefault})
		if err != nil {
			t.Fatalf("CreateAddress(%s) error = %v", id, err)
		}
	}
	add("a", "u1", core.AddressShipFrom, true)
	add("b", "u1", core.AddressShipFrom, true)
	add("c", "u1", core.AddressShipTo, true)
	add("d", "u2", core.AddressShipFrom, true)

	if _, err := s.SetDefaultAddress(ctx, "a"); err != nil {
		t.Fatalf("SetDefaultAddress() error = %v", err)
	}

	want := map[string]bool{"a": true, "b": false, "c": true, "d": true}
	for id, wantDefault := range want {
		got, _ := s.GetAddress(ctx, id)
		if got.IsDefault != wantDefault {
			t.Errorf("%s.IsDefault = %v, want %v", id, got.IsDefault, wantDefault)
		}
	}

	def, err := s.DefaultAddress(ctx, "u1", core.AddressShipFrom)
	if err != nil || def.ID != "a" {
		t.Errorf("DefaultAddress() = %v, %v, want a", def, err)
	}
	if _, err := s.SetDefaultAddress(ctx, "missing"); !errors.Is(err, core.ErrAddressNotFound) {
		t.Errorf("SetDefaultAddress(missing) error = %v, want %v", err, core.ErrAddressNotFound)
	}
}

func TestStore_ListAddresses(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, a := range []core.SavedAddress{
		{ID: "1", UserID: "u1", Type: core.AddressShipFrom, Label: "Zeta"},
		{ID: "2", UserID: "u1", Type: core.AddressShipFrom, Label: "Alpha"},
		{ID: "3", UserID: "u1", Type: core.AddressShipFrom, Label: "Mid", IsDefault: true},
		{ID: "4", UserID: "u1", Type: core.AddressShipTo, Label: "Customer"},
		{ID: "5", UserID: "u2", Type: core.AddressShipFrom, Label: "Other"},
	} {
		a := a
		_ = s.CreateAddress(ctx, &a)
	}

	tests := []struct {
		name   string
		filter core.SavedFilter
		want   []string
	}{
		{"default first then label", core.SavedFilter{UserID: "u1", Type: core.AddressShipFrom}, []string{"3", "2", "1"}},
		{"search label", core.SavedFilter{UserID: "u1", Search: "alp"}, []string{"2"}},
		{"other owner", core.SavedFilter{UserID: "u2"}, []string{"5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListAddresses(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListAddresses() error = %v", err)
			}
			ids := make([]string, len(got))
			for i, a := range got {
				ids[i] = a.ID
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_PackageDefaults(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.CreatePackage(ctx, &core.SavedPackage{ID: "p1", UserID: "u1", Label: "Small", IsDefault: true})
	_ = s.CreatePackage(ctx, &core.SavedPackage{ID: "p2", UserID: "u1", Label: "Large"})

	if _, err := s.SetDefaultPackage(ctx, "p2"); err != nil {
		t.Fatalf("SetDefaultPackage() error = %v", err)
	}

	list, _ := s.ListPackages(ctx, core.SavedFilter{UserID: "u1"})
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	if list[0].ID != "p2" || !list[0].IsDefault || list[1].IsDefault {
		t.Errorf("list = %+v, want p2 as the only default, listed first", list)
	}
	if err := s.DeletePackage(ctx, "p1"); err != nil {
		t.Errorf("DeletePackage() error = %v", err)
	}
	if _, err := s.GetPackage(ctx, "p1"); !errors.Is(err, core.ErrPackageNotFound) {
		t.Errorf("GetPackage(deleted) error = %v, want %v", err, core.ErrPackageNotFound)
	}
}
