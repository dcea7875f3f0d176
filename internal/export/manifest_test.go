package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/shipbatch/internal/address"
	"github.com/JonMunkholm/shipbatch/internal/core"
	"github.com/JonMunkholm/shipbatch/internal/rates"
)

func testSheet() *core.LabelSheet {
	rate := rates.MustMoney("3.00")
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &core.LabelSheet{
		Batch: core.LabelSheetBatch{BatchID: "BATCH-1", OriginalFilename: "orders.csv", PurchasedAt: &at},
		Labels: []core.LabelLine{{
			RowNumber:      1,
			TrackingNumber: "GNDABC123",
			PurchasedAt:    at,
			ServiceType:    rates.Ground,
			Rate:           &rate,
			Recipient: address.Address{
				Name: "Jane Doe", Street1: "1 Main St", City: "Austin", State: "TX", Zip: "78701", Country: "US",
			},
			Weight:    12,
			Reference: "SKU-9",
		}},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{"xlsx", FormatXLSX, false},
		{"excel", FormatXLSX, false},
		{"json", FormatJSON, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testSheet()); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	want := []string{
		"1", "GNDABC123", "ground", "3.00",
		"Jane Doe", "", "1 Main St", "", "Austin", "TX", "78701", "US",
		"12", "SKU-9", "2025-06-01T12:00:00Z",
	}
	if diff := cmp.Diff(want, records[1]); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, testSheet()); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var got struct {
		Batch  struct{ BatchID string }
		Labels []struct {
			TrackingNumber string
			Rate           float64
		}
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.Batch.BatchID != "BATCH-1" || len(got.Labels) != 1 || got.Labels[0].Rate != 3 {
		t.Errorf("decoded = %+v", got)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, testSheet()); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("output is not a workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0][1] != "Tracking Number" || rows[1][1] != "GNDABC123" || rows[1][3] != "3" {
		t.Errorf("rows = %v", rows)
	}
}
