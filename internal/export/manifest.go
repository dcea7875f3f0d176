// Package export writes the label manifest of a purchased batch as CSV,
// XLSX, or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/shipbatch/internal/core"
)

// Format is a manifest file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ParseFormat maps a query value to a format. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	case "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported manifest format %q, use csv, xlsx, or json", s)
}

// ContentType is the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Filename is the download name of a batch manifest.
func Filename(batchID string, f Format) string {
	return "labels-" + batchID + "." + string(f)
}

// headers are the manifest columns for CSV and XLSX.
var headers = []string{
	"Row", "Tracking Number", "Service", "Rate",
	"Name", "Company", "Street 1", "Street 2", "City", "State", "ZIP", "Country",
	"Weight (oz)", "Reference", "Purchased At",
}

func record(l core.LabelLine) []string {
	rate := ""
	if l.Rate != nil {
		rate = l.Rate.StringFixed(2)
	}
	return []string{
		strconv.Itoa(l.RowNumber),
		l.TrackingNumber,
		string(l.ServiceType),
		rate,
		l.Recipient.Name,
		l.Recipient.Company,
		l.Recipient.Street1,
		l.Recipient.Street2,
		l.Recipient.City,
		l.Recipient.State,
		l.Recipient.Zip,
		l.Recipient.Country,
		strconv.FormatFloat(l.Weight, 'f', -1, 64),
		l.Reference,
		l.PurchasedAt.UTC().Format(time.RFC3339),
	}
}

// Write encodes sheet to w in format f.
func Write(w io.Writer, sheet *core.LabelSheet, f Format) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, sheet)
	case FormatXLSX:
		return WriteXLSX(w, sheet)
	case FormatJSON:
		return WriteJSON(w, sheet)
	}
	return fmt.Errorf("unsupported manifest format %q", f)
}

// WriteCSV writes one header line and one line per label.
func WriteCSV(w io.Writer, sheet *core.LabelSheet) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for _, l := range sheet.Labels {
		if err := writer.Write(record(l)); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteJSON writes the sheet as indented JSON.
func WriteJSON(w io.Writer, sheet *core.LabelSheet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sheet); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

const sheetName = "Labels"

// WriteXLSX writes a workbook with one Labels sheet. Rate and weight cells
// are numeric.
func WriteXLSX(w io.Writer, sheet *core.LabelSheet) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for i, l := range sheet.Labels {
		values := make([]any, len(headers))
		for j, v := range record(l) {
			values[j] = v
		}
		values[0] = l.RowNumber
		if l.Rate != nil {
			values[3] = l.Rate.InexactFloat64()
		}
		values[12] = l.Weight

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", l.RowNumber, err)
		}
	}

	for i := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 16)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
