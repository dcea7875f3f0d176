package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/shipbatch/internal/core/columns"
	"github.com/JonMunkholm/shipbatch/internal/core/parse"
	"github.com/JonMunkholm/shipbatch/internal/logging"
	"github.com/xuri/excelize/v2"
)

// Convention is the way an upload encodes recipient addresses.
type Convention string

const (
	// ConventionCombined has one free-text "To" address column.
	ConventionCombined Convention = "combined"
	// ConventionIndividual has one column per address field.
	ConventionIndividual Convention = "individual"
)

// IngestReport describes how an upload was read.
type IngestReport struct {
	Convention   Convention `json:"convention"`
	Records      int        `json:"records"`
	Skipped      int        `json:"skipped"`
	InvalidRows  int        `json:"invalidRows"`
	Unrecognized []string   `json:"unrecognizedColumns"`
}

// zipMagic is the local file header signature that starts every XLSX file.
var zipMagic = []byte("PK\x03\x04")

// Ingest reads a CSV or XLSX upload into a new draft batch. The batch is
// not persisted. Rows that fail local checks are kept and marked invalid;
// rows with no name, street, or city are skipped.
func Ingest(ctx context.Context, data []byte, filename string) (*Batch, IngestReport, error) {
	var report IngestReport
	log := logging.WithFields(ctx, "filename", filename)

	records, err := readRecords(data, filename)
	if err != nil {
		if _, ok := AsError(err); ok {
			return nil, report, err
		}
		log.Error("upload parse failed", "error", err)
		return nil, report, newError(KindInput, CodeCSVParseError, "Failed to parse CSV: %v", err)
	}
	if len(records) < 2 {
		return nil, report, ErrEmptyCSV
	}

	header := columns.NormalizeHeader(records[0])
	body := records[1:]
	report.Records = len(body)
	report.Unrecognized = header.Unmapped

	var build func(columns.Record, int) Row
	switch {
	case header.Has(columns.ToAddress):
		report.Convention = ConventionCombined
		build = buildCombinedRow
	case header.Has(columns.RecipientName), header.Has(columns.RecipientStreet1):
		report.Convention = ConventionIndividual
		build = buildIndividualRow
	default:
		return nil, report, newError(KindInput, CodeInvalidCSVColumns,
			"CSV columns not recognized. Found columns: %s. "+
				"Expected either: (1) 'To' column with full address, or "+
				"(2) Individual columns like: name, street1, city, state, zip, weight",
			strings.Join(foundColumns(records[0]), ", "))
	}
	log.Info("upload format detected",
		"convention", report.Convention,
		"records", report.Records,
		"unrecognized", len(report.Unrecognized),
	)

	rows := make([]Row, 0, len(body))
	for i, raw := range body {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		row := build(header.Record(raw), i+1)
		skip, errs := checkRow(&row)
		if skip {
			report.Skipped++
			log.Debug("skipping empty row", "record", i+1)
			continue
		}
		if len(errs) > 0 {
			markInvalid(&row, errs)
			report.InvalidRows++
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, report, ErrNoValidRows
	}

	now := time.Now().UTC()
	b := &Batch{
		BatchID:          newBatchID(now),
		Status:           StatusDraft,
		CurrentStep:      StepUpload,
		Rows:             rows,
		OriginalFilename: filename,
		UploadedAt:       now,
	}
	if report.Convention == ConventionCombined {
		if from := header.Record(body[0]).Get(columns.FromAddress); from != "" {
			b.ShipFrom = ShipFrom{Address: parse.Address(cleanCell(from))}
		}
	}
	b.renumber()
	b.touch(now)

	log.Info("upload rows processed",
		"rows", len(rows),
		"skipped", report.Skipped,
		"invalid", report.InvalidRows,
	)
	return b, report, nil
}

// readRecords returns every non-empty record of the upload, header first.
// XLSX is detected by extension or by its zip signature; anything else is
// decoded and read as CSV.
func readRecords(data []byte, filename string) ([][]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyCSV
	}

	var (
		records [][]string
		err     error
	)
	if isWorkbook(data, filename) {
		records, err = readWorkbook(data)
	} else {
		var text []byte
		if text, err = decodeUpload(data); err == nil {
			records, err = parseCSV(text)
		}
	}
	if err != nil {
		return nil, err
	}

	out := records[:0]
	for _, r := range records {
		if !isEmptyRow(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// foundColumns returns the non-empty header cells as uploaded.
func foundColumns(header []string) []string {
	out := make([]string, 0, len(header))
	for _, h := range header {
		if h = cleanCell(strings.TrimPrefix(h, "\ufeff")); h != "" {
			out = append(out, h)
		}
	}
	return out
}

func isWorkbook(data []byte, filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return bytes.HasPrefix(data, zipMagic)
}

// readWorkbook returns the rows of the first sheet.
func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyCSV
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// parseCSV reads every record, tolerating ragged rows and stray quotes.
func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
