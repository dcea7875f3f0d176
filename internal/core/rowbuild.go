package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JonMunkholm/shipbatch/internal/address"
	"github.com/JonMunkholm/shipbatch/internal/core/columns"
	"github.com/JonMunkholm/shipbatch/internal/core/parse"
	"github.com/JonMunkholm/shipbatch/internal/rates"
	"github.com/google/uuid"
)

// DefaultPackageWeightOz replaces a missing or non-positive row weight.
const DefaultPackageWeightOz = 16

var strictZip = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// cleanCell removes spreadsheet artifacts from a cell value: surrounding
// whitespace, the ="..." text-forcing wrapper, and surrounding double quotes.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(strings.Trim(s, `"`))
}

// get reads a cleaned cell from rec.
func get(rec columns.Record, f columns.Field) string {
	return cleanCell(rec.Get(f))
}

// newRow returns a row with a fresh id and pending results.
func newRow(rowNumber int) Row {
	r := Row{
		ID:        uuid.NewString(),
		RowNumber: rowNumber,
		Package:   Package{WeightUnit: "oz", DimensionUnit: "in"},
	}
	r.resetResults()
	return r
}

// buildCombinedRow builds a row whose recipient is one free-text address
// column.
func buildCombinedRow(rec columns.Record, rowNumber int) Row {
	r := newRow(rowNumber)
	r.Recipient = parse.Address(get(rec, columns.ToAddress))
	r.Recipient.Phone = recipientPhone(rec, r.Recipient.Country)

	dims := parse.Dimensions(get(rec, columns.Dimensions))
	r.Package.Weight = parse.Weight(get(rec, columns.Weight))
	r.Package.Length, r.Package.Width, r.Package.Height = dims.Length, dims.Width, dims.Height

	r.Reference = get(rec, columns.Reference)
	r.SKU = get(rec, columns.SKU)
	r.Notes = get(rec, columns.Notes)
	return r
}

// buildIndividualRow builds a row from one column per recipient field.
// Weight is weightLb*16 plus weightOz, or plus weight when no ounce column
// has a value.
func buildIndividualRow(rec columns.Record, rowNumber int) Row {
	r := newRow(rowNumber)

	country := get(rec, columns.RecipientCountry)
	if country == "" {
		country = "US"
	}
	r.Recipient = address.Address{
		Name:    get(rec, columns.RecipientName),
		Company: get(rec, columns.RecipientCompany),
		Street1: get(rec, columns.RecipientStreet1),
		Street2: get(rec, columns.RecipientStreet2),
		City:    get(rec, columns.RecipientCity),
		State:   strings.ToUpper(get(rec, columns.RecipientState)),
		Zip:     get(rec, columns.RecipientZip),
		Country: country,
		Email:   get(rec, columns.RecipientEmail),
	}
	r.Recipient.Phone = recipientPhone(rec, country)

	oz := parse.Number(get(rec, columns.WeightOz))
	if oz == 0 {
		oz = weightCell(get(rec, columns.Weight))
	}
	r.Package.Weight = parse.Number(get(rec, columns.WeightLb))*16 + oz

	if dims := get(rec, columns.Dimensions); dims != "" {
		d := parse.Dimensions(dims)
		r.Package.Length, r.Package.Width, r.Package.Height = d.Length, d.Width, d.Height
	} else {
		r.Package.Length = parse.PositivePtr(parse.Number(get(rec, columns.Length)))
		r.Package.Width = parse.PositivePtr(parse.Number(get(rec, columns.Width)))
		r.Package.Height = parse.PositivePtr(parse.Number(get(rec, columns.Height)))
	}

	r.Reference = get(rec, columns.Reference)
	r.SKU = get(rec, columns.SKU)
	r.Notes = get(rec, columns.Notes)
	return r
}

// weightCell reads the generic weight column. A pounds suffix is honored;
// a bare number is ounces.
func weightCell(s string) float64 {
	lower := strings.ToLower(s)
	if strings.Contains(lower, "lb") || strings.Contains(lower, "pound") {
		return parse.Weight(s)
	}
	return parse.Number(s)
}

// recipientPhone returns the first phone column with a value, normalized
// for the recipient's country.
func recipientPhone(rec columns.Record, country string) string {
	phone := get(rec, columns.RecipientPhone)
	if phone == "" {
		phone = get(rec, columns.RecipientPhone2)
	}
	return parse.Phone(phone, country)
}

// checkRow runs the local row checks. A row with no name, street, or city
// is reported as skip. Otherwise the returned messages are the reasons the
// row is invalid; an empty slice means it passed. checkRow also fixes what
// it can: full state names become codes and missing weights get the
// default.
func checkRow(r *Row) (skip bool, errs []string) {
	rc := &r.Recipient
	if rc.Name == "" && rc.Street1 == "" && rc.City == "" {
		return true, nil
	}

	if strings.TrimSpace(rc.Name) == "" {
		errs = append(errs, "Missing recipient name")
	}
	if strings.TrimSpace(rc.Street1) == "" {
		errs = append(errs, "Missing street address")
	}
	if strings.TrimSpace(rc.City) == "" {
		errs = append(errs, "Missing city")
	}
	if strings.TrimSpace(rc.State) == "" {
		errs = append(errs, "Missing state")
	}
	if strings.TrimSpace(rc.Zip) == "" {
		errs = append(errs, "Missing ZIP code")
	}

	if len(rc.State) > 2 {
		if code, ok := parse.StateCode(rc.State); ok {
			rc.State = code
		} else {
			errs = append(errs, fmt.Sprintf("Invalid state format: %q (expected 2-letter code)", rc.State))
		}
	}

	if rc.Zip != "" && !strictZip.MatchString(rc.Zip) {
		errs = append(errs, fmt.Sprintf("Invalid ZIP code format: %q", rc.Zip))
	}

	if r.Package.Weight <= 0 {
		r.Package.Weight = DefaultPackageWeightOz
	}
	return false, errs
}

// markInvalid records local check failures on the row.
func markInvalid(r *Row, msgs []string) {
	r.Validation = Validation{Status: address.StatusInvalid, Messages: msgs}
	r.Shipping = Shipping{ServiceType: rates.ServiceNone}
}
