// Package columns maps user-supplied CSV headers to canonical shipment fields.
//
// Source files never agree on a naming convention, so lookup is layered: an
// exact alias match is tried first, then progressively looser spellings of
// the same header. The alias table is built once at init and never mutated.
package columns

import (
	"log/slog"
	"regexp"
	"strings"
)

// Field is a canonical field identifier.
type Field string

const (
	RecipientName    Field = "recipientName"
	RecipientCompany Field = "recipientCompany"
	RecipientStreet1 Field = "recipientStreet1"
	RecipientStreet2 Field = "recipientStreet2"
	RecipientCity    Field = "recipientCity"
	RecipientState   Field = "recipientState"
	RecipientZip     Field = "recipientZip"
	RecipientCountry Field = "recipientCountry"
	RecipientPhone   Field = "recipientPhone"
	RecipientPhone2  Field = "recipientPhone2"
	RecipientEmail   Field = "recipientEmail"
	Weight           Field = "weight"
	WeightLb         Field = "weightLb"
	WeightOz         Field = "weightOz"
	Dimensions       Field = "dimensions"
	Length           Field = "length"
	Width            Field = "width"
	Height           Field = "height"
	Reference        Field = "reference"
	SKU              Field = "sku"
	Notes            Field = "notes"
	FromAddress      Field = "fromAddress"
	ToAddress        Field = "toAddress"
)

// aliasGroup lists header spellings for one field. Entries containing an
// underscore also register their run-together and space-separated forms.
type aliasGroup struct {
	field   Field
	aliases []string
}

// Group order matters: the first group to claim a spelling keeps it.
var groups = []aliasGroup{
	{RecipientName, []string{"recipient.name", "recipient_name", "name", "full_name", "customer_name", "ship_to_name"}},
	{RecipientCompany, []string{"recipient.company", "recipient_company", "company", "company_name", "organization"}},
	{RecipientStreet1, []string{
		"recipient.street1", "recipient_street1", "recipient_street_1", "recipient_address1",
		"street1", "street_1", "address1", "address_1", "address", "street",
		"street_address", "address_line_1", "ship_to_address",
	}},
	{RecipientStreet2, []string{
		"recipient.street2", "recipient_street2", "recipient_street_2", "recipient_address2",
		"street2", "street_2", "address2", "address_2", "apt", "apartment", "suite", "unit",
		"address_line_2",
	}},
	{RecipientCity, []string{"recipient.city", "recipient_city", "city", "town", "ship_to_city"}},
	{RecipientState, []string{"recipient.state", "recipient_state", "state", "province", "region", "state_code", "ship_to_state"}},
	{RecipientZip, []string{
		"recipient.zip", "recipient_zip", "recipient_zipcode", "recipient_postal", "recipient_postal_code",
		"zip", "zipcode", "zip_code", "postal", "postal_code", "postcode", "post_code", "ship_to_zip",
	}},
	{RecipientCountry, []string{"recipient.country", "recipient_country", "country", "country_code"}},
	{RecipientPhone, []string{
		"recipient.phone", "recipient_phone", "phone", "phone1", "phone_number",
		"telephone", "tel", "mobile", "cell",
	}},
	{RecipientPhone2, []string{"phone2"}},
	{RecipientEmail, []string{"recipient.email", "recipient_email", "email", "email_address", "e-mail"}},

	{FromAddress, []string{
		"from", "from_address", "sender", "sender_address", "ship_from", "origin",
	}},
	{ToAddress, []string{
		"to", "to_address", "recipient", "recipient_address", "ship_to",
		"destination", "delivery_address",
	}},

	{WeightLb, []string{"weight.lbs", "weight.lb", "weight_lb", "weight_lbs", "weight_pounds"}},
	{WeightOz, []string{"weight.oz", "weight.ounces"}},
	{Weight, []string{"package.weight", "weight", "weight*", "weight_oz", "weight_ounces", "package_weight"}},
	{Dimensions, []string{"dimensions", "dimensions*", "dimension", "size", "package_size", "pkg_dimensions"}},
	{Length, []string{"package.length", "length", "pkg_length", "package_length"}},
	{Width, []string{"package.width", "width", "pkg_width", "package_width"}},
	{Height, []string{"package.height", "height", "pkg_height", "package_height"}},

	{Reference, []string{
		"reference", "ref", "order_no", "order_id", "order_number", "order", "order_ref",
		"po_number", "invoice", "invoice_number",
	}},
	{SKU, []string{"sku", "item_sku"}},
	{Notes, []string{
		"notes", "note", "comments", "comment", "instructions",
		"special_instructions", "delivery_instructions",
	}},
}

// aliases is the immutable lookup table.
var aliases = buildAliases(groups)

func buildAliases(gs []aliasGroup) map[string]Field {
	m := make(map[string]Field, 400)
	add := func(key string, f Field) {
		if _, taken := m[key]; !taken {
			m[key] = f
		}
	}
	for _, g := range gs {
		for _, a := range g.aliases {
			add(a, g.field)
			if strings.Contains(a, "_") {
				add(strings.ReplaceAll(a, "_", ""), g.field)
				add(strings.ReplaceAll(a, "_", " "), g.field)
			}
		}
	}
	return m
}

var separatorRuns = regexp.MustCompile(`[\s_]+`)

// Normalize maps a raw header to its canonical field. When no alias matches,
// the lower-cased, trimmed header is returned with ok=false.
func Normalize(raw string) (f Field, ok bool) {
	normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "\ufeff")
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return "", false
	}

	if f, ok := aliases[normalized]; ok {
		return f, true
	}

	dotted := strings.ReplaceAll(normalized, ".", "_")
	if f, ok := aliases[dotted]; ok {
		return f, true
	}

	cleaned := strings.Trim(separatorRuns.ReplaceAllString(dotted, "_"), "_")
	candidates := []string{
		cleaned,
		strings.ReplaceAll(cleaned, "*", ""),
		strings.ReplaceAll(cleaned, "_", ""),
		strings.ReplaceAll(cleaned, "_", " "),
	}
	for _, c := range candidates {
		if f, ok := aliases[c]; ok {
			return f, true
		}
	}

	slog.Warn("unmapped CSV column", "original", raw, "normalized", normalized)
	return Field(normalized), false
}

// Header is the normalized form of a CSV header row.
type Header struct {
	// Index maps each recognized field to its column. When two columns map
	// to the same field, the later column wins.
	Index map[Field]int
	// Columns is the normalized name of every column, mapped or not.
	Columns []string
	// Unmapped lists the raw headers that matched no alias.
	Unmapped []string
}

// NormalizeHeader normalizes every column of a header row.
func NormalizeHeader(header []string) Header {
	h := Header{
		Index:   make(map[Field]int, len(header)),
		Columns: make([]string, len(header)),
	}
	for i, raw := range header {
		f, ok := Normalize(raw)
		h.Columns[i] = string(f)
		if !ok {
			if strings.TrimSpace(raw) != "" {
				h.Unmapped = append(h.Unmapped, raw)
			}
			continue
		}
		h.Index[f] = i
	}
	return h
}

// Has reports whether any column maps to f.
func (h Header) Has(f Field) bool {
	_, ok := h.Index[f]
	return ok
}

// Record is one data row addressed by canonical field.
type Record map[Field]string

// Get returns the trimmed value for f, or "" if absent.
func (r Record) Get(f Field) string {
	return strings.TrimSpace(r[f])
}

// Record projects a raw row onto the header's fields. Missing trailing
// cells read as empty.
func (h Header) Record(row []string) Record {
	rec := make(Record, len(h.Index))
	for f, i := range h.Index {
		if i < len(row) {
			rec[f] = strings.TrimSpace(row[i])
		}
	}
	return rec
}
