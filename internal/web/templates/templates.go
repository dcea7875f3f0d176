// Package templates holds the HTML fragments and pages served by the web
// layer, built as templ components.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/shipbatch/internal/core"
)

// ErrorAlert renders the HTMX error fragment.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert alert-error" role="alert">`)
		b.WriteString(`<p class="alert-message">` + templ.EscapeString(message) + `</p>`)
		if action != "" {
			b.WriteString(`<p class="alert-action">` + templ.EscapeString(action) + `</p>`)
		}
		b.WriteString(`<p class="alert-code">Code: ` + templ.EscapeString(code) + `</p>`)
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// LabelSheet renders a printable page with one label per purchased row.
func LabelSheet(sheet *core.LabelSheet) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<title>Labels ` + templ.EscapeString(sheet.Batch.BatchID) + `</title>`)
		b.WriteString(`<style>.label{border:1px solid #000;padding:12px;margin:8px;width:4in;page-break-inside:avoid}` +
			`.barcode{font-family:monospace;font-size:20px;letter-spacing:2px}</style>`)
		b.WriteString(`</head><body>`)
		b.WriteString(`<header><h1>` + templ.EscapeString(sheet.Batch.BatchID) + `</h1>`)
		fmt.Fprintf(&b, `<p>%s &middot; %d labels &middot; total $%s</p></header>`,
			templ.EscapeString(sheet.Batch.OriginalFilename),
			len(sheet.Labels),
			sheet.Batch.TotalCost.StringFixed(2))

		from := sheet.Batch.ShipFrom
		for _, l := range sheet.Labels {
			b.WriteString(`<section class="label">`)
			b.WriteString(`<div class="from">` + addressLines(from.Name, from.Company, from.Street1, from.Street2,
				cityLine(from.City, from.State, from.Zip)) + `</div>`)
			to := l.Recipient
			b.WriteString(`<div class="to"><strong>SHIP TO</strong>` + addressLines(to.Name, to.Company, to.Street1, to.Street2,
				cityLine(to.City, to.State, to.Zip), to.Country) + `</div>`)
			fmt.Fprintf(&b, `<div class="meta">%s &middot; %s oz &middot; %s</div>`,
				templ.EscapeString(strings.ToUpper(string(l.ServiceType))),
				templ.EscapeString(fmt.Sprint(l.Weight)),
				templ.EscapeString(l.PurchasedAt.Format(time.DateOnly)))
			if l.Reference != "" {
				b.WriteString(`<div class="ref">Ref: ` + templ.EscapeString(l.Reference) + `</div>`)
			}
			b.WriteString(`<div class="barcode">*` + templ.EscapeString(l.TrackingNumber) + `*</div>`)
			b.WriteString(`</section>`)
		}
		b.WriteString(`</body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func cityLine(city, state, zip string) string {
	return strings.TrimSpace(city + ", " + state + " " + zip)
}

// addressLines escapes and joins the non-empty lines with <br>.
func addressLines(lines ...string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" && l != "," {
			out = append(out, templ.EscapeString(l))
		}
	}
	return `<p>` + strings.Join(out, `<br>`) + `</p>`
}
