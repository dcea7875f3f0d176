// Package core provides the batch shipping workflow.
//
// This package holds the domain logic independent of any transport. It is
// used by the web handlers, the batchctl CLI, and tests without
// modification.
//
// # Architecture
//
// The package is organized around a few concepts:
//
//   - Ingest: turns an uploaded CSV or XLSX file into a draft [Batch].
//     Headers are mapped to canonical fields by the columns package and
//     cells are parsed by the parse package.
//   - Service: the entry point for every batch, shipping, and saved record
//     operation. Mutations run under a per-batch lock and are persisted
//     through a [Store].
//   - Rates: prices come from the rates package and are stored on rows as
//     decimal amounts.
//
// # Ingest
//
// Uploads pass through the following steps:
//
//  1. The reader is wrapped with BOM detection and UTF-8 sanitization
//  2. Records are parsed permissively and the header row is normalized
//  3. The column convention is detected (combined or individual)
//  4. Each record becomes a [Row]; empty records are skipped and rows with
//     missing or malformed fields are kept with status invalid
//
// Concurrent ingests are bounded by an [IngestLimiter].
//
// # Workflow
//
// A batch moves draft, validating, validated, shipping_selected, purchased.
// Any pre-purchase batch may be cancelled. A purchased batch is immutable.
// Purchase requires a ship-from street and no row that is invalid or has
// no service selected; when the check fails nothing changes.
//
// # Error Handling
//
// Domain failures are [*Error] values carrying a stable code and a [Kind]
// used by transports to pick a status. Technical errors are mapped to
// user-facing messages using [MapError]:
//
//   - STORE001-STORE004: persistence errors
//   - FILE001-FILE003: upload file errors
//   - REQ001-REQ002: cancelled or timed out requests
//   - LOCK001: batch lock contention
//   - RATE001: provider throttling
package core
