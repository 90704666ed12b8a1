// Package core provides the business logic for exhibitor country enrichment.
//
// This package holds all domain logic independent of any transport. It is used
// by the batch command, the HTTP server and the background triggers without
// modification.
//
// # Architecture
//
// The package is organized around two dataset shapes and one service:
//
//   - Table: delimited text. Row 0 is a placeholder, row 1 the header, the rest
//     are exhibitor records. See [ReadTable], [TransformTable], [WriteTable].
//   - Object: an ordered JSON object wrapping a list of exhibitor objects.
//     See [ReadDocument], [TransformDocument], [WriteDocument].
//   - Service: runs both transforms over file pairs or streams, finalizes
//     outputs atomically and records each run in the history store.
//
// # Merge Policy
//
// Each record gets a country derived from its address by [country.Extract].
// The tabular variant writes it into the Country column, appending that column
// when it is absent under [PolicyAppend] or discarding the value under
// [PolicySkip]. The structured variant always sets the country field.
//
// # Error Handling
//
// Domain failures are sentinel errors ([ErrMissingColumn], [ErrEmptyFile],
// [ErrEncoding], [ErrInvalidCSV], [ErrInvalidJSON], [ErrMalformedData]).
// Technical errors are mapped to user-friendly messages using [MapError]:
//
//   - VAL001-VAL099: Validation errors (missing columns, malformed records)
//   - FILE001-FILE099: File errors (size, encoding, format)
//   - RUN001-RUN099: Run errors (cancelled, timeout, busy)
//   - DB001-DB099: History store errors
package core
