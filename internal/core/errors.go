package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is returned when a required column is not in the header.
	ErrMissingColumn = errors.New("missing required column")

	// ErrEmptyFile is returned for a tabular input with no rows at all.
	ErrEmptyFile = errors.New("empty file")

	// ErrEncoding is returned when input is not valid UTF-8.
	ErrEncoding = errors.New("encoding error")

	// ErrInvalidCSV wraps delimited-text parse failures.
	ErrInvalidCSV = errors.New("invalid csv")

	// ErrInvalidJSON wraps JSON syntax failures.
	ErrInvalidJSON = errors.New("invalid json")

	// ErrMalformedData is returned when JSON is well-formed but has the wrong shape,
	// such as a non-object record or a non-string address.
	ErrMalformedData = errors.New("malformed data")
)

// ColumnError reports a required column missing from a tabular header.
type ColumnError struct {
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s %q", ErrMissingColumn, e.Column)
}

func (e *ColumnError) Unwrap() error {
	return ErrMissingColumn
}

// isReportable reports whether err leaves a batch able to continue.
// These are the cases where a transform produces no output but the input
// itself was readable.
func isReportable(err error) bool {
	return errors.Is(err, ErrMissingColumn) || errors.Is(err, ErrEmptyFile)
}
