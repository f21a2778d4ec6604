package tle

import (
	"errors"
	"fmt"
)

var (
	// ErrChecksumMismatch marks a line whose trailing digit disagrees with
	// the recomputed checksum. The record is still emitted.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrMalformedLine marks a line that does not fit the layout expected in
	// the current scanner state. The in-progress record is discarded.
	ErrMalformedLine = errors.New("malformed line")

	// ErrCatalogIDMismatch marks a line 2 whose catalog number differs from
	// the preceding line 1. The in-progress record is discarded.
	ErrCatalogIDMismatch = errors.New("catalog id mismatch")

	// ErrEncodingOverflow marks a field value that cannot be written in its
	// fixed-width column.
	ErrEncodingOverflow = errors.New("value does not fit field")
)

// LineError is a non-fatal problem found on one input line.
type LineError struct {
	Line int // 1-based physical line number
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// FieldError reports a record field that could not be serialized.
type FieldError struct {
	CatalogID int
	Field     string
	Value     any
	Err       error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("catalog %05d: field %s = %v: %v", e.CatalogID, e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
