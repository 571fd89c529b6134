package models

import (
	"errors"
	"fmt"
)

// Precondition failures reported by the fold pipeline. They are never retried:
// the inputs are deterministic, so the caller has to change them.
var (
	// ErrSchema is returned when the column count or layout of a table is not OHLC(V).
	ErrSchema = errors.New("tfold: schema mismatch")

	// ErrResampleDirection is returned when the target interval is finer than the source spacing.
	ErrResampleDirection = errors.New("tfold: upsampling is not supported")

	// ErrConfig is returned for an unrecognised interval, policy, label mode or distribution.
	ErrConfig = errors.New("tfold: invalid configuration")

	// ErrDegenerateSample is returned when a sample cannot support moment estimation
	// (too few rows, zero variance, non-positive mean or non-finite values).
	ErrDegenerateSample = errors.New("tfold: degenerate sample")
)

// FoldError ties a failure to the fold key (or "from:to" pair key) it happened on.
type FoldError struct {
	Key string
	Err error
}

func (e *FoldError) Error() string { return fmt.Sprintf("fold %s: %v", e.Key, e.Err) }

// Unwrap returns the underlying error.
func (e *FoldError) Unwrap() error { return e.Err }
