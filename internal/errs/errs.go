// Package errs defines the failure taxonomy shared by every pipeline stage.
//
// Fatal failures are sentinel errors (checked with errors.Is) optionally wrapped
// in a typed error that carries row/column context. Recoverable conditions are
// never returned as errors; they go to the diagnostics collector instead.
package errs

import (
	"errors"
	"fmt"
)

var (
	// Configuration and input errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrDataFormat           = errors.New("data format error")
	ErrNonNumericTarget     = errors.New("target variable is not numeric")
	ErrTargetEliminated     = errors.New("target variable eliminated by filtering")
	ErrEmptyDataset         = errors.New("dataset has no usable records")

	// Rule list errors
	ErrMalformedRule = errors.New("malformed rule")
	ErrInvalidRule   = errors.New("invalid rule")

	// Internal consistency
	ErrInvalidRecord = errors.New("invalid record")

	// Regression errors
	ErrUnsolvable  = errors.New("regression unsolvable")
	ErrAllZeroed   = errors.New("all coefficients zeroed by lasso")
	ErrOverfit     = errors.New("more active rules than records")
	ErrNoRules     = errors.New("no rules left")
	ErrEmptyMatrix = errors.New("design matrix is empty")
)

// DataFormatError reports a cell that cannot be read under the configured
// delimiter/decimal convention.
type DataFormatError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *DataFormatError) Error() string {
	return fmt.Sprintf("row %d, column %q: value %q: %s", e.Row, e.Column, e.Value, e.Reason)
}

func (e *DataFormatError) Unwrap() error { return ErrDataFormat }

// RecordError indicates a record is missing a value an earlier stage should have produced.
type RecordError struct {
	Record int
	Column string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: missing or non-numeric %q", e.Record, e.Column)
}

func (e *RecordError) Unwrap() error { return ErrInvalidRecord }

// StageError tags a failure with the pipeline stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e == nil {
		return "stage error"
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// InStage wraps err with the stage name. Nil stays nil.
func InStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// Invalidf builds an ErrInvalidConfiguration with context.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// IsConfigError reports whether err stems from bad user input rather than data.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrInvalidRule)
}

// IsDataError reports whether err stems from the dataset contents.
func IsDataError(err error) bool {
	return errors.Is(err, ErrDataFormat) ||
		errors.Is(err, ErrNonNumericTarget) ||
		errors.Is(err, ErrTargetEliminated) ||
		errors.Is(err, ErrEmptyDataset)
}

// IsFitError reports whether err came out of the regression stage.
func IsFitError(err error) bool {
	return errors.Is(err, ErrUnsolvable) ||
		errors.Is(err, ErrAllZeroed) ||
		errors.Is(err, ErrOverfit) ||
		errors.Is(err, ErrNoRules) ||
		errors.Is(err, ErrEmptyMatrix)
}
