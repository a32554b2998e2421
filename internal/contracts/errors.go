package contracts

import (
	"context"
	"errors"
)

// Error taxonomy. Wrap with fmt.Errorf("...: %w", Err...) and test with errors.Is.
var (
	// ErrMalformedSeries: unusable raw input, the instrument is recorded as failed
	ErrMalformedSeries = errors.New("malformed series")
	// ErrInsufficientData: too short for a metric/window (or < 2 valid points overall)
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerateRegression: zero-variance regressor, regression outputs become null
	ErrDegenerateRegression = errors.New("degenerate regression")
	// ErrUnexpectedFailure: anything else caught at the per-instrument boundary
	ErrUnexpectedFailure = errors.New("unexpected failure")
	// ErrInvalidConcurrency: batch-wide, the run is refused
	ErrInvalidConcurrency = errors.New("invalid concurrency configuration")
)

// Error kinds written into AnalysisRecord.ErrorKind
const (
	KindMalformedSeries      = "malformed_series"
	KindInsufficientData     = "insufficient_data"
	KindDegenerateRegression = "degenerate_regression"
	KindInvalidConcurrency   = "invalid_concurrency"
	KindCancelled            = "cancelled"
	KindUnexpectedFailure    = "unexpected_failure"
)

// ErrorKind maps an error to its record marker
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedSeries):
		return KindMalformedSeries
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, ErrDegenerateRegression):
		return KindDegenerateRegression
	case errors.Is(err, ErrInvalidConcurrency):
		return KindInvalidConcurrency
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindUnexpectedFailure
	}
}
