// Package domain defines domain-level errors for the tracker feature.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errors that abort a refresh pass. The next scheduled pass starts fresh.
var (
	// ErrDataShape indicates the raw table's columns could not be reconciled
	// into one close-price column per configured symbol.
	ErrDataShape = errors.New("unrecognized data shape")

	// ErrInsufficientData indicates fewer than 2 usable rows, or an empty table.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrEmptySeries indicates a normalized series had no rows when metrics were computed.
	ErrEmptySeries = errors.New("empty series")

	// ErrDivisionByZero indicates a zero denominator (a zero base price or a zero
	// normalized value). Unreachable with positive prices.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrInvalidParams indicates the pass configuration itself is unusable.
	ErrInvalidParams = errors.New("invalid parameters")
)

// DataShapeError carries the raw column labels so they can be shown to the operator.
type DataShapeError struct {
	Columns []string
	Reason  string
}

func (e *DataShapeError) Error() string {
	msg := "could not parse market data"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return fmt.Sprintf("%s (raw columns: %s)", msg, strings.Join(e.Columns, ", "))
}

// Unwrap lets errors.Is(err, ErrDataShape) match.
func (e *DataShapeError) Unwrap() error { return ErrDataShape }

// Kind classifies err for logs and metrics labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDataShape):
		return "data_shape"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrEmptySeries):
		return "empty_series"
	case errors.Is(err, ErrDivisionByZero):
		return "division_by_zero"
	case errors.Is(err, ErrInvalidParams):
		return "invalid_params"
	default:
		return "fetch_error"
	}
}
