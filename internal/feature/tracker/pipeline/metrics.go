package pipeline

import (
	"fmt"

	"pair_tracker/internal/feature/tracker/domain"
	"pair_tracker/internal/feature/tracker/domain/entity"
)

// DeriveMetrics reduces the last normalized values of a and b to comparative
// scalars and a signal.
func DeriveMetrics(a, b entity.Series) (entity.Metrics, error) {
	lastA, ok := a.Last()
	if !ok {
		return entity.Metrics{}, fmt.Errorf("%w: %s", domain.ErrEmptySeries, a.Name)
	}
	lastB, ok := b.Last()
	if !ok {
		return entity.Metrics{}, fmt.Errorf("%w: %s", domain.ErrEmptySeries, b.Name)
	}
	if lastA == 0 {
		return entity.Metrics{}, fmt.Errorf("%w: normalized value of %s is zero", domain.ErrDivisionByZero, a.Name)
	}

	retA := ReturnPct(lastA)
	retB := ReturnPct(lastB)
	return entity.Metrics{
		NormalizedA:   lastA,
		NormalizedB:   lastB,
		ReturnPctA:    retA,
		ReturnPctB:    retB,
		Ratio:         lastB / lastA,
		ReturnDiffPct: retB - retA,
		Signal:        Classify(lastA, lastB),
	}, nil
}

// ReturnPct converts a normalized value to a percentage return relative to 1.0.
func ReturnPct(normalized float64) float64 {
	return (normalized - 1) * 100
}

// Classify returns SignalBLeading only when b is strictly greater; ties go to A.
func Classify(a, b float64) entity.Signal {
	if b > a {
		return entity.SignalBLeading
	}
	return entity.SignalALeading
}
