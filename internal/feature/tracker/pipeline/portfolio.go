package pipeline

import (
	"errors"
	"fmt"
	"math"
	"time"

	"pair_tracker/internal/feature/tracker/domain"
	"pair_tracker/internal/feature/tracker/domain/entity"
)

// DefaultRangeMargin is the fraction added below the minimum and above the
// maximum of the portfolio chart's fixed y-axis.
const DefaultRangeMargin = 0.005

// Weights are the fixed blend weights of the two symbols.
type Weights struct {
	A float64
	B float64
}

// EqualWeights is the default 50/50 blend.
var EqualWeights = Weights{A: 0.5, B: 0.5}

// Validate checks that the weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	if w.A < 0 || w.B < 0 {
		return fmt.Errorf("weights must be non-negative, got %v/%v", w.A, w.B)
	}
	if math.Abs(w.A+w.B-1) > 1e-9 {
		return fmt.Errorf("weights must sum to 1, got %v", w.A+w.B)
	}
	return nil
}

// Normalize rescales prices so the first observation is exactly 1.0.
func Normalize(name string, index []time.Time, prices []float64) (entity.Series, error) {
	if len(prices) == 0 {
		return entity.Series{}, fmt.Errorf("%w: %s", domain.ErrEmptySeries, name)
	}
	base := prices[0]
	if base == 0 {
		return entity.Series{}, fmt.Errorf("%w: base price of %s is zero", domain.ErrDivisionByZero, name)
	}
	values := make([]float64, len(prices))
	for i, p := range prices {
		values[i] = p / base
	}
	return entity.Series{Name: name, Index: index, Values: values}, nil
}

// Blend computes w.A*a[t] + w.B*b[t], row-aligned.
func Blend(name string, a, b entity.Series, w Weights) (entity.Series, error) {
	if a.Len() != b.Len() {
		return entity.Series{}, fmt.Errorf("blend: series length mismatch %d != %d", a.Len(), b.Len())
	}
	values := make([]float64, a.Len())
	for i := range values {
		values[i] = w.A*a.Values[i] + w.B*b.Values[i]
	}
	return entity.Series{Name: name, Index: a.Index, Values: values}, nil
}

// DisplayRange returns [min*(1-margin), max*(1+margin)] over all values of series.
func DisplayRange(margin float64, series ...entity.Series) entity.AxisRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return entity.AxisRange{}
	}
	return entity.AxisRange{Min: lo * (1 - margin), Max: hi * (1 + margin)}
}

// BuildPortfolio normalizes both symbols of t and blends them.
func BuildPortfolio(t entity.PriceTable, w Weights, margin float64) (entity.Portfolio, error) {
	if len(t.Symbols) != 2 {
		return entity.Portfolio{}, errors.New("portfolio needs exactly two symbols")
	}

	normalized := make([]entity.Series, 0, 2)
	for i, s := range t.Symbols {
		n, err := Normalize(s, t.Index, t.Columns[i])
		if err != nil {
			return entity.Portfolio{}, err
		}
		normalized = append(normalized, n)
	}

	blend, err := Blend("blend", normalized[0], normalized[1], w)
	if err != nil {
		return entity.Portfolio{}, err
	}

	return entity.Portfolio{
		Normalized: normalized,
		Blend:      blend,
		Range:      DisplayRange(margin, normalized[0], normalized[1], blend),
	}, nil
}
