package pipeline

import (
	"errors"
	"fmt"

	"pair_tracker/internal/feature/tracker/domain"
	"pair_tracker/internal/feature/tracker/domain/entity"
)

// Params configures one pipeline pass.
type Params struct {
	Symbols     []string // exactly two: A then B
	Weights     Weights
	EMASpan     int
	RangeMargin float64
}

// DefaultParams returns the equal-weight, span-7 configuration for a and b.
func DefaultParams(a, b string) Params {
	return Params{
		Symbols:     []string{a, b},
		Weights:     EqualWeights,
		EMASpan:     DefaultEMASpan,
		RangeMargin: DefaultRangeMargin,
	}
}

// Validate reports configuration errors before any data is touched.
func (p Params) Validate() error {
	if len(p.Symbols) != 2 {
		return fmt.Errorf("exactly two symbols required, got %d", len(p.Symbols))
	}
	if p.Symbols[0] == p.Symbols[1] {
		return errors.New("symbols must be distinct")
	}
	if p.EMASpan < 1 {
		return fmt.Errorf("ema span must be >= 1, got %d", p.EMASpan)
	}
	if p.RangeMargin < 0 || p.RangeMargin >= 1 {
		return fmt.Errorf("range margin must be in [0, 1), got %v", p.RangeMargin)
	}
	return p.Weights.Validate()
}

// Result is everything the presentation layer needs from one pass.
type Result struct {
	Prices    entity.PriceTable
	Portfolio entity.Portfolio
	Trends    []entity.Series // EMA of raw prices, aligned with Prices.Symbols
	Metrics   entity.Metrics
}

// Run executes schema normalization, gap filling, portfolio calculation,
// trend smoothing and metric derivation. Any error aborts the whole pass.
func Run(raw entity.RawTable, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidParams, err)
	}

	table, err := NormalizeSchema(raw, p.Symbols)
	if err != nil {
		return nil, err
	}
	prices, err := FillGaps(table)
	if err != nil {
		return nil, err
	}

	portfolio, err := BuildPortfolio(prices, p.Weights, p.RangeMargin)
	if err != nil {
		return nil, err
	}

	trends := make([]entity.Series, 0, len(p.Symbols))
	for _, s := range p.Symbols {
		col, ok := prices.Column(s)
		if !ok {
			return nil, &domain.DataShapeError{Columns: prices.Symbols, Reason: "missing column for " + s}
		}
		ema, err := EMA(s, prices.Index, col, p.EMASpan)
		if err != nil {
			return nil, err
		}
		trends = append(trends, ema)
	}

	metrics, err := DeriveMetrics(portfolio.Normalized[0], portfolio.Normalized[1])
	if err != nil {
		return nil, err
	}

	return &Result{Prices: prices, Portfolio: portfolio, Trends: trends, Metrics: metrics}, nil
}
