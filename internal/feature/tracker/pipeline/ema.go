package pipeline

import (
	"fmt"
	"time"

	"pair_tracker/internal/feature/tracker/domain"
	"pair_tracker/internal/feature/tracker/domain/entity"
)

// DefaultEMASpan is the default smoothing span in bars.
const DefaultEMASpan = 7

// Alpha returns the smoothing factor 2/(span+1).
func Alpha(span int) float64 {
	return 2.0 / float64(span+1)
}

// EMA computes the recursive (unadjusted) exponential moving average:
// ema[0] = price[0], ema[t] = alpha*price[t] + (1-alpha)*ema[t-1].
func EMA(name string, index []time.Time, prices []float64, span int) (entity.Series, error) {
	if span < 1 {
		return entity.Series{}, fmt.Errorf("ema span must be >= 1, got %d", span)
	}
	if len(prices) == 0 {
		return entity.Series{}, fmt.Errorf("%w: %s", domain.ErrEmptySeries, name)
	}

	alpha := Alpha(span)
	values := make([]float64, len(prices))
	values[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		values[i] = alpha*prices[i] + (1-alpha)*values[i-1]
	}
	return entity.Series{Name: name, Index: index, Values: values}, nil
}
