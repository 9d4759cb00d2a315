package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pair_tracker/internal/feature/tracker/domain"
	"pair_tracker/internal/feature/tracker/pipeline"
)

func TestAlpha(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.25, pipeline.Alpha(7))
	assert.Equal(t, 1.0, pipeline.Alpha(1))
}

func TestEMA_Recurrence(t *testing.T) {
	t.Parallel()

	prices := []float64{100, 110, 105}
	s, err := pipeline.EMA("X", hours(3), prices, 7)
	require.NoError(t, err)

	// 0.25*110 + 0.75*100 = 102.5, 0.25*105 + 0.75*102.5 = 103.125
	assert.InDeltaSlice(t, []float64{100, 102.5, 103.125}, s.Values, 1e-12)
}

func TestEMA_MatchesRecursiveDefinition(t *testing.T) {
	t.Parallel()

	prices := []float64{3, 8, 1, 9, 4, 4, 7, 2, 6, 5}
	for _, span := range []int{1, 2, 3, 7, 20} {
		s, err := pipeline.EMA("X", hours(len(prices)), prices, span)
		require.NoError(t, err)

		alpha := 2.0 / float64(span+1)
		assert.Equal(t, prices[0], s.Values[0])
		for i := 1; i < len(prices); i++ {
			assert.InDelta(t, alpha*prices[i]+(1-alpha)*s.Values[i-1], s.Values[i], 1e-12, "span=%d t=%d", span, i)
		}
	}
}

func TestEMA_NotBiasCorrected(t *testing.T) {
	t.Parallel()

	// The adjusted form would weight the first two prices as (p1 + (1-a)p0) / (1 + (1-a)).
	s, err := pipeline.EMA("X", hours(2), []float64{100, 200}, 3)
	require.NoError(t, err)

	adjusted := (200 + 0.5*100) / 1.5
	assert.Equal(t, 150.0, s.Values[1])
	assert.NotEqual(t, adjusted, s.Values[1])
}

func TestEMA_Errors(t *testing.T) {
	t.Parallel()

	_, err := pipeline.EMA("X", hours(2), []float64{1, 2}, 0)
	assert.Error(t, err)

	_, err = pipeline.EMA("X", nil, nil, 7)
	assert.ErrorIs(t, err, domain.ErrEmptySeries)
}
