package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pair_tracker/internal/feature/tracker/domain"
	"pair_tracker/internal/feature/tracker/domain/entity"
	"pair_tracker/internal/feature/tracker/pipeline"
)

func series(name string, vals ...float64) entity.Series {
	return entity.Series{Name: name, Index: hours(len(vals)), Values: vals}
}

func TestDeriveMetrics(t *testing.T) {
	t.Parallel()

	m, err := pipeline.DeriveMetrics(series("A", 1, 1.02), series("B", 1, 0.97))
	require.NoError(t, err)

	assert.Equal(t, 1.02, m.NormalizedA)
	assert.Equal(t, 0.97, m.NormalizedB)
	assert.InDelta(t, 2.0, m.ReturnPctA, 1e-9)
	assert.InDelta(t, -3.0, m.ReturnPctB, 1e-9)
	assert.InDelta(t, 0.97/1.02, m.Ratio, 1e-12)
	assert.InDelta(t, -5.0, m.ReturnDiffPct, 1e-9)
	assert.Equal(t, entity.SignalALeading, m.Signal)
}

func TestDeriveMetrics_Consistency(t *testing.T) {
	t.Parallel()

	pairs := [][2]float64{{1, 1}, {1.1, 0.9}, {0.5, 2}, {1.000001, 1.000002}, {3.7, 0.01}}
	for _, p := range pairs {
		m, err := pipeline.DeriveMetrics(series("A", 1, p[0]), series("B", 1, p[1]))
		require.NoError(t, err)

		assert.InEpsilon(t, (1+m.ReturnPctB/100)/(1+m.ReturnPctA/100), m.Ratio, 1e-9)
		assert.Equal(t, m.ReturnPctB-m.ReturnPctA, m.ReturnDiffPct)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b float64
		want entity.Signal
	}{
		{name: "B ahead", a: 1.0, b: 1.01, want: entity.SignalBLeading},
		{name: "A ahead", a: 1.01, b: 1.0, want: entity.SignalALeading},
		{name: "tie resolves to A", a: 1.005, b: 1.005, want: entity.SignalALeading},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, pipeline.Classify(tt.a, tt.b))
		})
	}
}

func TestDeriveMetrics_Errors(t *testing.T) {
	t.Parallel()

	_, err := pipeline.DeriveMetrics(series("A"), series("B", 1))
	assert.ErrorIs(t, err, domain.ErrEmptySeries)

	_, err = pipeline.DeriveMetrics(series("A", 1), series("B"))
	assert.ErrorIs(t, err, domain.ErrEmptySeries)

	_, err = pipeline.DeriveMetrics(series("A", 1, 0), series("B", 1, 1))
	assert.ErrorIs(t, err, domain.ErrDivisionByZero)
}
