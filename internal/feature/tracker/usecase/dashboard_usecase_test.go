package usecase_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pair_tracker/internal/feature/tracker/domain"
	"pair_tracker/internal/feature/tracker/domain/entity"
	"pair_tracker/internal/feature/tracker/pipeline"
	"pair_tracker/internal/feature/tracker/usecase"
)

// mockMarketDataSource は MarketDataSource インターフェースのモック実装です。
type mockMarketDataSource struct {
	FetchPricesFunc func(ctx context.Context, symbols []string, start, end time.Time, interval string) (entity.RawTable, error)
	FetchCalls      int
}

// FetchPrices は FetchPricesFunc が設定されていればそれを呼び出し、呼び出し回数を記録します。
func (m *mockMarketDataSource) FetchPrices(ctx context.Context, symbols []string, start, end time.Time, interval string) (entity.RawTable, error) {
	m.FetchCalls++
	if m.FetchPricesFunc != nil {
		return m.FetchPricesFunc(ctx, symbols, start, end, interval)
	}
	return entity.RawTable{}, errors.New("FetchPricesFunc is not implemented")
}

var testSettings = usecase.Settings{
	SymbolA:    "BTC/USD",
	SymbolB:    "ETH/USD",
	LabelA:     "BTC",
	LabelB:     "ETH",
	Interval:   "1h",
	WindowDays: 7,
	Weights:    pipeline.EqualWeights,
	EMASpan:    7,
	Margin:     0.005,
}

// twoLevelTable は (field, symbol) の2段列を持つ生テーブルを作成します。
func twoLevelTable(btc, eth []float64) entity.RawTable {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	idx := make([]time.Time, len(btc))
	for i := range idx {
		idx[i] = base.Add(time.Duration(i) * time.Hour)
	}
	return entity.RawTable{
		Index:  idx,
		Levels: 2,
		Columns: []entity.RawColumn{
			{Labels: []string{"close", "BTC/USD"}, Values: btc},
			{Labels: []string{"close", "ETH/USD"}, Values: eth},
			{Labels: []string{"volume", "BTC/USD"}, Values: make([]float64, len(btc))},
		},
	}
}

func TestDashboardUsecase_Build(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 8, 12, 30, 0, 0, time.FixedZone("JST", 9*3600))
	var gotStart, gotEnd time.Time
	var gotSymbols []string
	var gotInterval string
	source := &mockMarketDataSource{
		FetchPricesFunc: func(ctx context.Context, symbols []string, start, end time.Time, interval string) (entity.RawTable, error) {
			gotSymbols, gotStart, gotEnd, gotInterval = symbols, start, end, interval
			return twoLevelTable([]float64{100, math.NaN(), 110}, []float64{10, 11, 12}), nil
		},
	}

	uc := usecase.NewDashboardUsecase(source, testSettings)
	d, err := uc.Build(context.Background(), "run-42", now)
	require.NoError(t, err)

	assert.Equal(t, 1, source.FetchCalls)
	assert.Equal(t, []string{"BTC/USD", "ETH/USD"}, gotSymbols)
	assert.Equal(t, "1h", gotInterval)
	assert.Equal(t, now.UTC(), gotEnd)
	assert.Equal(t, time.UTC, gotEnd.Location())
	assert.Equal(t, now.UTC().AddDate(0, 0, -7), gotStart)

	assert.Equal(t, "run-42", d.RunID)
	assert.Equal(t, now.UTC(), d.GeneratedAt)
	assert.Len(t, d.Charts, 3)
	assert.Len(t, d.Metrics, 3)
	assert.Equal(t, entity.SignalBLeading, d.Banner.Signal)
}

func TestDashboardUsecase_Build_Errors(t *testing.T) {
	t.Parallel()

	errNetwork := errors.New("network down")

	testCases := []struct {
		name    string
		raw     entity.RawTable
		err     error
		wantErr error
	}{
		{name: "fetch error is wrapped", err: errNetwork, wantErr: errNetwork},
		{name: "empty response", raw: entity.RawTable{}, wantErr: domain.ErrInsufficientData},
		{
			name: "unknown columns",
			raw: entity.RawTable{
				Index:   []time.Time{time.Unix(0, 0), time.Unix(3600, 0)},
				Levels:  1,
				Columns: []entity.RawColumn{{Labels: []string{"foo"}, Values: []float64{1, 2}}},
			},
			wantErr: domain.ErrDataShape,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			source := &mockMarketDataSource{
				FetchPricesFunc: func(ctx context.Context, symbols []string, start, end time.Time, interval string) (entity.RawTable, error) {
					return tc.raw, tc.err
				},
			}
			d, err := usecase.NewDashboardUsecase(source, testSettings).Build(context.Background(), "run-1", time.Now())
			assert.Nil(t, d)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}
