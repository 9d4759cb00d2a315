// Package externalapi holds the market data provider clients and the decorators shared by them.
package externalapi

import (
	"context"
	"time"

	"pair_tracker/internal/feature/tracker/domain/entity"
	"pair_tracker/internal/feature/tracker/usecase"
	"pair_tracker/internal/shared/retry"
)

// RetryingSource はプロバイダ呼び出しに試行ごとのタイムアウトと再試行を付与します。
type RetryingSource struct {
	inner  usecase.MarketDataSource
	policy retry.Policy
}

var _ usecase.MarketDataSource = (*RetryingSource)(nil)

// NewRetryingSource は inner を policy で包みます。
func NewRetryingSource(inner usecase.MarketDataSource, policy retry.Policy) *RetryingSource {
	return &RetryingSource{inner: inner, policy: policy}
}

// FetchPrices は成功するか再試行回数を使い切るまで inner を呼び出します。
func (s *RetryingSource) FetchPrices(ctx context.Context, symbols []string, start, end time.Time, interval string) (entity.RawTable, error) {
	var out entity.RawTable
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		t, err := s.inner.FetchPrices(ctx, symbols, start, end, interval)
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}
