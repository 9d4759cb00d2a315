// Package di provides dependency injection factories for creating application components.
package di

import (
	"fmt"
	"net/http"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"pair_tracker/internal/feature/tracker/usecase"
	"pair_tracker/internal/platform/cache"
	"pair_tracker/internal/platform/config"
	"pair_tracker/internal/platform/externalapi"
	"pair_tracker/internal/platform/externalapi/binance"
	"pair_tracker/internal/platform/externalapi/twelvedata"
	infrahttp "pair_tracker/internal/platform/http"
	"pair_tracker/internal/platform/metrics"
	"pair_tracker/internal/shared/ratelimiter"
	"pair_tracker/internal/shared/retry"
)

// NewProvider creates the configured market data client with its HTTP client and rate limiter.
// The client timeout follows the configured fetch timeout.
func NewProvider(cfg *config.Config) (usecase.MarketDataSource, error) {
	switch cfg.Provider {
	case config.ProviderTwelveData:
		tc := twelvedata.LoadConfig()
		tc.Timeout = cfg.FetchTimeout()
		limiter := ratelimiter.NewRateLimiter(tc.CallsPerMinute, time.Minute)
		return twelvedata.NewTwelveDataMarket(tc, newHTTPClient(cfg), limiter), nil
	case config.ProviderBinance:
		bc := binance.LoadConfig()
		bc.Timeout = cfg.FetchTimeout()
		limiter := ratelimiter.NewRateLimiter(bc.CallsPerMinute, time.Minute)
		return binance.NewKlineMarket(bc, newHTTPClient(cfg), limiter), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func newHTTPClient(cfg *config.Config) *http.Client {
	return infrahttp.NewHTTPClient(cfg.FetchTimeout())
}

// NewMarket は プロバイダ → 再試行 → Redisキャッシュ の順にラップしたデータソースを返します。
// rdb が nil の場合、キャッシュは素通しになります。
func NewMarket(cfg *config.Config, rdb *redisv9.Client) (*cache.CachingMarketSource, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	retrying := externalapi.NewRetryingSource(provider, retry.Policy{
		Retries: cfg.FetchRetries,
		Timeout: cfg.FetchTimeout(),
		Backoff: 500 * time.Millisecond,
	})
	return cache.NewCachingMarketSource(rdb, cfg.CacheTTL(), retrying, cfg.Provider), nil
}

// NewRefresher wires the dashboard usecase to a refresher that reports to prometheus.
func NewRefresher(cfg *config.Config, source usecase.MarketDataSource) *usecase.Refresher {
	uc := usecase.NewDashboardUsecase(source, cfg.Settings())
	return usecase.NewRefresher(uc, cfg.RefreshInterval(), metrics.PassRecorder{})
}
