// Package config はトラッカーの実行時設定を読み込みます。
// 読み込み順はデフォルト値、TRACKER_CONFIG_FILE のYAML、環境変数の順で、後のものが優先されます。
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pair_tracker/internal/feature/tracker/domain/entity"
	"pair_tracker/internal/feature/tracker/pipeline"
	"pair_tracker/internal/feature/tracker/usecase"
)

// Supported market data providers.
const (
	ProviderTwelveData = "twelvedata"
	ProviderBinance    = "binance"
)

// Config collects every tunable of the tracker process.
type Config struct {
	Provider    string  `yaml:"provider"`
	SymbolA     string  `yaml:"symbol_a"`
	SymbolB     string  `yaml:"symbol_b"`
	LabelA      string  `yaml:"label_a"`
	LabelB      string  `yaml:"label_b"`
	Interval    string  `yaml:"interval"`
	WindowDays  int     `yaml:"window_days"`
	EMASpan     int     `yaml:"ema_span"`
	WeightA     float64 `yaml:"weight_a"`
	WeightB     float64 `yaml:"weight_b"`
	RangeMargin float64 `yaml:"range_margin"`

	RefreshSeconds      int `yaml:"refresh_seconds"`
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
	FetchRetries        int `yaml:"fetch_retries"`
	CacheTTLSeconds     int `yaml:"cache_ttl_seconds"`

	HTTPAddr    string `yaml:"http_addr"`
	CORSEnabled bool   `yaml:"cors_enabled"`
	LogLevel    string `yaml:"log_level"`
}

// Default returns the BTC/ETH hourly configuration.
func Default() Config {
	return Config{
		Provider:            ProviderTwelveData,
		SymbolA:             "BTC/USD",
		SymbolB:             "ETH/USD",
		Interval:            "1h",
		WindowDays:          7,
		EMASpan:             pipeline.DefaultEMASpan,
		WeightA:             pipeline.EqualWeights.A,
		WeightB:             pipeline.EqualWeights.B,
		RangeMargin:         pipeline.DefaultRangeMargin,
		RefreshSeconds:      60,
		FetchTimeoutSeconds: 10,
		FetchRetries:        2,
		HTTPAddr:            ":8080",
		LogLevel:            "info",
	}
}

// Load は設定を組み立てて検証します。ラベル未指定の場合は銘柄名から導出します。
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("TRACKER_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if cfg.LabelA == "" {
		cfg.LabelA = Label(cfg.SymbolA)
	}
	if cfg.LabelB == "" {
		cfg.LabelB = Label(cfg.SymbolB)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFile reads a YAML file, overwriting only the keys it sets.
func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("TRACKER_PROVIDER", &c.Provider)
	str("TRACKER_SYMBOL_A", &c.SymbolA)
	str("TRACKER_SYMBOL_B", &c.SymbolB)
	str("TRACKER_LABEL_A", &c.LabelA)
	str("TRACKER_LABEL_B", &c.LabelB)
	str("TRACKER_INTERVAL", &c.Interval)
	num("TRACKER_WINDOW_DAYS", &c.WindowDays)
	num("TRACKER_EMA_SPAN", &c.EMASpan)
	float("TRACKER_WEIGHT_A", &c.WeightA)
	float("TRACKER_WEIGHT_B", &c.WeightB)
	float("TRACKER_RANGE_MARGIN", &c.RangeMargin)
	num("TRACKER_REFRESH_SECONDS", &c.RefreshSeconds)
	num("TRACKER_FETCH_TIMEOUT_SECONDS", &c.FetchTimeoutSeconds)
	num("TRACKER_FETCH_RETRIES", &c.FetchRetries)
	num("TRACKER_CACHE_TTL_SECONDS", &c.CacheTTLSeconds)
	str("HTTP_ADDR", &c.HTTPAddr)
	boolean("CORS_ENABLED", &c.CORSEnabled)
	str("LOG_LEVEL", &c.LogLevel)

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Provider != ProviderTwelveData && c.Provider != ProviderBinance {
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	if _, err := entity.ParseInterval(c.Interval); err != nil {
		errs = append(errs, err)
	}
	if c.WindowDays < 1 {
		errs = append(errs, fmt.Errorf("window days must be >= 1, got %d", c.WindowDays))
	}
	if c.RefreshSeconds < 1 {
		errs = append(errs, fmt.Errorf("refresh seconds must be >= 1, got %d", c.RefreshSeconds))
	}
	if c.FetchTimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("fetch timeout seconds must be >= 1, got %d", c.FetchTimeoutSeconds))
	}
	if c.CacheTTLSeconds < 0 || c.CacheTTLSeconds > c.RefreshSeconds {
		errs = append(errs, fmt.Errorf("cache ttl seconds must be within 0..%d (refresh seconds), got %d", c.RefreshSeconds, c.CacheTTLSeconds))
	}
	if c.FetchRetries < 0 {
		errs = append(errs, fmt.Errorf("fetch retries must be >= 0, got %d", c.FetchRetries))
	}
	if err := c.Settings().Params().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Settings converts the config into the dashboard usecase settings.
func (c Config) Settings() usecase.Settings {
	return usecase.Settings{
		SymbolA:    c.SymbolA,
		SymbolB:    c.SymbolB,
		LabelA:     c.LabelA,
		LabelB:     c.LabelB,
		Interval:   c.Interval,
		WindowDays: c.WindowDays,
		Weights:    pipeline.Weights{A: c.WeightA, B: c.WeightB},
		EMASpan:    c.EMASpan,
		Margin:     c.RangeMargin,
	}
}

// RefreshInterval returns the auto refresh period.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}

// FetchTimeout returns the per-attempt fetch deadline.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// CacheTTL returns the upper bound for cached provider responses.
// 0 の場合はリフレッシュ間隔と同じになり、毎回のパスで最新の足を取り直します。
func (c Config) CacheTTL() time.Duration {
	if c.CacheTTLSeconds == 0 {
		return c.RefreshInterval()
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Label は "BTC/USD", "ETH-USD", "BTCUSDT" のような銘柄から表示名（"BTC"）を導出します。
func Label(symbol string) string {
	s := strings.ToUpper(symbol)
	for _, sep := range []string{"/", "-"} {
		if i := strings.Index(s, sep); i > 0 {
			return s[:i]
		}
	}
	for _, quote := range []string{"USDT", "USDC", "USD"} {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return strings.TrimSuffix(s, quote)
		}
	}
	return s
}
