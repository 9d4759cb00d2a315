package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"pair_tracker/internal/feature/tracker/domain/entity"
	"pair_tracker/internal/feature/tracker/usecase"
	"pair_tracker/internal/shared/ratelimiter"
)

const (
	pageLimit = 1000
	maxPages  = 50
)

// KlineMarket は Binance の /api/v3/klines から終値を取得する MarketDataSource 実装です。
// 銘柄ごとに並行してリクエストし、銘柄名をそのまま列名にした1段列テーブルを返します。
type KlineMarket struct {
	cfg     Config
	client  *http.Client
	limiter ratelimiter.Limiter
}

var _ usecase.MarketDataSource = (*KlineMarket)(nil)

// NewKlineMarket は新しい KlineMarket を作成します。limiter は nil でも構いません。
func NewKlineMarket(cfg Config, client *http.Client, limiter ratelimiter.Limiter) *KlineMarket {
	return &KlineMarket{cfg: cfg, client: client, limiter: limiter}
}

// Interval maps a canonical interval to Binance notation.
func Interval(canonical string) (string, error) {
	switch canonical {
	case "1m", "5m", "15m", "30m", "1h", "2h", "4h", "1d", "1w":
		return canonical, nil
	default:
		return "", fmt.Errorf("binance: unsupported interval %q", canonical)
	}
}

// ExchangeSymbol は "BTC/USD" や "ETH-USD" を Binance のペア表記 ("BTCUSDT") に変換します。
func ExchangeSymbol(symbol string) string {
	s := strings.ToUpper(strings.NewReplacer("/", "", "-", "").Replace(symbol))
	if strings.HasSuffix(s, "USD") {
		s += "T"
	}
	return s
}

type bar struct {
	openTime time.Time
	close    float64
}

// FetchPrices は各銘柄の klines を並行取得し、時刻の和集合で揃えた終値テーブルを返します。
func (m *KlineMarket) FetchPrices(ctx context.Context, symbols []string, start, end time.Time, interval string) (entity.RawTable, error) {
	iv, err := Interval(interval)
	if err != nil {
		return entity.RawTable{}, err
	}

	bars := make([][]bar, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	for i, sym := range symbols {
		g.Go(func() error {
			b, err := m.fetchSymbol(gctx, ExchangeSymbol(sym), iv, start, end)
			if err != nil {
				return fmt.Errorf("binance %s: %w", sym, err)
			}
			bars[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return entity.RawTable{}, err
	}
	return buildTable(symbols, bars), nil
}

// fetchSymbol は startTime を進めながら end までページングします。
func (m *KlineMarket) fetchSymbol(ctx context.Context, pair, interval string, start, end time.Time) ([]bar, error) {
	var out []bar
	from := start.UTC().UnixMilli()
	to := end.UTC().UnixMilli()
	for page := 0; page < maxPages && from <= to; page++ {
		b, err := m.fetchPage(ctx, pair, interval, from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
		if len(b) < pageLimit {
			break
		}
		from = b[len(b)-1].openTime.UnixMilli() + 1
	}
	return out, nil
}

func (m *KlineMarket) fetchPage(ctx context.Context, pair, interval string, from, to int64) ([]bar, error) {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	q := url.Values{}
	q.Set("symbol", pair)
	q.Set("interval", interval)
	q.Set("startTime", strconv.FormatInt(from, 10))
	q.Set("endTime", strconv.FormatInt(to, 10))
	q.Set("limit", strconv.Itoa(pageLimit))
	u := fmt.Sprintf("%s/api/v3/klines?%s", m.cfg.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	res, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		if json.NewDecoder(res.Body).Decode(&apiErr) == nil && apiErr.Msg != "" {
			return nil, fmt.Errorf("http %d: %s", res.StatusCode, apiErr.Msg)
		}
		return nil, fmt.Errorf("http %d", res.StatusCode)
	}

	// [openTime, open, high, low, close, volume, closeTime, ...]
	var rows [][]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, err
	}
	out := make([]bar, 0, len(rows))
	for _, r := range rows {
		if len(r) < 5 {
			return nil, fmt.Errorf("kline with %d fields", len(r))
		}
		var openMs int64
		if err := json.Unmarshal(r[0], &openMs); err != nil {
			return nil, fmt.Errorf("parse open time %s: %w", r[0], err)
		}
		var closeStr string
		if err := json.Unmarshal(r[4], &closeStr); err != nil {
			return nil, fmt.Errorf("parse close %s: %w", r[4], err)
		}
		c, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			return nil, fmt.Errorf("parse close %q: %w", closeStr, err)
		}
		out = append(out, bar{openTime: time.UnixMilli(openMs).UTC(), close: c})
	}
	return out, nil
}

func buildTable(symbols []string, bars [][]bar) entity.RawTable {
	seen := make(map[time.Time]struct{})
	var index []time.Time
	for _, bs := range bars {
		for _, b := range bs {
			if _, ok := seen[b.openTime]; !ok {
				seen[b.openTime] = struct{}{}
				index = append(index, b.openTime)
			}
		}
	}
	slices.SortFunc(index, time.Time.Compare)

	pos := make(map[time.Time]int, len(index))
	for i, tm := range index {
		pos[tm] = i
	}

	table := entity.RawTable{Index: index, Levels: 1}
	for i, sym := range symbols {
		values := make([]float64, len(index))
		for j := range values {
			values[j] = math.NaN()
		}
		for _, b := range bars[i] {
			values[pos[b.openTime]] = b.close
		}
		table.Columns = append(table.Columns, entity.RawColumn{Labels: []string{sym}, Values: values})
	}
	return table
}
