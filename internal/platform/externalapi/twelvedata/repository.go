package twelvedata

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

	"pair_tracker/internal/feature/tracker/domain/entity"
	"pair_tracker/internal/feature/tracker/usecase"
	"pair_tracker/internal/platform/externalapi/twelvedata/dto"
	"pair_tracker/internal/shared/ratelimiter"
)

const (
	queryTimeLayout = "2006-01-02 15:04:05"
	maxOutputSize   = 5000
)

// TwelveDataMarket はTwelve Data外部APIから価格データを取得するMarketDataSource実装です。
// 複数銘柄は1回のバッチリクエストで取得し、(field, symbol) の2段列テーブルとして返します。
type TwelveDataMarket struct {
	cfg     Config
	client  *http.Client
	limiter ratelimiter.Limiter
}

// TwelveDataMarketがMarketDataSourceを実装していることをコンパイル時に検証します。
var _ usecase.MarketDataSource = (*TwelveDataMarket)(nil)

// NewTwelveDataMarket は指定された設定とHTTPクライアントでTwelveDataMarketの新しいインスタンスを生成します。
// limiter が nil の場合はレート制限を行いません。
func NewTwelveDataMarket(cfg Config, client *http.Client, limiter ratelimiter.Limiter) *TwelveDataMarket {
	return &TwelveDataMarket{cfg: cfg, client: client, limiter: limiter}
}

// Interval はアプリ共通の足種（1h, 1d など）をTwelve Dataの表記に変換します。
func Interval(canonical string) (string, error) {
	switch canonical {
	case "1m":
		return "1min", nil
	case "5m":
		return "5min", nil
	case "15m":
		return "15min", nil
	case "30m":
		return "30min", nil
	case "1h", "2h", "4h":
		return canonical, nil
	case "1d":
		return "1day", nil
	case "1w":
		return "1week", nil
	default:
		return "", fmt.Errorf("twelvedata: unsupported interval %q", canonical)
	}
}

// FetchPrices はTwelve Data APIから [start, end] の時系列データを取得します。
// 返されるテーブルはUTCタイムスタンプの昇順で、欠損バーは NaN になります。
func (t *TwelveDataMarket) FetchPrices(ctx context.Context, symbols []string, start, end time.Time, interval string) (entity.RawTable, error) {
	iv, err := Interval(interval)
	if err != nil {
		return entity.RawTable{}, err
	}

	q := url.Values{}
	// クエリパラメータを追加
	q.Set("symbol", strings.Join(symbols, ","))
	q.Set("interval", iv)
	q.Set("start_date", start.UTC().Format(queryTimeLayout))
	q.Set("end_date", end.UTC().Format(queryTimeLayout))
	q.Set("timezone", "UTC")
	q.Set("outputsize", strconv.Itoa(maxOutputSize))
	q.Set("apikey", t.cfg.TwelveDataAPIKey)

	// URLを生成
	u := fmt.Sprintf("%s/time_series?%s", t.cfg.BaseURL, q.Encode())

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return entity.RawTable{}, err
		}
	}

	// リクエストオブジェクトを作成
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return entity.RawTable{}, err
	}

	// リクエストを実行
	res, err := t.client.Do(req)
	if err != nil {
		return entity.RawTable{}, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		return entity.RawTable{}, fmt.Errorf("twelvedata http %d", res.StatusCode)
	}

	// JSONレスポンスを銘柄ごとのDTOにデコード
	bySymbol, err := decodeBatch(res, symbols)
	if err != nil {
		return entity.RawTable{}, err
	}
	return buildTable(symbols, bySymbol)
}

// decodeBatch は単一銘柄・複数銘柄どちらの形式のレスポンスも銘柄→DTOのマップに変換します。
func decodeBatch(res *http.Response, symbols []string) (map[string]dto.TimeSeriesResponse, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, err
	}

	// トップレベルに status がある場合は単一銘柄レスポンス、またはリクエスト全体のエラー
	if _, ok := raw["status"]; ok {
		var body dto.TimeSeriesResponse
		if err := remarshal(raw, &body); err != nil {
			return nil, err
		}
		if body.Status == "error" {
			return nil, fmt.Errorf("twelvedata: %s", body.Message)
		}
		if len(symbols) != 1 {
			return nil, fmt.Errorf("twelvedata: expected a batch response for %d symbols", len(symbols))
		}
		return map[string]dto.TimeSeriesResponse{symbols[0]: body}, nil
	}

	out := make(map[string]dto.TimeSeriesResponse, len(raw))
	for sym, msg := range raw {
		var body dto.TimeSeriesResponse
		if err := json.Unmarshal(msg, &body); err != nil {
			return nil, fmt.Errorf("decode %s: %w", sym, err)
		}
		if body.Status == "error" {
			return nil, fmt.Errorf("twelvedata %s: %s", sym, body.Message)
		}
		out[sym] = body
	}
	return out, nil
}

func remarshal(raw map[string]json.RawMessage, v any) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// buildTable は銘柄ごとのバーを時刻の和集合で揃え、close と（あれば）volume の列を作ります。
// 応答に含まれない銘柄の列は作らず、スキーマ正規化側で検出させます。
func buildTable(symbols []string, bySymbol map[string]dto.TimeSeriesResponse) (entity.RawTable, error) {
	type parsed struct {
		close, volume map[time.Time]float64
		hasVolume     bool
	}

	rows := make(map[time.Time]struct{})
	series := make(map[string]parsed, len(bySymbol))
	for sym, body := range bySymbol {
		p := parsed{close: make(map[time.Time]float64, len(body.Values)), volume: make(map[time.Time]float64)}
		for _, v := range body.Values {
			// タイムスタンプをパース
			tm, err := parseDatetime(v.Datetime)
			if err != nil {
				return entity.RawTable{}, err
			}
			// 終値をパース
			c, err := strconv.ParseFloat(v.Close, 64)
			if err != nil {
				return entity.RawTable{}, fmt.Errorf("parse close %q: %w", v.Close, err)
			}
			p.close[tm] = c
			// 出来高は任意
			if v.Volume != "" {
				vol, err := strconv.ParseFloat(v.Volume, 64)
				if err != nil {
					return entity.RawTable{}, fmt.Errorf("parse volume %q: %w", v.Volume, err)
				}
				p.volume[tm] = vol
				p.hasVolume = true
			}
			rows[tm] = struct{}{}
		}
		series[sym] = p
	}

	index := make([]time.Time, 0, len(rows))
	for tm := range rows {
		index = append(index, tm)
	}
	slices.SortFunc(index, time.Time.Compare)

	column := func(field, sym string, values map[time.Time]float64) entity.RawColumn {
		col := entity.RawColumn{Labels: []string{field, sym}, Values: make([]float64, len(index))}
		for i, tm := range index {
			v, ok := values[tm]
			if !ok {
				v = math.NaN()
			}
			col.Values[i] = v
		}
		return col
	}

	table := entity.RawTable{Index: index, Levels: 2}
	for _, sym := range orderedKeys(symbols, series) {
		table.Columns = append(table.Columns, column("close", sym, series[sym].close))
	}
	for _, sym := range orderedKeys(symbols, series) {
		if series[sym].hasVolume {
			table.Columns = append(table.Columns, column("volume", sym, series[sym].volume))
		}
	}
	return table, nil
}

// orderedKeys は要求順の銘柄を先に、それ以外の銘柄を名前順で後ろに並べます。
func orderedKeys[V any](symbols []string, m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for _, s := range symbols {
		if _, ok := m[s]; ok {
			keys = append(keys, s)
		}
	}
	var rest []string
	for k := range m {
		if !slices.Contains(symbols, k) {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

func parseDatetime(s string) (time.Time, error) {
	tm, err := time.ParseInLocation(queryTimeLayout, s, time.UTC)
	if err != nil {
		tm, err = time.ParseInLocation("2006-01-02", s, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
		}
	}
	return tm, nil
}
