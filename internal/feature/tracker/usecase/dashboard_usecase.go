// Package usecase はトラッカーフィーチャーのビジネスロジック（データ取得からダッシュボード生成まで）を実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pair_tracker/internal/feature/tracker/domain/entity"
	"pair_tracker/internal/feature/tracker/pipeline"
)

// MarketDataSource は指定銘柄・期間・足種の価格テーブルを取得するデータソースです。
// 返されるテーブルの列構造はデータソースごとに異なります。
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type MarketDataSource interface {
	FetchPrices(ctx context.Context, symbols []string, start, end time.Time, interval string) (entity.RawTable, error)
}

// Settings はダッシュボード1回分の生成パラメータです。
type Settings struct {
	SymbolA    string
	SymbolB    string
	LabelA     string // 画面表示用（例: "BTC"）
	LabelB     string
	Interval   string
	WindowDays int
	Weights    pipeline.Weights
	EMASpan    int
	Margin     float64
}

// Params はパイプライン用のパラメータに変換します。
func (s Settings) Params() pipeline.Params {
	return pipeline.Params{
		Symbols:     []string{s.SymbolA, s.SymbolB},
		Weights:     s.Weights,
		EMASpan:     s.EMASpan,
		RangeMargin: s.Margin,
	}
}

// DashboardUsecase はデータソースから直近の価格を取得し、ダッシュボードを生成します。
type DashboardUsecase struct {
	source   MarketDataSource
	settings Settings
}

// NewDashboardUsecase は新しい DashboardUsecase を作成します。
func NewDashboardUsecase(source MarketDataSource, settings Settings) *DashboardUsecase {
	return &DashboardUsecase{source: source, settings: settings}
}

// Build は now を終端とした直近ウィンドウの価格を取得し、1回分のパイプラインを実行します。
// いずれかの段階で失敗した場合は部分的な結果を返さず、エラーのみを返します。
// runID はこのパスのログと生成結果に付与されます。
func (u *DashboardUsecase) Build(ctx context.Context, runID string, now time.Time) (*entity.Dashboard, error) {
	end := now.UTC()
	start := end.AddDate(0, 0, -u.settings.WindowDays)
	symbols := []string{u.settings.SymbolA, u.settings.SymbolB}

	raw, err := u.source.FetchPrices(ctx, symbols, start, end, u.settings.Interval)
	if err != nil {
		slog.Warn("fetch failed", "run_id", runID, "error", err)
		return nil, fmt.Errorf("fetch prices: %w", err)
	}

	res, err := pipeline.Run(raw, u.settings.Params())
	if err != nil {
		slog.Warn("pipeline aborted", "run_id", runID, "error", err)
		return nil, err
	}

	d := Present(res, u.settings, end)
	d.RunID = runID
	slog.Info("dashboard built",
		"run_id", runID,
		"rows", res.Prices.Len(),
		"signal", res.Metrics.Signal,
		"ratio", res.Metrics.Ratio,
	)
	return &d, nil
}
