package usecase

import (
	"fmt"
	"math"
	"time"

	"pair_tracker/internal/feature/tracker/domain/entity"
	"pair_tracker/internal/feature/tracker/pipeline"
)

// Chart IDs used by the page to place each chart.
const (
	ChartPortfolio = "portfolio"
	ChartPriceA    = "price_a"
	ChartPriceB    = "price_b"
)

const (
	xAxisTitle   = "Datetime (UTC)"
	captionTime  = "2006-01-02 15:04:05 (UTC)"
	portfolioH   = 700
	priceChartH  = 600
	normalizeMsg = "Notes: portfolio chart is normalized (start = 1.0). Price charts use absolute USD prices and their own scales."
)

// 価格チャートの配色（A, B の順）
var priceStyles = [2]struct{ price, ema string }{
	{price: "orange", ema: "black"},
	{price: "purple", ema: "green"},
}

// Present はパイプライン結果を描画用のチャート仕様・メトリクス・シグナルバナーに変換します。
func Present(res *pipeline.Result, s Settings, now time.Time) entity.Dashboard {
	labels := [2]string{s.LabelA, s.LabelB}
	norm := res.Portfolio.Normalized
	stamp := now.UTC().Format(captionTime)

	portfolio := entity.ChartSpec{
		ID:         ChartPortfolio,
		Title:      fmt.Sprintf("Portfolio Performance (Last %d days, normalized)", s.WindowDays),
		XAxisTitle: xAxisTitle,
		YAxisTitle: "Normalized value (Base = 1.0)",
		Height:     portfolioH,
		Series: []entity.LineSeries{
			{Name: "100% " + labels[0], X: norm[0].Index, Y: norm[0].Values, Style: entity.LineStyle{Color: "#FF9900", Width: 3}},
			{Name: "100% " + labels[1], X: norm[1].Index, Y: norm[1].Values, Style: entity.LineStyle{Color: "#6A5ACD", Width: 3}},
			{Name: BlendLabel(s), X: res.Portfolio.Blend.Index, Y: res.Portfolio.Blend.Values, Style: entity.LineStyle{Color: "black", Width: 4, Dash: "dash"}},
		},
		YRange:  &entity.AxisRange{Min: res.Portfolio.Range.Min, Max: res.Portfolio.Range.Max},
		Caption: "Portfolio chart last updated: " + stamp,
	}

	charts := []entity.ChartSpec{portfolio}
	for i, id := range []string{ChartPriceA, ChartPriceB} {
		symbol := res.Prices.Symbols[i]
		charts = append(charts, entity.ChartSpec{
			ID:         id,
			Title:      fmt.Sprintf("%s (%s) Price (Last %d days) & %d-period EMA", labels[i], symbol, s.WindowDays, s.EMASpan),
			XAxisTitle: xAxisTitle,
			YAxisTitle: "Price (USD)",
			Height:     priceChartH,
			Caption:    labels[i] + " price last updated: " + stamp,
			Series: []entity.LineSeries{
				{Name: labels[i] + " Price", X: res.Prices.Index, Y: res.Prices.Columns[i], Style: entity.LineStyle{Color: priceStyles[i].price, Width: 3}},
				{Name: fmt.Sprintf("%d-period EMA", s.EMASpan), X: res.Trends[i].Index, Y: res.Trends[i].Values, Style: entity.LineStyle{Color: priceStyles[i].ema, Width: 3, Dash: "dot"}},
			},
		})
	}

	return entity.Dashboard{
		GeneratedAt: now.UTC(),
		Symbols:     append([]string(nil), res.Prices.Symbols...),
		Charts:      charts,
		Metrics:     MetricWidgets(res.Metrics, labels[0], labels[1]),
		Banner:      SignalBanner(res.Metrics, labels[0], labels[1]),
		Captions:    []string{normalizeMsg},
	}
}

// BlendLabel は "50% BTC + 50% ETH (Average)" 形式の凡例名を返します。
func BlendLabel(s Settings) string {
	return fmt.Sprintf("%s%% %s + %s%% %s (Average)",
		pct(s.Weights.A), s.LabelA, pct(s.Weights.B), s.LabelB)
}

func pct(w float64) string {
	v := w * 100
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

// MetricWidgets returns the three (label, value, delta) stat triples.
func MetricWidgets(m entity.Metrics, labelA, labelB string) []entity.MetricWidget {
	return []entity.MetricWidget{
		{Label: labelA + " normalized", Value: fmt.Sprintf("%.4f", m.NormalizedA), Delta: fmt.Sprintf("%.2f%%", m.ReturnPctA)},
		{Label: labelB + " normalized", Value: fmt.Sprintf("%.4f", m.NormalizedB), Delta: fmt.Sprintf("%.2f%%", m.ReturnPctB)},
		{Label: labelB + "/" + labelA + " ratio", Value: fmt.Sprintf("%.4f", m.Ratio), Delta: fmt.Sprintf("%.2f%%", m.ReturnDiffPct)},
	}
}

// SignalBanner は B がリードしていれば success、そうでなければ warning のバナーを返します。
func SignalBanner(m entity.Metrics, labelA, labelB string) entity.Banner {
	ratio := fmt.Sprintf("%s/%s ratio %.4f", labelB, labelA, m.Ratio)
	if m.Signal == entity.SignalBLeading {
		return entity.Banner{
			Level:   entity.BannerSuccess,
			Signal:  m.Signal,
			Message: fmt.Sprintf("%s Recovery Detected - %s > %s (%s)", labelB, labelB, labelA, ratio),
		}
	}
	return entity.Banner{
		Level:   entity.BannerWarning,
		Signal:  m.Signal,
		Message: fmt.Sprintf("%s Leading - %s > %s (%s)", labelA, labelA, labelB, ratio),
	}
}
