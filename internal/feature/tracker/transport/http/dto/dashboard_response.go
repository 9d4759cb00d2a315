// Package dto はトラッカーAPIのレスポンスDTOを定義します。
package dto

import (
	"math"
	"time"

	"pair_tracker/internal/feature/tracker/domain/entity"
)

// DashboardResponse は /api/dashboard と WebSocket で配信されるスナップショットです。
// Status が "ok" のときはチャート類、"error" のときは Error が設定されます。
type DashboardResponse struct {
	Status      string           `json:"status"` // ok, error, pending
	RunID       string           `json:"run_id,omitempty"`
	GeneratedAt *time.Time       `json:"generated_at,omitempty"`
	Symbols     []string         `json:"symbols,omitempty"`
	Charts      []ChartResponse  `json:"charts,omitempty"`
	Metrics     []MetricResponse `json:"metrics,omitempty"`
	Banner      *BannerResponse  `json:"banner,omitempty"`
	Captions    []string         `json:"captions,omitempty"`
	Error       *ErrorResponse   `json:"error,omitempty"`
	LastRefresh *time.Time       `json:"last_refresh,omitempty"`
	NextRefresh *time.Time       `json:"next_refresh,omitempty"`
}

// ChartResponse はplotly.jsでそのまま描画できる形のチャート仕様です。
type ChartResponse struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	XTitle  string           `json:"x_title"`
	YTitle  string           `json:"y_title"`
	Height  int              `json:"height"`
	YRange  []float64        `json:"y_range,omitempty"` // [min, max]
	Series  []SeriesResponse `json:"series"`
	Caption string           `json:"caption,omitempty"`
}

// SeriesResponse は1本の線です。欠損値は null になります。
type SeriesResponse struct {
	Name  string     `json:"name"`
	X     []string   `json:"x"` // RFC3339 (UTC)
	Y     []*float64 `json:"y"`
	Color string     `json:"color"`
	Width int        `json:"width"`
	Dash  string     `json:"dash,omitempty"`
}

// MetricResponse は (label, value, delta) の表示用指標です。
type MetricResponse struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Delta string `json:"delta"`
}

// BannerResponse はシグナルバナーです。
type BannerResponse struct {
	Level   string `json:"level"`
	Signal  string `json:"signal"`
	Message string `json:"message"`
}

// ErrorResponse は失敗したパスの内容です。
type ErrorResponse struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Columns []string `json:"columns,omitempty"`
}

// FromSnapshot converts the refresher state to its wire form.
func FromSnapshot(s entity.Snapshot) DashboardResponse {
	out := DashboardResponse{Status: "pending"}
	if !s.LastRefresh.IsZero() {
		last, next := s.LastRefresh.UTC(), s.NextRefresh.UTC()
		out.LastRefresh, out.NextRefresh = &last, &next
	}

	switch {
	case s.Failure != nil:
		out.Status = "error"
		out.RunID = s.Failure.RunID
		out.Error = &ErrorResponse{Kind: s.Failure.Kind, Message: s.Failure.Message, Columns: s.Failure.Columns}
	case s.Dashboard != nil:
		d := s.Dashboard
		gen := d.GeneratedAt.UTC()
		out.Status = "ok"
		out.RunID = d.RunID
		out.GeneratedAt = &gen
		out.Symbols = d.Symbols
		out.Captions = d.Captions
		out.Banner = &BannerResponse{Level: string(d.Banner.Level), Signal: string(d.Banner.Signal), Message: d.Banner.Message}
		for _, c := range d.Charts {
			out.Charts = append(out.Charts, chartFrom(c))
		}
		for _, m := range d.Metrics {
			out.Metrics = append(out.Metrics, MetricResponse{Label: m.Label, Value: m.Value, Delta: m.Delta})
		}
	}
	return out
}

func chartFrom(c entity.ChartSpec) ChartResponse {
	out := ChartResponse{
		ID:      c.ID,
		Title:   c.Title,
		XTitle:  c.XAxisTitle,
		YTitle:  c.YAxisTitle,
		Height:  c.Height,
		Series:  make([]SeriesResponse, 0, len(c.Series)),
		Caption: c.Caption,
	}
	if c.YRange != nil {
		out.YRange = []float64{c.YRange.Min, c.YRange.Max}
	}
	for _, s := range c.Series {
		x := make([]string, len(s.X))
		for i, t := range s.X {
			x[i] = t.UTC().Format(time.RFC3339)
		}
		y := make([]*float64, len(s.Y))
		for i, v := range s.Y {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				v := v
				y[i] = &v
			}
		}
		out.Series = append(out.Series, SeriesResponse{
			Name: s.Name, X: x, Y: y,
			Color: s.Style.Color, Width: s.Style.Width, Dash: s.Style.Dash,
		})
	}
	return out
}
