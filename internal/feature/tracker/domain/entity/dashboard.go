package entity

import "time"

// LineStyle carries plotting hints for a line series.
type LineStyle struct {
	Color string
	Width int
	Dash  string // "", "dash" or "dot"
}

// LineSeries is one named line on a chart.
type LineSeries struct {
	Name  string
	X     []time.Time
	Y     []float64
	Style LineStyle
}

// ChartSpec describes one chart for the external renderer.
type ChartSpec struct {
	ID         string
	Title      string
	XAxisTitle string
	YAxisTitle string
	Height     int
	Series     []LineSeries
	YRange     *AxisRange // only set for the portfolio chart
	Caption    string     // shown under the chart
}

// MetricWidget is a compact stat (label, value, delta) triple.
type MetricWidget struct {
	Label string
	Value string
	Delta string
}

// BannerLevel is the visual state of the signal banner.
type BannerLevel string

const (
	BannerSuccess BannerLevel = "success"
	BannerWarning BannerLevel = "warning"
)

// Banner is the signal banner shown under the metrics.
type Banner struct {
	Level   BannerLevel
	Signal  Signal
	Message string
}

// Dashboard is everything one successful pass produces for display.
type Dashboard struct {
	RunID       string
	GeneratedAt time.Time
	Symbols     []string
	Charts      []ChartSpec
	Metrics     []MetricWidget
	Banner      Banner
	Captions    []string
}

// Failure describes a pass that aborted. Nothing is rendered for it.
type Failure struct {
	RunID   string
	Kind    string
	Message string
	Columns []string // raw column labels, set for shape errors
	At      time.Time
}

// Snapshot is the state the scheduler host publishes after each pass.
// Exactly one of Dashboard and Failure is set once the first pass has run.
type Snapshot struct {
	Dashboard   *Dashboard
	Failure     *Failure
	LastRefresh time.Time
	NextRefresh time.Time
}
