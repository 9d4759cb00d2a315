package entity

import "time"

// Series is a named float sequence sharing a timestamp index.
type Series struct {
	Name   string
	Index  []time.Time
	Values []float64
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Values) }

// Last returns the most recent observation.
func (s Series) Last() (float64, bool) {
	if len(s.Values) == 0 {
		return 0, false
	}
	return s.Values[len(s.Values)-1], true
}

// AxisRange is a fixed y-axis domain used as a rendering hint.
type AxisRange struct {
	Min float64
	Max float64
}

// Portfolio holds the normalized (base = 1.0) trajectories of each symbol
// and their fixed-weight blend.
type Portfolio struct {
	Normalized []Series // aligned with PriceTable.Symbols
	Blend      Series
	Range      AxisRange
}

// Signal is the two-way classification of which symbol is ahead.
type Signal string

const (
	// SignalALeading: the first symbol's normalized value is greater than or equal to the second's.
	SignalALeading Signal = "a_leading"
	// SignalBLeading: the second symbol's normalized value is strictly greater.
	SignalBLeading Signal = "b_leading"
)

// Metrics is the comparative snapshot taken from the final normalized row.
type Metrics struct {
	NormalizedA   float64
	NormalizedB   float64
	ReturnPctA    float64
	ReturnPctB    float64
	Ratio         float64 // NormalizedB / NormalizedA
	ReturnDiffPct float64 // ReturnPctB - ReturnPctA
	Signal        Signal
}
