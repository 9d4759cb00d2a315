// Package metrics exposes prometheus collectors for dashboard refresh passes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tracker_refresh_total", Help: "Refresh passes by outcome kind"},
		[]string{"kind"},
	)
	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "tracker_refresh_duration_seconds", Help: "Wall time of one refresh pass", Buckets: prometheus.DefBuckets},
	)
	LastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "tracker_last_success_timestamp_seconds", Help: "Unix time of the last successful pass"},
	)
)

func init() {
	prometheus.MustRegister(RefreshTotal, RefreshDuration, LastSuccess)
}

// ClientCounter reports the number of connected dashboard clients.
type ClientCounter interface {
	ClientCount() int
}

// NewClientsGauge exposes the live websocket client count as tracker_ws_clients.
func NewClientsGauge(c ClientCounter) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: "tracker_ws_clients", Help: "Connected websocket clients"},
		func() float64 { return float64(c.ClientCount()) },
	)
}

// PassRecorder writes refresh outcomes to the package collectors.
type PassRecorder struct{}

// ObservePass records one pass. kind is "ok" for a successful pass.
func (PassRecorder) ObservePass(kind string, elapsed time.Duration, at time.Time) {
	RefreshTotal.WithLabelValues(kind).Inc()
	RefreshDuration.Observe(elapsed.Seconds())
	if kind == "ok" {
		LastSuccess.Set(float64(at.Unix()))
	}
}
