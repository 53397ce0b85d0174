package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics tracks settlement runs, transfer outcomes and live streams.
// A nil *SettlementMetrics is valid and records nothing.
type SettlementMetrics struct {
	runs      *prometheus.CounterVec
	duration  prometheus.Histogram
	transfers *prometheus.CounterVec
	streams   prometheus.Gauge
}

func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_runs_total",
		Help: "Settlement runs by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_duration_seconds",
		Help:    "Time taken to plan and execute a settlement.",
		Buckets: prometheus.DefBuckets,
	})
	transfers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_transfers_total",
		Help: "Settlement transfer records by status.",
	}, []string{"status"})
	streams := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "session_streams_open",
		Help: "Open live session streams.",
	})
	reg.MustRegister(runs, duration, transfers, streams)
	return &SettlementMetrics{
		runs:      runs,
		duration:  duration,
		transfers: transfers,
		streams:   streams,
	}
}

func (m *SettlementMetrics) ObserveRun(outcome string, elapsed time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *SettlementMetrics) IncTransfer(status string) {
	if m == nil || m.transfers == nil {
		return
	}
	m.transfers.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *SettlementMetrics) StreamOpened() {
	if m == nil || m.streams == nil {
		return
	}
	m.streams.Inc()
}

func (m *SettlementMetrics) StreamClosed() {
	if m == nil || m.streams == nil {
		return
	}
	m.streams.Dec()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
