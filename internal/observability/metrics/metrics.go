// Package metrics exposes prometheus instruments for conversation turns and
// call dispatch.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TurnMetrics exposes counters/histograms for the turn engine.
type TurnMetrics struct {
	turnsTotal      *prometheus.CounterVec
	brainLatency    *prometheus.HistogramVec
	toolCallsTotal  *prometheus.CounterVec
	dispatchesTotal *prometheus.CounterVec
}

func NewTurnMetrics(reg prometheus.Registerer) *TurnMetrics {
	m := &TurnMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Completed turns by terminal state",
		}, []string{"outcome"}),
		brainLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "concierge",
			Subsystem: "brain",
			Name:      "request_duration_seconds",
			Help:      "Latency of brain round trips",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"status"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "conversation",
			Name:      "tool_calls_total",
			Help:      "Tool calls handled by canonical name",
		}, []string{"tool"}),
		dispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "calls",
			Name:      "dispatch_total",
			Help:      "Outbound call dispatch attempts by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.brainLatency, m.toolCallsTotal, m.dispatchesTotal)
	return m
}

func (m *TurnMetrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
}

func (m *TurnMetrics) ObserveBrain(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.brainLatency.WithLabelValues(status).Observe(d.Seconds())
}

func (m *TurnMetrics) ObserveToolCall(tool string) {
	if m == nil {
		return
	}
	m.toolCallsTotal.WithLabelValues(tool).Inc()
}

// ObserveDispatch satisfies calls.DispatchRecorder.
func (m *TurnMetrics) ObserveDispatch(status string) {
	if m == nil {
		return
	}
	m.dispatchesTotal.WithLabelValues(status).Inc()
}
