// Package metrics provides Prometheus-based metrics recording for the study bridge.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives bridge observations.
type Recorder interface {
	// ObserveCommand records one completed command and its outcome label.
	ObserveCommand(action, outcome string, duration time.Duration)
	// IncParseFallback counts a parser that substituted fallback content.
	IncParseFallback(parser string)
	// IncOrphanDiscarded counts a late or stale worker line that was dropped.
	IncOrphanDiscarded()
	// IncLaunch counts a launch attempt and its outcome label.
	IncLaunch(outcome string)
	// SetWorkerState marks the worker's current lifecycle state.
	SetWorkerState(state string)
}

// workerStates are the label values of the worker state gauge.
var workerStates = []string{"not_started", "starting", "ready", "exited"} //nolint:gochecknoglobals

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	fallbacksTotal  *prometheus.CounterVec
	orphansTotal    prometheus.Counter
	launchesTotal   *prometheus.CounterVec
	workerState     *prometheus.GaugeVec
}

// Compile-time verification that PrometheusRecorder implements Recorder.
var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder registers the bridge metrics with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		commandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "study_bridge_commands_total",
				Help: "Total number of worker commands by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		commandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "study_bridge_command_duration_seconds",
				Help:    "Duration of worker commands in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"action"},
		),
		fallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "study_bridge_parse_fallbacks_total",
				Help: "Total number of parses that substituted fallback content",
			},
			[]string{"parser"},
		),
		orphansTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "study_bridge_orphaned_responses_total",
				Help: "Total number of late or stale worker responses discarded",
			},
		),
		launchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "study_bridge_worker_launches_total",
				Help: "Total number of worker launch attempts by outcome",
			},
			[]string{"outcome"},
		),
		workerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "study_bridge_worker_state",
				Help: "Current worker lifecycle state (1 for the active state)",
			},
			[]string{"state"},
		),
	}
}

// ObserveCommand records metrics for a completed command.
func (p *PrometheusRecorder) ObserveCommand(action, outcome string, duration time.Duration) {
	p.commandsTotal.WithLabelValues(action, outcome).Inc()
	p.commandDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// IncParseFallback increments the fallback counter for parser.
func (p *PrometheusRecorder) IncParseFallback(parser string) {
	p.fallbacksTotal.WithLabelValues(parser).Inc()
}

// IncOrphanDiscarded increments the discarded response counter.
func (p *PrometheusRecorder) IncOrphanDiscarded() {
	p.orphansTotal.Inc()
}

// IncLaunch increments the launch counter for outcome.
func (p *PrometheusRecorder) IncLaunch(outcome string) {
	p.launchesTotal.WithLabelValues(outcome).Inc()
}

// SetWorkerState sets the gauge for state to 1 and every other state to 0.
func (p *PrometheusRecorder) SetWorkerState(state string) {
	for _, s := range workerStates {
		value := 0.0
		if s == state {
			value = 1
		}

		p.workerState.WithLabelValues(s).Set(value)
	}
}

// NopRecorder discards all observations.
type NopRecorder struct{}

// Compile-time verification that NopRecorder implements Recorder.
var _ Recorder = NopRecorder{}

func (NopRecorder) ObserveCommand(string, string, time.Duration) {}
func (NopRecorder) IncParseFallback(string)                      {}
func (NopRecorder) IncOrphanDiscarded()                          {}
func (NopRecorder) IncLaunch(string)                             {}
func (NopRecorder) SetWorkerState(string)                        {}
