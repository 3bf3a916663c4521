package studybridge

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wagiedev/study-bridge-go/internal/bridge"
	"github.com/wagiedev/study-bridge-go/internal/config"
	"github.com/wagiedev/study-bridge-go/internal/message"
	"github.com/wagiedev/study-bridge-go/internal/metrics"
)

// Re-export content types from internal package.
type (
	// SubtopicList is an ordered, duplicate-free outline of a topic.
	SubtopicList = message.SubtopicList

	// MCQ is a multiple-choice question with exactly four options.
	MCQ = message.MCQ
)

// Status is a snapshot of the worker as seen by the bridge.
type Status = bridge.Status

// Options configures the bridge. Prefer the With* functions.
type Options = config.Options

// LaunchRetry bounds retries of a failed Start.
type LaunchRetry = config.LaunchRetry

// ConcurrencyMode controls queueing or rejection of concurrent commands.
type ConcurrencyMode = config.ConcurrencyMode

// Concurrency modes.
const (
	ConcurrencyQueue  = config.ConcurrencyQueue
	ConcurrencyReject = config.ConcurrencyReject
)

// Worker is the process the bridge supervises.
type Worker = config.Worker

// WorkerFactory builds a new Worker for every launch.
type WorkerFactory = config.WorkerFactory

// WorkerState is the lifecycle state of a worker.
type WorkerState = config.WorkerState

// Worker lifecycle states.
const (
	WorkerNotStarted = config.WorkerNotStarted
	WorkerStarting   = config.WorkerStarting
	WorkerReady      = config.WorkerReady
	WorkerExited     = config.WorkerExited
)

// MetricsRecorder receives bridge observations.
type MetricsRecorder = metrics.Recorder

// NewPrometheusRecorder registers the bridge metrics with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) MetricsRecorder {
	return metrics.NewPrometheusRecorder(reg)
}
