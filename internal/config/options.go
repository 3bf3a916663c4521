// Package config provides configuration types for the study bridge.
package config

import (
	"log/slog"
	"time"

	"github.com/wagiedev/study-bridge-go/internal/metrics"
)

const (
	// DefaultStartupTimeout bounds the wait for the worker's ready line.
	DefaultStartupTimeout = 5 * time.Second

	// DefaultCommandTimeout bounds the wait for a single command's response.
	DefaultCommandTimeout = 60 * time.Second

	// DefaultShutdownGrace is how long Terminate waits after the EXIT sentinel
	// before killing the worker.
	DefaultShutdownGrace = 2 * time.Second
)

// ConcurrencyMode controls what happens when a command is issued while
// another one is outstanding.
type ConcurrencyMode string

const (
	// ConcurrencyQueue serializes callers through a FIFO queue.
	ConcurrencyQueue ConcurrencyMode = "queue"
	// ConcurrencyReject fails the second caller with ErrChannelBusy.
	ConcurrencyReject ConcurrencyMode = "reject"
)

// WorkerFactory builds the worker a bridge supervises. A new worker is
// built for every launch, so a process instance is never reused.
type WorkerFactory func(log *slog.Logger, options *Options) Worker

// Options configures the behavior of the study bridge.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// WorkerPath is the explicit path to the worker executable.
	// If empty, the worker is searched in PATH and the default locations.
	WorkerPath string

	// WorkerArgs are passed to the worker executable.
	WorkerArgs []string

	// WorkerDir sets the working directory for the worker process.
	WorkerDir string

	// WorkerEnv provides additional environment variables for the worker process.
	WorkerEnv map[string]string

	// StartupTimeout bounds the wait for the ready line. Zero means DefaultStartupTimeout.
	StartupTimeout time.Duration

	// CommandTimeout bounds each command. Zero means DefaultCommandTimeout.
	CommandTimeout time.Duration

	// ShutdownGrace is the wait between EXIT and kill. Zero means DefaultShutdownGrace.
	ShutdownGrace time.Duration

	// Concurrency selects queueing or rejection of concurrent commands.
	// Empty means ConcurrencyQueue.
	Concurrency ConcurrencyMode

	// LaunchRetry bounds retries of the launch step.
	LaunchRetry LaunchRetry

	// Stderr is a callback function for handling worker stderr output.
	Stderr func(string)

	// Metrics receives command, fallback and lifecycle observations.
	// If nil, metrics are discarded.
	Metrics metrics.Recorder

	// WorkerFactory allows injecting a custom worker implementation.
	// If nil, a subprocess worker is created.
	WorkerFactory WorkerFactory `json:"-"`
}

// EffectiveStartupTimeout returns StartupTimeout or its default.
func (o *Options) EffectiveStartupTimeout() time.Duration {
	if o.StartupTimeout > 0 {
		return o.StartupTimeout
	}

	return DefaultStartupTimeout
}

// EffectiveCommandTimeout returns CommandTimeout or its default.
func (o *Options) EffectiveCommandTimeout() time.Duration {
	if o.CommandTimeout > 0 {
		return o.CommandTimeout
	}

	return DefaultCommandTimeout
}

// EffectiveShutdownGrace returns ShutdownGrace or its default.
func (o *Options) EffectiveShutdownGrace() time.Duration {
	if o.ShutdownGrace > 0 {
		return o.ShutdownGrace
	}

	return DefaultShutdownGrace
}

// EffectiveMetrics returns Metrics, or a recorder that discards everything.
func (o *Options) EffectiveMetrics() metrics.Recorder {
	if o.Metrics != nil {
		return o.Metrics
	}

	return metrics.NopRecorder{}
}
