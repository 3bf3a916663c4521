package studybridge

import (
	"log/slog"
	"maps"
	"time"

	"github.com/wagiedev/study-bridge-go/internal/config"
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to a fresh Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMetrics sets the recorder for command, fallback and lifecycle metrics.
// See NewPrometheusRecorder.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(o *Options) {
		o.Metrics = recorder
	}
}

// ===== Worker Process =====

// WithWorkerPath sets an explicit path to the worker executable.
func WithWorkerPath(path string) Option {
	return func(o *Options) {
		o.WorkerPath = path
	}
}

// WithWorkerArgs sets the arguments passed to the worker executable.
func WithWorkerArgs(args ...string) Option {
	return func(o *Options) {
		o.WorkerArgs = args
	}
}

// WithWorkerDir sets the worker's working directory.
func WithWorkerDir(dir string) Option {
	return func(o *Options) {
		o.WorkerDir = dir
	}
}

// WithWorkerEnv adds environment variables for the worker process, e.g. GEMINI_API_KEY.
// Repeated calls merge, later values win.
func WithWorkerEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.WorkerEnv == nil {
			o.WorkerEnv = make(map[string]string, len(env))
		}

		maps.Copy(o.WorkerEnv, env)
	}
}

// WithStderr sets a callback for each line the worker writes to stderr.
func WithStderr(handler func(string)) Option {
	return func(o *Options) {
		o.Stderr = handler
	}
}

// WithWorkerFactory replaces the subprocess worker, typically with a fake in tests.
func WithWorkerFactory(factory WorkerFactory) Option {
	return func(o *Options) {
		o.WorkerFactory = factory
	}
}

// ===== Timing =====

// WithStartupTimeout bounds the wait for the worker's ready line (default 5s).
func WithStartupTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.StartupTimeout = timeout
	}
}

// WithCommandTimeout bounds the wait for each response (default 60s).
func WithCommandTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.CommandTimeout = timeout
	}
}

// WithShutdownGrace sets how long Close waits after the EXIT line before
// killing the worker (default 2s).
func WithShutdownGrace(grace time.Duration) Option {
	return func(o *Options) {
		o.ShutdownGrace = grace
	}
}

// WithLaunchRetry retries a failed Start. It never retries commands and
// never relaunches a worker that crashed after becoming ready.
func WithLaunchRetry(retry LaunchRetry) Option {
	return func(o *Options) {
		o.LaunchRetry = retry
	}
}

// ===== Concurrency =====

// WithConcurrency selects what happens when a command is issued while another
// is outstanding: ConcurrencyQueue (default) or ConcurrencyReject.
func WithConcurrency(mode ConcurrencyMode) Option {
	return func(o *Options) {
		o.Concurrency = mode
	}
}

// WithRejectConcurrent makes concurrent commands fail with ErrChannelBusy
// instead of queueing.
func WithRejectConcurrent() Option {
	return WithConcurrency(config.ConcurrencyReject)
}
