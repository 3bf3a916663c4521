package config

import "context"

// WorkerState is the lifecycle state of a worker process.
type WorkerState string

const (
	// WorkerNotStarted is the state before Launch.
	WorkerNotStarted WorkerState = "not_started"
	// WorkerStarting means the process is running but has not reported ready.
	WorkerStarting WorkerState = "starting"
	// WorkerReady means the ready line was observed; commands are accepted.
	WorkerReady WorkerState = "ready"
	// WorkerExited means the process has terminated for any reason.
	WorkerExited WorkerState = "exited"
)

// Worker defines the interface for the external content-generation process.
// Implement this to provide fake workers for testing or alternative
// process hosts.
//
// The default implementation is subprocess.Process.
type Worker interface {
	// Launch starts the worker and blocks until it reports ready,
	// the startup deadline passes, or the process exits.
	Launch(ctx context.Context) error

	// Lines returns stdout lines observed after readiness.
	// The channel is closed when the worker exits.
	Lines() <-chan []byte

	// WriteLine writes one line to the worker's stdin.
	// A trailing newline is appended if missing. Fails with ErrNotReady
	// unless the worker is ready.
	WriteLine(ctx context.Context, data []byte) error

	// IsReady returns true while the worker is in the ready state.
	IsReady() bool

	// State returns the current lifecycle state.
	State() WorkerState

	// PID returns the process identifier, or 0 before spawn.
	PID() int

	// Done returns a channel that is closed when the worker exits.
	Done() <-chan struct{}

	// Err returns the exit error after Done is closed, nil on a requested
	// or clean exit.
	Err() error

	// Terminate sends the shutdown sentinel and then stops the worker.
	// It's safe to call Terminate multiple times.
	Terminate() error
}
