package studybridge

import "github.com/wagiedev/study-bridge-go/internal/errors"

// Re-export error types from internal package

// WorkerNotFoundError indicates the worker executable was not found.
type WorkerNotFoundError = errors.WorkerNotFoundError

// SpawnError indicates the worker could not be started or exited before ready.
type SpawnError = errors.SpawnError

// StartupTimeoutError indicates the worker did not report ready in time.
type StartupTimeoutError = errors.StartupTimeoutError

// ProcessError indicates the worker process exited unexpectedly.
type ProcessError = errors.ProcessError

// TimeoutError indicates a command received no response in time.
type TimeoutError = errors.TimeoutError

// ProtocolError indicates a worker response could not be understood.
type ProtocolError = errors.ProtocolError

// UpstreamError indicates the worker reported an error for a command.
type UpstreamError = errors.UpstreamError

// ParseFallbackError describes a parse that substituted fallback content.
type ParseFallbackError = errors.ParseFallbackError

// StudyBridgeError is the base interface for all bridge errors.
type StudyBridgeError = errors.StudyBridgeError

// Re-export sentinel errors from internal package.
var (
	// ErrNotReady indicates the worker is not accepting commands.
	ErrNotReady = errors.ErrNotReady

	// ErrChannelBusy indicates a command was rejected while another was outstanding.
	ErrChannelBusy = errors.ErrChannelBusy

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.ErrRequestTimeout

	// ErrWorkerExited indicates the worker exited while a command was pending.
	ErrWorkerExited = errors.ErrWorkerExited

	// ErrAlreadyLaunched indicates Start was called on a running bridge.
	ErrAlreadyLaunched = errors.ErrAlreadyLaunched

	// ErrBridgeClosed indicates the bridge has been closed and cannot be reused.
	ErrBridgeClosed = errors.ErrBridgeClosed

	// ErrChannelClosed indicates the command channel stopped while a command was pending.
	ErrChannelClosed = errors.ErrChannelClosed
)
