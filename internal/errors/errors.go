package errors

import (
	"errors"
	"fmt"
	"time"
)

// StudyBridgeError is the base interface for all bridge errors.
type StudyBridgeError interface {
	error
	IsStudyBridgeError() bool
}

// Compile-time verification that all error types implement StudyBridgeError.
var (
	_ StudyBridgeError = (*WorkerNotFoundError)(nil)
	_ StudyBridgeError = (*SpawnError)(nil)
	_ StudyBridgeError = (*StartupTimeoutError)(nil)
	_ StudyBridgeError = (*ProcessError)(nil)
	_ StudyBridgeError = (*TimeoutError)(nil)
	_ StudyBridgeError = (*ProtocolError)(nil)
	_ StudyBridgeError = (*UpstreamError)(nil)
	_ StudyBridgeError = (*ParseFallbackError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotReady indicates the worker has not reported readiness, has exited,
	// or the bridge failed to start.
	ErrNotReady = errors.New("worker not ready")

	// ErrChannelBusy indicates a command was rejected because another one is
	// still outstanding.
	ErrChannelBusy = errors.New("command channel busy")

	// ErrRequestTimeout indicates a command received no response in time.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrWorkerExited indicates the worker process exited while a command was pending.
	ErrWorkerExited = errors.New("worker process exited")

	// ErrAlreadyLaunched indicates Launch was called twice on one process instance.
	ErrAlreadyLaunched = errors.New("worker already launched: create a new process to relaunch")

	// ErrBridgeClosed indicates the bridge has been closed and cannot be reused.
	ErrBridgeClosed = errors.New("bridge closed: bridges are single-use, create a new one with New()")

	// ErrChannelClosed indicates the command channel has been stopped.
	ErrChannelClosed = errors.New("command channel closed")
)

// WorkerNotFoundError indicates the worker executable could not be located.
type WorkerNotFoundError struct {
	SearchedPaths []string
}

func (e *WorkerNotFoundError) Error() string {
	return fmt.Sprintf("worker executable not found in: %v", e.SearchedPaths)
}

// IsStudyBridgeError implements StudyBridgeError.
func (e *WorkerNotFoundError) IsStudyBridgeError() bool { return true }

// SpawnError indicates the worker process could not be started, or exited
// before it reported readiness.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn worker %q: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsStudyBridgeError implements StudyBridgeError.
func (e *SpawnError) IsStudyBridgeError() bool { return true }

// StartupTimeoutError indicates the worker did not report readiness in time.
// The process, if spawned, is left running for the owner to terminate.
type StartupTimeoutError struct {
	Timeout time.Duration
}

func (e *StartupTimeoutError) Error() string {
	return fmt.Sprintf("worker did not report ready within %s", e.Timeout)
}

// IsStudyBridgeError implements StudyBridgeError.
func (e *StartupTimeoutError) IsStudyBridgeError() bool { return true }

// ProcessError indicates the worker process exited unexpectedly.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("worker process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("worker process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsStudyBridgeError implements StudyBridgeError.
func (e *ProcessError) IsStudyBridgeError() bool { return true }

// TimeoutError indicates a command received no response before its deadline.
// It matches ErrRequestTimeout with errors.Is.
type TimeoutError struct {
	Action  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s after %s", ErrRequestTimeout, e.Action, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return ErrRequestTimeout
}

// IsStudyBridgeError implements StudyBridgeError.
func (e *TimeoutError) IsStudyBridgeError() bool { return true }

// ProtocolError indicates a worker line could not be decoded, or a decoded
// response violated the protocol. RawData preserves the offending line.
type ProtocolError struct {
	RawData string
	Reason  string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid response from worker: %s: %v", e.Reason, e.Err)
	}

	return "invalid response from worker: " + e.Reason
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsStudyBridgeError implements StudyBridgeError.
func (e *ProtocolError) IsStudyBridgeError() bool { return true }

// UpstreamError indicates the worker answered with status "error".
type UpstreamError struct {
	Action  string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("worker reported an error for %s", e.Action)
	}

	return e.Message
}

// IsStudyBridgeError implements StudyBridgeError.
func (e *UpstreamError) IsStudyBridgeError() bool { return true }

// ParseFallbackError describes a degraded parse where fallback content was
// substituted. It is a diagnostic, never returned to callers of the bridge.
type ParseFallbackError struct {
	Parser string
	Reason string
}

func (e *ParseFallbackError) Error() string {
	return fmt.Sprintf("%s parser substituted fallback content: %s", e.Parser, e.Reason)
}

// IsStudyBridgeError implements StudyBridgeError.
func (e *ParseFallbackError) IsStudyBridgeError() bool { return true }
