package studybridge

import (
	"context"
	"fmt"
)

// Bridge supervises one worker process and exposes the study operations.
//
// Lifecycle: bridges are single-use. After Close(), create a new bridge with New().
//
// Example usage:
//
//	b := New(WithLogger(slog.Default()))
//	defer b.Close()
//
//	if err := b.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	mcq, err := b.RequestExercise(ctx, "Newton's Laws")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(mcq.Question, mcq.Options, mcq.Correct)
type Bridge interface {
	// Start launches the worker and waits for its ready line.
	// Returns WorkerNotFoundError if the executable is missing, SpawnError if
	// it cannot be started, StartupTimeoutError if it never reports ready.
	// After a failed Start every command fails with ErrNotReady.
	Start(ctx context.Context) error

	// RequestSubtopics returns an outline of topic with at least three entries.
	RequestSubtopics(ctx context.Context, topic string) (SubtopicList, error)

	// AskQuestion returns the worker's answer to question within subtopic.
	AskQuestion(ctx context.Context, question, subtopic string) (string, error)

	// RequestExercise returns a multiple-choice question on subtopic.
	RequestExercise(ctx context.Context, subtopic string) (*MCQ, error)

	// Status returns a snapshot of the worker state. It never blocks on the worker.
	Status() Status

	// Restart terminates the current worker, if any, and launches a new one.
	// A command in flight fails with ErrChannelClosed.
	Restart(ctx context.Context) error

	// Close terminates the worker. It's safe to call Close multiple times.
	Close() error
}

// New creates a bridge configured by opts. The worker is not launched until Start.
func New(opts ...Option) Bridge {
	return newBridgeImpl(applyOptions(opts))
}

// WithBridge manages bridge lifecycle with automatic cleanup.
//
// This helper creates a bridge, starts it, executes the callback function,
// and ensures the worker is terminated via Close() when done.
//
// If Close() fails, a warning is logged but does not override the callback's error.
//
// Example usage:
//
//	err := studybridge.WithBridge(ctx, func(b studybridge.Bridge) error {
//	    list, err := b.RequestSubtopics(ctx, "Photosynthesis")
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(list)
//	    return nil
//	},
//	    studybridge.WithLogger(log),
//	    studybridge.WithCommandTimeout(30*time.Second),
//	)
func WithBridge(ctx context.Context, fn func(Bridge) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	b := newBridgeImpl(options)

	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			log.Warn("failed to close bridge", "error", closeErr)
		}
	}()

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("failed to start bridge: %w", err)
	}

	return fn(b)
}
