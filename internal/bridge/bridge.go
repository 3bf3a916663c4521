package bridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/study-bridge-go/internal/config"
	"github.com/wagiedev/study-bridge-go/internal/errors"
	"github.com/wagiedev/study-bridge-go/internal/message"
	"github.com/wagiedev/study-bridge-go/internal/metrics"
	"github.com/wagiedev/study-bridge-go/internal/protocol"
	"github.com/wagiedev/study-bridge-go/internal/subprocess"
)

// Status is a snapshot of the worker as seen by the bridge.
type Status struct {
	// Running is true while a worker process exists and has not exited.
	Running bool `json:"running"`
	// Ready is true while the worker accepts commands.
	Ready bool `json:"ready"`
	// PID is the worker's process id, 0 when not running.
	PID int `json:"pid"`
	// State is the worker lifecycle state.
	State config.WorkerState `json:"state"`
	// Restarts counts successful and failed Restart calls.
	Restarts int `json:"restarts"`
}

// Bridge implements the study operations on top of a supervised worker.
type Bridge struct {
	log     *slog.Logger
	options *config.Options
	metrics metrics.Recorder
	factory config.WorkerFactory

	// lifecycleMu serializes Start, Restart and Close.
	lifecycleMu sync.Mutex

	mu       sync.Mutex
	worker   config.Worker
	channel  *protocol.Channel
	restarts int
	closed   bool

	eg        errgroup.Group
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a bridge. The worker is not launched until Start.
func New(options *config.Options) *Bridge {
	if options == nil {
		options = &config.Options{}
	}

	log := options.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	factory := options.WorkerFactory
	if factory == nil {
		factory = subprocess.Factory
	}

	return &Bridge{
		log:     log.With("component", "bridge"),
		options: options,
		metrics: options.EffectiveMetrics(),
		factory: factory,
		done:    make(chan struct{}),
	}
}

// Start launches the worker and attaches the command channel.
//
// On failure the bridge keeps refusing commands with ErrNotReady; Restart
// may be used to try again.
func (b *Bridge) Start(ctx context.Context) error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	b.mu.Lock()
	closed, launched := b.closed, b.worker != nil
	b.mu.Unlock()

	if closed {
		return errors.ErrBridgeClosed
	}

	if launched {
		return errors.ErrAlreadyLaunched
	}

	return b.launch(ctx)
}

// Restart terminates the current worker, if any, and launches a new one.
// A command in flight fails with ErrChannelClosed.
func (b *Bridge) Restart(ctx context.Context) error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()

		return errors.ErrBridgeClosed
	}

	b.restarts++
	b.mu.Unlock()

	b.log.Info("Restarting worker")

	if err := b.detach(); err != nil {
		b.log.Warn("Failed to terminate previous worker", "error", err)
	}

	return b.launch(ctx)
}

// launch runs the launch step with bounded retry. Caller holds lifecycleMu.
func (b *Bridge) launch(ctx context.Context) error {
	retry := b.options.LaunchRetry
	attempts := retry.MaxAttempts()

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if delay := retry.Delay(attempt); delay > 0 {
			b.log.Info("Retrying worker launch", "attempt", attempt, "delay", delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		worker := b.factory(b.log, b.options)

		b.mu.Lock()
		b.worker = worker
		b.mu.Unlock()

		b.metrics.SetWorkerState(string(config.WorkerStarting))

		err := worker.Launch(ctx)
		if err == nil {
			b.metrics.IncLaunch("success")
			b.attach(worker)

			return nil
		}

		lastErr = err

		b.metrics.IncLaunch(launchOutcome(err))
		b.log.Error("Worker launch failed", "attempt", attempt, "attempts", attempts, "error", err)

		if termErr := worker.Terminate(); termErr != nil {
			b.log.Warn("Failed to terminate worker after failed launch", "error", termErr)
		}

		b.metrics.SetWorkerState(string(config.WorkerExited))

		if !retryable(ctx, err) {
			break
		}
	}

	return fmt.Errorf("start worker: %w", lastErr)
}

// retryable reports whether another launch attempt could succeed.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	if _, ok := stderrors.AsType[*errors.WorkerNotFoundError](err); ok {
		return false
	}

	return true
}

// attach wires a ready worker to a new channel and watches for its exit.
func (b *Bridge) attach(worker config.Worker) {
	channel := protocol.NewChannel(b.log, worker, b.options)
	channel.Start()

	b.mu.Lock()
	b.channel = channel
	b.mu.Unlock()

	b.metrics.SetWorkerState(string(config.WorkerReady))

	b.eg.Go(func() error {
		select {
		case <-worker.Done():
		case <-b.done:
			return nil
		}

		b.metrics.SetWorkerState(string(config.WorkerExited))

		if err := worker.Err(); err != nil {
			b.log.Error("Worker exited unexpectedly, commands will fail until restart", "error", err)
		} else {
			b.log.Info("Worker exited")
		}

		return nil
	})
}

// detach stops the channel and terminates the worker. Caller holds lifecycleMu.
func (b *Bridge) detach() error {
	b.mu.Lock()
	channel, worker := b.channel, b.worker
	b.channel = nil
	b.mu.Unlock()

	if channel != nil {
		channel.Stop()
	}

	if worker == nil {
		return nil
	}

	err := worker.Terminate()

	b.metrics.SetWorkerState(string(config.WorkerExited))

	return err
}

// RequestSubtopics asks the worker for an outline of topic.
//
// The result always has at least three entries: when the worker's text
// yields fewer, the generic outline for topic is returned and the fallback
// is logged.
func (b *Bridge) RequestSubtopics(ctx context.Context, topic string) (message.SubtopicList, error) {
	text, err := b.run(ctx, protocol.GenerateSubtopics{Topic: topic})
	if err != nil {
		return nil, err
	}

	b.log.Debug("Raw subtopics text", "text", text)

	list, fallback := message.ParseSubtopics(text, topic)
	if fallback {
		b.fallback(message.ParserSubtopics, "fewer than 3 usable lines")
	}

	return list, nil
}

// AskQuestion asks the worker a question within subtopic and returns the answer verbatim.
func (b *Bridge) AskQuestion(ctx context.Context, question, subtopic string) (string, error) {
	return b.run(ctx, protocol.AskQuestion{Question: question, Subtopic: subtopic})
}

// RequestExercise asks the worker for a multiple-choice question on subtopic.
//
// The result always has four options: when the worker's text does not carry
// exactly four, placeholders are returned and the fallback is logged.
func (b *Bridge) RequestExercise(ctx context.Context, subtopic string) (*message.MCQ, error) {
	text, err := b.run(ctx, protocol.GenerateExercise{Subtopic: subtopic})
	if err != nil {
		return nil, err
	}

	b.log.Debug("Raw MCQ text", "text", text)

	mcq, fallback := message.ParseMCQ(text)
	if fallback {
		b.fallback(message.ParserMCQ, "expected exactly 4 options")
	}

	return &mcq, nil
}

// run sends cmd and returns its result field.
func (b *Bridge) run(ctx context.Context, cmd protocol.Command) (string, error) {
	start := time.Now()

	text, err := b.exchange(ctx, cmd)

	b.metrics.ObserveCommand(string(cmd.Action()), commandOutcome(err), time.Since(start))

	return text, err
}

func (b *Bridge) exchange(ctx context.Context, cmd protocol.Command) (string, error) {
	b.mu.Lock()
	closed, channel := b.closed, b.channel
	b.mu.Unlock()

	if closed {
		return "", errors.ErrBridgeClosed
	}

	if channel == nil {
		return "", errors.ErrNotReady
	}

	resp, err := channel.Send(ctx, cmd, 0)
	if err != nil {
		return "", err
	}

	switch resp.Status {
	case protocol.StatusSuccess:
	case protocol.StatusError:
		b.log.Warn("Worker reported an error", "action", cmd.Action(), "message", resp.Message)

		return "", &errors.UpstreamError{Action: string(cmd.Action()), Message: resp.Message}
	default:
		return "", &errors.ProtocolError{Reason: fmt.Sprintf("unexpected status %q", resp.Status)}
	}

	text, ok := resp.Field(cmd.ResultField())
	if !ok {
		return "", &errors.ProtocolError{Reason: fmt.Sprintf("missing field %q", cmd.ResultField())}
	}

	return text, nil
}

func (b *Bridge) fallback(parser, reason string) {
	err := &errors.ParseFallbackError{Parser: parser, Reason: reason}

	b.log.Warn("Parser substituted fallback content", "parser", parser, "error", err)
	b.metrics.IncParseFallback(parser)
}

// Status returns a snapshot of the worker state.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	worker, restarts := b.worker, b.restarts
	b.mu.Unlock()

	status := Status{State: config.WorkerNotStarted, Restarts: restarts}
	if worker == nil {
		return status
	}

	status.State = worker.State()
	status.Ready = status.State == config.WorkerReady
	status.Running = status.State == config.WorkerStarting || status.Ready

	if status.Running {
		status.PID = worker.PID()
	}

	return status
}

// Close terminates the worker. After Close the bridge cannot be reused.
// It's safe to call Close multiple times.
func (b *Bridge) Close() error {
	var closeErr error

	b.closeOnce.Do(func() {
		b.lifecycleMu.Lock()
		defer b.lifecycleMu.Unlock()

		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()

		b.log.Info("Closing bridge")

		close(b.done)

		closeErr = b.detach()

		_ = b.eg.Wait()

		b.log.Info("Bridge closed")
	})

	return closeErr
}

// commandOutcome labels a command result for metrics.
func commandOutcome(err error) string {
	if err == nil {
		return "success"
	}

	if _, ok := stderrors.AsType[*errors.UpstreamError](err); ok {
		return "upstream_error"
	}

	if _, ok := stderrors.AsType[*errors.ProtocolError](err); ok {
		return "protocol_error"
	}

	switch {
	case stderrors.Is(err, errors.ErrRequestTimeout):
		return "timeout"
	case stderrors.Is(err, errors.ErrNotReady):
		return "not_ready"
	case stderrors.Is(err, errors.ErrChannelBusy):
		return "busy"
	case stderrors.Is(err, errors.ErrWorkerExited):
		return "worker_exited"
	case stderrors.Is(err, errors.ErrChannelClosed):
		return "channel_closed"
	case stderrors.Is(err, errors.ErrBridgeClosed):
		return "bridge_closed"
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// launchOutcome labels a failed launch for metrics.
func launchOutcome(err error) string {
	if _, ok := stderrors.AsType[*errors.StartupTimeoutError](err); ok {
		return "startup_timeout"
	}

	if _, ok := stderrors.AsType[*errors.WorkerNotFoundError](err); ok {
		return "not_found"
	}

	if _, ok := stderrors.AsType[*errors.SpawnError](err); ok {
		return "spawn_error"
	}

	return "error"
}
