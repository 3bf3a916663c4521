package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/semaphore"

	"github.com/wagiedev/study-bridge-go/internal/config"
	"github.com/wagiedev/study-bridge-go/internal/errors"
	"github.com/wagiedev/study-bridge-go/internal/metrics"
)

// Worker defines the minimal interface needed for protocol operations.
//
// This interface is satisfied by subprocess.Process but allows for testing
// with mock workers.
type Worker interface {
	Lines() <-chan []byte
	WriteLine(ctx context.Context, data []byte) error
	IsReady() bool
}

// Channel exchanges commands with a worker, one at a time.
//
// The Channel must be started with Start before use and owns a single
// goroutine that reads the worker's lines and routes them.
type Channel struct {
	log            *slog.Logger
	worker         Worker
	reject         bool
	defaultTimeout time.Duration
	metrics        metrics.Recorder

	// slot admits one command at a time; Acquire is FIFO.
	slot *semaphore.Weighted

	mu      sync.Mutex
	pending *pendingCommand
	// orphans are request ids of commands abandoned before their response
	// arrived, oldest first.
	orphans []string

	closeOnce sync.Once
	done      chan struct{}
	routed    chan struct{} // closed when the router exits
	wg        sync.WaitGroup
}

// pendingCommand tracks the command awaiting its response.
type pendingCommand struct {
	action    Action
	requestID string
	issued    time.Time
	result    chan result
}

type result struct {
	resp *Response
	err  error
}

// NewChannel creates a command channel over worker.
//
// options.Concurrency selects queueing (default) or rejection of concurrent
// commands, options.CommandTimeout sets the default per-command timeout.
func NewChannel(log *slog.Logger, worker Worker, options *config.Options) *Channel {
	return &Channel{
		log:            log.With("component", "command_channel"),
		worker:         worker,
		reject:         options.Concurrency == config.ConcurrencyReject,
		defaultTimeout: options.EffectiveCommandTimeout(),
		metrics:        options.EffectiveMetrics(),
		slot:           semaphore.NewWeighted(1),
		done:           make(chan struct{}),
		routed:         make(chan struct{}),
	}
}

// Start begins routing worker lines.
func (c *Channel) Start() {
	c.wg.Go(c.route)

	c.log.Debug("Command channel started")
}

// Stop shuts down the channel. A pending command fails with ErrChannelClosed.
// It's safe to call Stop multiple times.
func (c *Channel) Stop() {
	c.closeOnce.Do(func() {
		close(c.done)
	})

	c.wg.Wait()
	c.log.Debug("Command channel stopped")
}

// Orphans returns the number of abandoned commands whose response has not arrived yet.
func (c *Channel) Orphans() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.orphans)
}

// Send writes cmd to the worker and waits for its response.
//
// A timeout of zero or less uses the channel's default. The timeout starts
// once the command is written; time spent waiting for an earlier command is
// bounded by ctx only.
//
// Returns ErrNotReady if the worker is not ready, ErrChannelBusy if another
// command is outstanding and the channel rejects concurrent commands,
// TimeoutError if no response arrives in time, ErrWorkerExited if the worker
// exits first, and ProtocolError if the response line cannot be decoded.
func (c *Channel) Send(ctx context.Context, cmd Command, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}

	if c.isStopped() {
		return nil, errors.ErrChannelClosed
	}

	if !c.worker.IsReady() {
		return nil, errors.ErrNotReady
	}

	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.slot.Release(1)

	// The worker may have exited while this command was queued.
	if !c.worker.IsReady() {
		return nil, errors.ErrNotReady
	}

	p := &pendingCommand{
		action:    cmd.Action(),
		requestID: ulid.Make().String(),
		issued:    time.Now(),
		result:    make(chan result, 1),
	}

	data, err := EncodeCommand(cmd, p.requestID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.pending = p
	c.mu.Unlock()

	c.log.Debug("Sending command", "action", p.action, "request_id", p.requestID)

	if err := c.worker.WriteLine(ctx, data); err != nil {
		c.clearPending(p)

		return nil, fmt.Errorf("send %s: %w", p.action, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-p.result:
		c.log.Debug("Command resolved",
			"action", p.action,
			"request_id", p.requestID,
			"duration", time.Since(p.issued),
		)

		return r.resp, r.err

	case <-timer.C:
		if r, resolved := c.abandon(p); resolved {
			return r.resp, r.err
		}

		c.log.Warn("Command timed out", "action", p.action, "request_id", p.requestID, "timeout", timeout)

		return nil, &errors.TimeoutError{Action: string(p.action), Timeout: timeout}

	case <-ctx.Done():
		if r, resolved := c.abandon(p); resolved {
			return r.resp, r.err
		}

		c.log.Debug("Command cancelled", "action", p.action, "request_id", p.requestID)

		return nil, ctx.Err()

	case <-c.routed:
		if r, resolved := c.abandon(p); resolved {
			return r.resp, r.err
		}

		if c.isStopped() {
			return nil, errors.ErrChannelClosed
		}

		return nil, errors.ErrWorkerExited
	}
}

// acquire claims the single command slot.
func (c *Channel) acquire(ctx context.Context) error {
	if c.reject {
		if !c.slot.TryAcquire(1) {
			return errors.ErrChannelBusy
		}

		return nil
	}

	return c.slot.Acquire(ctx, 1)
}

func (c *Channel) isStopped() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Channel) clearPending(p *pendingCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == p {
		c.pending = nil
	}
}

// abandon gives up on p. If the router resolved p in the meantime, that
// result is returned instead and nothing is orphaned.
func (c *Channel) abandon(p *pendingCommand) (result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != p {
		return <-p.result, true
	}

	c.pending = nil
	c.orphans = append(c.orphans, p.requestID)

	return result{}, false
}

// route reads worker lines until the worker exits or the channel stops.
func (c *Channel) route() {
	defer close(c.routed)

	lines := c.worker.Lines()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				c.log.Debug("Worker line stream closed")
				c.failPending(errors.ErrWorkerExited)

				return
			}

			c.dispatch(line)

		case <-c.done:
			c.failPending(errors.ErrChannelClosed)

			return
		}
	}
}

// dispatch attributes one line to the pending command, an orphan, or nobody.
func (c *Channel) dispatch(line []byte) {
	resp, err := DecodeResponse(line)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil && resp.Status == StatusReady {
		c.log.Debug("Ignoring repeated ready line")

		return
	}

	if err == nil && resp.RequestID != "" {
		switch {
		case c.pending != nil && c.pending.requestID == resp.RequestID:
			c.resolveLocked(result{resp: resp})
		case c.dropOrphanLocked(resp.RequestID):
			c.log.Debug("Discarded late response", "request_id", resp.RequestID)
		default:
			c.metrics.IncOrphanDiscarded()
			c.log.Warn("Discarded response with unknown request id", "request_id", resp.RequestID)
		}

		return
	}

	if len(c.orphans) > 0 {
		id := c.orphans[0]
		c.orphans = c.orphans[1:]
		c.metrics.IncOrphanDiscarded()
		c.log.Debug("Discarded late response", "request_id", id, "decodable", err == nil)

		return
	}

	if c.pending == nil {
		c.log.Warn("Discarded unsolicited worker line", "line", string(line))

		return
	}

	if err != nil {
		c.log.Warn("Invalid response from worker", "action", c.pending.action, "error", err)
		c.resolveLocked(result{err: err})

		return
	}

	c.resolveLocked(result{resp: resp})
}

// resolveLocked hands r to the pending command. c.mu must be held.
func (c *Channel) resolveLocked(r result) {
	c.pending.result <- r
	c.pending = nil
}

// dropOrphanLocked removes id from the orphans. c.mu must be held.
func (c *Channel) dropOrphanLocked(id string) bool {
	i := slices.Index(c.orphans, id)
	if i < 0 {
		return false
	}

	c.orphans = slices.Delete(c.orphans, i, i+1)
	c.metrics.IncOrphanDiscarded()

	return true
}

func (c *Channel) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil {
		c.log.Debug("Failing pending command", "action", c.pending.action, "error", err)
		c.resolveLocked(result{err: err})
	}

	c.orphans = nil
}
