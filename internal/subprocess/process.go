package subprocess

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/wagiedev/study-bridge-go/internal/cli"
	"github.com/wagiedev/study-bridge-go/internal/config"
	"github.com/wagiedev/study-bridge-go/internal/errors"
)

const (
	// maxScanTokenSize is the maximum buffer size for reading worker output lines.
	maxScanTokenSize = 1024 * 1024 // 1MB
	// maxStderrBufferSize is the maximum size for the stderr buffer.
	// Stderr reading continues indefinitely (callback receives all lines),
	// but the buffer stops growing after this limit.
	maxStderrBufferSize = 10 * 1024 * 1024 // 10MB
	// linesBufferSize is the capacity of the post-readiness line channel.
	linesBufferSize = 16
	// writeAbandonTimeout bounds the wait for a write goroutine after stdin is closed.
	writeAbandonTimeout = time.Second
)

// exitSentinel asks the worker to shut down.
var exitSentinel = []byte("EXIT\n") //nolint:gochecknoglobals

var errExitedBeforeReady = stderrors.New("worker exited before reporting ready")

// Process implements config.Worker by spawning the worker executable.
type Process struct {
	log            *slog.Logger
	options        *config.Options
	stderrCallback func(string)

	mu       sync.Mutex // Protects the fields below
	state    config.WorkerState
	launched bool
	closing  bool // Whether Terminate has been called (intentional shutdown)
	path     string
	cmd      *exec.Cmd
	exitErr  error
	readErr  error // Set when stdout could not be read; the worker is killed

	writeMu     sync.Mutex // Serializes stdin writes
	stdin       io.WriteCloser
	stdinClosed bool

	stderrMu  sync.Mutex
	stderrBuf strings.Builder

	lines      chan []byte
	ready      chan struct{}
	readyOnce  sync.Once
	done       chan struct{}
	finishOnce sync.Once
	quit       chan struct{}

	terminateOnce sync.Once
	terminateErr  error
}

// Compile-time verification that Process implements the Worker interface.
var _ config.Worker = (*Process)(nil)

// NewProcess creates a worker process with the given options.
//
// Discovery is deferred to Launch, which searches for the worker binary in
// the following order:
//  1. The explicit path in options.WorkerPath (if provided)
//  2. The system PATH
//  3. The cpp/ build directory next to the working directory or executable
//
// A Process is launched at most once; create a new one to relaunch.
func NewProcess(log *slog.Logger, options *config.Options) *Process {
	return &Process{
		log:            log.With("component", "worker_process"),
		options:        options,
		stderrCallback: options.Stderr,
		state:          config.WorkerNotStarted,
		lines:          make(chan []byte, linesBufferSize),
		ready:          make(chan struct{}),
		done:           make(chan struct{}),
		quit:           make(chan struct{}),
	}
}

// Factory is a config.WorkerFactory producing subprocess workers.
func Factory(log *slog.Logger, options *config.Options) config.Worker {
	return NewProcess(log, options)
}

// Launch spawns the worker and waits for its ready line.
//
// Returns WorkerNotFoundError if the binary cannot be located, SpawnError if
// the process cannot be started or exits before reporting ready, and
// StartupTimeoutError if no ready line arrives within the startup timeout.
// After a startup timeout or context cancellation the process is left
// running; the owner is expected to call Terminate.
func (p *Process) Launch(ctx context.Context) error {
	p.mu.Lock()
	if p.launched {
		p.mu.Unlock()

		return errors.ErrAlreadyLaunched
	}

	p.launched = true
	p.mu.Unlock()

	p.log.Info("Launching worker process")

	path, err := cli.NewDiscoverer(&cli.Config{
		WorkerPath: p.options.WorkerPath,
		Logger:     p.log,
	}).Discover(ctx)
	if err != nil {
		p.finish(nil)

		return fmt.Errorf("discover worker: %w", err)
	}

	if err := p.start(path); err != nil {
		p.finish(nil)

		return err
	}

	timeout := p.options.EffectiveStartupTimeout()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.ready:
		p.log.Info("Worker reported ready", "pid", p.PID())

		return nil

	case <-p.done:
		exitErr := p.Err()
		if exitErr == nil {
			exitErr = errExitedBeforeReady
		} else {
			exitErr = fmt.Errorf("%w: %w", errExitedBeforeReady, exitErr)
		}

		p.log.Error("Worker exited during startup", "error", exitErr)

		return &errors.SpawnError{Path: path, Err: exitErr}

	case <-timer.C:
		p.log.Error("Worker did not report ready", "timeout", timeout)

		return &errors.StartupTimeoutError{Timeout: timeout}

	case <-ctx.Done():
		p.log.Debug("Context cancelled during startup", "error", ctx.Err())

		return ctx.Err()
	}
}

// start spawns the process and its reader goroutines.
func (p *Process) start(path string) error {
	command := cli.BuildCommand(p.options)

	// The worker outlives the launch context; Terminate stops it.
	//nolint:gosec // G204: Launching the configured worker executable is the purpose of this package
	cmd := exec.Command(path, command.Args...)
	cmd.Dir = command.Dir
	cmd.Env = command.Env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &errors.SpawnError{Path: path, Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &errors.SpawnError{Path: path, Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &errors.SpawnError{Path: path, Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closing {
		return &errors.SpawnError{Path: path, Err: errors.ErrBridgeClosed}
	}

	if err := cmd.Start(); err != nil {
		p.log.Error("Failed to start worker process", "error", err)

		return &errors.SpawnError{Path: path, Err: err}
	}

	p.writeMu.Lock()
	p.stdin = stdin
	p.writeMu.Unlock()

	p.path = path
	p.cmd = cmd
	p.state = config.WorkerStarting

	p.log.Info("Worker process started", "pid", cmd.Process.Pid, "worker_path", path)

	go p.wait(stdout, stderr)

	return nil
}

// wait drains both output pipes, then reaps the process.
// Pipe reads must complete before cmd.Wait, see os/exec.Cmd.StdoutPipe.
func (p *Process) wait(stdout, stderr io.Reader) {
	var stderrWg sync.WaitGroup

	stderrWg.Go(func() { p.readStderr(stderr) })

	p.readStdout(stdout)
	stderrWg.Wait()

	p.finish(p.cmd.Wait())
}

// readStdout handles readiness detection and forwards post-readiness lines.
func (p *Process) readStdout(r io.Reader) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if !p.IsReady() {
			p.observeStartupLine(line)

			continue
		}

		select {
		case p.lines <- bytes.Clone(line):
		case <-p.quit:
			p.log.Debug("Discarding worker output during shutdown", "line_len", len(line))
		}
	}

	if err := scanner.Err(); err != nil {
		p.log.Error("Scanner error while reading worker output", "error", err)
		p.abandonOutput(err)
	}
}

// abandonOutput records why stdout stopped being read and kills the worker,
// so that finish runs and pending commands fail instead of timing out.
func (p *Process) abandonOutput(err error) {
	p.mu.Lock()
	p.readErr = err
	cmd := p.cmd
	closing := p.closing
	p.mu.Unlock()

	if closing || cmd == nil || cmd.Process == nil {
		return
	}

	if killErr := cmd.Process.Kill(); killErr != nil && !stderrors.Is(killErr, os.ErrProcessDone) {
		p.log.Warn("Failed to kill worker after output error", "pid", cmd.Process.Pid, "error", killErr)
	}
}

// observeStartupLine moves the process to ready on a {"status":"ready"} line.
// Anything else before readiness is informational output.
func (p *Process) observeStartupLine(line []byte) {
	var msg struct {
		Status string `json:"status"`
	}

	if err := json.Unmarshal(line, &msg); err != nil || !strings.EqualFold(msg.Status, "ready") {
		p.log.Debug("Worker output before ready", "line", string(line))

		return
	}

	p.readyOnce.Do(func() {
		p.mu.Lock()
		if p.state == config.WorkerStarting {
			p.state = config.WorkerReady
		}
		p.mu.Unlock()

		close(p.ready)
	})
}

func (p *Process) readStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		p.stderrMu.Lock()

		if p.stderrBuf.Len() < maxStderrBufferSize {
			if p.stderrBuf.Len() > 0 {
				p.stderrBuf.WriteString("\n")
			}

			p.stderrBuf.WriteString(line)
		}

		p.stderrMu.Unlock()

		p.log.Debug("Worker stderr", "line", line)

		if p.stderrCallback != nil {
			p.stderrCallback(line)
		}
	}

	if err := scanner.Err(); err != nil {
		p.log.Debug("Stderr scanner error", "error", err)
	}
}

// finish records the exit and releases waiters. Safe to call more than once.
func (p *Process) finish(waitErr error) {
	p.finishOnce.Do(func() {
		p.mu.Lock()
		p.state = config.WorkerExited

		switch {
		case p.closing:
			p.log.Debug("Worker process terminated during shutdown")
		case p.readErr != nil:
			p.exitErr = &errors.ProcessError{
				ExitCode: -1,
				Stderr:   p.Stderr(),
				Err:      fmt.Errorf("read worker output: %w", p.readErr),
			}

			p.log.Error("Worker process stopped after unreadable output", "error", p.readErr)
		case waitErr != nil:
			exitCode := -1
			if exitErr, ok := stderrors.AsType[*exec.ExitError](waitErr); ok {
				exitCode = exitErr.ExitCode()
			}

			p.exitErr = &errors.ProcessError{
				ExitCode: exitCode,
				Stderr:   p.Stderr(),
				Err:      waitErr,
			}

			p.log.Error("Worker process exited with error", "exit_code", exitCode, "stderr", p.Stderr())
		case p.cmd != nil:
			p.log.Info("Worker process exited")
		}

		p.mu.Unlock()

		close(p.lines)
		close(p.done)
	})
}

// Lines returns stdout lines observed after readiness, closed on exit.
func (p *Process) Lines() <-chan []byte {
	return p.lines
}

// WriteLine writes one line to the worker's stdin.
//
// A trailing newline is appended without mutating the caller's slice. This
// method is safe for concurrent use and respects context cancellation even
// during blocking writes: if the context ends while a write is blocked, stdin
// is closed to unblock it and later writes fail with ErrNotReady.
func (p *Process) WriteLine(ctx context.Context, data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if !p.IsReady() || p.stdin == nil || p.stdinClosed {
		return errors.ErrNotReady
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// Use explicit copy to avoid mutating caller's backing array if slice has spare capacity
	if len(data) == 0 || data[len(data)-1] != '\n' {
		newData := make([]byte, len(data)+1)
		copy(newData, data)
		newData[len(data)] = '\n'
		data = newData
	}

	done := make(chan error, 1)

	go func() {
		_, err := p.stdin.Write(data)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			p.log.Error("Failed to write to worker", "error", err)

			return fmt.Errorf("write to stdin: %w", err)
		}

		return nil

	case <-ctx.Done():
		p.log.Debug("Context cancelled during write, closing stdin")

		_ = p.stdin.Close()
		p.stdinClosed = true

		select {
		case <-done:
		case <-time.After(writeAbandonTimeout):
			p.log.Warn("Write goroutine did not exit after stdin close, potential leak")
		}

		return ctx.Err()
	}
}

// IsReady reports whether the worker has reported ready and not exited.
func (p *Process) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state == config.WorkerReady
}

// State returns the current lifecycle state.
func (p *Process) State() config.WorkerState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// PID returns the process identifier, or 0 before spawn.
func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}

	return p.cmd.Process.Pid
}

// Done returns a channel closed when the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err returns a ProcessError for an unrequested failing exit, otherwise nil.
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.exitErr
}

// Stderr returns the captured stderr output, capped at 10MB.
func (p *Process) Stderr() string {
	p.stderrMu.Lock()
	defer p.stderrMu.Unlock()

	return p.stderrBuf.String()
}

// Terminate stops the worker.
//
// The EXIT sentinel is written and stdin closed; if the worker has not exited
// after the shutdown grace period it is killed. It's safe to call Terminate
// multiple times or before Launch.
func (p *Process) Terminate() error {
	p.terminateOnce.Do(func() {
		p.terminateErr = p.terminate()
	})

	return p.terminateErr
}

func (p *Process) terminate() error {
	p.mu.Lock()
	p.closing = true
	cmd := p.cmd
	p.mu.Unlock()

	close(p.quit)

	if cmd == nil || cmd.Process == nil {
		p.finish(nil)

		return nil
	}

	pid := cmd.Process.Pid
	p.log.Debug("Sending shutdown sentinel", "pid", pid)

	go func() {
		p.writeMu.Lock()
		defer p.writeMu.Unlock()

		if p.stdin == nil || p.stdinClosed {
			return
		}

		_, _ = p.stdin.Write(exitSentinel)
		_ = p.stdin.Close()
		p.stdinClosed = true
	}()

	grace := p.options.EffectiveShutdownGrace()

	select {
	case <-p.done:
		return nil
	case <-time.After(grace):
	}

	p.log.Debug("Killing worker process", "pid", pid)

	if err := cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill worker process (pid %d): %w", pid, err)
	}

	select {
	case <-p.done:
	case <-time.After(grace):
		p.log.Warn("Worker process did not exit after kill", "pid", pid)
	}

	return nil
}
