package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/study-bridge-go/internal/config"
	"github.com/wagiedev/study-bridge-go/internal/errors"
)

// mockWorker is an in-memory Worker. Tests read written commands from
// writes and inject response lines with emit.
type mockWorker struct {
	lines  chan []byte
	writes chan []byte

	mu       sync.Mutex
	ready    bool
	writeErr error
}

func newMockWorker() *mockWorker {
	return &mockWorker{
		lines:  make(chan []byte, 16),
		writes: make(chan []byte, 16),
		ready:  true,
	}
}

func (m *mockWorker) Lines() <-chan []byte { return m.lines }

func (m *mockWorker) WriteLine(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return errors.ErrNotReady
	}

	if m.writeErr != nil {
		return m.writeErr
	}

	m.writes <- bytes.Clone(data)

	return nil
}

func (m *mockWorker) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ready
}

func (m *mockWorker) emit(line string) {
	m.lines <- []byte(line)
}

func (m *mockWorker) exit() {
	m.mu.Lock()
	m.ready = false
	m.mu.Unlock()

	close(m.lines)
}

// nextCommand returns the next command written to the worker.
func (m *mockWorker) nextCommand(t *testing.T) map[string]string {
	t.Helper()

	select {
	case data := <-m.writes:
		var cmd map[string]string
		require.NoError(t, json.Unmarshal(data, &cmd))

		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("no command written")

		return nil
	}
}

func (m *mockWorker) requireNoCommand(t *testing.T, wait time.Duration) {
	t.Helper()

	select {
	case data := <-m.writes:
		t.Fatalf("unexpected command written: %s", data)
	case <-time.After(wait):
	}
}

func newTestChannel(t *testing.T, worker Worker, options *config.Options) *Channel {
	t.Helper()

	if options == nil {
		options = &config.Options{}
	}

	c := NewChannel(slog.Default(), worker, options)
	c.Start()
	t.Cleanup(c.Stop)

	return c
}

type sendResult struct {
	resp *Response
	err  error
}

func sendAsync(ctx context.Context, c *Channel, cmd Command, timeout time.Duration) <-chan sendResult {
	out := make(chan sendResult, 1)

	go func() {
		resp, err := c.Send(ctx, cmd, timeout)
		out <- sendResult{resp: resp, err: err}
	}()

	return out
}

func awaitResult(t *testing.T, ch <-chan sendResult) sendResult {
	t.Helper()

	select {
	case r := <-ch:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("Send did not return")

		return sendResult{}
	}
}

func TestSend_TaggedResponse(t *testing.T) {
	worker := newMockWorker()
	c := newTestChannel(t, worker, nil)

	done := sendAsync(context.Background(), c, AskQuestion{Question: "What is gravity?", Subtopic: "Forces"}, time.Second)

	cmd := worker.nextCommand(t)
	require.Equal(t, "ask_question", cmd["action"])
	require.Equal(t, "What is gravity?", cmd["question"])
	require.Equal(t, "Forces", cmd["subtopic"])
	require.NotEmpty(t, cmd["request_id"])

	worker.emit(`{"status":"success","request_id":"` + cmd["request_id"] + `","answer":"A force."}`)

	r := awaitResult(t, done)
	require.NoError(t, r.err)
	require.Equal(t, StatusSuccess, r.resp.Status)

	answer, ok := r.resp.Field("answer")
	require.True(t, ok)
	require.Equal(t, "A force.", answer)
}

func TestSend_UntaggedResponse(t *testing.T) {
	worker := newMockWorker()
	c := newTestChannel(t, worker, nil)

	done := sendAsync(context.Background(), c, GenerateSubtopics{Topic: "Physics"}, time.Second)

	worker.nextCommand(t)
	worker.emit(`{"status":"success","subtopics":"• Kinematics"}`)

	r := awaitResult(t, done)
	require.NoError(t, r.err)
	require.Equal(t, "• Kinematics", r.resp.Payload["subtopics"])
}

func TestSend_NotReady(t *testing.T) {
	worker := newMockWorker()
	worker.ready = false

	c := newTestChannel(t, worker, nil)

	_, err := c.Send(context.Background(), GenerateExercise{Subtopic: "Forces"}, time.Second)

	require.ErrorIs(t, err, errors.ErrNotReady)
	worker.requireNoCommand(t, 20*time.Millisecond)
}

func TestSend_TimeoutAgainstSilentWorker(t *testing.T) {
	worker := newMockWorker()
	c := newTestChannel(t, worker, nil)

	start := time.Now()
	_, err := c.Send(context.Background(), GenerateExercise{Subtopic: "Forces"}, 50*time.Millisecond)

	timeoutErr, ok := stderrors.AsType[*errors.TimeoutError](err)
	require.True(t, ok, "expected TimeoutError, got %v", err)
	require.Equal(t, "generate_mcq", timeoutErr.Action)
	require.ErrorIs(t, err, errors.ErrRequestTimeout)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	require.Equal(t, 1, c.Orphans())
}

func TestSend_LateUntaggedResponseIsNotMisattributed(t *testing.T) {
	worker := newMockWorker()
	c := newTestChannel(t, worker, nil)

	_, err := c.Send(context.Background(), AskQuestion{Question: "first"}, 30*time.Millisecond)
	require.ErrorIs(t, err, errors.ErrRequestTimeout)
	worker.nextCommand(t)

	done := sendAsync(context.Background(), c, AskQuestion{Question: "second"}, time.Second)
	worker.nextCommand(t)

	worker.emit(`{"status":"success","answer":"answer to first"}`)
	worker.emit(`{"status":"success","answer":"answer to second"}`)

	r := awaitResult(t, done)
	require.NoError(t, r.err)
	require.Equal(t, "answer to second", r.resp.Payload["answer"])
	require.Zero(t, c.Orphans())
}

func TestSend_LateTaggedResponseIsDiscarded(t *testing.T) {
	worker := newMockWorker()
	c := newTestChannel(t, worker, nil)

	_, err := c.Send(context.Background(), AskQuestion{Question: "first"}, 30*time.Millisecond)
	require.ErrorIs(t, err, errors.ErrRequestTimeout)

	first := worker.nextCommand(t)

	done := sendAsync(context.Background(), c, AskQuestion{Question: "second"}, time.Second)
	second := worker.nextCommand(t)

	worker.emit(`{"status":"success","request_id":"` + first["request_id"] + `","answer":"late"}`)
	worker.emit(`{"status":"success","request_id":"unknown","answer":"stale"}`)
	worker.emit(`{"status":"success","request_id":"` + second["request_id"] + `","answer":"fresh"}`)

	r := awaitResult(t, done)
	require.NoError(t, r.err)
	require.Equal(t, "fresh", r.resp.Payload["answer"])
	require.Zero(t, c.Orphans())
}

func TestSend_ContextCancelledWhileWaiting(t *testing.T) {
	worker := newMockWorker()
	c := newTestChannel(t, worker, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := sendAsync(ctx, c, GenerateSubtopics{Topic: "Physics"}, time.Second)

	worker.nextCommand(t)
	cancel()

	r := awaitResult(t, done)
	require.ErrorIs(t, r.err, context.Canceled)
	require.Equal(t, 1, c.Orphans())
}

func TestSend_RejectConcurrent(t *testing.T) {
	worker := newMockWorker()
	c := newTestChannel(t, worker, &config.Options{Concurrency: config.ConcurrencyReject})

	first := sendAsync(context.Background(), c, GenerateSubtopics{Topic: "Physics"}, time.Second)
	worker.nextCommand(t)

	_, err := c.Send(context.Background(), GenerateSubtopics{Topic: "Chemistry"}, time.Second)
	require.ErrorIs(t, err, errors.ErrChannelBusy)
	worker.requireNoCommand(t, 20*time.Millisecond)

	worker.emit(`{"status":"success","subtopics":"x"}`)
	require.NoError(t, awaitResult(t, first).err)
}

func TestSend_QueueSerializesCommands(t *testing.T) {
	worker := newMockWorker()
	c := newTestChannel(t, worker, nil)

	first := sendAsync(context.Background(), c, GenerateSubtopics{Topic: "Physics"}, time.Second)
	firstCmd := worker.nextCommand(t)

	second := sendAsync(context.Background(), c, GenerateSubtopics{Topic: "Chemistry"}, time.Second)

	// The second command waits until the first one is resolved.
	worker.requireNoCommand(t, 50*time.Millisecond)

	worker.emit(`{"status":"success","request_id":"` + firstCmd["request_id"] + `","subtopics":"physics"}`)

	secondCmd := worker.nextCommand(t)
	require.Equal(t, "Chemistry", secondCmd["topic"])

	worker.emit(`{"status":"success","subtopics":"chemistry"}`)

	r1 := awaitResult(t, first)
	r2 := awaitResult(t, second)

	require.NoError(t, r1.err)
	require.NoError(t, r2.err)
	require.Equal(t, "physics", r1.resp.Payload["subtopics"])
	require.Equal(t, "chemistry", r2.resp.Payload["subtopics"])
}

func TestSend_QueueWaitBoundedByContext(t *testing.T) {
	worker := newMockWorker()
	c := newTestChannel(t, worker, nil)

	_ = sendAsync(context.Background(), c, GenerateSubtopics{Topic: "Physics"}, time.Second)
	worker.nextCommand(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.Send(ctx, GenerateSubtopics{Topic: "Chemistry"}, time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Zero(t, c.Orphans(), "a command that was never written is not an orphan")
}

func TestSend_WorkerExitWhilePending(t *testing.T) {
	worker := newMockWorker()
	c := newTestChannel(t, worker, nil)

	done := sendAsync(context.Background(), c, AskQuestion{Question: "q"}, 5*time.Second)
	worker.nextCommand(t)

	worker.exit()

	r := awaitResult(t, done)
	require.ErrorIs(t, r.err, errors.ErrWorkerExited)

	_, err := c.Send(context.Background(), AskQuestion{Question: "q"}, time.Second)
	require.ErrorIs(t, err, errors.ErrNotReady)
}

func TestSend_UndecodableLine(t *testing.T) {
	worker := newMockWorker()
	c := newTestChannel(t, worker, nil)

	done := sendAsync(context.Background(), c, AskQuestion{Question: "q"}, time.Second)
	worker.nextCommand(t)

	worker.emit(`Segmentation fault (core dumped)`)

	r := awaitResult(t, done)

	protoErr, ok := stderrors.AsType[*errors.ProtocolError](r.err)
	require.True(t, ok, "expected ProtocolError, got %v", r.err)
	require.Equal(t, "Segmentation fault (core dumped)", protoErr.RawData)
}

func TestSend_UndecodableLateLineConsumesOrphan(t *testing.T) {
	worker := newMockWorker()
	c := newTestChannel(t, worker, nil)

	_, err := c.Send(context.Background(), AskQuestion{Question: "first"}, 30*time.Millisecond)
	require.ErrorIs(t, err, errors.ErrRequestTimeout)
	worker.nextCommand(t)

	done := sendAsync(context.Background(), c, AskQuestion{Question: "second"}, time.Second)
	worker.nextCommand(t)

	worker.emit(`not json`)
	worker.emit(`{"status":"success","answer":"second"}`)

	r := awaitResult(t, done)
	require.NoError(t, r.err)
	require.Equal(t, "second", r.resp.Payload["answer"])
}

func TestSend_RepeatedReadyLineIgnored(t *testing.T) {
	worker := newMockWorker()
	c := newTestChannel(t, worker, nil)

	done := sendAsync(context.Background(), c, AskQuestion{Question: "q"}, time.Second)
	worker.nextCommand(t)

	worker.emit(`{"status":"ready"}`)
	worker.emit(`{"status":"error","message":"API quota exceeded"}`)

	r := awaitResult(t, done)
	require.NoError(t, r.err)
	require.Equal(t, StatusError, r.resp.Status)
	require.Equal(t, "API quota exceeded", r.resp.Message)
}

func TestSend_WriteFailure(t *testing.T) {
	worker := newMockWorker()
	worker.writeErr = stderrors.New("broken pipe")

	c := newTestChannel(t, worker, nil)

	_, err := c.Send(context.Background(), AskQuestion{Question: "q"}, time.Second)

	require.ErrorContains(t, err, "send ask_question: broken pipe")
	require.Zero(t, c.Orphans())
}

func TestSend_DefaultTimeout(t *testing.T) {
	worker := newMockWorker()
	c := newTestChannel(t, worker, &config.Options{CommandTimeout: 40 * time.Millisecond})

	_, err := c.Send(context.Background(), AskQuestion{Question: "q"}, 0)

	timeoutErr, ok := stderrors.AsType[*errors.TimeoutError](err)
	require.True(t, ok)
	require.Equal(t, 40*time.Millisecond, timeoutErr.Timeout)
}

func TestStop_FailsPendingCommand(t *testing.T) {
	worker := newMockWorker()
	c := NewChannel(slog.Default(), worker, &config.Options{})
	c.Start()

	done := sendAsync(context.Background(), c, AskQuestion{Question: "q"}, 5*time.Second)
	worker.nextCommand(t)

	c.Stop()
	c.Stop()

	require.ErrorIs(t, awaitResult(t, done).err, errors.ErrChannelClosed)

	_, err := c.Send(context.Background(), AskQuestion{Question: "q"}, time.Second)
	require.ErrorIs(t, err, errors.ErrChannelClosed)
}

func TestSend_ResponseAfterTimeout_Race(t *testing.T) {
	// Exercises the window between the timer firing and the router
	// delivering the response. Run with: go test -race -count=50
	for range 50 {
		worker := newMockWorker()
		c := NewChannel(slog.Default(), worker, &config.Options{})
		c.Start()

		done := sendAsync(context.Background(), c, AskQuestion{Question: "q"}, time.Millisecond)
		worker.nextCommand(t)
		worker.emit(`{"status":"success","answer":"a"}`)

		r := awaitResult(t, done)
		if r.err != nil {
			require.ErrorIs(t, r.err, errors.ErrRequestTimeout)
		} else {
			require.Equal(t, "a", r.resp.Payload["answer"])
		}

		c.Stop()
	}
}
