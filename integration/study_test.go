//go:build integration

package integration

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	studybridge "github.com/wagiedev/study-bridge-go"
)

func TestRequestSubtopics_RealWorker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	b := startBridge(t, ctx)

	subtopics, err := b.RequestSubtopics(ctx, "Gravity")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(subtopics), 3)

	seen := make(map[string]bool, len(subtopics))
	for _, s := range subtopics {
		require.True(t, strings.HasPrefix(s, "•"), "entry %q should be a bullet", s)
		require.False(t, seen[s], "duplicate entry %q", s)

		seen[s] = true
	}
}

func TestAskAndExercise_RealWorker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	b := startBridge(t, ctx)

	answer, err := b.AskQuestion(ctx, "What does Newton's first law state?", "Newton's Laws")
	require.NoError(t, err)
	require.NotEmpty(t, answer)

	mcq, err := b.RequestExercise(ctx, "Newton's Laws")
	require.NoError(t, err)
	require.Len(t, mcq.Options, 4)
	require.Contains(t, []string{"A", "B", "C", "D"}, mcq.Correct)
}

func TestQueuedCommands_RealWorker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	b := startBridge(t, ctx)

	topics := []string{"Volcanoes", "Photosynthesis"}
	results := make([]studybridge.SubtopicList, len(topics))
	errs := make([]error, len(topics))

	var wg sync.WaitGroup

	for i, topic := range topics {
		wg.Go(func() {
			results[i], errs[i] = b.RequestSubtopics(ctx, topic)
		})
	}

	wg.Wait()

	for i := range topics {
		require.NoError(t, errs[i])
		require.GreaterOrEqual(t, len(results[i]), 3)
	}
}

func TestCloseAndRestart_RealWorker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	b := startBridge(t, ctx, studybridge.WithShutdownGrace(time.Second))

	pid := b.Status().PID
	require.NotZero(t, pid)

	require.NoError(t, b.Restart(ctx))

	status := b.Status()
	require.True(t, status.Ready)
	require.NotEqual(t, pid, status.PID)
	require.Equal(t, 1, status.Restarts)
}
