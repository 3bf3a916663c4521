//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	studybridge "github.com/wagiedev/study-bridge-go"
)

// startBridge starts a bridge against the real worker, skipping the test when
// the worker is not installed or has no API key.
func startBridge(t *testing.T, ctx context.Context, opts ...studybridge.Option) studybridge.Bridge {
	t.Helper()

	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	opts = append([]studybridge.Option{
		studybridge.WithWorkerPath(os.Getenv("STUDYBRIDGE_WORKER_PATH")),
	}, opts...)

	b := studybridge.New(opts...)
	t.Cleanup(func() {
		require.NoError(t, b.Close())
	})

	err := b.Start(ctx)
	if _, ok := errors.AsType[*studybridge.WorkerNotFoundError](err); ok {
		t.Skip("ai_assistant worker not installed")
	}

	require.NoError(t, err)

	return b
}
