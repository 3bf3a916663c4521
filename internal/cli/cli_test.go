package cli

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wagiedev/study-bridge-go/internal/config"
	"github.com/wagiedev/study-bridge-go/internal/errors"
)

func writeWorker(t *testing.T, path string, mode os.FileMode) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho '{\"status\":\"ready\"}'\n"), mode))
}

// TestDiscoverer_NotFound tests that an invalid worker path returns WorkerNotFoundError.
func TestDiscoverer_NotFound(t *testing.T) {
	discoverer := NewDiscoverer(&Config{
		WorkerPath: "/nonexistent/path/to/ai_assistant",
		Logger:     slog.Default(),
	})

	_, err := discoverer.Discover(context.Background())

	notFound, ok := stderrors.AsType[*errors.WorkerNotFoundError](err)
	require.True(t, ok)
	require.Equal(t, []string{"/nonexistent/path/to/ai_assistant"}, notFound.SearchedPaths)
}

// TestDiscoverer_ExplicitPath tests discovery with an explicit path.
func TestDiscoverer_ExplicitPath(t *testing.T) {
	fake := filepath.Join(t.TempDir(), WorkerName)
	writeWorker(t, fake, 0o755)

	path, err := NewDiscoverer(&Config{WorkerPath: fake}).Discover(context.Background())

	require.NoError(t, err)
	require.Equal(t, fake, path)
}

// TestDiscoverer_ExplicitPathNotExecutable tests that a non-executable file is rejected.
func TestDiscoverer_ExplicitPathNotExecutable(t *testing.T) {
	fake := filepath.Join(t.TempDir(), WorkerName)
	writeWorker(t, fake, 0o644)

	_, err := NewDiscoverer(&Config{WorkerPath: fake}).Discover(context.Background())

	require.IsType(t, &errors.WorkerNotFoundError{}, err)
}

// TestDiscoverer_PATH tests discovery through the system PATH.
func TestDiscoverer_PATH(t *testing.T) {
	dir := t.TempDir()
	writeWorker(t, filepath.Join(dir, WorkerName), 0o755)
	t.Setenv("PATH", dir)

	path, err := NewDiscoverer(nil).Discover(context.Background())

	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, WorkerName), path)
}

// TestDiscoverer_BuildDirectory tests discovery of a locally compiled worker.
func TestDiscoverer_BuildDirectory(t *testing.T) {
	dir := t.TempDir()
	writeWorker(t, filepath.Join(dir, "cpp", WorkerName), 0o755)
	t.Setenv("PATH", t.TempDir())
	t.Chdir(dir)

	path, err := NewDiscoverer(nil).Discover(context.Background())

	require.NoError(t, err)
	require.Equal(t, filepath.Join("cpp", WorkerName), path)
}

// TestDiscoverer_SearchedPaths tests that a failed search reports every location tried.
func TestDiscoverer_SearchedPaths(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	t.Chdir(t.TempDir())

	_, err := NewDiscoverer(nil).Discover(context.Background())

	notFound, ok := stderrors.AsType[*errors.WorkerNotFoundError](err)
	require.True(t, ok)
	require.Equal(t, "$PATH", notFound.SearchedPaths[0])
	require.Contains(t, notFound.SearchedPaths, filepath.Join("cpp", WorkerName))
	require.Contains(t, notFound.SearchedPaths, filepath.Join("..", "cpp", WorkerName))
}

// TestDiscoverer_CancelledContext tests that discovery honors a cancelled context.
func TestDiscoverer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDiscoverer(nil).Discover(ctx)

	require.ErrorIs(t, err, context.Canceled)
}

// TestBuildEnvironment_EnvVarsPassedToSubprocess tests environment variable handling.
func TestBuildEnvironment_EnvVarsPassedToSubprocess(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "inherited")

	options := &config.Options{
		WorkerEnv: map[string]string{
			"GEMINI_MODEL":   "gemini-2.0-flash",
			"GEMINI_API_KEY": "override",
		},
	}

	env := BuildEnvironment(options)

	require.True(t, slices.Contains(env, "GEMINI_API_KEY=inherited"))
	require.True(t, slices.Contains(env, "GEMINI_MODEL=gemini-2.0-flash"))

	// Overrides come after inherited values so they win.
	require.Greater(t,
		slices.Index(env, "GEMINI_API_KEY=override"),
		slices.Index(env, "GEMINI_API_KEY=inherited"),
	)
}

// TestBuildCommand tests that the command carries arguments and working directory.
func TestBuildCommand(t *testing.T) {
	args := []string{"--verbose"}
	options := &config.Options{
		WorkerArgs: args,
		WorkerDir:  "/srv/worker",
	}

	cmd := BuildCommand(options)

	require.Equal(t, []string{"--verbose"}, cmd.Args)
	require.Equal(t, "/srv/worker", cmd.Dir)
	require.NotEmpty(t, cmd.Env)

	cmd.Args[0] = "mutated"
	require.Equal(t, "--verbose", args[0])
}
