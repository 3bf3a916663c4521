package cli

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/wagiedev/study-bridge-go/internal/errors"
)

// WorkerName is the executable name searched for in PATH and the build directories.
const WorkerName = "ai_assistant"

// Config holds configuration for worker discovery.
type Config struct {
	// WorkerPath is an explicit worker path that skips the search.
	// If empty, discovery will search PATH and the build directories.
	WorkerPath string

	// Logger is an optional logger for discovery operations.
	// If nil, a default no-op logger is used.
	Logger *slog.Logger
}

// Discoverer locates the worker binary.
type Discoverer interface {
	// Discover locates the worker binary.
	// Returns the path to the executable or a WorkerNotFoundError.
	Discover(ctx context.Context) (string, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	cfg *Config
	log *slog.Logger
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new worker discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &discoverer{
		cfg: cfg,
		log: log.With("component", "worker_discovery"),
	}
}

// Discover locates the worker binary.
func (d *discoverer) Discover(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.log.Debug("Discovering worker binary")

	path, err := d.findWorker()
	if err != nil {
		d.log.Error("Failed to find worker", "error", err)

		return "", err
	}

	d.log.Debug("Found worker binary", "worker_path", path)

	return path, nil
}

// findWorker locates the worker binary.
func (d *discoverer) findWorker() (string, error) {
	// An explicit path is used as-is, without falling back to the search.
	if d.cfg.WorkerPath != "" {
		d.log.Debug("Using explicit worker path", "worker_path", d.cfg.WorkerPath)

		if isExecutable(d.cfg.WorkerPath) {
			return d.cfg.WorkerPath, nil
		}

		return "", &errors.WorkerNotFoundError{SearchedPaths: []string{d.cfg.WorkerPath}}
	}

	searchedPaths := make([]string, 0, 4)

	d.log.Debug("Searching for worker in PATH", "name", WorkerName)

	if path, err := exec.LookPath(WorkerName); err == nil {
		return path, nil
	}

	searchedPaths = append(searchedPaths, "$PATH")

	for _, path := range buildPaths() {
		searchedPaths = append(searchedPaths, path)
		d.log.Debug("Checking build path", "path", path)

		if isExecutable(path) {
			return path, nil
		}
	}

	d.log.Warn("Worker not found in any searched paths", "searched_paths", searchedPaths)

	return "", &errors.WorkerNotFoundError{SearchedPaths: searchedPaths}
}

// buildPaths lists the locations a locally compiled worker is expected at.
func buildPaths() []string {
	paths := []string{
		filepath.Join("cpp", WorkerName),
		filepath.Join("..", "cpp", WorkerName),
	}

	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(dir, "cpp", WorkerName),
			filepath.Join(dir, "..", "cpp", WorkerName),
		)
	}

	return paths
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	return info.Mode().Perm()&0o111 != 0
}
