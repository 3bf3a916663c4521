package cli

import (
	"maps"
	"os"
	"slices"

	"github.com/wagiedev/study-bridge-go/internal/config"
)

// Command represents the worker command to execute.
type Command struct {
	// Args are the command line arguments.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env are the environment variables.
	Env []string
}

// BuildCommand constructs the worker command from options.
func BuildCommand(options *config.Options) Command {
	return Command{
		Args: slices.Clone(options.WorkerArgs),
		Dir:  options.WorkerDir,
		Env:  BuildEnvironment(options),
	}
}

// BuildEnvironment constructs the environment variables for the worker process.
//
// The worker inherits the current environment (it reads its API key from
// there); WorkerEnv entries are appended in key order so they take
// precedence over inherited values.
func BuildEnvironment(options *config.Options) []string {
	env := os.Environ()

	for _, key := range slices.Sorted(maps.Keys(options.WorkerEnv)) {
		env = append(env, key+"="+options.WorkerEnv[key])
	}

	return env
}
