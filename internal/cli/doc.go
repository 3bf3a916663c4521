// Package cli provides worker discovery and command building for the
// study assistant worker executable.
//
// # Worker Discovery
//
// The Discoverer interface locates the worker binary:
//
//	discoverer := cli.NewDiscoverer(&cli.Config{
//	    WorkerPath: "",           // Optional explicit path
//	    Logger:     slog.Default(),
//	})
//	workerPath, err := discoverer.Discover(ctx)
//
// Discovery searches in the following order:
//  1. Explicit path in Config.WorkerPath (if provided)
//  2. System PATH
//  3. The cpp/ build directory relative to the working directory, its
//     parent, and the running executable
//
// # Command Building
//
// BuildCommand assembles the arguments, working directory and environment
// the worker is started with:
//
//	cmd := cli.BuildCommand(options)
package cli
