// Package subprocess supervises the study assistant worker as a child process.
//
// Process spawns the worker, waits for its ready line on stdout, exposes the
// lines that follow as a channel, serializes writes to stdin, captures stderr
// and detects exit. It implements config.Worker.
package subprocess
