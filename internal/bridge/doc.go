// Package bridge implements the study bridge: it owns the worker process
// and its command channel, turns study operations into worker commands, and
// parses the worker's text into structured results.
//
// A Bridge is single-use. Start launches the worker (retrying the launch
// step when configured), Restart replaces an exited worker, and Close
// terminates it for good. Worker crashes are not restarted automatically.
package bridge
