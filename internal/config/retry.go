package config

import "time"

// LaunchRetry bounds how often the bridge retries a failed launch.
// It never applies to individual commands, and it never restarts a worker
// that exited after becoming ready.
type LaunchRetry struct {
	// Attempts is the total number of launch attempts. Values below 1 mean 1.
	Attempts int `mapstructure:"attempts"`
	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	// MaxDelay caps the wait between attempts. Zero means no cap.
	MaxDelay time.Duration `mapstructure:"max_delay"`
	// Multiplier grows the delay after each failed attempt. Values below 1 mean 2.
	Multiplier float64 `mapstructure:"multiplier"`
}

// MaxAttempts returns the effective number of launch attempts.
func (r LaunchRetry) MaxAttempts() int {
	if r.Attempts < 1 {
		return 1
	}

	return r.Attempts
}

// Delay returns the wait before the given attempt (1-based). The first
// attempt never waits.
func (r LaunchRetry) Delay(attempt int) time.Duration {
	if attempt <= 1 || r.InitialDelay <= 0 {
		return 0
	}

	multiplier := r.Multiplier
	if multiplier < 1 {
		multiplier = 2
	}

	delay := float64(r.InitialDelay)
	for range attempt - 2 {
		delay *= multiplier

		if r.MaxDelay > 0 && delay >= float64(r.MaxDelay) {
			return r.MaxDelay
		}
	}

	if r.MaxDelay > 0 && time.Duration(delay) > r.MaxDelay {
		return r.MaxDelay
	}

	return time.Duration(delay)
}
