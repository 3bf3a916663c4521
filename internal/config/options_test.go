package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOptions_EffectiveDefaults(t *testing.T) {
	opts := &Options{}

	require.Equal(t, 5*time.Second, opts.EffectiveStartupTimeout())
	require.Equal(t, 60*time.Second, opts.EffectiveCommandTimeout())
	require.Equal(t, DefaultShutdownGrace, opts.EffectiveShutdownGrace())
}

func TestOptions_EffectiveOverrides(t *testing.T) {
	opts := &Options{
		StartupTimeout: time.Second,
		CommandTimeout: 2 * time.Second,
		ShutdownGrace:  3 * time.Second,
	}

	require.Equal(t, time.Second, opts.EffectiveStartupTimeout())
	require.Equal(t, 2*time.Second, opts.EffectiveCommandTimeout())
	require.Equal(t, 3*time.Second, opts.EffectiveShutdownGrace())
}
