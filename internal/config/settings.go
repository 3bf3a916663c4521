package config

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. STUDYBRIDGE_WORKER_PATH.
	EnvPrefix = "STUDYBRIDGE"

	// ModeHTTP serves the HTTP API.
	ModeHTTP = "http"
	// ModeMCP serves the study tools over MCP stdio.
	ModeMCP = "mcp"
)

// Settings is the file and environment configuration of the studybridge binary.
type Settings struct {
	ListenAddr string         `mapstructure:"listen_addr"`
	Mode       string         `mapstructure:"mode"`
	Worker     WorkerSettings `mapstructure:"worker"`
	HTTP       HTTPSettings   `mapstructure:"http"`
	Log        LogSettings    `mapstructure:"log"`
}

// WorkerSettings configures the supervised worker process.
type WorkerSettings struct {
	Path           string            `mapstructure:"path"`
	Args           []string          `mapstructure:"args"`
	Dir            string            `mapstructure:"dir"`
	Env            map[string]string `mapstructure:"env"`
	StartupTimeout time.Duration     `mapstructure:"startup_timeout"`
	CommandTimeout time.Duration     `mapstructure:"command_timeout"`
	ShutdownGrace  time.Duration     `mapstructure:"shutdown_grace"`
	Concurrency    ConcurrencyMode   `mapstructure:"concurrency"`
	LaunchRetry    LaunchRetry       `mapstructure:"launch_retry"`
}

// HTTPSettings configures the HTTP API.
type HTTPSettings struct {
	StaticDir       string        `mapstructure:"static_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Metrics         bool          `mapstructure:"metrics"`
}

// LogSettings configures the process logger.
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every known key so environment overrides apply.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":3001")
	v.SetDefault("mode", ModeHTTP)
	v.SetDefault("worker.path", "")
	v.SetDefault("worker.args", []string{})
	v.SetDefault("worker.dir", "")
	v.SetDefault("worker.env", map[string]string{})
	v.SetDefault("worker.startup_timeout", DefaultStartupTimeout)
	v.SetDefault("worker.command_timeout", DefaultCommandTimeout)
	v.SetDefault("worker.shutdown_grace", DefaultShutdownGrace)
	v.SetDefault("worker.concurrency", string(ConcurrencyQueue))
	v.SetDefault("worker.launch_retry.attempts", 1)
	v.SetDefault("worker.launch_retry.initial_delay", 500*time.Millisecond)
	v.SetDefault("worker.launch_retry.max_delay", 5*time.Second)
	v.SetDefault("worker.launch_retry.multiplier", 2.0)
	v.SetDefault("http.static_dir", "")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.metrics", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads settings from defaults, an optional config file and the
// environment, in increasing precedence. Flags bound to v by the caller take
// precedence over all of them.
//
// An empty configFile searches for studybridge.{yaml,json,toml} in the working
// directory and ./configs; not finding one is not an error.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("studybridge")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := stderrors.AsType[viper.ConfigFileNotFoundError](err); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return &settings, nil
}

// Validate reports the first invalid setting.
func (s *Settings) Validate() error {
	switch s.Mode {
	case ModeHTTP, ModeMCP:
	default:
		return fmt.Errorf("invalid mode %q: want %q or %q", s.Mode, ModeHTTP, ModeMCP)
	}

	switch s.Worker.Concurrency {
	case ConcurrencyQueue, ConcurrencyReject:
	default:
		return fmt.Errorf("invalid worker.concurrency %q: want %q or %q",
			s.Worker.Concurrency, ConcurrencyQueue, ConcurrencyReject)
	}

	if s.Worker.StartupTimeout < 0 || s.Worker.CommandTimeout < 0 || s.Worker.ShutdownGrace < 0 {
		return stderrors.New("worker timeouts must not be negative")
	}

	if s.Mode == ModeHTTP && s.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required in %s mode", ModeHTTP)
	}

	return nil
}
