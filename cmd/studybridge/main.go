// Command studybridge runs the study-assistant worker and serves it over HTTP
// or as MCP tools on stdio.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	studybridge "github.com/wagiedev/study-bridge-go"
	"github.com/wagiedev/study-bridge-go/internal/config"
	"github.com/wagiedev/study-bridge-go/internal/httpapi"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run is separate from main so deferred cleanup executes before os.Exit.
func run(args []string, stderr io.Writer) int {
	v := viper.New()

	configFile, showVersion, err := parseFlags(v, args)
	if err != nil {
		if stderrors.Is(err, pflag.ErrHelp) {
			return 0
		}

		fmt.Fprintln(stderr, err)

		return 2
	}

	if showVersion {
		fmt.Fprintf(stderr, "studybridge %s\n", version)

		return 0
	}

	settings, err := config.Load(v, configFile)
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)

		return 1
	}

	log, err := newLogger(settings.Log, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)

		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	b := studybridge.New(bridgeOptions(settings, log, reg)...)

	defer func() {
		if err := b.Close(); err != nil {
			log.Warn("Failed to close bridge", "error", err)
		}
	}()

	if err := b.Start(ctx); err != nil {
		log.Error("Failed to start worker", "error", err)

		return 1
	}

	log.Info("Study assistant is ready", "mode", settings.Mode, "pid", b.Status().PID)

	switch settings.Mode {
	case config.ModeMCP:
		err = serveMCP(ctx, b, log)
	default:
		err = serveHTTP(ctx, settings, b, log, reg)
	}

	if err != nil {
		log.Error("Server stopped with error", "error", err)

		return 1
	}

	log.Info("Shutting down")

	return 0
}

func parseFlags(v *viper.Viper, args []string) (configFile string, showVersion bool, err error) {
	fs := pflag.NewFlagSet("studybridge", pflag.ContinueOnError)

	fs.StringVarP(&configFile, "config", "c", "", "config file (default: ./studybridge.yaml or ./configs/studybridge.yaml)")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.String("addr", "", "HTTP listen address, e.g. :3001")
	fs.String("mode", "", "serve mode: http or mcp")
	fs.String("worker", "", "path to the ai_assistant executable")
	fs.String("static", "", "directory served at / in http mode")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("log-format", "", "log format: text or json")

	if err := fs.Parse(args); err != nil {
		return "", false, err
	}

	bindings := map[string]string{
		"listen_addr":     "addr",
		"mode":            "mode",
		"worker.path":     "worker",
		"http.static_dir": "static",
		"log.level":       "log-level",
		"log.format":      "log-format",
	}

	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return "", false, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	return configFile, showVersion, nil
}

func newLogger(settings config.LogSettings, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(settings.Level)); err != nil {
		return nil, fmt.Errorf("invalid log.level %q: %w", settings.Level, err)
	}

	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(settings.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log.format %q: want text or json", settings.Format)
	}
}

func bridgeOptions(settings *config.Settings, log *slog.Logger, reg prometheus.Registerer) []studybridge.Option {
	worker := settings.Worker

	// viper lowercases map keys; environment variable names are upper case.
	env := make(map[string]string, len(worker.Env))
	for k, val := range worker.Env {
		env[strings.ToUpper(k)] = val
	}

	return []studybridge.Option{
		studybridge.WithLogger(log),
		studybridge.WithMetrics(studybridge.NewPrometheusRecorder(reg)),
		studybridge.WithWorkerPath(worker.Path),
		studybridge.WithWorkerArgs(worker.Args...),
		studybridge.WithWorkerDir(worker.Dir),
		studybridge.WithWorkerEnv(env),
		studybridge.WithStartupTimeout(worker.StartupTimeout),
		studybridge.WithCommandTimeout(worker.CommandTimeout),
		studybridge.WithShutdownGrace(worker.ShutdownGrace),
		studybridge.WithConcurrency(worker.Concurrency),
		studybridge.WithLaunchRetry(worker.LaunchRetry),
		studybridge.WithStderr(func(line string) {
			log.Debug("Worker stderr", "line", line)
		}),
	}
}

func serveHTTP(
	ctx context.Context,
	settings *config.Settings,
	b studybridge.Bridge,
	log *slog.Logger,
	reg *prometheus.Registry,
) error {
	cfg := httpapi.Config{
		Logger:    log,
		StaticDir: settings.HTTP.StaticDir,
	}

	if settings.HTTP.Metrics {
		cfg.Gatherer = reg
	}

	server := httpapi.New(b, cfg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(settings.ListenAddr); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), settings.HTTP.ShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func serveMCP(ctx context.Context, b studybridge.Bridge, log *slog.Logger) error {
	server := studybridge.NewMCPServer(b, "study-bridge", version, log)

	err := server.Run(ctx, &mcp.StdioTransport{})
	if err != nil && ctx.Err() != nil {
		return nil
	}

	return err
}
