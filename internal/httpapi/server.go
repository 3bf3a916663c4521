// Package httpapi serves the study operations as a JSON HTTP API.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wagiedev/study-bridge-go/internal/bridge"
	"github.com/wagiedev/study-bridge-go/internal/message"
)

// Service is the part of the bridge the handlers call.
type Service interface {
	RequestSubtopics(ctx context.Context, topic string) (message.SubtopicList, error)
	AskQuestion(ctx context.Context, question, subtopic string) (string, error)
	RequestExercise(ctx context.Context, subtopic string) (*message.MCQ, error)
	Status() bridge.Status
}

// Config configures the HTTP server.
type Config struct {
	// Logger receives one line per request. If nil, logging is disabled.
	Logger *slog.Logger

	// StaticDir, if set, is served at / for the browser front end.
	StaticDir string

	// Gatherer, if set, is exposed at /metrics.
	Gatherer prometheus.Gatherer
}

// Server is the HTTP front end of the bridge.
type Server struct {
	echo *echo.Echo
	log  *slog.Logger
	svc  Service
}

// New creates the server and registers its routes.
func New(svc Service, cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo: e,
		log:  log.With("component", "http"),
		svc:  svc,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(s.requestLoggerConfig()))

	api := e.Group("/api")
	api.POST("/subtopics", s.handleSubtopics)
	api.POST("/ask", s.handleAsk)
	api.POST("/generate-mcq", s.handleGenerateMCQ)
	api.GET("/status", s.handleStatus)

	if cfg.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	if cfg.StaticDir != "" {
		e.Static("/", cfg.StaticDir)
	}

	return s
}

func (s *Server) requestLoggerConfig() middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency", v.Latency,
			}

			if v.Error != nil {
				s.log.Warn("Request failed", append(attrs, "error", v.Error)...)

				return nil
			}

			s.log.Debug("Request", attrs...)

			return nil
		},
	}
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown. It returns http.ErrServerClosed after
// a graceful shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("HTTP server listening", "addr", addr)

	return s.echo.Start(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("HTTP server shutting down")

	return s.echo.Shutdown(ctx)
}
