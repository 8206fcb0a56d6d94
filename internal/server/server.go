// Package server exposes the agent over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config controls the listener and per-request limits.
type Config struct {
	Addr string
	// RequestTimeout bounds non-streaming routes. Streaming routes end when
	// the client goes away.
	RequestTimeout time.Duration
}

type Server struct {
	Router *chi.Mux
	cfg    Config
	logger *slog.Logger
	http   *http.Server
}

// New builds the router for h.
func New(cfg Config, h *Handlers, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "hybrid-agent")
	})

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", h.Metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/agent/stream", h.StreamAgent)
		r.Post("/local/reprovision", h.Reprovision)

		r.Group(func(r chi.Router) {
			r.Use(TimeoutMiddleware(cfg.RequestTimeout))
			r.Post("/memories", h.SaveMemory)
			r.Post("/memories/search", h.SearchMemories)
			r.Get("/models", h.ListModels)
			r.Put("/models/current", h.SetModel)
			r.Get("/capabilities", h.ListCapabilities)
		})
	})

	return &Server{
		Router: r,
		cfg:    cfg,
		logger: logger,
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start listens on the configured address and blocks until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. It returns nil after Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting server", slog.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
