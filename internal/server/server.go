// Package server exposes the resolver over HTTP for other local tools.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"hypecast/internal/config"
	"hypecast/internal/hypem"
	"hypecast/internal/media"
)

const shutdownTimeout = 10 * time.Second

// Tracer resolves a track URL or identifier.
type Tracer interface {
	TraceInput(ctx context.Context, input string) hypem.Trace
}

// Recorder receives every completed resolution.
type Recorder func(media.Resolution)

// Server serves /resolve, /healthz and /metrics.
type Server struct {
	logger *zap.Logger
	server *http.Server
}

// New builds a server. gatherer backs /metrics; record may be nil.
func New(cfg config.ServerConfig, tracer Tracer, gatherer prometheus.Gatherer, record Recorder, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := setupRoutes(tracer, gatherer, record, logger)
	return &Server{
		logger: logger,
		server: createHTTPServer(cfg, mux),
	}
}

func createHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout.Duration,
		ReadHeaderTimeout: cfg.ReadTimeout.Duration,
		WriteTimeout:      cfg.WriteTimeout.Duration,
	}
}

func setupRoutes(tracer Tracer, gatherer prometheus.Gatherer, record Recorder, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "hypecast"})
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /resolve", func(w http.ResponseWriter, r *http.Request) {
		track := r.URL.Query().Get("track")
		if track == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing track parameter"})
			return
		}

		trace := tracer.TraceInput(r.Context(), track)
		logger.Info("Resolved track",
			zap.String("input", track),
			zap.String("id", trace.ID),
			zap.Stringer("path", trace.Path),
			zap.Duration("elapsed", trace.Elapsed))

		if record != nil && trace.ID != "" {
			record(trace.Resolution(time.Now()))
		}

		status := http.StatusOK
		if trace.URL == nil {
			status = http.StatusNotFound
		}
		writeJSON(w, status, trace)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}
