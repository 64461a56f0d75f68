// Package api provides the HTTP server for yieldboard.
//
// It exposes the derived tables, the three chart queries as Plotly-style
// JSON specs and as rendered images, a WebSocket channel the dashboard uses
// for hover/selection round trips, and the dashboard page itself.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seenimoa/yieldboard/internal/config"
	"github.com/seenimoa/yieldboard/internal/infra"
	"github.com/seenimoa/yieldboard/internal/series"
)

// Options carries what the server needs beyond the configuration.
type Options struct {
	Source   string // name of the provider the tables came from
	Version  string
	Logger   *slog.Logger
	CacheTTL time.Duration // rendered-image cache, default 10m
}

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	tables  *series.Tables
	source  string
	version string
	logger  *slog.Logger
	images  *infra.Cache
	wsHub   *WSHub
	serveUI bool // when true, serve the embedded dashboard at /
	started time.Time
}

// NewServer creates a configured API server with all routes and middleware.
// tables is shared read-only by every handler.
func NewServer(cfg *config.Config, tables *series.Tables, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if tables == nil {
		tables = series.Build(nil)
	}

	srv := &Server{
		cfg:     cfg,
		tables:  tables,
		source:  opts.Source,
		version: opts.Version,
		logger:  opts.Logger,
		images:  infra.NewCache(opts.CacheTTL),
		serveUI: true,
		started: time.Now(),
	}
	srv.wsHub = NewWSHub(opts.Logger)
	srv.router = srv.buildRouter()
	return srv
}

// SetServeUI controls whether the embedded dashboard is served.
// Must be called before Serve.
func (s *Server) SetServeUI(enabled bool) {
	s.serveUI = enabled
	s.router = s.buildRouter()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.wsHub.Run(hubCtx)
	go s.sweepImages(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	s.wsHub.Broadcast(WSMessage{Type: "shutdown"})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) sweepImages(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.images.Cleanup()
		}
	}
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket sits outside the timeout middleware.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			// Health (also available at /health)
			r.Get("/health", s.handleHealth)

			// Tables
			r.Get("/tables", s.handleTables)
			r.Get("/tables/export.xlsx", s.handleExport)
			r.Get("/tables/{name}", s.handleTableRows)

			// Charts
			r.Get("/charts/history", s.handleHistory)
			r.Get("/charts/yield-curve", s.handleYieldCurve)
			r.Post("/charts/yield-curve", s.handleYieldCurveEvent)
			r.Get("/charts/spread", s.handleSpread)
			r.Get("/charts/history.{ext}", s.handleChartImage(figureHistory))
			r.Get("/charts/yield-curve.{ext}", s.handleChartImage(figureYieldCurve))
			r.Get("/charts/spread.{ext}", s.handleChartImage(figureSpread))

			// Configuration
			r.Get("/config/keys", s.handleGetConfigKeys)
		})
	})

	// Serve embedded dashboard
	if s.serveUI {
		s.mountDashboard(r)
	}

	return r
}

// ============================================================
// Response envelope
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write JSON response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

func (s *Server) writeData(w http.ResponseWriter, data any) {
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}
