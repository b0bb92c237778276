package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"timescope/internal/analysis"
	"timescope/internal/config"
	"timescope/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server is the HTTP front of the analysis pipeline: the authenticated
// /api/analyze endpoint plus the web presentation layer.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	analysis   *analysis.Service
	cfg        *config.Config
	log        *slog.Logger
	renderer   *TemplateRenderer
}

// New creates a new HTTP server instance
func New(svc *analysis.Service, cfg *config.Config) *Server {
	log := logger.Get()

	renderer, err := NewTemplateRenderer(cfg.App.Debug, cfg.Server.TemplateDir)
	if err != nil {
		log.Warn("Failed to initialize template renderer, web pages may not work", "error", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		analysis: svc,
		cfg:      cfg,
		log:      log,
		renderer: renderer,
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	// The analyze pipeline makes two sequential upstream calls; the request
	// timeout has to cover both.
	s.router.Use(middleware.Timeout(3 * time.Minute))

	if s.cfg.Server.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Server.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	s.router.Use(securityHeaders)
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	// Health check stays outside the auth gate for probes
	s.router.Get("/health", s.handleHealth)

	// Everything else sits behind the basic-auth gate, like the original
	// deployment where the whole site was private.
	s.router.Group(func(r chi.Router) {
		r.Use(s.basicAuth)

		r.Get("/api/status", s.handleStatus)
		r.Post("/api/analyze", s.handleAnalyze)

		// Web pages
		r.Get("/", s.handleHomePage)
		r.Post("/analyze", s.handleAnalyzeFragment)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.cfg.Server.ReadTimeout,
		"write_timeout", s.cfg.Server.WriteTimeout,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
