// Package api exposes the engine over HTTP: scans, sibling groups, pair
// comparison, merge preview/execute and the consolidation rules.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"hypermatrix/internal/config"
	"hypermatrix/internal/logging"
	"hypermatrix/internal/rules"
	"hypermatrix/internal/scan"
	"hypermatrix/internal/storage"
)

// Server represents the HTTP API server
type Server struct {
	router *http.ServeMux
	server *http.Server
	addr   string
	logger *logging.Logger
	cfg    *config.Config
	db     *storage.DB
	scans  *scan.Manager
	rules  *rules.Store
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *config.Config, db *storage.DB, scans *scan.Manager, rulesStore *rules.Store, logger *logging.Logger) *Server {
	s := &Server{
		addr:   fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		logger: logger.WithComponent("api"),
		cfg:    cfg,
		db:     db,
		scans:  scans,
		rules:  rulesStore,
		router: http.NewServeMux(),
	}

	s.registerRoutes()

	handler := s.applyMiddleware(s.router)
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", map[string]interface{}{
		"addr": s.addr,
	})

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server", nil)

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server shut down successfully", nil)
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the handler with middleware in the correct order
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last one wraps first)
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	handler = CORSMiddleware()(handler)
	return handler
}
