// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/recipe-catalog/internal/config"
	"github.com/vyrodovalexey/recipe-catalog/internal/handler"
	"github.com/vyrodovalexey/recipe-catalog/internal/middleware"
	"github.com/vyrodovalexey/recipe-catalog/internal/model"
	"github.com/vyrodovalexey/recipe-catalog/internal/store"
)

// loadedChecker is implemented by stores that report whether their data is
// available. Stores without it are always ready.
type loadedChecker interface {
	Loaded() bool
}

// Server represents the HTTP server.
type Server struct {
	httpServer  *http.Server
	router      *mux.Router
	handler     http.Handler
	probeServer *http.Server
	probeRouter *mux.Router
	config      *config.Config
	logger      *zap.Logger
	wsHandler   *handler.WebSocketHandler
	store       store.Store
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *zap.Logger, recipeStore store.Store) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		probeRouter: mux.NewRouter(),
		config:      cfg,
		logger:      logger,
		store:       recipeStore,
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupProbeRoutes()
	s.setupHTTPServer()

	return s
}

// setupMiddleware configures the middleware chain.
func (s *Server) setupMiddleware() {
	allowedOrigins := []string{"*"}

	// CORS wraps the router so preflight requests are answered even though
	// no route accepts OPTIONS.
	s.handler = middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.CORS(allowedOrigins, middleware.DefaultCORSMethods, middleware.DefaultCORSHeaders),
	)(s.router)

	// Apply middleware in order (first applied = outermost)
	s.router.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.RequestID()))

	if s.config.MetricsEnabled {
		s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))
	}

	s.router.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	s.wsHandler = handler.NewWebSocketHandler(s.logger)
	s.wsHandler.RegisterRoutes(s.router)

	restHandler := handler.NewRESTHandler(s.store, s.wsHandler, s.logger)
	restHandler.RegisterRoutes(s.router)

	// Without a probe server, metrics are served on the main port.
	if s.config.MetricsEnabled && s.config.ProbePort == 0 {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// setupProbeRoutes configures the health, readiness and metrics routes of
// the probe router.
func (s *Server) setupProbeRoutes() {
	s.probeRouter.HandleFunc("/health", s.handleProbeHealth).Methods(http.MethodGet)
	s.probeRouter.HandleFunc("/ready", s.handleProbeReady).Methods(http.MethodGet)

	if s.config.MetricsEnabled {
		s.probeRouter.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// setupHTTPServer configures the HTTP servers.
func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	if s.config.ProbePort > 0 {
		s.probeServer = &http.Server{
			Addr:              s.config.ProbeAddress(),
			Handler:           s.probeRouter,
			ReadTimeout:       5 * time.Second,
			ReadHeaderTimeout: 2 * time.Second,
			WriteTimeout:      5 * time.Second,
			IdleTimeout:       30 * time.Second,
		}
	}
}

func (s *Server) handleProbeHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeProbe(w, http.StatusOK, handler.HealthResponse{Status: "healthy", Version: handler.Version})
}

// handleProbeReady reports ready once the catalog has been loaded.
func (s *Server) handleProbeReady(w http.ResponseWriter, _ *http.Request) {
	if !s.Ready() {
		s.writeProbe(w, http.StatusServiceUnavailable, handler.ReadyResponse{Status: "not ready"})
		return
	}
	s.writeProbe(w, http.StatusOK, handler.ReadyResponse{Status: "ready"})
}

func (s *Server) writeProbe(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(model.NewSuccessResponse(data)); err != nil {
		s.logger.Debug("failed to encode probe response", zap.Error(err))
	}
}

// Ready reports whether the server can serve catalog requests.
func (s *Server) Ready() bool {
	if lc, ok := s.store.(loadedChecker); ok {
		return lc.Loaded()
	}
	return true
}

// Start starts the probe server, if configured, and the HTTP server. It
// blocks until the main server stops.
func (s *Server) Start() error {
	if s.probeServer != nil {
		go s.startProbeServer()
	}

	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
		zap.String("storage_backend", s.config.StorageBackend),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen and serve: %w", err)
	}

	return nil
}

func (s *Server) startProbeServer() {
	s.logger.Info("starting probe server", zap.String("address", s.config.ProbeAddress()))

	if err := s.probeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("probe server failed", zap.Error(err))
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	// WebSocket connections are hijacked and not tracked by http.Server.
	if s.wsHandler != nil {
		s.wsHandler.CloseAllConnections()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if s.probeServer != nil {
		if err := s.probeServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("probe server shutdown: %w", err)
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the root handler served on the main port.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ProbeRouter returns the probe router for testing purposes.
func (s *Server) ProbeRouter() *mux.Router {
	return s.probeRouter
}

// Notifier returns the WebSocket hub that receives catalog notifications.
func (s *Server) Notifier() *handler.WebSocketHandler {
	return s.wsHandler
}
