// Package server wires the vault store, handlers and middleware into an
// HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/vault-inventory/internal/auth"
	"github.com/vyrodovalexey/vault-inventory/internal/config"
	"github.com/vyrodovalexey/vault-inventory/internal/handler"
	"github.com/vyrodovalexey/vault-inventory/internal/middleware"
	"github.com/vyrodovalexey/vault-inventory/internal/store"
)

var (
	corsMethods = []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodOptions,
	}
	corsHeaders = []string{
		"Content-Type",
		"Authorization",
		auth.APIKeyHeader,
		middleware.RequestIDHeader,
	}
)

// Server serves the vault API, the snapshot stream and the probes.
type Server struct {
	httpServer    *http.Server
	router        *mux.Router
	handler       http.Handler
	config        *config.Config
	logger        *zap.Logger
	authenticator auth.Authenticator
	wsHandler     *handler.WebSocketHandler
}

// New creates a Server over vaultStore. A nil authenticator disables
// authentication.
func New(cfg *config.Config, logger *zap.Logger, vaultStore store.Store, authenticator auth.Authenticator) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		config:        cfg,
		logger:        logger,
		authenticator: authenticator,
	}

	s.routeMiddleware()
	s.routes(vaultStore)

	// The outer chain also sees requests mux rejects, so preflights and
	// unknown paths still get a request ID and CORS headers.
	s.handler = middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.CORS(cfg.CORSOrigins, corsMethods, corsHeaders),
	)(s.router)

	s.httpServer = &http.Server{
		Addr:              cfg.Address(),
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s
}

// routeMiddleware installs the middleware that needs the matched route.
func (s *Server) routeMiddleware() {
	if s.config.MetricsEnabled {
		s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))
	}
	s.router.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))
	if s.authenticator != nil {
		s.router.Use(mux.MiddlewareFunc(middleware.Auth(s.authenticator, s.logger)))
	}
}

func (s *Server) routes(vaultStore store.Store) {
	handler.NewRESTHandler(vaultStore, s.logger).RegisterRoutes(s.router)

	s.wsHandler = handler.NewWebSocketHandler(vaultStore, s.logger, s.config.WSInterval)
	s.wsHandler.RegisterRoutes(s.router)

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// Handler returns the fully wrapped handler the server listens with.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and blocks until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
		zap.String("auth_mode", s.config.AuthModeOrDefault()),
	)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("listen on %s: %w", s.config.Address(), err)
}

// Shutdown says goodbye to WebSocket subscribers, which net/http does not
// track once hijacked, then drains in-flight HTTP requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	s.wsHandler.CloseAllConnections()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}
