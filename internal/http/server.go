// Package http provides the HTTP server, router and middleware.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/phiguard/internal/config"
	documentHTTP "github.com/allisson/phiguard/internal/document/http"
	keysHTTP "github.com/allisson/phiguard/internal/keys/http"
	"github.com/allisson/phiguard/internal/metrics"
)

// ReadinessChecker reports whether the key ring holds an active key.
type ReadinessChecker interface {
	Ready() bool
}

// Server is the API server.
type Server struct {
	server *http.Server
	router *gin.Engine
	keys   ReadinessChecker
	logger *slog.Logger
}

// NewServer creates a new HTTP server. Call SetupRouter before Start.
func NewServer(keys ReadinessChecker, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		keys:   keys,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the router with every route and middleware. ctx bounds the
// lifetime of background middleware workers.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	documentHandler *documentHTTP.DocumentHandler,
	keyHandler *keysHTTP.KeyHandler,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled {
		v1.Use(RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	documents := v1.Group("/documents")
	{
		documents.POST("/protect", documentHandler.ProtectHandler)
		documents.POST("/reveal", documentHandler.RevealHandler)
		documents.POST("/rewrap", documentHandler.RewrapHandler)
	}

	keys := v1.Group("/keys")
	{
		keys.GET("", keyHandler.ListHandler)
		keys.GET("/stats", keyHandler.StatsHandler)
		keys.POST("/rotate", keyHandler.RotateHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// healthHandler reports liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports 503 until an active key is loaded.
func (s *Server) readinessHandler(c *gin.Context) {
	if s.keys == nil || !s.keys.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"keys": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"keys": "ok"},
	})
}

// Start starts the HTTP server. It returns nil after Shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
