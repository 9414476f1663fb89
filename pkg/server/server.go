// Package server exposes the retrieval pipeline over HTTP: a streaming ask
// endpoint plus health and graph inspection routes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jurisgraph/jurisgraph/pkg/config"
	"github.com/jurisgraph/jurisgraph/pkg/graph"
	"github.com/jurisgraph/jurisgraph/pkg/orchestrator"
	"github.com/jurisgraph/jurisgraph/pkg/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	config       *config.Config
	router       *gin.Engine
	orchestrator *orchestrator.Orchestrator
	store        graph.Store
	logger       *slog.Logger
	server       *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, orch *orchestrator.Orchestrator, store graph.Store, logger *slog.Logger) *Server {
	return &Server{
		config:       cfg,
		orchestrator: orch,
		store:        store,
		logger:       logger,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.store)
	askHandler := handlers.NewAskHandler(s.orchestrator, s.logger)
	graphHandler := handlers.NewGraphHandler(s.store)

	// Health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/ask", askHandler.Ask)
		v1.GET("/entities/:id", graphHandler.GetEntity)
		v1.GET("/communities", graphHandler.ListCommunities)
		v1.GET("/stats", graphHandler.Stats)
	}
}

// Handler returns the configured router, for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
