// Package server wires the HTTP surface: health and metrics routes, the
// webhook adapter endpoints, and the capability-gated operator API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/meridianclear/clearcore/internal/authz"
	"github.com/meridianclear/clearcore/internal/config"
	"github.com/meridianclear/clearcore/internal/webhook"
)

// Server owns the gin engine and the underlying http.Server.
type Server struct {
	cfg    config.ServerConfig
	logger *zap.Logger
	engine *gin.Engine
	http   *http.Server
}

// Deps collects everything the route handlers need.
type Deps struct {
	Authorizer *authz.Authorizer
	JWTSecret  []byte
	Rail       *webhook.RailHandler
	Identity   *webhook.IdentityHandler
	Operator   *OperatorHandler
}

// New builds the router and binds all routes.
func New(cfg config.ServerConfig, logger *zap.Logger, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(cors.Default())

	s := &Server{
		cfg:    cfg,
		logger: logger,
		engine: engine,
	}
	s.registerRoutes(deps)

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) registerRoutes(deps Deps) {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	hooks := s.engine.Group("/webhooks")
	{
		hooks.POST("/rail", deps.Rail.Handle)
		hooks.POST("/identity", deps.Identity.Handle)
	}

	api := s.engine.Group("/api/v1")
	{
		browse := api.Group("", authz.Middleware(deps.Authorizer, deps.JWTSecret, authz.CapBrowse, s.logger))
		{
			browse.GET("/settlements/:id/journals", deps.Operator.ListJournals)
			browse.GET("/risk/config", deps.Operator.GetRiskConfig)
		}

		settle := api.Group("", authz.Middleware(deps.Authorizer, deps.JWTSecret, authz.CapSettle, s.logger))
		{
			settle.POST("/settlements/:id/transition", deps.Operator.TransitionSettlement)
		}
	}
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	s.logger.Info("http server starting", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
