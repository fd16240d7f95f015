package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/meridianclear/clearcore/internal/audit"
	"github.com/meridianclear/clearcore/internal/authz"
	"github.com/meridianclear/clearcore/internal/bus"
	"github.com/meridianclear/clearcore/internal/config"
	"github.com/meridianclear/clearcore/internal/database"
	"github.com/meridianclear/clearcore/internal/ledger"
	"github.com/meridianclear/clearcore/internal/lifecycle"
	"github.com/meridianclear/clearcore/internal/riskconfig"
	"github.com/meridianclear/clearcore/internal/server"
	"github.com/meridianclear/clearcore/internal/webhook"
	"github.com/meridianclear/clearcore/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := database.NewPostgresDB(cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zapLogger.Fatal("database migration failed", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	nodeID := uuid.NewString()
	eventBus := bus.New(rdb, logger.Component(zapLogger, "bus"), nodeID)
	defer eventBus.Close()

	auditor := audit.NewService(db, logger.Component(zapLogger, "audit"))
	machine := lifecycle.NewMachine(logger.Component(zapLogger, "lifecycle"), auditor)
	journals := ledger.NewStore(db, logger.Component(zapLogger, "ledger"))

	authorizer := authz.NewAuthorizer(authz.NewGormCaseStore(db), zapLogger, authz.Options{
		ParallelEngagement:   cfg.Auth.ParallelEngagement,
		ReverificationWindow: cfg.Auth.ReverificationWindow,
	})

	riskProvider := riskconfig.NewProvider(riskconfig.NewGormFetcher(db), zapLogger, cfg.Risk.CacheTTL)

	railHandler := webhook.NewRailHandler(zapLogger, db, machine, journals,
		eventBus, webhook.HMACVerifier{}, cfg.Webhook.RailSecret)
	identityHandler := webhook.NewIdentityHandler(zapLogger, db,
		eventBus, webhook.HMACVerifier{}, cfg.Webhook.IdentitySecret)

	operator := server.NewOperatorHandler(zapLogger, db, journals, machine, riskProvider)

	srv := server.New(cfg.Server, zapLogger, server.Deps{
		Authorizer: authorizer,
		JWTSecret:  []byte(cfg.Auth.JWTSecret),
		Rail:       railHandler,
		Identity:   identityHandler,
		Operator:   operator,
	})

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server stopped", zap.Error(err))
		}
	}()
	zapLogger.Info("clearcore started", zap.String("node_id", nodeID))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLogger.Info("clearcore stopped")
}
