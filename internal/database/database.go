// Package database opens the shared relational store and runs schema
// migrations for every table the clearing core owns.
package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/meridianclear/clearcore/internal/audit"
	"github.com/meridianclear/clearcore/internal/config"
	"github.com/meridianclear/clearcore/internal/riskconfig"
	"github.com/meridianclear/clearcore/pkg/models"
)

// NewPostgresDB opens a pooled postgres connection using the supplied
// configuration.
func NewPostgresDB(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("connected to postgres",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))
	return db, nil
}

// Migrate creates or updates every table the service persists to.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Trade{},
		&models.SettlementCase{},
		&models.ComplianceCase{},
		&models.ClearingJournal{},
		&models.ClearingJournalEntry{},
		&audit.Event{},
		&riskconfig.RiskConfiguration{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
