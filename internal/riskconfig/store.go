package riskconfig

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// GormFetcher reads the newest configuration row from the shared store.
type GormFetcher struct {
	db *gorm.DB
}

// NewGormFetcher creates a fetcher backed by db.
func NewGormFetcher(db *gorm.DB) *GormFetcher {
	return &GormFetcher{db: db}
}

// FetchActive returns the most recently created configuration, or
// (nil, nil) when the table is empty.
func (f *GormFetcher) FetchActive(ctx context.Context) (*RiskConfiguration, error) {
	var cfg RiskConfiguration
	err := f.db.WithContext(ctx).Order("created_at DESC").First(&cfg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load risk configuration: %w", err)
	}
	return &cfg, nil
}
