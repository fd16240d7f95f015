package authz

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/meridianclear/clearcore/pkg/models"
)

// GormCaseStore implements CaseStore on the shared relational store.
type GormCaseStore struct {
	db *gorm.DB
}

// NewGormCaseStore creates a case store backed by db.
func NewGormCaseStore(db *gorm.DB) *GormCaseStore {
	return &GormCaseStore{db: db}
}

// FindActiveByUser returns the newest compliance case for userID, or
// (nil, nil) when the user has none.
func (s *GormCaseStore) FindActiveByUser(ctx context.Context, userID string) (*models.ComplianceCase, error) {
	var cc models.ComplianceCase
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&cc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load compliance case: %w", err)
	}
	return &cc, nil
}
