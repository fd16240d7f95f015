package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/meridianclear/clearcore/pkg/metrics"
	"github.com/meridianclear/clearcore/pkg/models"
)

// Store persists clearing journals. Posting runs inside a database
// transaction that locks the settlement's journal rows, so two processes
// retrying the same webhook serialize on the store and converge on one
// journal per idempotency key.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a journal store backed by db.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Post validates and persists a journal, or returns the stored journal when
// the idempotency key is already known. A retry whose payload differs from
// the stored journal still returns the original, but is counted and logged
// so reconciliation can chase it.
func (s *Store) Post(ctx context.Context, settlementCaseID uuid.UUID, idempotencyKey, description string, entries []models.ClearingJournalEntry, createdBy string) (*models.ClearingJournal, error) {
	var posted *models.ClearingJournal

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		journal, err := s.PostTx(tx, settlementCaseID, idempotencyKey, description, entries, createdBy)
		if err != nil {
			return err
		}
		posted = journal
		return nil
	})
	if err != nil {
		return nil, err
	}

	return posted, nil
}

// PostTx is Post running inside a caller-owned transaction, so a journal
// can commit atomically with the state change that caused it. The caller
// is responsible for rolling back tx when PostTx fails.
func (s *Store) PostTx(tx *gorm.DB, settlementCaseID uuid.UUID, idempotencyKey, description string, entries []models.ClearingJournalEntry, createdBy string) (*models.ClearingJournal, error) {
	var existing []models.ClearingJournal
	if err := LockForUpdate(tx).
		Preload("Entries").
		Where("settlement_case_id = ?", settlementCaseID).
		Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to load existing journals: %w", err)
	}

	// Idempotency keys are globally unique; a replay against a
	// different settlement id must still resolve to the stored journal.
	var byKey models.ClearingJournal
	err := tx.Preload("Entries").Where("idempotency_key = ?", idempotencyKey).First(&byKey).Error
	switch {
	case err == nil:
		s.observeReplay(&byKey, entries)
		return &byKey, nil
	case err != gorm.ErrRecordNotFound:
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}

	journal, err := PostJournal(settlementCaseID, idempotencyKey, description, entries, time.Now().UTC(), createdBy, existing)
	if err != nil {
		return nil, err
	}

	// The database assigns the persistent sequential id.
	journal.ID = 0
	for i := range journal.Entries {
		journal.Entries[i].ID = 0
		journal.Entries[i].JournalID = 0
	}
	if err := tx.Create(journal).Error; err != nil {
		return nil, fmt.Errorf("failed to store journal: %w", err)
	}

	metrics.JournalsPosted.Inc()
	return journal, nil
}

// JournalsFor returns every journal posted against a settlement case.
func (s *Store) JournalsFor(ctx context.Context, settlementCaseID uuid.UUID) ([]models.ClearingJournal, error) {
	var journals []models.ClearingJournal
	if err := s.db.WithContext(ctx).Preload("Entries").
		Where("settlement_case_id = ?", settlementCaseID).
		Order("id ASC").Find(&journals).Error; err != nil {
		return nil, fmt.Errorf("failed to load journals: %w", err)
	}
	return journals, nil
}

// FindByIdempotencyKey returns the journal stored under key, or nil when
// the key is unknown.
func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*models.ClearingJournal, error) {
	var journal models.ClearingJournal
	err := s.db.WithContext(ctx).Preload("Entries").Where("idempotency_key = ?", key).First(&journal).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find journal: %w", err)
	}
	return &journal, nil
}

// LockForUpdate applies SELECT ... FOR UPDATE on engines that support it.
// SQLite serializes writers on its own and rejects the clause, so it is
// skipped there; tests run on sqlite, production runs on postgres.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (s *Store) observeReplay(journal *models.ClearingJournal, entries []models.ClearingJournalEntry) {
	divergent := !EntriesMatch(journal, entries)
	metrics.IdempotentReplays.WithLabelValues(fmt.Sprintf("%t", divergent)).Inc()
	if divergent {
		// Trust the first write, but never mask the divergence.
		s.logger.Warn("idempotent replay with divergent payload; stored journal preserved",
			zap.Int64("journal_id", journal.ID),
			zap.String("idempotency_key", journal.IdempotencyKey),
			zap.String("settlement_case_id", journal.SettlementCaseID.String()))
	}
}
