// Package audit stores the append-only evidence stream for lifecycle
// transitions and capability denials. Events are hash-chained so that
// after-the-fact edits to the table are detectable.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SeverityLevel defines the severity of an audit event
type SeverityLevel string

const (
	SeverityInfo     SeverityLevel = "info"
	SeverityWarning  SeverityLevel = "warning"
	SeverityCritical SeverityLevel = "critical"
	// SeverityPage marks events that must reach a human immediately,
	// e.g. a settlement entering an ambiguous rail state.
	SeverityPage SeverityLevel = "page"
)

// EventOutcome defines the result of the audited action
type EventOutcome string

const (
	OutcomeAccepted EventOutcome = "accepted"
	OutcomeRejected EventOutcome = "rejected"
)

// Event is a single audit record. Once stored it is never mutated.
type Event struct {
	ID           uuid.UUID     `json:"id" gorm:"primaryKey;type:uuid"`
	EventType    string        `json:"event_type" gorm:"not null;index"`
	Severity     SeverityLevel `json:"severity" gorm:"not null;index"`
	ActorID      string        `json:"actor_id" gorm:"index"`
	ActorRole    string        `json:"actor_role"`
	EntityID     string        `json:"entity_id" gorm:"index"`
	EntityType   string        `json:"entity_type"`
	Action       string        `json:"action" gorm:"not null"`
	Outcome      EventOutcome  `json:"outcome" gorm:"not null;index"`
	Description  string        `json:"description"`
	Details      string        `json:"details" gorm:"type:text"`
	Timestamp    time.Time     `json:"timestamp" gorm:"not null;index"`
	Hash         string        `json:"hash" gorm:"not null"`
	PreviousHash string        `json:"previous_hash"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Recorder is the sink lifecycle and authz emit evidence through.
type Recorder interface {
	Record(ctx context.Context, event *Event)
}

// Service implements Recorder on a relational store.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates an audit service backed by db.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// chainLockID keys the advisory lock serializing writers on the hash
// chain head. Arbitrary but must be unique within the database.
const chainLockID int64 = 0xA0D17

// Record stores the event synchronously. The chain-head read and the
// insert run in one serialized transaction, so concurrent recorders in
// different processes cannot both chain to the same predecessor and fork
// the chain. A store failure never panics and never silently drops
// evidence: the full event is written to the process log at error level so
// the record survives in at least one medium.
func (s *Service) Record(ctx context.Context, event *Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.CreatedAt = time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockChain(tx); err != nil {
			return fmt.Errorf("failed to lock audit chain: %w", err)
		}

		prev, err := lastHash(tx)
		if err != nil {
			return fmt.Errorf("failed to read previous hash: %w", err)
		}
		event.PreviousHash = prev

		hash, err := eventHash(event)
		if err != nil {
			// Store the event anyway; a hole in the chain beats no record.
			s.logger.Error("audit: failed to hash event", zap.Error(err))
		} else {
			event.Hash = hash
		}

		return tx.Create(event).Error
	})
	if err != nil {
		s.logger.Error("audit: failed to store event",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", event.EventType),
			zap.String("entity_id", event.EntityID),
			zap.String("actor_id", event.ActorID),
			zap.String("outcome", string(event.Outcome)),
			zap.String("description", event.Description),
			zap.Error(err))
		return
	}

	s.logger.Debug("audit: event stored",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", event.EventType))
}

// lockChain serializes chain writers for the duration of the transaction.
// A row lock on the newest event is not enough: the row a second writer
// would need to see is the one the first writer is still inserting.
// SQLite allows a single writer at a time, so the lock is skipped there.
func lockChain(tx *gorm.DB) error {
	if tx.Dialector.Name() == "sqlite" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", chainLockID).Error
}

func lastHash(tx *gorm.DB) (string, error) {
	var last Event
	err := tx.Order("created_at DESC").First(&last).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return last.Hash, nil
}

func eventHash(event *Event) (string, error) {
	hashData := struct {
		ID           uuid.UUID
		EventType    string
		ActorID      string
		EntityID     string
		Action       string
		Outcome      EventOutcome
		Timestamp    time.Time
		Description  string
		PreviousHash string
	}{
		ID:           event.ID,
		EventType:    event.EventType,
		ActorID:      event.ActorID,
		EntityID:     event.EntityID,
		Action:       event.Action,
		Outcome:      event.Outcome,
		Timestamp:    event.Timestamp,
		Description:  event.Description,
		PreviousHash: event.PreviousHash,
	}

	data, err := json.Marshal(hashData)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyIntegrity recomputes the hash chain over [startTime, endTime] and
// reports events whose stored hash or chain linkage no longer matches.
func (s *Service) VerifyIntegrity(ctx context.Context, startTime, endTime time.Time) (*IntegrityReport, error) {
	var events []Event
	err := s.db.WithContext(ctx).
		Where("created_at BETWEEN ? AND ?", startTime, endTime).
		Order("created_at ASC").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}

	report := &IntegrityReport{
		StartTime:   startTime,
		EndTime:     endTime,
		TotalEvents: len(events),
		GeneratedAt: time.Now().UTC(),
	}

	var prevHash string
	for i, event := range events {
		expected, err := eventHash(&event)
		if err != nil {
			report.Issues = append(report.Issues, IntegrityIssue{
				EventID:     event.ID,
				IssueType:   "hash_calculation_error",
				Description: fmt.Sprintf("failed to calculate hash: %v", err),
			})
			report.InvalidEvents++
			continue
		}
		if event.Hash != expected {
			report.Issues = append(report.Issues, IntegrityIssue{
				EventID:     event.ID,
				IssueType:   "hash_mismatch",
				Description: "stored hash does not match recalculated hash",
			})
			report.InvalidEvents++
			continue
		}
		if i > 0 && event.PreviousHash != prevHash {
			report.Issues = append(report.Issues, IntegrityIssue{
				EventID:     event.ID,
				IssueType:   "chain_break",
				Description: "previous hash does not match preceding event",
			})
			report.InvalidEvents++
			continue
		}
		report.ValidEvents++
		prevHash = event.Hash
	}

	return report, nil
}

// IntegrityReport contains the results of an integrity check
type IntegrityReport struct {
	StartTime     time.Time        `json:"start_time"`
	EndTime       time.Time        `json:"end_time"`
	TotalEvents   int              `json:"total_events"`
	ValidEvents   int              `json:"valid_events"`
	InvalidEvents int              `json:"invalid_events"`
	Issues        []IntegrityIssue `json:"issues"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

// IntegrityIssue represents a single integrity violation
type IntegrityIssue struct {
	EventID     uuid.UUID `json:"event_id"`
	IssueType   string    `json:"issue_type"`
	Description string    `json:"description"`
}
