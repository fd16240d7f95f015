package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/meridianclear/clearcore/internal/ledger"
	"github.com/meridianclear/clearcore/internal/lifecycle"
	"github.com/meridianclear/clearcore/pkg/models"
)

// Publisher is the slice of the event bus the adapters need.
type Publisher interface {
	Publish(ctx context.Context, subjectID, caseID string, event any) error
}

// railEvent is the provider callback payload after JSON binding.
type railEvent struct {
	Provider    string `json:"provider"`
	ExternalRef string `json:"external_ref"`
	EventType   string `json:"event_type"`
	// SettlementID may be absent when the provider only knows its own
	// correlation id; the row is then resolved by (provider, external_ref).
	SettlementID string `json:"settlement_id"`
}

// railEventTargets resolves a provider event type onto the canonical
// settlement target state. Unknown event types are acknowledged and
// ignored, never guessed.
var railEventTargets = map[string]lifecycle.SettlementStatus{
	"payment.submitted": lifecycle.SettlementRailSubmitted,
	"payment.cleared":   lifecycle.SettlementCleared,
	"payment.failed":    lifecycle.SettlementFailedRetry,
	"payment.exception": lifecycle.SettlementAmbiguousState,
	"payment.cancelled": lifecycle.SettlementCancelled,
}

// RailHandler adapts payment-rail callbacks onto the clearing core.
type RailHandler struct {
	logger   *zap.Logger
	db       *gorm.DB
	machine  *lifecycle.Machine
	journals *ledger.Store
	bus      Publisher
	verifier SignatureVerifier
	secret   string
}

// NewRailHandler wires a rail callback adapter.
func NewRailHandler(logger *zap.Logger, db *gorm.DB, machine *lifecycle.Machine, journals *ledger.Store, publisher Publisher, verifier SignatureVerifier, secret string) *RailHandler {
	return &RailHandler{
		logger:   logger,
		db:       db,
		machine:  machine,
		journals: journals,
		bus:      publisher,
		verifier: verifier,
		secret:   secret,
	}
}

// Handle processes one rail callback delivery. Duplicate and out-of-order
// deliveries are the normal case: the transition table and the journal
// idempotency key make them degrade to acknowledged no-ops.
func (h *RailHandler) Handle(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	signature := c.GetHeader("X-Rail-Signature")
	if !h.verifier.Verify(rawBody, signature, h.secret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var event railEvent
	if err := bindJSON(rawBody, &event); err != nil ||
		event.Provider == "" || event.ExternalRef == "" || event.EventType == "" {
		// Malformed payloads will never succeed on retry.
		c.JSON(http.StatusOK, gin.H{"status": "acknowledged", "detail": "unparseable payload"})
		return
	}

	target, ok := railEventTargets[event.EventType]
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "acknowledged", "detail": "unhandled event type"})
		return
	}

	settlement, record, err := h.applyTransition(c.Request.Context(), &event, target)
	if err != nil {
		if _, ok := lifecycle.AsIllegalTransition(err); ok {
			// Business rejection: tell the provider not to retry. The
			// rejection itself is already in the audit stream.
			c.JSON(http.StatusOK, gin.H{"status": "acknowledged", "detail": "transition rejected"})
			return
		}
		h.logger.Error("rail callback failed",
			zap.String("provider", event.Provider),
			zap.String("external_ref", event.ExternalRef),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "temporary failure"})
		return
	}

	h.publish(c.Request.Context(), settlement, record)

	c.JSON(http.StatusOK, gin.H{
		"status":         "processed",
		"settlement_id":  settlement.ID.String(),
		"previous_state": record.PreviousState,
		"new_state":      record.NewState,
	})
}

// applyTransition locks the settlement row, validates the transition
// against the row's current state, and persists the new state. A cleared
// settlement's DvP journal is posted in the same database transaction, so
// the state change and the ledger record commit or roll back together: a
// journal fault leaves the row untouched and the provider's retry replays
// the whole step. The row lock plus terminal-state rejection is what keeps
// two concurrent deliveries from advancing an entity twice.
func (h *RailHandler) applyTransition(ctx context.Context, event *railEvent, target lifecycle.SettlementStatus) (*models.SettlementCase, *lifecycle.TransitionRecord, error) {
	var settlement models.SettlementCase
	var record *lifecycle.TransitionRecord

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := ledger.LockForUpdate(tx)
		if event.SettlementID != "" {
			query = query.Where("id = ?", event.SettlementID)
		} else {
			query = query.Where("provider = ? AND external_ref = ?", event.Provider, event.ExternalRef)
		}
		if err := query.First(&settlement).Error; err != nil {
			return fmt.Errorf("failed to load settlement: %w", err)
		}

		actorID := "rail:" + event.Provider
		rec, err := h.machine.Transition(ctx, settlement.ID.String(), lifecycle.EntitySettlement,
			settlement.Status, string(target), actorID, lifecycle.RoleSystem, time.Now().UTC())
		if err != nil {
			return err
		}
		record = rec

		settlement.Status = string(target)
		settlement.UpdatedAt = time.Now().UTC()
		if err := tx.Save(&settlement).Error; err != nil {
			return fmt.Errorf("failed to persist settlement state: %w", err)
		}

		if target == lifecycle.SettlementCleared {
			if err := h.postClearingJournal(tx, &settlement, event); err != nil {
				return fmt.Errorf("failed to post clearing journal: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &settlement, record, nil
}

// postClearingJournal posts the DvP release for a cleared settlement,
// keyed on the provider correlation id.
func (h *RailHandler) postClearingJournal(tx *gorm.DB, settlement *models.SettlementCase, event *railEvent) error {
	key := ProviderEventKey(event.Provider, event.ExternalRef)
	entries := []models.ClearingJournalEntry{
		{
			AccountCode: "ESCROW",
			Direction:   models.Debit,
			AmountCents: settlement.AmountCents,
			Currency:    settlement.Currency,
			Memo:        "DvP release",
		},
		{
			AccountCode: "SELLER:" + settlement.PayeeID.String(),
			Direction:   models.Credit,
			AmountCents: settlement.AmountCents,
			Currency:    settlement.Currency,
			Memo:        "DvP release",
		},
	}

	_, err := h.journals.PostTx(tx, settlement.ID, key,
		fmt.Sprintf("rail clearing %s/%s", event.Provider, event.ExternalRef),
		entries, "rail:"+event.Provider)
	return err
}

func (h *RailHandler) publish(ctx context.Context, settlement *models.SettlementCase, record *lifecycle.TransitionRecord) {
	event := map[string]any{
		"kind":           "settlement.status_changed",
		"settlement_id":  settlement.ID.String(),
		"previous_state": record.PreviousState,
		"new_state":      record.NewState,
	}
	if err := h.bus.Publish(ctx, settlement.TradeID.String(), settlement.ID.String(), event); err != nil {
		// Best-effort: the audit and ledger records already hold the truth.
		h.logger.Warn("bus publish failed", zap.Error(err))
	}
}
