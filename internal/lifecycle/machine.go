package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meridianclear/clearcore/internal/audit"
	"github.com/meridianclear/clearcore/pkg/metrics"
)

// TransitionRecord is created per successful transition. Records are never
// mutated; together with rejected-attempt audit events they form the
// append-only evidence stream.
type TransitionRecord struct {
	EntityID      string     `json:"entity_id"`
	EntityType    EntityType `json:"entity_type"`
	PreviousState string     `json:"previous_state"`
	NewState      string     `json:"new_state"`
	ActorID       string     `json:"actor_id"`
	ActorRole     Role       `json:"actor_role"`
	Timestamp     time.Time  `json:"timestamp"`
}

// Machine validates transitions against the static tables and emits audit
// evidence for every attempt, accepted or not. It holds no entity state:
// callers read-and-lock the entity row, pass its current state in, and
// persist the new state after a successful call.
type Machine struct {
	logger   *zap.Logger
	recorder audit.Recorder
}

// NewMachine creates a transition machine emitting evidence through recorder.
func NewMachine(logger *zap.Logger, recorder audit.Recorder) *Machine {
	return &Machine{logger: logger, recorder: recorder}
}

// Transition validates moving entityID from one state to another and
// returns the TransitionRecord on success. Rejections are recorded at
// critical severity before the error is returned, so an attacker or bug
// probing illegal transitions always leaves a trace.
func (m *Machine) Transition(ctx context.Context, entityID string, entityType EntityType, from, to string, actorID string, actorRole Role, now time.Time) (*TransitionRecord, error) {
	targets, ok := allowedTargets(entityType, from)
	if !ok || !contains(targets, to) {
		return nil, m.reject(ctx, entityID, entityType, from, to, actorID, actorRole, now, RejectionNoSuchTransition)
	}

	if !roleAllowed(entityType, from, to, actorRole) {
		return nil, m.reject(ctx, entityID, entityType, from, to, actorID, actorRole, now, RejectionUnauthorized)
	}

	record := &TransitionRecord{
		EntityID:      entityID,
		EntityType:    entityType,
		PreviousState: from,
		NewState:      to,
		ActorID:       actorID,
		ActorRole:     actorRole,
		Timestamp:     now,
	}

	severity := audit.SeverityInfo
	if entityType == EntitySettlement && to == string(SettlementAmbiguousState) {
		// Ambiguous rail state needs a human; routine logging would bury it.
		severity = audit.SeverityPage
	}

	m.recorder.Record(ctx, &audit.Event{
		EventType:   "lifecycle.transition",
		Severity:    severity,
		ActorID:     actorID,
		ActorRole:   string(actorRole),
		EntityID:    entityID,
		EntityType:  string(entityType),
		Action:      fmt.Sprintf("%s->%s", from, to),
		Outcome:     audit.OutcomeAccepted,
		Description: fmt.Sprintf("%s %s transitioned %s -> %s", entityType, entityID, from, to),
		Timestamp:   now,
	})

	if severity == audit.SeverityPage {
		m.logger.Error("settlement entered ambiguous rail state",
			zap.String("entity_id", entityID),
			zap.String("previous_state", from),
			zap.String("actor_id", actorID))
	} else {
		m.logger.Info("lifecycle transition accepted",
			zap.String("entity_type", string(entityType)),
			zap.String("entity_id", entityID),
			zap.String("previous_state", from),
			zap.String("new_state", to),
			zap.String("actor_id", actorID),
			zap.String("actor_role", string(actorRole)))
	}

	metrics.TransitionsTotal.WithLabelValues(string(entityType), "accepted").Inc()
	return record, nil
}

func (m *Machine) reject(ctx context.Context, entityID string, entityType EntityType, from, to, actorID string, actorRole Role, now time.Time, kind RejectionKind) error {
	err := &IllegalStateTransitionError{
		EntityID:       entityID,
		EntityType:     entityType,
		PreviousState:  from,
		AttemptedState: to,
		ActorID:        actorID,
		ActorRole:      actorRole,
		Timestamp:      now,
		Kind:           kind,
	}

	// Audit before returning: rejected attempts are never audit-invisible.
	m.recorder.Record(ctx, &audit.Event{
		EventType:   "lifecycle.transition_rejected",
		Severity:    audit.SeverityCritical,
		ActorID:     actorID,
		ActorRole:   string(actorRole),
		EntityID:    entityID,
		EntityType:  string(entityType),
		Action:      fmt.Sprintf("%s->%s", from, to),
		Outcome:     audit.OutcomeRejected,
		Description: err.Error(),
		Details:     string(kind),
		Timestamp:   now,
	})

	m.logger.Error("lifecycle transition rejected",
		zap.String("entity_type", string(entityType)),
		zap.String("entity_id", entityID),
		zap.String("previous_state", from),
		zap.String("attempted_state", to),
		zap.String("actor_id", actorID),
		zap.String("actor_role", string(actorRole)),
		zap.String("kind", string(kind)))

	outcome := "rejected"
	if kind == RejectionUnauthorized {
		outcome = "unauthorized"
	}
	metrics.TransitionsTotal.WithLabelValues(string(entityType), outcome).Inc()

	return err
}

func contains(states []string, state string) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}
