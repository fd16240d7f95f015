package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meridianclear/clearcore/internal/audit"
)

// memRecorder captures audit events in memory for assertions.
type memRecorder struct {
	events []*audit.Event
}

func (r *memRecorder) Record(_ context.Context, event *audit.Event) {
	r.events = append(r.events, event)
}

func newTestMachine() (*Machine, *memRecorder) {
	rec := &memRecorder{}
	return NewMachine(zap.NewNop(), rec), rec
}

func TestTransitionAcceptsEveryPermittedEdge(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	for key, roles := range rolePermissions {
		for _, role := range roles {
			m, rec := newTestMachine()
			record, err := m.Transition(context.Background(), "entity-1", key.entityType, key.from, key.to, "actor-1", role, now)
			require.NoError(t, err, "%s %s -> %s as %s", key.entityType, key.from, key.to, role)
			assert.Equal(t, key.from, record.PreviousState)
			assert.Equal(t, key.to, record.NewState)
			assert.Equal(t, "actor-1", record.ActorID)
			assert.Equal(t, role, record.ActorRole)
			assert.Equal(t, now, record.Timestamp)

			require.Len(t, rec.events, 1)
			assert.Equal(t, audit.OutcomeAccepted, rec.events[0].Outcome)
		}
	}
}

func TestTransitionRejectsEveryAbsentTradePair(t *testing.T) {
	for _, from := range TradeStatuses() {
		for _, to := range TradeStatuses() {
			if CanTransition(EntityTrade, string(from), string(to)) {
				continue
			}
			m, rec := newTestMachine()
			_, err := m.Transition(context.Background(), "trade-1", EntityTrade, string(from), string(to), "actor-1", RoleSystem, time.Now())
			require.Error(t, err, "%s -> %s must be rejected", from, to)

			ite, ok := AsIllegalTransition(err)
			require.True(t, ok)
			assert.Equal(t, string(from), ite.PreviousState)
			assert.Equal(t, string(to), ite.AttemptedState)
			assert.Equal(t, RejectionNoSuchTransition, ite.Kind)

			// Rejection was audited before the error surfaced.
			require.Len(t, rec.events, 1)
			assert.Equal(t, audit.OutcomeRejected, rec.events[0].Outcome)
			assert.Equal(t, audit.SeverityCritical, rec.events[0].Severity)
		}
	}
}

func TestTransitionRejectsEveryAbsentSettlementPair(t *testing.T) {
	for _, from := range SettlementStatuses() {
		for _, to := range SettlementStatuses() {
			if CanTransition(EntitySettlement, string(from), string(to)) {
				continue
			}
			m, _ := newTestMachine()
			_, err := m.Transition(context.Background(), "stl-1", EntitySettlement, string(from), string(to), "actor-1", RoleSystem, time.Now())
			require.Error(t, err, "%s -> %s must be rejected", from, to)
		}
	}
}

func TestTerminalStatesHaveNoExit(t *testing.T) {
	terminalTrades := []TradeStatus{TradeSettled, TradeRejectedCompliance, TradeCancelled, TradeFailed}
	for _, terminal := range terminalTrades {
		assert.True(t, IsTerminal(EntityTrade, string(terminal)))
		for _, to := range TradeStatuses() {
			m, _ := newTestMachine()
			_, err := m.Transition(context.Background(), "trade-1", EntityTrade, string(terminal), string(to), "actor-1", RoleOperations, time.Now())
			require.Error(t, err, "terminal %s must reject transition to %s", terminal, to)
		}
	}

	terminalSettlements := []SettlementStatus{SettlementCleared, SettlementCancelled}
	for _, terminal := range terminalSettlements {
		assert.True(t, IsTerminal(EntitySettlement, string(terminal)))
		for _, to := range SettlementStatuses() {
			m, _ := newTestMachine()
			_, err := m.Transition(context.Background(), "stl-1", EntitySettlement, string(terminal), string(to), "actor-1", RoleOperations, time.Now())
			require.Error(t, err, "terminal %s must reject transition to %s", terminal, to)
		}
	}
}

func TestSkipTransitionCarriesForensicContext(t *testing.T) {
	m, _ := newTestMachine()
	now := time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC)

	_, err := m.Transition(context.Background(), "trade-42", EntityTrade,
		string(TradePendingAllocation), string(TradeSettled), "actor-9", RoleSystem, now)
	require.Error(t, err)

	ite, ok := AsIllegalTransition(err)
	require.True(t, ok)
	assert.Equal(t, "PENDING_ALLOCATION", ite.PreviousState)
	assert.Equal(t, "SETTLED", ite.AttemptedState)
	assert.Equal(t, "trade-42", ite.EntityID)
	assert.Equal(t, EntityTrade, ite.EntityType)
	assert.Equal(t, "actor-9", ite.ActorID)
	assert.Equal(t, RoleSystem, ite.ActorRole)
	assert.Equal(t, now, ite.Timestamp)
}

func TestUnauthorizedRoleIsDistinguishableFromMissingEdge(t *testing.T) {
	m, rec := newTestMachine()

	// PENDING_VERIFICATION -> REJECTED_COMPLIANCE is a legal edge, but only
	// compliance may drive it.
	_, err := m.Transition(context.Background(), "trade-1", EntityTrade,
		string(TradePendingVerification), string(TradeRejectedCompliance), "actor-1", RoleTreasury, time.Now())
	require.Error(t, err)

	ite, ok := AsIllegalTransition(err)
	require.True(t, ok)
	assert.Equal(t, RejectionUnauthorized, ite.Kind)
	assert.Contains(t, err.Error(), "not authorized")
	assert.NotContains(t, err.Error(), "illegal")

	require.Len(t, rec.events, 1)
	assert.Equal(t, audit.SeverityCritical, rec.events[0].Severity)
}

func TestAmbiguousStateEmitsElevatedSeverity(t *testing.T) {
	m, rec := newTestMachine()

	record, err := m.Transition(context.Background(), "stl-7", EntitySettlement,
		string(SettlementRailSubmitted), string(SettlementAmbiguousState), "actor-1", RoleSystem, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "AMBIGUOUS_STATE", record.NewState)

	require.Len(t, rec.events, 1)
	assert.Equal(t, audit.SeverityPage, rec.events[0].Severity)
	assert.Equal(t, audit.OutcomeAccepted, rec.events[0].Outcome)
}

func TestRoutineTransitionEmitsInfoSeverity(t *testing.T) {
	m, rec := newTestMachine()

	_, err := m.Transition(context.Background(), "stl-7", EntitySettlement,
		string(SettlementRailSubmitted), string(SettlementCleared), "actor-1", RoleSystem, time.Now())
	require.NoError(t, err)

	require.Len(t, rec.events, 1)
	assert.Equal(t, audit.SeverityInfo, rec.events[0].Severity)
}
