// Package lifecycle validates state transitions for trade and settlement
// entities. The transition tables are static; every successful transition
// produces an immutable TransitionRecord and every rejected attempt leaves
// a critical audit record before the error is returned.
package lifecycle

// EntityType selects which transition table applies.
type EntityType string

const (
	EntityTrade      EntityType = "trade"
	EntitySettlement EntityType = "settlement"
)

// TradeStatus is the canonical trade lifecycle vocabulary.
type TradeStatus string

const (
	TradePendingAllocation   TradeStatus = "PENDING_ALLOCATION"
	TradePendingVerification TradeStatus = "PENDING_VERIFICATION"
	TradeLockedUnsettled     TradeStatus = "LOCKED_UNSETTLED"
	TradeSettlementPending   TradeStatus = "SETTLEMENT_PENDING"
	TradeSettled             TradeStatus = "SETTLED"
	TradeRejectedCompliance  TradeStatus = "REJECTED_COMPLIANCE"
	TradeCancelled           TradeStatus = "CANCELLED"
	TradeFailed              TradeStatus = "FAILED"
)

// SettlementStatus is the canonical settlement lifecycle vocabulary.
type SettlementStatus string

const (
	SettlementPendingRail    SettlementStatus = "PENDING_RAIL"
	SettlementRailSubmitted  SettlementStatus = "RAIL_SUBMITTED"
	SettlementCleared        SettlementStatus = "CLEARED"
	SettlementFailedRetry    SettlementStatus = "FAILED_RETRY"
	SettlementAmbiguousState SettlementStatus = "AMBIGUOUS_STATE"
	SettlementCancelled      SettlementStatus = "CANCELLED"
)

// Role identifies the class of actor attempting a transition.
type Role string

const (
	RoleSystem     Role = "system"
	RoleOperations Role = "operations"
	RoleCompliance Role = "compliance"
	RoleTreasury   Role = "treasury"
)

// TradeStatuses lists every canonical trade status.
func TradeStatuses() []TradeStatus {
	return []TradeStatus{
		TradePendingAllocation,
		TradePendingVerification,
		TradeLockedUnsettled,
		TradeSettlementPending,
		TradeSettled,
		TradeRejectedCompliance,
		TradeCancelled,
		TradeFailed,
	}
}

// SettlementStatuses lists every canonical settlement status.
func SettlementStatuses() []SettlementStatus {
	return []SettlementStatus{
		SettlementPendingRail,
		SettlementRailSubmitted,
		SettlementCleared,
		SettlementFailedRetry,
		SettlementAmbiguousState,
		SettlementCancelled,
	}
}
