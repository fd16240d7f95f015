package lifecycle

// transitionKey identifies one edge in a transition table.
type transitionKey struct {
	entityType EntityType
	from       string
	to         string
}

// tradeTransitions maps each trade status to its allowed targets. Terminal
// states (SETTLED, REJECTED_COMPLIANCE, CANCELLED, FAILED) map to an empty
// set: nothing leaves a terminal state, not even a self-transition.
var tradeTransitions = map[TradeStatus][]TradeStatus{
	TradePendingAllocation:   {TradePendingVerification, TradeCancelled},
	TradePendingVerification: {TradeLockedUnsettled, TradeRejectedCompliance, TradeCancelled},
	TradeLockedUnsettled:     {TradeSettlementPending, TradeCancelled, TradeFailed},
	TradeSettlementPending:   {TradeSettled, TradeFailed},
	TradeSettled:             {},
	TradeRejectedCompliance:  {},
	TradeCancelled:           {},
	TradeFailed:              {},
}

// settlementTransitions maps each settlement status to its allowed targets.
// AMBIGUOUS_STATE is reachable only from RAIL_SUBMITTED and must be resolved
// by an operator to CLEARED, FAILED_RETRY or CANCELLED.
var settlementTransitions = map[SettlementStatus][]SettlementStatus{
	SettlementPendingRail:    {SettlementRailSubmitted, SettlementCancelled},
	SettlementRailSubmitted:  {SettlementCleared, SettlementFailedRetry, SettlementAmbiguousState},
	SettlementFailedRetry:    {SettlementRailSubmitted, SettlementCancelled},
	SettlementAmbiguousState: {SettlementCleared, SettlementFailedRetry, SettlementCancelled},
	SettlementCleared:        {},
	SettlementCancelled:      {},
}

// rolePermissions maps each legal transition edge to the roles allowed to
// drive it. Rail-driven edges belong to the system actor; compliance owns
// verification outcomes; operations resolve ambiguity and cancel; treasury
// confirms final settlement of the trade leg.
var rolePermissions = map[transitionKey][]Role{
	// Trade edges.
	{EntityTrade, "PENDING_ALLOCATION", "PENDING_VERIFICATION"}:  {RoleSystem, RoleOperations},
	{EntityTrade, "PENDING_ALLOCATION", "CANCELLED"}:             {RoleOperations},
	{EntityTrade, "PENDING_VERIFICATION", "LOCKED_UNSETTLED"}:    {RoleCompliance, RoleSystem},
	{EntityTrade, "PENDING_VERIFICATION", "REJECTED_COMPLIANCE"}: {RoleCompliance},
	{EntityTrade, "PENDING_VERIFICATION", "CANCELLED"}:           {RoleOperations, RoleCompliance},
	{EntityTrade, "LOCKED_UNSETTLED", "SETTLEMENT_PENDING"}:      {RoleSystem, RoleTreasury},
	{EntityTrade, "LOCKED_UNSETTLED", "CANCELLED"}:               {RoleOperations},
	{EntityTrade, "LOCKED_UNSETTLED", "FAILED"}:                  {RoleSystem, RoleOperations},
	{EntityTrade, "SETTLEMENT_PENDING", "SETTLED"}:               {RoleSystem, RoleTreasury},
	{EntityTrade, "SETTLEMENT_PENDING", "FAILED"}:                {RoleSystem, RoleOperations},

	// Settlement edges.
	{EntitySettlement, "PENDING_RAIL", "RAIL_SUBMITTED"}:    {RoleSystem, RoleTreasury},
	{EntitySettlement, "PENDING_RAIL", "CANCELLED"}:         {RoleOperations, RoleTreasury},
	{EntitySettlement, "RAIL_SUBMITTED", "CLEARED"}:         {RoleSystem},
	{EntitySettlement, "RAIL_SUBMITTED", "FAILED_RETRY"}:    {RoleSystem, RoleOperations},
	{EntitySettlement, "RAIL_SUBMITTED", "AMBIGUOUS_STATE"}: {RoleSystem},
	{EntitySettlement, "FAILED_RETRY", "RAIL_SUBMITTED"}:    {RoleSystem, RoleTreasury},
	{EntitySettlement, "FAILED_RETRY", "CANCELLED"}:         {RoleOperations, RoleTreasury},
	{EntitySettlement, "AMBIGUOUS_STATE", "CLEARED"}:        {RoleOperations},
	{EntitySettlement, "AMBIGUOUS_STATE", "FAILED_RETRY"}:   {RoleOperations},
	{EntitySettlement, "AMBIGUOUS_STATE", "CANCELLED"}:      {RoleOperations},
}

// allowedTargets returns the transition table row for (entityType, from).
// Unknown states return (nil, false).
func allowedTargets(entityType EntityType, from string) ([]string, bool) {
	switch entityType {
	case EntityTrade:
		targets, ok := tradeTransitions[TradeStatus(from)]
		if !ok {
			return nil, false
		}
		out := make([]string, len(targets))
		for i, t := range targets {
			out[i] = string(t)
		}
		return out, true
	case EntitySettlement:
		targets, ok := settlementTransitions[SettlementStatus(from)]
		if !ok {
			return nil, false
		}
		out := make([]string, len(targets))
		for i, t := range targets {
			out[i] = string(t)
		}
		return out, true
	}
	return nil, false
}

// roleAllowed reports whether role may drive the (from, to) edge.
func roleAllowed(entityType EntityType, from, to string, role Role) bool {
	roles, ok := rolePermissions[transitionKey{entityType, from, to}]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanTransition reports whether the (from, to) edge exists in the
// transition table, ignoring role permissions. Adapters use it to decide
// whether a provider event is worth attempting.
func CanTransition(entityType EntityType, from, to string) bool {
	targets, ok := allowedTargets(entityType, from)
	if !ok {
		return false
	}
	for _, t := range targets {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether state is terminal for the entity type.
func IsTerminal(entityType EntityType, state string) bool {
	targets, ok := allowedTargets(entityType, state)
	return ok && len(targets) == 0
}
