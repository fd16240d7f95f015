// Package authz resolves a caller's maximum permitted financial capability
// from the live compliance-case store. Capabilities that can move money or
// lock a price fail closed: when the store cannot answer, the request
// fails, it is never implicitly allowed.
package authz

// Capability is one rung of the cumulative capability ladder.
type Capability string

const (
	CapBrowse          Capability = "BROWSE"
	CapQuote           Capability = "QUOTE"
	CapLockPrice       Capability = "LOCK_PRICE"
	CapExecutePurchase Capability = "EXECUTE_PURCHASE"
	CapSettle          Capability = "SETTLE"
)

// capabilityLevels orders the ladder. Holding a capability implies every
// capability below it.
var capabilityLevels = map[Capability]int{
	CapBrowse:          0,
	CapQuote:           1,
	CapLockPrice:       2,
	CapExecutePurchase: 3,
	CapSettle:          4,
}

// Level returns the ladder position, or -1 for an unknown capability.
func (c Capability) Level() int {
	level, ok := capabilityLevels[c]
	if !ok {
		return -1
	}
	return level
}

// Grants reports whether holding c satisfies a request for want.
func (c Capability) Grants(want Capability) bool {
	return c.Level() >= want.Level() && want.Level() >= 0
}

// IsProtected reports whether the capability gates a financially sensitive
// action. Protected capabilities are never resolved from session state.
func (c Capability) IsProtected() bool {
	return c.Level() >= capabilityLevels[CapLockPrice]
}

// CaseStatus values for a compliance case.
const (
	CaseStatusPending     = "PENDING"
	CaseStatusUnderReview = "UNDER_REVIEW"
	CaseStatusApproved    = "APPROVED"
	CaseStatusRejected    = "REJECTED"
)

// Compliance-case tier values.
const (
	TierBrowse  = "BROWSE"
	TierQuote   = "QUOTE"
	TierLock    = "LOCK"
	TierExecute = "EXECUTE"
)

// TierCapability maps a compliance-case tier to the highest capability it
// grants. The EXECUTE tier carries full execution rights including the
// settlement instruction.
func TierCapability(tier string) Capability {
	switch tier {
	case TierBrowse:
		return CapBrowse
	case TierQuote:
		return CapQuote
	case TierLock:
		return CapLockPrice
	case TierExecute:
		return CapSettle
	}
	return CapBrowse
}
