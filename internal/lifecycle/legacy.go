package lifecycle

import "fmt"

// LegacyStatus is the historical linear trade vocabulary still spoken by
// older upstream systems and export feeds.
type LegacyStatus string

const (
	LegacyCreated        LegacyStatus = "CREATED"
	LegacyKYCReview      LegacyStatus = "KYC_REVIEW"
	LegacyManualReview   LegacyStatus = "MANUAL_REVIEW"
	LegacyApproved       LegacyStatus = "APPROVED"
	LegacyPaymentPending LegacyStatus = "PAYMENT_PENDING"
	LegacyComplete       LegacyStatus = "COMPLETE"
	LegacyRejected       LegacyStatus = "REJECTED"
	LegacyCancelled      LegacyStatus = "CANCELLED"
	LegacyError          LegacyStatus = "ERROR"
)

// FromLegacyTradeStatus maps a legacy value onto the canonical vocabulary.
// The mapping is total over the closed legacy set and intentionally lossy:
// KYC_REVIEW and MANUAL_REVIEW both collapse onto PENDING_VERIFICATION.
// Unknown values are an error, never a silent default.
func FromLegacyTradeStatus(legacy LegacyStatus) (TradeStatus, error) {
	switch legacy {
	case LegacyCreated:
		return TradePendingAllocation, nil
	case LegacyKYCReview:
		return TradePendingVerification, nil
	case LegacyManualReview:
		return TradePendingVerification, nil
	case LegacyApproved:
		return TradeLockedUnsettled, nil
	case LegacyPaymentPending:
		return TradeSettlementPending, nil
	case LegacyComplete:
		return TradeSettled, nil
	case LegacyRejected:
		return TradeRejectedCompliance, nil
	case LegacyCancelled:
		return TradeCancelled, nil
	case LegacyError:
		return TradeFailed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLegacyStatus, legacy)
}

// ToLegacyTradeStatus maps a canonical status back to one representative
// legacy value. PENDING_VERIFICATION maps to KYC_REVIEW, the representative
// of the collapsed pair.
func ToLegacyTradeStatus(status TradeStatus) (LegacyStatus, error) {
	switch status {
	case TradePendingAllocation:
		return LegacyCreated, nil
	case TradePendingVerification:
		return LegacyKYCReview, nil
	case TradeLockedUnsettled:
		return LegacyApproved, nil
	case TradeSettlementPending:
		return LegacyPaymentPending, nil
	case TradeSettled:
		return LegacyComplete, nil
	case TradeRejectedCompliance:
		return LegacyRejected, nil
	case TradeCancelled:
		return LegacyCancelled, nil
	case TradeFailed:
		return LegacyError, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLegacyStatus, status)
}
