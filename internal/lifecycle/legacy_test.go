package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromLegacyCoversEveryLegacyValue(t *testing.T) {
	cases := map[LegacyStatus]TradeStatus{
		LegacyCreated:        TradePendingAllocation,
		LegacyKYCReview:      TradePendingVerification,
		LegacyManualReview:   TradePendingVerification,
		LegacyApproved:       TradeLockedUnsettled,
		LegacyPaymentPending: TradeSettlementPending,
		LegacyComplete:       TradeSettled,
		LegacyRejected:       TradeRejectedCompliance,
		LegacyCancelled:      TradeCancelled,
		LegacyError:          TradeFailed,
	}

	for legacy, want := range cases {
		got, err := FromLegacyTradeStatus(legacy)
		require.NoError(t, err)
		assert.Equal(t, want, got, "legacy %s", legacy)
	}
}

func TestToLegacyCoversEveryCanonicalValue(t *testing.T) {
	for _, status := range TradeStatuses() {
		legacy, err := ToLegacyTradeStatus(status)
		require.NoError(t, err)

		// The reverse mapping must land back on the same canonical status.
		back, err := FromLegacyTradeStatus(legacy)
		require.NoError(t, err)
		assert.Equal(t, status, back)
	}
}

func TestLegacyCollapseUsesRepresentativeValue(t *testing.T) {
	// KYC_REVIEW and MANUAL_REVIEW collapse forward onto
	// PENDING_VERIFICATION; the reverse mapping picks KYC_REVIEW.
	a, err := FromLegacyTradeStatus(LegacyKYCReview)
	require.NoError(t, err)
	b, err := FromLegacyTradeStatus(LegacyManualReview)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	legacy, err := ToLegacyTradeStatus(TradePendingVerification)
	require.NoError(t, err)
	assert.Equal(t, LegacyKYCReview, legacy)
}

func TestUnknownLegacyStatusIsAnError(t *testing.T) {
	_, err := FromLegacyTradeStatus("SHIPPED")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLegacyStatus))
	assert.Contains(t, err.Error(), "SHIPPED")

	_, err = ToLegacyTradeStatus("NOT_A_STATUS")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLegacyStatus))
}
