package webhook

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// IdempotencyKey derives a deterministic key from stable inputs, so every
// retry of the same external event resolves to the same ledger journal.
func IdempotencyKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// PayoutKey keys a payout journal on the tuple that identifies the
// economic event, independent of delivery attempts.
func PayoutKey(settlementID, payeeID string, amountCents int64, actionType string) string {
	return IdempotencyKey(settlementID, payeeID, fmt.Sprintf("%d", amountCents), actionType)
}

// ProviderEventKey keys a journal on the provider's own correlation id.
func ProviderEventKey(provider, externalRef string) string {
	return IdempotencyKey(provider, externalRef)
}
