// Package webhook hosts the inbound callback adapters for payment rails
// and the identity provider. An adapter authenticates the delivery,
// resolves it onto a lifecycle transition, posts the ledger journal on
// success, and notifies other processes over the bus.
//
// Business-rule rejections are acknowledged so the provider stops
// retrying; only infrastructure failures return retry-inducing statuses.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureVerifier authenticates a raw delivery against the provider's
// signature scheme. Implementations are provider-specific and opaque to
// this core.
type SignatureVerifier interface {
	Verify(rawBody []byte, signature, secret string) bool
}

// HMACVerifier verifies hex-encoded HMAC-SHA256 signatures, the scheme
// most rails default to.
type HMACVerifier struct{}

// Verify recomputes the HMAC over rawBody and compares in constant time.
func (HMACVerifier) Verify(rawBody []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
