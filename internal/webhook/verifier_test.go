package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func hmacHex(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestHMACVerifier(t *testing.T) {
	body := []byte(`{"event_type":"payment.cleared"}`)

	v := HMACVerifier{}
	assert.True(t, v.Verify(body, hmacHex(body, "secret"), "secret"))
	assert.False(t, v.Verify(body, hmacHex(body, "other"), "secret"))
	assert.False(t, v.Verify(body, "deadbeef", "secret"))
	assert.False(t, v.Verify(body, "", "secret"))
}
