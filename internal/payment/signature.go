package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the confirmation signature for an (intent, payment) pair.
// The shared secret is known only to the engine and the gateway; the
// signature is always recomputed locally, never delegated.
func Sign(secret, intentID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(intentID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares a client-supplied signature in constant time.
// A mismatch is a security boundary, not a retryable condition.
func VerifySignature(secret, intentID, paymentID, signature string) bool {
	expected := Sign(secret, intentID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
