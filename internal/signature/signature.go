// Package signature verifies payment-provider webhook MACs
// (HMAC-SHA512 over the raw payload, uppercase hex).
package signature

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// Compute returns the uppercase hex HMAC-SHA512 of payload keyed with
// secret, the format Maksekeskus sends in the webhook "mac" field.
func Compute(payload, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(payload))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// Verify reports whether received matches the MAC computed over
// payload. Malformed input degrades to false; the webhook receiver
// must acknowledge the provider regardless of validation outcome, so
// this never returns an error.
func Verify(payload, secret, received string) bool {
	if payload == "" || secret == "" || received == "" {
		return false
	}
	return Compute(payload, secret) == strings.ToUpper(received)
}
