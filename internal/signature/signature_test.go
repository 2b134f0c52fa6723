package signature

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerify(t *testing.T) {
	payload := `{"transaction":"abc123","status":"COMPLETED"}`
	secret := "shop-secret-key"

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(payload))
	expected := strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))

	assert.True(t, Verify(payload, secret, expected))
	assert.True(t, Verify(payload, secret, strings.ToLower(expected)), "case of received MAC must not matter")

	assert.False(t, Verify(payload, secret, "DEADBEEF"))
	assert.False(t, Verify(payload, "wrong-secret", expected))
	assert.False(t, Verify(payload+"x", secret, expected))
}

func TestVerifyMalformedInput(t *testing.T) {
	assert.False(t, Verify("", "secret", "ABC"))
	assert.False(t, Verify("payload", "", "ABC"))
	assert.False(t, Verify("payload", "secret", ""))
}

func TestComputeMatchesSelf(t *testing.T) {
	got := Compute("payload", "secret")
	assert.Equal(t, got, strings.ToUpper(got), "computed MAC is uppercase hex")
	assert.True(t, Verify("payload", "secret", got))
}
