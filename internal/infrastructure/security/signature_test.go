package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"name":"order.paid","payload":{"orderId":"ord_1"}}`)
	secret := "whsec_test_secret"

	signature := SignPayload(payload, secret)
	require.True(t, len(signature) > len(SignaturePrefix))

	assert.True(t, VerifySignature(payload, signature, secret))
	assert.True(t, VerifySignature(payload, signature[len(SignaturePrefix):], secret), "prefix is optional")
}

func TestVerifySignatureRejectsMutations(t *testing.T) {
	payload := []byte(`{"amount":220.00}`)
	secret := "whsec_test_secret"
	signature := SignPayload(payload, secret)

	// Flipping a single payload byte must invalidate the signature.
	mutated := make([]byte, len(payload))
	copy(mutated, payload)
	mutated[3] ^= 0x01
	assert.False(t, VerifySignature(mutated, signature, secret))

	// So must a single hex character change in the signature itself.
	bad := []byte(signature)
	last := bad[len(bad)-1]
	if last == '0' {
		bad[len(bad)-1] = '1'
	} else {
		bad[len(bad)-1] = '0'
	}
	assert.False(t, VerifySignature(payload, string(bad), secret))

	assert.False(t, VerifySignature(payload, signature, "wrong_secret"))
	assert.False(t, VerifySignature(payload, "", secret))
	assert.False(t, VerifySignature(payload, signature, ""), "empty secret never verifies")
}
