package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHMACSignatureService_SignAndVerify(t *testing.T) {
	svc := NewHMACSignatureService()
	secret := "callback-secret"
	payload := svc.BuildCanonicalString("/api/v1/callbacks/payments", 1760500000, `{"ResultCode":0}`)

	signature := svc.Sign(secret, payload)

	assert.Regexp(t, `^[0-9a-f]{64}$`, signature)
	assert.True(t, svc.Verify(secret, payload, signature))
}

func TestHMACSignatureService_VerifyRejects(t *testing.T) {
	svc := NewHMACSignatureService()
	signature := svc.Sign("right", "payload")

	assert.False(t, svc.Verify("wrong", "payload", signature), "wrong key")
	assert.False(t, svc.Verify("right", "tampered", signature), "tampered payload")
	assert.False(t, svc.Verify("right", "payload", "deadbeef"), "garbage signature")
}

func TestHMACSignatureService_BuildCanonicalString(t *testing.T) {
	svc := NewHMACSignatureService()

	assert.Equal(t, "/api/v1/callbacks/payouts/result|1760500000|{}",
		svc.BuildCanonicalString("/api/v1/callbacks/payouts/result", 1760500000, "{}"))
	assert.Equal(t, "/x|0|", svc.BuildCanonicalString("/x", 0, ""))
}
