package payment

import "testing"

func TestVerifySignature(t *testing.T) {
	secret := "test-secret"
	sig := Sign(secret, "intent_abc", "pay_xyz")

	if !VerifySignature(secret, "intent_abc", "pay_xyz", sig) {
		t.Fatalf("expected valid signature to verify")
	}
	if VerifySignature(secret, "intent_abc", "pay_xyz", sig+"00") {
		t.Fatalf("tampered signature must not verify")
	}
	if VerifySignature(secret, "intent_other", "pay_xyz", sig) {
		t.Fatalf("signature bound to a different intent must not verify")
	}
	if VerifySignature("wrong-secret", "intent_abc", "pay_xyz", sig) {
		t.Fatalf("signature under a different secret must not verify")
	}
}
