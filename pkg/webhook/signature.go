// Package webhook implements the signature scheme and event processing for
// deliveries from the Keygate license server.
//
// Deliveries carry an HMAC-SHA256 signature of the raw request body in the
// X-Keygate-Signature header, formatted "sha256=<64 lowercase hex>". The
// body bytes must reach Verify exactly as received: re-serializing the JSON
// changes them and breaks verification even when the result is semantically
// identical.
package webhook

import (
	"fmt"

	"keygate/pkg/digest"
)

// SignaturePrefix tags the scheme in the signature header value.
const SignaturePrefix = "sha256="

// Sign returns the signature header value for payload under secret.
func Sign(payload []byte, secret string) string {
	return SignaturePrefix + digest.HmacSHA256Hex(payload, []byte(secret))
}

// Verify recomputes the expected signature for payload and compares it to
// the supplied one in constant time. It returns nil on a match,
// ErrSignatureMismatch on a mismatch, and ErrInvalidInput when the secret
// or signature is missing.
func Verify(payload []byte, signature, secret string) error {
	if secret == "" {
		return fmt.Errorf("%w: empty secret", ErrInvalidInput)
	}
	if signature == "" {
		return fmt.Errorf("%w: empty signature", ErrInvalidInput)
	}

	if !constantTimeEqual(Sign(payload, secret), signature) {
		return ErrSignatureMismatch
	}
	return nil
}

// constantTimeEqual reports whether a and b are equal without leaking the
// position of the first difference: every byte pair is folded into the
// accumulator even after a mismatch. The early return on length mismatch is
// fine, the expected signature length is public.
func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := 0; i < len(a); i++ {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
