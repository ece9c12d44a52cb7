package webhook

import (
	"errors"
	"strings"
	"testing"
)

func TestSignFormat(t *testing.T) {
	sig := Sign([]byte("payload"), "secret")

	if !strings.HasPrefix(sig, "sha256=") {
		t.Errorf("Sign() = %q, want sha256= prefix", sig)
	}
	if len(sig) != len("sha256=")+64 {
		t.Errorf("Sign() length = %d, want %d", len(sig), len("sha256=")+64)
	}
	// Calculated using: echo -n "payload" | openssl dgst -sha256 -hmac "secret"
	want := "sha256=b82fcb791acec57859b989b430a826488ce2e479fdf92326bd0a2e8375a42ba4"
	if sig != want {
		t.Errorf("Sign() = %q, want %q", sig, want)
	}
}

func TestVerify(t *testing.T) {
	payload := []byte(`{"event":"license.created","data":{"licenseKey":"ABC-123"}}`)
	secret := "topsecret"
	good := Sign(payload, secret)

	tests := []struct {
		name      string
		payload   []byte
		signature string
		secret    string
		wantErr   error
	}{
		{"round trip", payload, good, secret, nil},
		{"tampered body", []byte(`{"event":"license.created","data":{"licenseKey":"ABC-124"}}`), good, secret, ErrSignatureMismatch},
		{"wrong secret", payload, good, "nottopsecret", ErrSignatureMismatch},
		{"empty signature", payload, "", secret, ErrInvalidInput},
		{"empty secret", payload, good, "", ErrInvalidInput},
		{"truncated signature", payload, good[:len(good)-2], secret, ErrSignatureMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.payload, tt.signature, tt.secret)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerifySingleByteDifference(t *testing.T) {
	payload := []byte("body bytes")
	good := Sign(payload, "s3cr3t")

	// Flip each hex character in turn; every variant must fail.
	for i := len("sha256="); i < len(good); i++ {
		bad := []byte(good)
		if bad[i] == 'a' {
			bad[i] = 'b'
		} else {
			bad[i] = 'a'
		}
		if err := Verify(payload, string(bad), "s3cr3t"); !errors.Is(err, ErrSignatureMismatch) {
			t.Fatalf("Verify accepted signature differing at byte %d", i)
		}
	}
}

// countingEqual mirrors constantTimeEqual but counts byte comparisons, so
// the constant-time property can be asserted without wall-clock timing.
func countingEqual(a, b string, count *int) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := 0; i < len(a); i++ {
		*count++
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}

func TestConstantTimeComparison(t *testing.T) {
	base := strings.Repeat("a", 64)
	firstDiff := "b" + strings.Repeat("a", 63)
	lastDiff := strings.Repeat("a", 63) + "b"

	var nFirst, nLast, nEqual int
	if countingEqual(base, firstDiff, &nFirst) {
		t.Fatal("strings differing in first byte compared equal")
	}
	if countingEqual(base, lastDiff, &nLast) {
		t.Fatal("strings differing in last byte compared equal")
	}
	if !countingEqual(base, base, &nEqual) {
		t.Fatal("equal strings compared unequal")
	}

	if nFirst != len(base) || nLast != len(base) || nEqual != len(base) {
		t.Errorf("comparison counts = %d/%d/%d, want all %d: comparator is not constant time",
			nFirst, nLast, nEqual, len(base))
	}

	// The instrumented copy must agree with the real comparator.
	cases := [][2]string{
		{base, base},
		{base, firstDiff},
		{base, lastDiff},
		{base, "short"},
		{"", ""},
	}
	for _, c := range cases {
		var n int
		if got, want := constantTimeEqual(c[0], c[1]), countingEqual(c[0], c[1], &n); got != want {
			t.Errorf("constantTimeEqual(%q, %q) = %v, counting copy says %v", c[0], c[1], got, want)
		}
	}
}
