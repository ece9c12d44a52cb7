package digest

import "encoding/hex"

const (
	ipadByte = 0x36
	opadByte = 0x5c
)

// HmacSHA256 computes the RFC 2104 HMAC of msg under key, using SHA-256 as
// the inner digest, and returns the raw 32 bytes.
//
// A key longer than the 64-byte block size is first hashed down to 32
// bytes; shorter keys are zero-padded up to the block size. The two-layer
// construction (outer hash over inner hash) is what defeats length
// extension; do not replace it with sha256(key || msg).
func HmacSHA256(msg, key []byte) []byte {
	if len(key) > blockSize {
		key = SHA256.Sum(key)
	}

	var ipad, opad [blockSize]byte
	copy(ipad[:], key)
	copy(opad[:], key)
	for i := 0; i < blockSize; i++ {
		ipad[i] ^= ipadByte
		opad[i] ^= opadByte
	}

	inner := SHA256.Sum(append(ipad[:], msg...))
	return SHA256.Sum(append(opad[:], inner...))
}

// HmacSHA256Hex returns the HMAC-SHA256 of msg under key as 64 lowercase
// hex characters.
func HmacSHA256Hex(msg, key []byte) string {
	return hex.EncodeToString(HmacSHA256(msg, key))
}
