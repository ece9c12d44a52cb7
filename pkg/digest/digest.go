// Package digest implements one-shot MD5, SHA-256 and HMAC-SHA256.
//
// The digests match the published reference algorithms byte for byte; the
// tests cross-check them against the standard library and the RFC 4231
// vectors. Everything here is a pure function over byte slices: each call
// allocates its own state, so concurrent use needs no locking.
//
// The engine is one-shot by design: the whole message must be in memory
// before a digest is produced. Webhook bodies and fingerprint material are
// small, so there is no streaming interface.
package digest

import (
	"encoding/binary"
	"encoding/hex"
)

// blockSize is the input block size shared by MD5 and SHA-256 (512 bits).
const blockSize = 64

// Algorithm describes a Merkle-Damgard block hash: the initial digest
// state, a per-block compression function, and the byte order used for
// state words and the appended message length. Instances are immutable;
// MD5 and SHA256 are the only two defined.
type Algorithm struct {
	name      string
	size      int // digest length in bytes
	bigEndian bool
	initState []uint32
	compress  func(state []uint32, block []byte)
}

// Name returns the lowercase algorithm name.
func (a *Algorithm) Name() string { return a.name }

// Size returns the digest length in bytes.
func (a *Algorithm) Size() int { return a.size }

// Sum computes the digest of msg. It accepts any byte sequence including
// the empty one.
func (a *Algorithm) Sum(msg []byte) []byte {
	state := make([]uint32, len(a.initState))
	copy(state, a.initState)

	padded := pad(msg, a.bigEndian)
	for off := 0; off < len(padded); off += blockSize {
		a.compress(state, padded[off:off+blockSize])
	}

	out := make([]byte, a.size)
	for i := 0; i < a.size/4; i++ {
		if a.bigEndian {
			binary.BigEndian.PutUint32(out[i*4:], state[i])
		} else {
			binary.LittleEndian.PutUint32(out[i*4:], state[i])
		}
	}
	return out
}

// SumHex returns the digest of msg as lowercase hex, two characters per
// byte, most significant byte first.
func (a *Algorithm) SumHex(msg []byte) string {
	return hex.EncodeToString(a.Sum(msg))
}

// pad appends the 0x80 marker, zero fill, and the original message length
// in bits as a 64-bit integer, bringing the total length to a multiple of
// the block size. MD5 stores the length little-endian, SHA-256 big-endian.
func pad(msg []byte, bigEndian bool) []byte {
	bitLen := uint64(len(msg)) * 8

	padded := make([]byte, 0, len(msg)+blockSize+8)
	padded = append(padded, msg...)
	padded = append(padded, 0x80)
	for len(padded)%blockSize != blockSize-8 {
		padded = append(padded, 0x00)
	}

	var length [8]byte
	if bigEndian {
		binary.BigEndian.PutUint64(length[:], bitLen)
	} else {
		binary.LittleEndian.PutUint64(length[:], bitLen)
	}
	return append(padded, length[:]...)
}
