package digest

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"math/rand"
	"testing"
)

func TestSHA256KnownVectors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"quick brown fox", "The quick brown fox jumps over the lazy dog", "d7a8fbb307d7809469ca9abcb0082e4f8d5651e46d3cdb762d02d0bf37c9e592"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SHA256.SumHex([]byte(tt.in))
			if got != tt.want {
				t.Errorf("SHA256(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestMD5KnownVectors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "d41d8cd98f00b204e9800998ecf8427e"},
		{"a", "a", "0cc175b9c0f1b6a831c399e269772661"},
		{"abc", "abc", "900150983cd24fb0d6963f7d28e17f72"},
		{"quick brown fox", "The quick brown fox jumps over the lazy dog", "9e107d9d372bb6826bd81d3542a419d6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MD5.SumHex([]byte(tt.in))
			if got != tt.want {
				t.Errorf("MD5(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestDigestLengths(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("x"),
		bytes.Repeat([]byte("k"), 55),  // padding crosses a block boundary
		bytes.Repeat([]byte("k"), 56),  // length lands in the next block
		bytes.Repeat([]byte("k"), 64),  // exactly one block
		bytes.Repeat([]byte("k"), 200), // multiple blocks
	}

	for _, in := range inputs {
		if got := len(SHA256.SumHex(in)); got != 64 {
			t.Errorf("sha256 hex length for %d input bytes = %d, want 64", len(in), got)
		}
		if got := len(MD5.SumHex(in)); got != 32 {
			t.Errorf("md5 hex length for %d input bytes = %d, want 32", len(in), got)
		}
	}
}

func TestDigestDeterminism(t *testing.T) {
	msg := []byte(`{"event":"license.created"}`)

	if SHA256.SumHex(msg) != SHA256.SumHex(msg) {
		t.Error("sha256 is not deterministic across calls")
	}
	if MD5.SumHex(msg) != MD5.SumHex(msg) {
		t.Error("md5 is not deterministic across calls")
	}
}

// Cross-check against the standard library over inputs of every length up
// to a few blocks, so the padding and length-append paths are all hit.
func TestAgainstStandardLibrary(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for size := 0; size <= 3*blockSize+9; size++ {
		msg := make([]byte, size)
		rng.Read(msg)

		wantSHA := sha256.Sum256(msg)
		if got := SHA256.Sum(msg); !bytes.Equal(got, wantSHA[:]) {
			t.Fatalf("sha256 mismatch at input length %d", size)
		}

		wantMD5 := md5.Sum(msg)
		if got := MD5.Sum(msg); !bytes.Equal(got, wantMD5[:]) {
			t.Fatalf("md5 mismatch at input length %d", size)
		}
	}
}

func TestPadding(t *testing.T) {
	for size := 0; size <= 2*blockSize; size++ {
		padded := pad(make([]byte, size), true)
		if len(padded)%blockSize != 0 {
			t.Fatalf("padded length %d for input %d is not a block multiple", len(padded), size)
		}
		if padded[size] != 0x80 {
			t.Fatalf("padding marker missing for input length %d", size)
		}
	}
}

func TestAlgorithmMetadata(t *testing.T) {
	if SHA256.Name() != "sha256" || SHA256.Size() != 32 {
		t.Errorf("sha256 metadata = (%s, %d)", SHA256.Name(), SHA256.Size())
	}
	if MD5.Name() != "md5" || MD5.Size() != 16 {
		t.Errorf("md5 metadata = (%s, %d)", MD5.Name(), MD5.Size())
	}
}
