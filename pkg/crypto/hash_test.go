package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestSHA256(t *testing.T) {
	// FIPS 180-4 example: SHA-256("abc")
	want, err := hex.DecodeString("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}

	got := SHA256([]byte("abc"))
	if !bytes.Equal(got[:], want) {
		t.Errorf("SHA256(abc) = %x, want %x", got, want)
	}
	if slice := SHA256Slice([]byte("abc")); !bytes.Equal(slice, want) {
		t.Errorf("SHA256Slice(abc) = %x, want %x", slice, want)
	}
}

func TestNewSHA256Incremental(t *testing.T) {
	data := []byte("The quick brown fox jumps over the lazy dog")
	want := SHA256(data)

	h := NewSHA256()
	h.Write(data[:10])
	h.Write(data[10:])
	got := h.Sum(nil)

	if !bytes.Equal(got, want[:]) {
		t.Errorf("incremental SHA-256 mismatch: got %x, want %x", got, want)
	}
}

func TestNewSHA512Size(t *testing.T) {
	h := NewSHA512()
	h.Write([]byte("anything"))
	if got := len(h.Sum(nil)); got != SHA512Size {
		t.Errorf("SHA-512 digest length = %d, want %d", got, SHA512Size)
	}
}
