package crypto

import (
	"bytes"
	"testing"
)

func TestHKDFSHA256Deterministic(t *testing.T) {
	ikm := []byte("input key material")
	salt := []byte("salt")
	info := []byte("pqc-go test context")

	out1, err := HKDFSHA256(ikm, salt, info, 32)
	if err != nil {
		t.Fatalf("HKDFSHA256: %v", err)
	}
	out2, err := HKDFSHA256(ikm, salt, info, 32)
	if err != nil {
		t.Fatalf("HKDFSHA256: %v", err)
	}
	if !bytes.Equal(out1, out2) {
		t.Error("HKDFSHA256 is not deterministic for identical inputs")
	}
	if len(out1) != 32 {
		t.Fatalf("HKDFSHA256 returned %d bytes, want 32", len(out1))
	}
}

func TestHKDFSHA256DifferentInfoDiffers(t *testing.T) {
	ikm := []byte("input key material")
	salt := []byte("salt")

	a, err := HKDFSHA256(ikm, salt, []byte("context-a"), 32)
	if err != nil {
		t.Fatalf("HKDFSHA256: %v", err)
	}
	b, err := HKDFSHA256(ikm, salt, []byte("context-b"), 32)
	if err != nil {
		t.Fatalf("HKDFSHA256: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("different info labels produced identical output")
	}
}

func TestHKDFSHA256VariableLength(t *testing.T) {
	ikm := []byte("another secret")
	out, err := HKDFSHA256(ikm, nil, nil, 96)
	if err != nil {
		t.Fatalf("HKDFSHA256: %v", err)
	}
	if len(out) != 96 {
		t.Fatalf("HKDFSHA256 returned %d bytes, want 96", len(out))
	}
}
