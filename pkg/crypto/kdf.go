package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDFSHA256 derives length bytes of key material from inputKey via
// HKDF-SHA256 (RFC 5869): HKDF-Expand(HKDF-Extract(salt, IKM), info, L).
// pkg/prng uses this to expand OS entropy into a ChaCha20 seed.
func HKDFSHA256(inputKey, salt, info []byte, length int) ([]byte, error) {
	reader := hkdf.New(sha256.New, inputKey, salt, info)
	result := make([]byte, length)
	if _, err := io.ReadFull(reader, result); err != nil {
		return nil, err
	}
	return result, nil
}
