// Package crypto implements the symmetric primitives component: the
// ChaCha20 stream cipher and HMAC-SHA256/HMAC-SHA512, wrapped behind
// the common Cipher and Mac traits that the session layer
// (pkg/pqsession) and packet codec (pkg/packet) drive generically.
package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"
)

// Digest sizes for the two supported hash functions.
const (
	SHA256Size = 32
	SHA512Size = 64
)

// SHA256 computes the SHA-256 digest of message.
func SHA256(message []byte) [SHA256Size]byte {
	return sha256.Sum256(message)
}

// SHA256Slice computes the SHA-256 digest and returns it as a slice.
func SHA256Slice(message []byte) []byte {
	h := sha256.Sum256(message)
	return h[:]
}

// NewSHA256 returns a streaming SHA-256 hash.Hash.
func NewSHA256() hash.Hash {
	return sha256.New()
}

// NewSHA512 returns a streaming SHA-512 hash.Hash.
func NewSHA512() hash.Hash {
	return sha512.New()
}
