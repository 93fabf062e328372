package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
)

// Mac is the common trait shared by the two HMAC instances a session
// negotiates: key/init/update/digest, with a streaming reset so the
// same instance can be reused across many frames.
type Mac interface {
	// Size returns the MAC's digest width in bytes (32 or 64).
	Size() int
	// Key (re)keys the MAC, replacing any previous key.
	Key(key []byte)
	// Reset clears accumulated input, keeping the current key.
	Reset()
	// Write accumulates message bytes.
	Write(p []byte) (int, error)
	// Sum returns the digest over everything written since the last
	// Reset, without mutating the running state.
	Sum() []byte
}

// HMACSHA256 computes the HMAC-SHA256 of a message using the given key.
func HMACSHA256(key, message []byte) [SHA256Size]byte {
	h := hmac.New(sha256.New, key)
	h.Write(message)
	var result [SHA256Size]byte
	copy(result[:], h.Sum(nil))
	return result
}

// HMACSHA256Slice computes the HMAC-SHA256 and returns it as a slice.
func HMACSHA256Slice(key, message []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(message)
	return h.Sum(nil)
}

// HMACSHA512Slice computes the HMAC-SHA512 and returns it as a slice.
func HMACSHA512Slice(key, message []byte) []byte {
	h := hmac.New(sha512.New, key)
	h.Write(message)
	return h.Sum(nil)
}

// NewHMACSHA256 returns a new hash.Hash for computing HMAC-SHA256 incrementally.
func NewHMACSHA256(key []byte) hash.Hash {
	return hmac.New(sha256.New, key)
}

// NewHMACSHA512 returns a new hash.Hash for computing HMAC-SHA512 incrementally.
func NewHMACSHA512(key []byte) hash.Hash {
	return hmac.New(sha512.New, key)
}

// HMACEqual compares two MACs in constant time.
func HMACEqual(mac1, mac2 []byte) bool {
	return hmac.Equal(mac1, mac2)
}

// hmacMac adapts the stdlib hmac.New family to the Mac trait.
type hmacMac struct {
	newHash func() hash.Hash
	key     []byte
	h       hash.Hash
	size    int
}

// NewHMACMac256 builds a Mac instance backed by HMAC-SHA256.
func NewHMACMac256(key []byte) Mac {
	m := &hmacMac{newHash: sha256.New, size: SHA256Size}
	m.Key(key)
	return m
}

// NewHMACMac512 builds a Mac instance backed by HMAC-SHA512.
func NewHMACMac512(key []byte) Mac {
	m := &hmacMac{newHash: sha512.New, size: SHA512Size}
	m.Key(key)
	return m
}

func (m *hmacMac) Size() int { return m.size }

func (m *hmacMac) Key(key []byte) {
	m.key = append([]byte(nil), key...)
	m.h = hmac.New(m.newHash, m.key)
}

func (m *hmacMac) Reset() { m.h.Reset() }

func (m *hmacMac) Write(p []byte) (int, error) { return m.h.Write(p) }

func (m *hmacMac) Sum() []byte { return m.h.Sum(nil) }
