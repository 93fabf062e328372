// Package prng implements the randomness component: each goroutine
// that asks for random bytes draws from a long-running ChaCha20
// keystream seeded once from the OS entropy source, rather than
// hitting crypto/rand on every call. A pool of these generators
// (one checked out per concurrent caller, grounded on the
// sync.Pool-per-shard shape of a NIST AES-CTR-DRBG port) amortizes
// the per-call syscall cost while keeping every byte traceable to a
// single seeding event.
package prng

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"github.com/elkablo/pqc-go/pkg/bigint"
	"github.com/elkablo/pqc-go/pkg/crypto"
)

// seedSize is the amount of OS entropy drawn per generator; expanded
// via HKDF-SHA256 into the ChaCha20 key and initial nonce.
const seedSize = 32

// MaxInitRetries bounds how many attempts in total NewGenerator makes
// at reading OS entropy before giving up; a seeding failure this persistent is
// treated as fatal by the caller.
const MaxInitRetries = 3

// Generator is a single thread's CSPRNG: a ChaCha20 keystream seeded
// once, advanced deterministically by every subsequent call.
type Generator struct {
	cipher crypto.Cipher
	mu     sync.Mutex
}

// NewGenerator seeds a fresh Generator from the OS entropy source.
func NewGenerator() (*Generator, error) {
	var seed [seedSize]byte
	var err error
	for r := 0; r < MaxInitRetries; r++ {
		if _, err = io.ReadFull(rand.Reader, seed[:]); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("prng: failed to read OS entropy after %d attempts: %w", MaxInitRetries, err)
	}

	material, err := crypto.HKDFSHA256(seed[:], nil, []byte("pqc-go prng seed"), crypto.ChaCha20KeySize+crypto.ChaCha20NonceSize)
	if err != nil {
		return nil, err
	}
	c, err := crypto.NewChaCha20Cipher(material[:crypto.ChaCha20KeySize])
	if err != nil {
		return nil, err
	}
	if err := c.Nonce(material[crypto.ChaCha20KeySize:]); err != nil {
		return nil, err
	}
	return &Generator{cipher: c}, nil
}

// Read fills buf with keystream bytes, advancing the generator's
// state. Always returns len(buf), nil.
func (g *Generator) Read(buf []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range buf {
		buf[i] = 0
	}
	if err := g.cipher.XORKeyStream(buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

// RandomUint32Below returns a uniform random value in [0, bound) using
// rejection sampling over 32-bit draws.
func (g *Generator) RandomUint32Below(bound uint32) (uint32, error) {
	if bound == 0 {
		return 0, fmt.Errorf("prng: bound must be positive")
	}
	limit := (^uint32(0) / bound) * bound
	var buf [4]byte
	for {
		if _, err := g.Read(buf[:]); err != nil {
			return 0, err
		}
		v := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
		if v < limit {
			return v % bound, nil
		}
	}
}

// RandomBelow draws a uniform random big integer in [0, bound) via
// pkg/bigint's own rejection-sampling helper, routed through this
// generator's keystream.
func (g *Generator) RandomBelow(bound *bigint.Z) (*bigint.Z, error) {
	return bigint.RandomBelow(g, bound)
}

// pool hands out Generators to concurrent callers; each is returned
// to the pool after use so the underlying keystream is reused rather
// than re-seeded, matching the "seeded once per thread" contract.
var pool = sync.Pool{
	New: func() any {
		g, err := NewGenerator()
		if err != nil {
			// Seeding failure is fatal: there is no safe fallback
			// source of randomness for session key material.
			panic(err)
		}
		return g
	},
}

// Get checks out a Generator for the calling goroutine's exclusive
// use until Put is called.
func Get() *Generator {
	return pool.Get().(*Generator)
}

// Put returns a Generator to the pool for reuse.
func Put(g *Generator) {
	pool.Put(g)
}

// RandomBytes is a convenience wrapper that checks out a generator,
// fills n bytes, and returns it to the pool.
func RandomBytes(n int) ([]byte, error) {
	g := Get()
	defer Put(g)
	buf := make([]byte, n)
	if _, err := g.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
