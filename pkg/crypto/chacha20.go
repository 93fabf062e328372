package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/chacha20"
)

// ChaCha20KeySize and ChaCha20NonceSize are the key and nonce widths
// this component's stream cipher uses: a 256-bit key and a 64-bit
// nonce, counter starting at zero.
const (
	ChaCha20KeySize   = 32
	ChaCha20NonceSize = 8
)

// Cipher is the common trait a session's per-direction stream cipher
// satisfies: key/nonce/encrypt/decrypt, in-place over the caller's
// buffer.
type Cipher interface {
	// NonceSize returns the cipher's required nonce width in bytes.
	NonceSize() int
	// Key (re)keys the cipher. Accepts any length: longer than
	// ChaCha20KeySize is replaced by its SHA-256 digest, shorter is
	// zero-padded on the right.
	Key(key []byte) error
	// Nonce sets the nonce, resetting the keystream counter to zero.
	// Exactly the first NonceSize bytes of n are used.
	Nonce(n []byte) error
	// XORKeyStream encrypts or decrypts (the operation is its own
	// inverse) buf in place.
	XORKeyStream(buf []byte) error
}

// ChaCha20Cipher wraps golang.org/x/crypto/chacha20 to satisfy
// Cipher, normalizing key length and accepting an 8-byte nonce with
// an explicit zero counter: the 64-bit-nonce/counter-starts-at-zero
// contract maps onto x/crypto/chacha20's 12-byte nonce form by
// prefixing 4 zero bytes.
type ChaCha20Cipher struct {
	key   [ChaCha20KeySize]byte
	nonce [ChaCha20NonceSize]byte
	c     *chacha20.Cipher
}

// NewChaCha20Cipher builds a cipher, keying it with key. The nonce
// defaults to all-zero until Nonce is called.
func NewChaCha20Cipher(key []byte) (*ChaCha20Cipher, error) {
	c := &ChaCha20Cipher{}
	if err := c.Key(key); err != nil {
		return nil, err
	}
	return c, c.Nonce(c.nonce[:])
}

// NonceSize returns ChaCha20NonceSize (8 bytes).
func (c *ChaCha20Cipher) NonceSize() int { return ChaCha20NonceSize }

// Key normalizes key to 32 bytes (SHA-256 if longer, zero-padded if
// shorter) and re-derives the underlying stream with the current
// nonce.
func (c *ChaCha20Cipher) Key(key []byte) error {
	switch {
	case len(key) > ChaCha20KeySize:
		c.key = sha256.Sum256(key)
	default:
		var buf [ChaCha20KeySize]byte
		copy(buf[:], key)
		c.key = buf
	}
	return c.rebuild()
}

// Nonce sets the 8-byte nonce and resets the block counter to zero.
func (c *ChaCha20Cipher) Nonce(n []byte) error {
	if len(n) < ChaCha20NonceSize {
		return errShortNonce
	}
	copy(c.nonce[:], n[:ChaCha20NonceSize])
	return c.rebuild()
}

func (c *ChaCha20Cipher) rebuild() error {
	// x/crypto/chacha20 takes a 12-byte nonce; our 8-byte nonce fills
	// its last 8 bytes and the first 4 are zero. That zero word sits
	// where a 64-bit counter's high half would be, but x/crypto's
	// block counter is 32 bits, so one key/nonce pair yields at most
	// 2^32 blocks (256 GiB) of keystream; the counter does not carry
	// into the zero word.
	var ietfNonce [chacha20.NonceSize]byte
	copy(ietfNonce[4:], c.nonce[:])
	ccc, err := chacha20.NewUnauthenticatedCipher(c.key[:], ietfNonce[:])
	if err != nil {
		return err
	}
	c.c = ccc
	return nil
}

// XORKeyStream encrypts or decrypts buf in place.
func (c *ChaCha20Cipher) XORKeyStream(buf []byte) error {
	c.c.XORKeyStream(buf, buf)
	return nil
}

var errShortNonce = &cipherError{"chacha20: nonce shorter than 8 bytes"}

type cipherError struct{ s string }

func (e *cipherError) Error() string { return e.s }

// PlainCipher is the no-op "plain" cipher: XORKeyStream is the
// identity. It exists so a session can negotiate no confidentiality
// at all while still running every frame through the same Cipher
// trait (used for debugging a handshake without a packet capture
// tool that understands ChaCha20).
type PlainCipher struct{}

// NewPlainCipher builds a PlainCipher. It ignores its key argument.
func NewPlainCipher([]byte) (*PlainCipher, error) { return &PlainCipher{}, nil }

func (c *PlainCipher) NonceSize() int                { return 0 }
func (c *PlainCipher) Key(key []byte) error          { return nil }
func (c *PlainCipher) Nonce(n []byte) error          { return nil }
func (c *PlainCipher) XORKeyStream(buf []byte) error { return nil }
