package pqsession

import (
	"github.com/elkablo/pqc-go/pkg/crypto"
	"github.com/elkablo/pqc-go/pkg/registry"
)

// direction holds the mutable per-direction state a session keeps
// independently for outgoing (local) and incoming (peer) traffic: a
// cipher instance, a MAC instance, the current ephemeral key, and a
// running byte count since the last rekey.
type direction struct {
	cipher         crypto.Cipher
	mac            crypto.Mac
	ephemeralKey   []byte
	nonce          []byte
	sinceLastRekey uint64
	closed         bool // only meaningful for the peer direction (peer_closed)
}

// newCipher builds the Cipher instance for a negotiated cipher
// algorithm, keyed with key.
func newCipher(c registry.Cipher, key []byte) (crypto.Cipher, error) {
	switch c {
	case registry.CipherChaCha20:
		return crypto.NewChaCha20Cipher(key)
	case registry.CipherPlain:
		return crypto.NewPlainCipher(key)
	default:
		return nil, ErrUnknownAlgorithm
	}
}

// newMac builds the Mac instance for a negotiated MAC algorithm,
// keyed with key.
func newMac(m registry.Mac, key []byte) (crypto.Mac, error) {
	switch m {
	case registry.MacSHA256:
		return crypto.NewHMACMac256(key), nil
	case registry.MacSHA512:
		return crypto.NewHMACMac512(key), nil
	default:
		return nil, ErrUnknownAlgorithm
	}
}

// rekey replaces d's MAC key with payload (the REKEY frame's payload,
// or our own freshly generated nonce when we initiate), derives the
// next ephemeral key as HMAC(payload, previous ephemeral key), and
// re-keys the cipher with it.
func (d *direction) rekey(payload []byte) error {
	d.mac.Key(payload)
	d.mac.Reset()
	d.mac.Write(d.ephemeralKey)
	next := d.mac.Sum()
	d.ephemeralKey = next
	if err := d.cipher.Key(next); err != nil {
		return err
	}
	d.sinceLastRekey = 0
	return nil
}
