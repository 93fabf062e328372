package sidh

import (
	"io"
)

// HashSeedSize is the width of the extended key's authentication
// seed.
const HashSeedSize = 32

// ExtendedKey is a SIDH key plus a 32-byte hash_seed used as the
// HMAC key during challenge-response authentication. It is generated alongside the private key and exported or
// imported as the basic key's encoding followed by the 32-byte seed.
type ExtendedKey struct {
	Key
	HashSeed [HashSeedSize]byte
}

// NewExtendedKey creates an empty extended key bound to params and
// side.
func NewExtendedKey(params *Params, side Side) *ExtendedKey {
	return &ExtendedKey{Key: *NewKey(params, side)}
}

// Generate samples a fresh private/public key pair and a fresh
// hash_seed, all drawn from reader.
func (k *ExtendedKey) Generate(reader io.Reader) error {
	if err := k.Key.Generate(reader); err != nil {
		return err
	}
	if _, err := io.ReadFull(reader, k.HashSeed[:]); err != nil {
		return err
	}
	return nil
}

// Export serializes the basic key encoding followed by the 32-byte
// hash_seed.
func (k *ExtendedKey) Export() ([]byte, error) {
	base, err := k.Key.Export()
	if err != nil {
		return nil, err
	}
	return append(base, k.HashSeed[:]...), nil
}

// Import parses the encoding produced by Export: everything but the
// trailing 32 bytes is handed to the basic key's Import, and the
// trailing 32 bytes become hash_seed.
func (k *ExtendedKey) Import(buf []byte) error {
	if len(buf) < HashSeedSize {
		return ErrBadImport
	}
	split := len(buf) - HashSeedSize
	if err := k.Key.Import(buf[:split]); err != nil {
		return err
	}
	copy(k.HashSeed[:], buf[split:])
	return nil
}
