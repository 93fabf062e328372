package auth

import (
	"bytes"
	"encoding/hex"
	"errors"

	"github.com/elkablo/pqc-go/pkg/crypto"
	"github.com/elkablo/pqc-go/pkg/sidh"
)

// Key-file layout: the 32-byte SHA-256 digest of the key's exported
// public half, followed by the raw exported key bytes. The digest is
// what a host's auth callback is addressed by, so a verifier can name
// the exact key it wants the peer to prove ownership of.

// Errors returned by the key-file codec.
var (
	// ErrNoPublic is returned by EncodeKeyFile when the key has no
	// public half to derive an ID from.
	ErrNoPublic = errors.New("auth: extended key has no public component")
	// ErrBadKeyFile is returned by DecodeKeyFile for a file shorter
	// than the 32-byte ID or an ID that does not match the key it
	// precedes; a malformed key part returns the key import's error.
	ErrBadKeyFile = errors.New("auth: malformed key file")
)

// KeyID returns the hex form of the key's 32-byte public-half digest,
// the string a session's auth callback is looked up with.
func KeyID(key *sidh.ExtendedKey) (string, error) {
	id, err := keyDigest(key)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(id), nil
}

func keyDigest(key *sidh.ExtendedKey) ([]byte, error) {
	if !key.HasPublic() {
		return nil, ErrNoPublic
	}
	pub, err := key.Public().Export()
	if err != nil {
		return nil, err
	}
	return crypto.SHA256Slice(pub), nil
}

// EncodeKeyFile serializes key in the on-disk format: ID followed by
// the raw exported key (private, public and hash seed, whichever are
// present — the public half must be, to derive the ID).
func EncodeKeyFile(key *sidh.ExtendedKey) ([]byte, error) {
	id, err := keyDigest(key)
	if err != nil {
		return nil, err
	}
	raw, err := key.Export()
	if err != nil {
		return nil, err
	}
	return append(id, raw...), nil
}

// DecodeKeyFile parses a key file written by EncodeKeyFile, binding
// the key to params and side, and verifies the leading ID against the
// recomputed digest of the imported public half.
func DecodeKeyFile(params *sidh.Params, side sidh.Side, buf []byte) (*sidh.ExtendedKey, error) {
	if len(buf) < crypto.SHA256Size {
		return nil, ErrBadKeyFile
	}
	key := sidh.NewExtendedKey(params, side)
	if err := key.Import(buf[crypto.SHA256Size:]); err != nil {
		return nil, err
	}
	id, err := keyDigest(key)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(id, buf[:crypto.SHA256Size]) {
		return nil, ErrBadKeyFile
	}
	return key, nil
}
