// Package auth implements the SIDH-based authentication component
// ("SIDHex-SHA512"): a challenge-response protocol that uses a fresh
// SIDH-derived shared secret, keyed under the signer's hash seed, as
// an HMAC tag over the message being authenticated.
//
// Three roles participate: Request (the verifying party, who holds
// only the signer's public key plus its hash seed), Sign (the party
// that owns the matching private key), and the requester's own
// Verify once the reply arrives.
package auth

import (
	"crypto/subtle"
	"errors"
	"io"

	"github.com/elkablo/pqc-go/pkg/crypto"
	"github.com/elkablo/pqc-go/pkg/sidh"
)

// Errors returned by this package.
var (
	// ErrNoPrivate is returned by Sign when the extended key has no
	// private component.
	ErrNoPrivate = errors.New("auth: extended key has no private component")
	// ErrNotRequested is returned by Verify when called before Request.
	ErrNotRequested = errors.New("auth: no outstanding request")
)

// Request is the state a verifying party carries between generating
// a challenge and checking the signer's reply.
type Request struct {
	secret []byte // HMAC(hash_seed, message || shared_secret)
}

// Generate generates an ephemeral SIDH private key on the side
// opposite to peerPublic, computes its shared secret with
// peerPublic's codomain, and derives the expected reply tag keyed
// under peerPublic's hash_seed. It returns the ephemeral public key
// to send to the signer alongside message.
func (r *Request) Generate(reader io.Reader, peerPublic *sidh.ExtendedKey, message []byte) ([]byte, error) {
	ephemeral := sidh.NewKey(peerPublic.Params(), peerPublic.Side().Other())
	if err := ephemeral.Generate(reader); err != nil {
		return nil, err
	}
	secret, err := ephemeral.ComputeSharedSecret(peerPublic.Public())
	if err != nil {
		return nil, err
	}
	r.secret = tag(peerPublic.HashSeed[:], message, secret)

	// Only the public half travels to the signer; the ephemeral
	// private scalars never leave this side.
	return ephemeral.Public().Export()
}

// Sign answers a Request: it recovers the shared secret using own's
// private key and the requester's ephemeral public key, then returns
// the HMAC tag keyed under own's hash_seed.
func Sign(own *sidh.ExtendedKey, message []byte, requesterEphemeralPublic []byte) ([]byte, error) {
	if !own.HasPrivate() {
		return nil, ErrNoPrivate
	}
	peerPub, err := sidh.ImportPublicKey(own.Params(), own.Side().Other(), requesterEphemeralPublic)
	if err != nil {
		return nil, err
	}
	secret, err := own.Private().ComputeSharedSecret(peerPub)
	if err != nil {
		return nil, err
	}
	return tag(own.HashSeed[:], message, secret), nil
}

// tag computes HMAC-SHA512(key, message || secret).
func tag(key, message, secret []byte) []byte {
	buf := make([]byte, 0, len(message)+len(secret))
	buf = append(buf, message...)
	buf = append(buf, secret...)
	return crypto.HMACSHA512Slice(key, buf)
}

// Verify reports whether reply matches the tag computed during
// Generate, comparing in constant time. Returns ErrNotRequested if
// Generate was never called.
func (r *Request) Verify(reply []byte) (bool, error) {
	if r.secret == nil {
		return false, ErrNotRequested
	}
	return subtle.ConstantTimeCompare(r.secret, reply) == 1, nil
}
