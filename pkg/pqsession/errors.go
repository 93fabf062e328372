package pqsession

import "errors"

// Errors returned directly by Session methods (distinct from the
// sticky *Error surfaced via Session.Err once the state machine
// itself transitions to StateError). ErrNoPrivateKey is not returned
// by the session code: when the auth callback yields no key, the ack
// is sent without an Auth-reply.
var (
	ErrWrongState       = errors.New("pqsession: operation not valid in the current state")
	ErrUnknownAlgorithm = errors.New("pqsession: algorithm not implemented by this build")
	ErrNoPrivateKey     = errors.New("pqsession: auth callback returned no key for requested ID")
)
