// Package registry implements the algorithm registries component:
// the four enumerations a session negotiates (cipher, MAC, key
// exchange, authentication), their wire names, and the fixed-size
// enable/disable bit-sets a host configures before handshake.
package registry

import "strings"

// Cipher identifies a negotiated stream cipher.
type Cipher uint8

const (
	CipherNone Cipher = iota
	CipherChaCha20
	CipherPlain
	cipherCount
)

// String returns the wire name used in the handshake text packet.
func (c Cipher) String() string {
	switch c {
	case CipherChaCha20:
		return "ChaCha20"
	case CipherPlain:
		return "plain"
	default:
		return "none"
	}
}

// IsValid reports whether c is a defined, non-sentinel cipher.
func (c Cipher) IsValid() bool { return c > CipherNone && c < cipherCount }

// ParseCipher matches name case-insensitively against the defined
// cipher names (the handshake's "header names are case-insensitive;
// values are case-sensitive" rule applies to field *names*, not the
// algorithm identifiers carried as values, which this registry treats
// case-insensitively for robustness).
func ParseCipher(name string) (Cipher, bool) {
	for c := Cipher(1); c < cipherCount; c++ {
		if strings.EqualFold(c.String(), name) {
			return c, true
		}
	}
	return CipherNone, false
}

// Mac identifies a negotiated HMAC variant.
type Mac uint8

const (
	MacNone Mac = iota
	MacSHA256
	MacSHA512
	macCount
)

func (m Mac) String() string {
	switch m {
	case MacSHA256:
		return "sha256"
	case MacSHA512:
		return "sha512"
	default:
		return "none"
	}
}

// Size returns the MAC's digest width in bytes.
func (m Mac) Size() int {
	switch m {
	case MacSHA256:
		return 32
	case MacSHA512:
		return 64
	default:
		return 0
	}
}

func (m Mac) IsValid() bool { return m > MacNone && m < macCount }

func ParseMac(name string) (Mac, bool) {
	for m := Mac(1); m < macCount; m++ {
		if strings.EqualFold(m.String(), name) {
			return m, true
		}
	}
	return MacNone, false
}

// Kex identifies a negotiated key-exchange algorithm. This core ships
// exactly one: the SIDH-based "SIDHex".
type Kex uint8

const (
	KexNone Kex = iota
	KexSIDHex
	kexCount
)

func (k Kex) String() string {
	switch k {
	case KexSIDHex:
		return "SIDHex"
	default:
		return "none"
	}
}

func (k Kex) IsValid() bool { return k > KexNone && k < kexCount }

func ParseKex(name string) (Kex, bool) {
	for k := Kex(1); k < kexCount; k++ {
		if strings.EqualFold(k.String(), name) {
			return k, true
		}
	}
	return KexNone, false
}

// Auth identifies a negotiated (optional) mutual-authentication
// method. This core ships exactly one: the SIDH-challenge-response
// "SIDHex-sha512".
type Auth uint8

const (
	AuthNone Auth = iota
	AuthSIDHexSHA512
	authCount
)

func (a Auth) String() string {
	switch a {
	case AuthSIDHexSHA512:
		return "SIDHex-sha512"
	default:
		return "none"
	}
}

func (a Auth) IsValid() bool { return a > AuthNone && a < authCount }

func ParseAuth(name string) (Auth, bool) {
	for a := Auth(1); a < authCount; a++ {
		if strings.EqualFold(a.String(), name) {
			return a, true
		}
	}
	return AuthNone, false
}

// DefaultCiphers, DefaultMacs, DefaultKexes and DefaultAuths are the
// algorithms a freshly constructed session has enabled, absent any
// explicit configuration.
func DefaultCiphers() []Cipher { return []Cipher{CipherChaCha20} }
func DefaultMacs() []Mac       { return []Mac{MacSHA256, MacSHA512} }
func DefaultKexes() []Kex      { return []Kex{KexSIDHex} }
func DefaultAuths() []Auth     { return []Auth{} }

// CipherSet is a fixed-size bit-set over the Cipher enumeration.
type CipherSet uint8

// NewCipherSet builds a set containing exactly the given ciphers.
func NewCipherSet(ciphers ...Cipher) CipherSet {
	var s CipherSet
	for _, c := range ciphers {
		s = s.With(c)
	}
	return s
}

func (s CipherSet) With(c Cipher) CipherSet    { return s | (1 << uint(c)) }
func (s CipherSet) Without(c Cipher) CipherSet { return s &^ (1 << uint(c)) }
func (s CipherSet) Has(c Cipher) bool          { return s&(1<<uint(c)) != 0 }
func (s CipherSet) Intersect(o CipherSet) CipherSet { return s & o }
func (s CipherSet) Empty() bool                { return s == 0 }

// First returns the lowest-numbered cipher in the set and true, or
// (CipherNone, false) if the set is empty. Used to pick a default
// choice out of an intersection with no further preference order.
func (s CipherSet) First() (Cipher, bool) {
	for c := Cipher(1); c < cipherCount; c++ {
		if s.Has(c) {
			return c, true
		}
	}
	return CipherNone, false
}

// MacSet is a fixed-size bit-set over the Mac enumeration.
type MacSet uint8

func NewMacSet(macs ...Mac) MacSet {
	var s MacSet
	for _, m := range macs {
		s = s.With(m)
	}
	return s
}

func (s MacSet) With(m Mac) MacSet        { return s | (1 << uint(m)) }
func (s MacSet) Without(m Mac) MacSet     { return s &^ (1 << uint(m)) }
func (s MacSet) Has(m Mac) bool           { return s&(1<<uint(m)) != 0 }
func (s MacSet) Intersect(o MacSet) MacSet { return s & o }
func (s MacSet) Empty() bool              { return s == 0 }

func (s MacSet) First() (Mac, bool) {
	for m := Mac(1); m < macCount; m++ {
		if s.Has(m) {
			return m, true
		}
	}
	return MacNone, false
}

// KexSet is a fixed-size bit-set over the Kex enumeration.
type KexSet uint8

func NewKexSet(kexes ...Kex) KexSet {
	var s KexSet
	for _, k := range kexes {
		s = s.With(k)
	}
	return s
}

func (s KexSet) With(k Kex) KexSet         { return s | (1 << uint(k)) }
func (s KexSet) Without(k Kex) KexSet      { return s &^ (1 << uint(k)) }
func (s KexSet) Has(k Kex) bool            { return s&(1<<uint(k)) != 0 }
func (s KexSet) Intersect(o KexSet) KexSet { return s & o }
func (s KexSet) Empty() bool               { return s == 0 }

func (s KexSet) First() (Kex, bool) {
	for k := Kex(1); k < kexCount; k++ {
		if s.Has(k) {
			return k, true
		}
	}
	return KexNone, false
}

// AuthSet is a fixed-size bit-set over the Auth enumeration.
type AuthSet uint8

func NewAuthSet(auths ...Auth) AuthSet {
	var s AuthSet
	for _, a := range auths {
		s = s.With(a)
	}
	return s
}

func (s AuthSet) With(a Auth) AuthSet         { return s | (1 << uint(a)) }
func (s AuthSet) Without(a Auth) AuthSet      { return s &^ (1 << uint(a)) }
func (s AuthSet) Has(a Auth) bool             { return s&(1<<uint(a)) != 0 }
func (s AuthSet) Intersect(o AuthSet) AuthSet { return s & o }
func (s AuthSet) Empty() bool                 { return s == 0 }

func (s AuthSet) First() (Auth, bool) {
	for a := Auth(1); a < authCount; a++ {
		if s.Has(a) {
			return a, true
		}
	}
	return AuthNone, false
}
