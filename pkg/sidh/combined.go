package sidh

import "io"

// Key is the SIDH key with independent private and public parts. A
// freshly generated key normally carries both; a key built purely
// from a peer's exported public bytes carries only the public half.
type Key struct {
	params *Params
	side   Side
	priv   *PrivateKey
	pub    *PublicKey
}

// NewKey creates an empty key bound to params and side, with neither
// private nor public parts set.
func NewKey(params *Params, side Side) *Key {
	return &Key{params: params, side: side}
}

// HasPrivate reports whether k carries a private component.
func (k *Key) HasPrivate() bool { return k.priv != nil }

// HasPublic reports whether k carries a public component.
func (k *Key) HasPublic() bool { return k.pub != nil }

// Private returns the private component, or nil if absent.
func (k *Key) Private() *PrivateKey { return k.priv }

// Public returns the public component, or nil if absent.
func (k *Key) Public() *PublicKey { return k.pub }

// Params returns the parameter block k is bound to.
func (k *Key) Params() *Params { return k.params }

// Side returns which half of the parameter block k belongs to.
func (k *Key) Side() Side { return k.side }

// privateSize returns the exported private-key size for this side.
func privateSize(params *Params, side Side) int {
	ellPowE := params.EllAPowEa()
	if side == SideB {
		ellPowE = params.EllBPowEb()
	}
	return 1 + ellPowE.ByteLen()
}

// publicSize returns the exported public-key size, which depends only
// on p: curve (4|p|) plus two tagged points (1+4|p| each).
func publicSize(params *Params) int {
	return 12*params.M.ByteLen() + 2
}

// Generate samples a fresh private key and derives its public part.
func (k *Key) Generate(reader io.Reader) error {
	priv, err := GeneratePrivateKey(reader, k.params, k.side)
	if err != nil {
		return err
	}
	pub, err := priv.GeneratePublicKey()
	if err != nil {
		return err
	}
	k.priv = priv
	k.pub = pub
	return nil
}

// Export concatenates whichever of the private/public parts are
// present, private first.
func (k *Key) Export() ([]byte, error) {
	var out []byte
	if k.priv != nil {
		b, err := k.priv.Export()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	if k.pub != nil {
		b, err := k.pub.Export()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// Import accepts an exported private key, an exported public key, or
// both concatenated (private first), inferring which by comparing the
// buffer length against the two fixed sizes for this parameter block
// and side. All imported material belongs to k's own side: a Key
// holding a peer's public half is constructed with the peer's side
// (the usual case when verifying or key-exchanging against received
// bytes).
func (k *Key) Import(buf []byte) error {
	privSize := privateSize(k.params, k.side)
	pubSize := publicSize(k.params)

	switch len(buf) {
	case privSize:
		priv, err := ImportPrivateKey(k.params, k.side, buf)
		if err != nil {
			return err
		}
		k.priv = priv
		k.pub = nil
		return nil
	case pubSize:
		pub, err := ImportPublicKey(k.params, k.side, buf)
		if err != nil {
			return err
		}
		k.priv = nil
		k.pub = pub
		return nil
	case privSize + pubSize:
		priv, err := ImportPrivateKey(k.params, k.side, buf[:privSize])
		if err != nil {
			return err
		}
		pub, err := ImportPublicKey(k.params, k.side, buf[privSize:])
		if err != nil {
			return err
		}
		k.priv = priv
		k.pub = pub
		return nil
	default:
		return ErrBadImport
	}
}

// ComputeSharedSecret requires k's private part and the peer's public
// key (must be on the opposite side); see PrivateKey.ComputeSharedSecret.
func (k *Key) ComputeSharedSecret(peerPublic *PublicKey) ([]byte, error) {
	if k.priv == nil {
		return nil, ErrNoPrivate
	}
	return k.priv.ComputeSharedSecret(peerPublic)
}
