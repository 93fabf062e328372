package sidh

import (
	"errors"
	"io"

	"github.com/elkablo/pqc-go/pkg/bigint"
	"github.com/elkablo/pqc-go/pkg/curve"
	"github.com/elkablo/pqc-go/pkg/isogeny"
)

// Errors returned by key operations.
var (
	// ErrNoPrivate is returned when an operation needing a private key
	// finds none set.
	ErrNoPrivate = errors.New("sidh: key has no private component")

	// ErrSideMismatch is returned by ComputeSharedSecret when the
	// peer's public key is not on the opposite side.
	ErrSideMismatch = errors.New("sidh: peer public key is not on the opposite side")

	// ErrBadImport is returned when imported key material has the
	// wrong length or an invalid tag byte.
	ErrBadImport = errors.New("sidh: invalid key encoding")
)

// PrivateKey owns a parameter block and a pair (m,n) ∈ ℤ² of private
// scalars constrained so that (m,n) ∉ ℓ·ℤ²: one of m,n is fixed
// to 1, chosen with probability 1/(ℓ+1) that m=1 and ℓ/(ℓ+1) that
// n=1. With m=1, n is drawn uniformly from [0, ℓᵉ); with n=1, m is
// drawn uniformly from the multiples of ℓ in [0, ℓᵉ). The sampling is
// biased toward the n=1 branch; interoperating implementations must
// keep the same distribution rather than switch to a uniform one.
type PrivateKey struct {
	params *Params
	side   Side
	mIsOne bool // true: m=1, n random; false: n=1, m random
	m, n   *bigint.Z
}

// Side returns which half of the parameter block prv belongs to.
func (prv *PrivateKey) Side() Side { return prv.side }

// GeneratePrivateKey samples a fresh private key on the given side.
func GeneratePrivateKey(reader io.Reader, params *Params, side Side) (*PrivateKey, error) {
	ell := params.EllA
	ellPowE := params.EllAPowEa()
	if side == SideB {
		ell = params.EllB
		ellPowE = params.EllBPowEb()
	}

	// Choose m=1 with probability 1/(ell+1), else n=1, by drawing a
	// uniform value in [0, ell+1) and comparing against 1.
	denom := bigint.NewZ(ell + 1)
	draw, err := bigint.RandomBelow(reader, denom)
	if err != nil {
		return nil, err
	}
	mIsOne := draw.Cmp(bigint.NewZ(1)) < 0

	var m, n *bigint.Z
	if mIsOne {
		m = bigint.NewZ(1)
		n, err = bigint.RandomBelow(reader, ellPowE)
		if err != nil {
			return nil, err
		}
	} else {
		n = bigint.NewZ(1)
		ellPowEminus1 := ellPowE.Div(bigint.NewZ(ell))
		scalar, err2 := bigint.RandomBelow(reader, ellPowEminus1)
		if err2 != nil {
			return nil, err2
		}
		m = scalar.Mul(bigint.NewZ(ell))
	}

	return &PrivateKey{params: params, side: side, mIsOne: mIsOne, m: m, n: n}, nil
}

// kernelGenerator returns m*P + n*Q for the private scalars, using
// this side's torsion basis on the base curve.
func (prv *PrivateKey) kernelGenerator() (*curve.Point, error) {
	var p, q *curve.Point
	if prv.side == SideA {
		p, q = prv.params.Pa, prv.params.Qa
	} else {
		p, q = prv.params.Pb, prv.params.Qb
	}
	mp, err := p.ScalarMul(prv.m)
	if err != nil {
		return nil, err
	}
	nq, err := q.ScalarMul(prv.n)
	if err != nil {
		return nil, err
	}
	return mp.Add(nq), nil
}

// isogenyParams returns (ell, e, strategy, degree) for this side.
func (prv *PrivateKey) isogenyParams() (int64, int, []int, int) {
	if prv.side == SideA {
		return prv.params.EllA, prv.params.Ea, prv.params.StrategyA, int(prv.params.EllA)
	}
	return prv.params.EllB, prv.params.Eb, prv.params.StrategyB, int(prv.params.EllB)
}

// GeneratePublicKey builds the composite ℓᵉ-isogeny once (cached by
// the caller if desired — this method recomputes it each call) and
// returns the public key: codomain curve E′ plus the images
// P′=φ(P_peer), Q′=φ(Q_peer) of the *opposite* side's torsion basis.
func (prv *PrivateKey) GeneratePublicKey() (*PublicKey, error) {
	gen, err := prv.kernelGenerator()
	if err != nil {
		return nil, err
	}
	ell, e, strategy, degree := prv.isogenyParams()
	phi, err := isogeny.NewCompositeStrategy(prv.params.E, gen, ell, e, degree, strategy)
	if err != nil {
		return nil, err
	}

	peerSide := prv.side.Other()
	var peerP, peerQ *curve.Point
	if peerSide == SideA {
		peerP, peerQ = prv.params.Pa, prv.params.Qa
	} else {
		peerP, peerQ = prv.params.Pb, prv.params.Qb
	}

	pPrime, err := phi.Eval(peerP)
	if err != nil {
		return nil, err
	}
	qPrime, err := phi.Eval(peerQ)
	if err != nil {
		return nil, err
	}

	return &PublicKey{
		params: prv.params,
		side:   prv.side,
		curve:  phi.Codomain(),
		p:      pPrime,
		q:      qPrime,
	}, nil
}

// ComputeSharedSecret is only valid when prv's side is opposite to
// peerPublic.Side(): it rebuilds the composite isogeny with kernel
// generator m·P′_peer + n·Q′_peer of order ℓᵉ on the peer's codomain
// curve, and emits j_invariant(φ.image).serialize() as the shared
// secret (2·|p| bytes). Returns an explicit error on side mismatch
// rather than a silent empty slice.
func (prv *PrivateKey) ComputeSharedSecret(peerPublic *PublicKey) ([]byte, error) {
	if prv.side == peerPublic.side {
		return nil, ErrSideMismatch
	}

	mp, err := peerPublic.p.ScalarMul(prv.m)
	if err != nil {
		return nil, err
	}
	nq, err := peerPublic.q.ScalarMul(prv.n)
	if err != nil {
		return nil, err
	}
	gen := mp.Add(nq)

	ell, e, strategy, degree := prv.isogenyParams()
	phi, err := isogeny.NewCompositeStrategy(peerPublic.curve, gen, ell, e, degree, strategy)
	if err != nil {
		return nil, err
	}

	j, err := phi.Codomain().JInvariant()
	if err != nil {
		return nil, err
	}
	return j.Serialize()
}

// Export serializes the private key as one tag byte (0 if m=1, 1 if
// n=1) followed by the fixed-width serialization of the non-one
// component, padded to the byte length of ℓᵉ.
func (prv *PrivateKey) Export() ([]byte, error) {
	ellPowE := prv.params.EllAPowEa()
	if prv.side == SideB {
		ellPowE = prv.params.EllBPowEb()
	}
	width := ellPowE.ByteLen()

	var tag byte
	var scalar *bigint.Z
	if prv.mIsOne {
		tag = 0
		scalar = prv.n
	} else {
		tag = 1
		scalar = prv.m
	}
	buf, err := scalar.Serialize(width)
	if err != nil {
		return nil, err
	}
	return append([]byte{tag}, buf...), nil
}

// ImportPrivateKey parses the encoding produced by Export, rejecting a
// scalar at or beyond ℓᵉ for this side (a private key with an
// out-of-range component cannot have been produced by
// GeneratePrivateKey and is refused rather than silently accepted).
func ImportPrivateKey(params *Params, side Side, buf []byte) (*PrivateKey, error) {
	if len(buf) < 1 {
		return nil, ErrBadImport
	}
	ellPowE := params.EllAPowEa()
	if side == SideB {
		ellPowE = params.EllBPowEb()
	}
	scalar := bigint.Unserialize(buf[1:])
	if scalar.Cmp(ellPowE) >= 0 {
		return nil, ErrBadImport
	}
	switch buf[0] {
	case 0:
		return &PrivateKey{params: params, side: side, mIsOne: true, m: bigint.NewZ(1), n: scalar}, nil
	case 1:
		return &PrivateKey{params: params, side: side, mIsOne: false, m: scalar, n: bigint.NewZ(1)}, nil
	default:
		return nil, ErrBadImport
	}
}

// PublicKey is the codomain curve E′ and the images P′,Q′ of the
// opposite side's torsion basis.
type PublicKey struct {
	params *Params
	side   Side
	curve  *curve.Curve
	p, q   *curve.Point
}

// Side returns which side generated pub.
func (pub *PublicKey) Side() Side { return pub.side }

// Curve returns the codomain curve E′.
func (pub *PublicKey) Curve() *curve.Curve { return pub.curve }

// Size returns the serialized public-key size, a function only of p:
// |curve| + 2·|point|, where a curve is two field elements (4|p|
// bytes) and a point is a tag byte plus two field elements, giving
// 12|p|+2 bytes in total.
func (pub *PublicKey) Size() int {
	byteLen := pub.params.M.ByteLen()
	return 12*byteLen + 2
}

// Export serializes pub as curve || P′ || Q′.
func (pub *PublicKey) Export() ([]byte, error) {
	cBytes, err := pub.curve.Serialize()
	if err != nil {
		return nil, err
	}
	pBytes, err := pub.p.Serialize()
	if err != nil {
		return nil, err
	}
	qBytes, err := pub.q.Serialize()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(cBytes)+len(pBytes)+len(qBytes))
	out = append(out, cBytes...)
	out = append(out, pBytes...)
	out = append(out, qBytes...)
	return out, nil
}

// ImportPublicKey parses the curve||P′||Q′ encoding produced by
// Export.
func ImportPublicKey(params *Params, side Side, buf []byte) (*PublicKey, error) {
	m := params.M
	elemLen := 2 * m.ByteLen()
	curveLen := 2 * elemLen
	pointLen := 1 + 2*elemLen
	if len(buf) != curveLen+2*pointLen {
		return nil, ErrBadImport
	}
	c, err := curve.UnserializeCurve(m, buf[:curveLen])
	if err != nil {
		return nil, err
	}
	p, err := curve.UnserializePoint(c, buf[curveLen:curveLen+pointLen])
	if err != nil {
		return nil, err
	}
	q, err := curve.UnserializePoint(c, buf[curveLen+pointLen:])
	if err != nil {
		return nil, err
	}
	return &PublicKey{params: params, side: side, curve: c, p: p, q: q}, nil
}
