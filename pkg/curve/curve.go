// Package curve implements short Weierstrass curves y²=x³+Ax+B over
// GF(p²) and their affine points: addition, doubling, Montgomery-ladder
// scalar multiplication, the ψ endomorphism, line functions, Miller's
// loop and the Weil pairing, and torsion-basis generation. Curves are
// the domain the isogeny engine (pkg/isogeny) and SIDH layer (pkg/sidh)
// walk.
package curve

import (
	"errors"

	"github.com/elkablo/pqc-go/pkg/bigint"
	"github.com/elkablo/pqc-go/pkg/gf"
)

// Errors returned by curve and point operations.
var (
	// ErrBadTag is returned by point deserialization when the leading
	// tag byte is neither 0 (identity) nor 1 (affine).
	ErrBadTag = errors.New("curve: invalid point tag")

	// ErrNegativeScalar is returned by ScalarMul: the ladder only
	// supports non-negative scalars, callers must reduce negative
	// ones themselves.
	ErrNegativeScalar = errors.New("curve: negative scalar not supported")
)

// Curve is the short Weierstrass curve y²=x³+Ax+B over GF(p²). Curves
// are shared by many points and isogenies: *Curve is an ordinary
// pointer the garbage collector keeps alive for as long as any Point
// references it.
type Curve struct {
	m    *gf.Modulus
	a, b *gf.Element
}

// NewCurve builds the curve y²=x³+Ax+B.
func NewCurve(m *gf.Modulus, a, b *gf.Element) *Curve {
	return &Curve{m: m, a: a, b: b}
}

// Modulus returns the underlying GF(p²) modulus.
func (c *Curve) Modulus() *gf.Modulus { return c.m }

// A returns the curve's A coefficient.
func (c *Curve) A() *gf.Element { return c.a }

// B returns the curve's B coefficient.
func (c *Curve) B() *gf.Element { return c.b }

// JInvariant computes j(E) = 1728 * 4A³ / (4A³+27B²).
func (c *Curve) JInvariant() (*gf.Element, error) {
	four := gf.New(c.m, bigint.NewZ(4), bigint.NewZ(0))
	twentySeven := gf.New(c.m, bigint.NewZ(27), bigint.NewZ(0))
	c1728 := gf.New(c.m, bigint.NewZ(1728), bigint.NewZ(0))

	a3 := c.a.Square().Mul(c.a)
	num := four.Mul(a3).Mul(c1728)
	denomA := four.Mul(a3)
	denomB := twentySeven.Mul(c.b.Square())
	denom := denomA.Add(denomB)
	inv, ok := denom.Inverse()
	if !ok {
		return nil, errors.New("curve: singular curve, 4A^3+27B^2=0")
	}
	return num.Mul(inv), nil
}

// Serialize encodes the curve as A_bytes || B_bytes.
func (c *Curve) Serialize() ([]byte, error) {
	aBytes, err := c.a.Serialize()
	if err != nil {
		return nil, err
	}
	bBytes, err := c.b.Serialize()
	if err != nil {
		return nil, err
	}
	return append(aBytes, bBytes...), nil
}

// UnserializeCurve parses an A_bytes||B_bytes buffer into a curve over m.
func UnserializeCurve(m *gf.Modulus, buf []byte) (*Curve, error) {
	elemLen := 2 * m.ByteLen()
	if len(buf) != 2*elemLen {
		return nil, errors.New("curve: wrong buffer length for curve")
	}
	a, err := gf.Unserialize(m, buf[:elemLen])
	if err != nil {
		return nil, err
	}
	b, err := gf.Unserialize(m, buf[elemLen:])
	if err != nil {
		return nil, err
	}
	return NewCurve(m, a, b), nil
}

// Point is a point on a Curve: either the identity, or an affine pair
// (x,y) satisfying y²=x³+Ax+B (not checked at construction).
type Point struct {
	curve    *Curve
	identity bool
	x, y     *gf.Element
}

// Identity returns the point at infinity on c.
func Identity(c *Curve) *Point {
	return &Point{curve: c, identity: true}
}

// NewAffine builds the affine point (x,y) on c.
func NewAffine(c *Curve, x, y *gf.Element) *Point {
	return &Point{curve: c, x: x, y: y}
}

// Curve returns the curve p lies on.
func (p *Point) Curve() *Curve { return p.curve }

// IsIdentity reports whether p is the point at infinity.
func (p *Point) IsIdentity() bool { return p.identity }

// X returns the affine x-coordinate; undefined for the identity.
func (p *Point) X() *gf.Element { return p.x }

// Y returns the affine y-coordinate; undefined for the identity.
func (p *Point) Y() *gf.Element { return p.y }

// Equal reports whether p and o represent the same point, treating
// the identity as a unique element.
func (p *Point) Equal(o *Point) bool {
	if p.identity || o.identity {
		return p.identity == o.identity
	}
	return p.x.Equal(o.x) && p.y.Equal(o.y)
}

// Neg returns -p.
func (p *Point) Neg() *Point {
	if p.identity {
		return p
	}
	return &Point{curve: p.curve, x: p.x, y: p.y.Neg()}
}

// Add returns p+o using the standard short-Weierstrass affine
// formulas, with doubling as the x1=x2 branch.
func (p *Point) Add(o *Point) *Point {
	if p.identity {
		return o
	}
	if o.identity {
		return p
	}
	if p.x.Equal(o.x) {
		if p.y.Equal(o.y.Neg()) || p.y.IsZero() {
			return Identity(p.curve)
		}
		return p.double()
	}

	num := o.y.Sub(p.y)
	den := o.x.Sub(p.x)
	denInv, ok := den.Inverse()
	if !ok {
		return Identity(p.curve)
	}
	lambda := num.Mul(denInv)

	x3 := lambda.Square().Sub(p.x).Sub(o.x)
	y3 := lambda.Mul(p.x.Sub(x3)).Sub(p.y)
	return &Point{curve: p.curve, x: x3, y: y3}
}

// double returns 2p for an affine, non-2-torsion p, using slope
// λ=(3x²+A)/(2y).
func (p *Point) double() *Point {
	c := p.curve
	three := gf.New(c.m, bigint.NewZ(3), bigint.NewZ(0))
	two := gf.New(c.m, bigint.NewZ(2), bigint.NewZ(0))

	num := three.Mul(p.x.Square()).Add(c.a)
	den := two.Mul(p.y)
	denInv, ok := den.Inverse()
	if !ok {
		return Identity(c)
	}
	lambda := num.Mul(denInv)

	x3 := lambda.Square().Sub(p.x).Sub(p.x)
	y3 := lambda.Mul(p.x.Sub(x3)).Sub(p.y)
	return &Point{curve: c, x: x3, y: y3}
}

// Double returns 2p.
func (p *Point) Double() *Point {
	if p.identity || p.y.IsZero() {
		return Identity(p.curve)
	}
	return p.double()
}

// ScalarMul returns n*p via a constant-direction Montgomery ladder
// over the MSB-first bit expansion of n: starting with (R0,R1) =
// (O, p), at each bit performing a conditional swap then two
// additions. Negative n is rejected; callers must
// reduce scalars themselves.
func (p *Point) ScalarMul(n *bigint.Z) (*Point, error) {
	if n.Sign() < 0 {
		return nil, ErrNegativeScalar
	}
	bits := n.BitLen()
	if bits == 0 {
		return Identity(p.curve), nil
	}
	r0 := Identity(p.curve)
	r1 := p
	for i := bits - 1; i >= 0; i-- {
		if n.Bit(i) == 0 {
			r1 = r0.Add(r1)
			r0 = r0.Double()
		} else {
			r0 = r0.Add(r1)
			r1 = r1.Double()
		}
	}
	return r0, nil
}

// Psi applies the ψ endomorphism (x,y) -> (-x, y*i), available when
// the curve's base field has i=sqrt(-1), i.e. p ≡ 3 (mod 4).
func (p *Point) Psi() *Point {
	if p.identity {
		return p
	}
	c := p.curve
	i := gf.New(c.m, bigint.NewZ(0), bigint.NewZ(1))
	return &Point{curve: c, x: p.x.Neg(), y: p.y.Mul(i)}
}

// Serialize encodes p as one tag byte (0 identity, 1 affine) followed
// by the two GF(p²) coordinate serializations.
func (p *Point) Serialize() ([]byte, error) {
	if p.identity {
		elemLen := 2 * p.curve.m.ByteLen()
		return append([]byte{0}, make([]byte, 2*elemLen)...), nil
	}
	xBytes, err := p.x.Serialize()
	if err != nil {
		return nil, err
	}
	yBytes, err := p.y.Serialize()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+len(xBytes)+len(yBytes))
	out = append(out, 1)
	out = append(out, xBytes...)
	out = append(out, yBytes...)
	return out, nil
}

// UnserializePoint parses the tag||x||y encoding produced by
// Serialize. It validates the tag and both coordinates' widths but
// does not check y²=x³+Ax+B.
func UnserializePoint(c *Curve, buf []byte) (*Point, error) {
	elemLen := 2 * c.m.ByteLen()
	if len(buf) != 1+2*elemLen {
		return nil, errors.New("curve: wrong buffer length for point")
	}
	switch buf[0] {
	case 0:
		return Identity(c), nil
	case 1:
		x, err := gf.Unserialize(c.m, buf[1:1+elemLen])
		if err != nil {
			return nil, err
		}
		y, err := gf.Unserialize(c.m, buf[1+elemLen:])
		if err != nil {
			return nil, err
		}
		return NewAffine(c, x, y), nil
	default:
		return nil, ErrBadTag
	}
}
