// Package gf implements arithmetic in GF(p²), the quadratic extension
// field a+b·i with i²=-1, valid whenever the modulus p is prime and
// p ≡ 3 (mod 4). It is the field the Weierstrass curve (pkg/curve)
// and isogeny engine (pkg/isogeny) are built over.
package gf

import (
	"errors"

	"github.com/elkablo/pqc-go/pkg/bigint"
)

// Errors returned by field operations.
var (
	// ErrModulusMismatch is returned when an operation mixes elements
	// from two different moduli.
	ErrModulusMismatch = errors.New("gf: elements belong to different moduli")

	// ErrNotSquare is returned by Sqrt when the caller failed to check
	// IsSquare first: Sqrt assumes its argument is a square and the
	// contract is the caller's responsibility, but we still surface a
	// sentinel instead of returning garbage silently.
	ErrNotSquare = errors.New("gf: argument is not a square")
)

// Modulus holds the prime p shared by a family of field elements. p
// must be prime and ≡ 3 (mod 4); violating this is fatal, since that
// condition is never supposed to arise from peer input.
type Modulus struct {
	p       *bigint.Z
	byteLen int
}

// NewModulus builds a Modulus, panicking if p is not an acceptable
// SIDH prime: callers should validate configuration once at startup,
// not per message.
func NewModulus(p *bigint.Z) *Modulus {
	three := bigint.NewZ(3)
	four := bigint.NewZ(4)
	if p.Mod(four).Cmp(three) != 0 {
		panic("gf: modulus must be ≡ 3 (mod 4)")
	}
	if !p.IsProbablyPrime(40) {
		panic("gf: modulus must be prime")
	}
	return &Modulus{p: p.Clone(), byteLen: p.ByteLen()}
}

// P returns the prime modulus.
func (m *Modulus) P() *bigint.Z { return m.p }

// ByteLen returns ⌈bitlen(p)/8⌉, the per-coordinate serialization
// width used throughout GF element and curve-point encoding.
func (m *Modulus) ByteLen() int { return m.byteLen }

// Element is a+b·i, i²=-1, with a,b reduced into [0,p).
type Element struct {
	m    *Modulus
	a, b *bigint.Z
}

// Zero returns the additive identity of m.
func Zero(m *Modulus) *Element {
	return &Element{m: m, a: bigint.NewZ(0), b: bigint.NewZ(0)}
}

// One returns the multiplicative identity of m.
func One(m *Modulus) *Element {
	return &Element{m: m, a: bigint.NewZ(1), b: bigint.NewZ(0)}
}

// New builds the element a+b·i, reducing a and b mod p.
func New(m *Modulus, a, b *bigint.Z) *Element {
	return &Element{m: m, a: a.Mod(m.p), b: b.Mod(m.p)}
}

// Modulus returns the element's modulus.
func (e *Element) Modulus() *Modulus { return e.m }

// A returns the real coordinate.
func (e *Element) A() *bigint.Z { return e.a }

// B returns the imaginary coordinate.
func (e *Element) B() *bigint.Z { return e.b }

// IsZero reports whether e is the additive identity.
func (e *Element) IsZero() bool { return e.a.IsZero() && e.b.IsZero() }

// Equal compares two elements: same modulus identity and both
// coordinates equal.
func (e *Element) Equal(o *Element) bool {
	return e.m == o.m && e.a.Cmp(o.a) == 0 && e.b.Cmp(o.b) == 0
}

// Less gives a lexicographic order on (b,a), used only for the
// deterministic tie-break in Sqrt.
func (e *Element) Less(o *Element) bool {
	if c := e.b.Cmp(o.b); c != 0 {
		return c < 0
	}
	return e.a.Cmp(o.a) < 0
}

func (e *Element) checkSameModulus(o *Element) {
	if e.m != o.m {
		panic(ErrModulusMismatch)
	}
}

// Add returns e+o.
func (e *Element) Add(o *Element) *Element {
	e.checkSameModulus(o)
	return &Element{m: e.m, a: e.a.Add(o.a).Mod(e.m.p), b: e.b.Add(o.b).Mod(e.m.p)}
}

// Sub returns e-o.
func (e *Element) Sub(o *Element) *Element {
	e.checkSameModulus(o)
	return &Element{m: e.m, a: e.a.Sub(o.a).Mod(e.m.p), b: e.b.Sub(o.b).Mod(e.m.p)}
}

// Neg returns -e.
func (e *Element) Neg() *Element {
	return &Element{m: e.m, a: e.a.Neg().Mod(e.m.p), b: e.b.Neg().Mod(e.m.p)}
}

// Mul returns e*o, computed with the three-multiplication Karatsuba
// trick: for e=a+bi, o=c+di,
//
//	T = (a-b)(c+d), X = a*d, Y = b*c
//	re = T - X + Y, im = X + Y
//
// This costs 3 big-integer multiplications instead of the schoolbook
// 4, which matters because p is arbitrarily large (delegated entirely
// to pkg/bigint, never assumed to fit a machine word).
func (e *Element) Mul(o *Element) *Element {
	e.checkSameModulus(o)
	p := e.m.p
	t := e.a.Sub(e.b).Mul(o.a.Add(o.b))
	x := e.a.Mul(o.b)
	y := e.b.Mul(o.a)
	re := t.Sub(x).Add(y).Mod(p)
	im := x.Add(y).Mod(p)
	return &Element{m: e.m, a: re, b: im}
}

// Square returns e², using im=2ab, re=(a+b)(a-b).
func (e *Element) Square() *Element {
	p := e.m.p
	im := e.a.Mul(e.b).Mul(bigint.NewZ(2)).Mod(p)
	re := e.a.Add(e.b).Mul(e.a.Sub(e.b)).Mod(p)
	return &Element{m: e.m, a: re, b: im}
}

// Inverse returns e⁻¹ = (a-bi)/(a²+b²). If e is zero or otherwise not
// invertible, Inverse returns the zero element and false as a
// sentinel/failure pair rather than panicking.
func (e *Element) Inverse() (*Element, bool) {
	p := e.m.p
	norm := e.a.Mul(e.a).Add(e.b.Mul(e.b)).Mod(p)
	normInv := norm.ModInverse(p)
	if normInv == nil || norm.IsZero() {
		return Zero(e.m), false
	}
	re := e.a.Mul(normInv).Mod(p)
	im := e.b.Neg().Mul(normInv).Mod(p)
	return &Element{m: e.m, a: re, b: im}, true
}

// Pow returns e^n mod the field, for non-negative n, by repeated
// squaring over the two coordinate pairs (there is no shortcut for
// GF(p²) exponentiation beyond iterating Mul/Square).
func (e *Element) Pow(n *bigint.Z) *Element {
	result := One(e.m)
	base := e
	bits := n.BitLen()
	for i := 0; i < bits; i++ {
		if n.Bit(i) == 1 {
			result = result.Mul(base)
		}
		base = base.Square()
	}
	return result
}

// IsSquare tests whether e is a square in GF(p²) via
// e^((p²-1)/2) == 1.
func (e *Element) IsSquare() bool {
	if e.IsZero() {
		return true
	}
	p := e.m.p
	pSq := p.Mul(p)
	one := bigint.NewZ(1)
	two := bigint.NewZ(2)
	exp := pSq.Sub(one).Div(two)
	r := e.Pow(exp)
	return r.Equal(One(e.m)) && !r.IsZero()
}

// Sqrt solves y² = e for e = c+di, assuming the caller already checked
// IsSquare(). It sets a²=(c±√(c²+d²))/2 choosing the sign so the
// result is itself a square in the base field, then b=d/(2a). If a
// happens to be zero (d is also zero, i.e. e is purely real), the
// degenerate real-field square root is used instead.
func (e *Element) Sqrt() (*Element, error) {
	p := e.m.p
	c, d := e.a, e.b

	if d.IsZero() {
		// e is purely real: sqrt reduces to the base-field case,
		// √c if c is a QR mod p, else √(c) lives purely in the
		// imaginary part: i*√(-c).
		if c.IsSquareModP(p) {
			r, err := c.ModSqrt(p)
			if err != nil {
				return nil, ErrNotSquare
			}
			return &Element{m: e.m, a: r.Mod(p), b: bigint.NewZ(0)}, nil
		}
		negC := c.Neg().Mod(p)
		if !negC.IsSquareModP(p) {
			return nil, ErrNotSquare
		}
		r, err := negC.ModSqrt(p)
		if err != nil {
			return nil, ErrNotSquare
		}
		return &Element{m: e.m, a: bigint.NewZ(0), b: r.Mod(p)}, nil
	}

	// delta = sqrt(c^2+d^2) mod p
	delta := c.Mul(c).Add(d.Mul(d)).Mod(p)
	if !delta.IsSquareModP(p) {
		return nil, ErrNotSquare
	}
	sqrtDelta, err := delta.ModSqrt(p)
	if err != nil {
		return nil, ErrNotSquare
	}

	two := bigint.NewZ(2)
	twoInv := two.ModInverse(p)

	// Try both signs of delta and take whichever yields a square a².
	for _, sign := range [2]int{1, -1} {
		var signedDelta *bigint.Z
		if sign == 1 {
			signedDelta = sqrtDelta
		} else {
			signedDelta = sqrtDelta.Neg()
		}
		aSq := c.Add(signedDelta).Mul(twoInv).Mod(p)
		if !aSq.IsSquareModP(p) {
			continue
		}
		a, err := aSq.ModSqrt(p)
		if err != nil || a.IsZero() {
			continue
		}
		aInv := a.ModInverse(p)
		if aInv == nil {
			continue
		}
		b := d.Mul(twoInv).Mul(aInv).Mod(p)
		cand := &Element{m: e.m, a: a.Mod(p), b: b}
		check := cand.Mul(cand)
		if check.Equal(&Element{m: e.m, a: c.Mod(p), b: d.Mod(p)}) {
			return cand, nil
		}
	}
	return nil, ErrNotSquare
}

// Serialize returns a 2·m.ByteLen()-byte little-endian encoding: the
// a coordinate followed by the b coordinate, each m.ByteLen() bytes.
func (e *Element) Serialize() ([]byte, error) {
	n := e.m.ByteLen()
	aBytes, err := e.a.Serialize(n)
	if err != nil {
		return nil, err
	}
	bBytes, err := e.b.Serialize(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 2*n)
	copy(out[:n], aBytes)
	copy(out[n:], bBytes)
	return out, nil
}

// Unserialize parses a 2·m.ByteLen()-byte buffer produced by
// Serialize into an element.
func Unserialize(m *Modulus, buf []byte) (*Element, error) {
	n := m.ByteLen()
	if len(buf) != 2*n {
		return nil, errors.New("gf: wrong buffer length for element")
	}
	a := bigint.Unserialize(buf[:n])
	b := bigint.Unserialize(buf[n:])
	return New(m, a, b), nil
}
