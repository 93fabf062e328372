package curve

import (
	"errors"
	"io"

	"github.com/elkablo/pqc-go/pkg/bigint"
	"github.com/elkablo/pqc-go/pkg/gf"
)

// Line evaluates at Q the equation of the line through P and R on the
// curve (the tangent if P=R):
//
//   - 1 if Q is the identity, or both P and R are the identity
//   - the vertical line through whichever of P,R is affine if P=-R, or
//     P is the identity, or R is the identity
//   - the standard secant/tangent expression otherwise
func Line(p, r, q *Point) *gf.Element {
	c := q.curve
	one := gf.One(c.m)

	if q.identity {
		return one
	}
	if p.identity && r.identity {
		// Miller's loop reaches V=O on its last step; the vertical
		// line at O is the constant 1.
		return one
	}
	if p.identity || r.identity || p.Equal(r.Neg()) {
		return q.x.Sub(chooseNonIdentityX(p, r))
	}

	if p.Equal(r) {
		three := gf.New(c.m, bigint.NewZ(3), bigint.NewZ(0))
		two := gf.New(c.m, bigint.NewZ(2), bigint.NewZ(0))
		num := three.Mul(p.x.Square()).Add(c.a)
		den := two.Mul(p.y)
		denInv, ok := den.Inverse()
		if !ok {
			// p is 2-torsion: tangent degenerates to the vertical line.
			return q.x.Sub(p.x)
		}
		lambda := num.Mul(denInv)
		return q.y.Sub(p.y).Sub(lambda.Mul(q.x.Sub(p.x)))
	}

	den := r.x.Sub(p.x)
	denInv, ok := den.Inverse()
	if !ok {
		return q.x.Sub(p.x)
	}
	lambda := r.y.Sub(p.y).Mul(denInv)
	return q.y.Sub(p.y).Sub(lambda.Mul(q.x.Sub(p.x)))
}

// chooseNonIdentityX picks whichever of p,r is not the identity (used
// by Line's degenerate vertical-line branch; at least one is affine
// there because Line handles P=R=O before reaching it).
func chooseNonIdentityX(p, r *Point) *gf.Element {
	if !p.identity {
		return p.x
	}
	return r.x
}

// MillerLoop computes f_{n,P}(Q) by the classical double-and-add over
// the bit expansion of |n|, accumulating
//
//	t <- t² * (line(V,V,Q) / line(2V,-2V,Q))
//
// and, on set bits, additionally
//
//	t <- t * (line(V,P,Q) / line(V+P,-(V+P),Q))
//
// If n<0 the result is inverted.
func MillerLoop(n *bigint.Z, p, q *Point) (*gf.Element, error) {
	absN := n
	neg := n.Sign() < 0
	if neg {
		absN = n.Neg()
	}
	bits := absN.BitLen()
	if bits == 0 {
		return gf.One(q.curve.m), nil
	}

	t := gf.One(q.curve.m)
	v := p
	for i := bits - 2; i >= 0; i-- {
		v2 := v.Double()
		num := Line(v, v, q)
		den := Line(v2, v2.Neg(), q)
		denInv, ok := den.Inverse()
		if !ok {
			return nil, errors.New("curve: degenerate miller loop (zero denominator)")
		}
		t = t.Square().Mul(num).Mul(denInv)
		v = v2

		if absN.Bit(i) == 1 {
			vp := v.Add(p)
			num := Line(v, p, q)
			den := Line(vp, vp.Neg(), q)
			denInv, ok := den.Inverse()
			if !ok {
				return nil, errors.New("curve: degenerate miller loop (zero denominator)")
			}
			t = t.Mul(num).Mul(denInv)
			v = vp
		}
	}

	if neg {
		line := Line(v, v.Neg(), q)
		inv, ok := line.Inverse()
		if !ok {
			return nil, errors.New("curve: degenerate miller loop (zero denominator)")
		}
		t = t.Mul(inv)
		inv, ok = t.Inverse()
		if !ok {
			return nil, errors.New("curve: non-invertible miller loop result")
		}
		return inv, nil
	}
	return t, nil
}

// WeilPairing computes e_n(P,Q) using Miller's algorithm twice:
// numerator = f_{n,P}(Q), negated iff n is odd; denominator =
// f_{n,Q}(P); result = numerator/denominator. Returns 1 if either
// input is the identity, P equals Q, or P and Q are not both
// n-torsion.
func WeilPairing(n *bigint.Z, p, q *Point) (*gf.Element, error) {
	m := p.curve.m
	one := gf.One(m)

	if p.IsIdentity() || q.IsIdentity() || p.Equal(q) {
		return one, nil
	}
	if np, err := p.ScalarMul(n); err != nil || !np.IsIdentity() {
		return one, nil
	}
	if nq, err := q.ScalarMul(n); err != nil || !nq.IsIdentity() {
		return one, nil
	}

	fpq, err := MillerLoop(n, p, q)
	if err != nil {
		return nil, err
	}
	fqp, err := MillerLoop(n, q, p)
	if err != nil {
		return nil, err
	}
	if n.Bit(0) == 1 {
		fpq = fpq.Neg()
	}
	fqpInv, ok := fqp.Inverse()
	if !ok {
		return nil, errors.New("curve: degenerate weil pairing (zero denominator)")
	}
	return fpq.Mul(fqpInv), nil
}

// RandomPoint samples a uniformly random affine point on c: repeatedly
// drawing x from GF(p²) until x³+Ax+B is a square, then taking a
// square root with a random sign choice for y.
func RandomPoint(reader io.Reader, c *Curve) (*Point, error) {
	m := c.m
	p := m.P()
	for {
		aCoord, err := bigint.RandomBelow(reader, p)
		if err != nil {
			return nil, err
		}
		bCoord, err := bigint.RandomBelow(reader, p)
		if err != nil {
			return nil, err
		}
		x := gf.New(m, aCoord, bCoord)
		rhs := x.Square().Mul(x).Add(c.a.Mul(x)).Add(c.b)
		if !rhs.IsSquare() {
			continue
		}
		y, err := rhs.Sqrt()
		if err != nil {
			continue
		}
		sign, err := bigint.RandomBelow(reader, bigint.NewZ(2))
		if err != nil {
			return nil, err
		}
		if sign.Int64() == 1 {
			y = y.Neg()
		}
		return NewAffine(c, x, y), nil
	}
}

// TorsionBasis samples a basis (P,Q) for the ℓ^a-torsion subgroup of
// c: random curve points are cofactor-multiplied into the subgroup
// (accepted when multiplication by ℓ^(a-1) is non-identity), then
// checked for independence via e_{ℓ^a}(P,Q)^(ℓ^(a-1)) != 1.
func TorsionBasis(reader io.Reader, c *Curve, l *bigint.Z, a int, cofactor *bigint.Z) (p, q *Point, err error) {
	ellA := bigint.NewZ(1)
	for i := 0; i < a; i++ {
		ellA = ellA.Mul(l)
	}
	ellAminus1 := bigint.NewZ(1)
	for i := 0; i < a-1; i++ {
		ellAminus1 = ellAminus1.Mul(l)
	}

	samplePoint := func() (*Point, error) {
		for {
			rp, err := RandomPoint(reader, c)
			if err != nil {
				return nil, err
			}
			cand, err := rp.ScalarMul(cofactor)
			if err != nil {
				return nil, err
			}
			check, err := cand.ScalarMul(ellAminus1)
			if err != nil {
				return nil, err
			}
			if !check.IsIdentity() {
				return cand, nil
			}
		}
	}

	for {
		pp, err := samplePoint()
		if err != nil {
			return nil, nil, err
		}
		qq, err := samplePoint()
		if err != nil {
			return nil, nil, err
		}
		pairing, err := WeilPairing(ellA, pp, qq)
		if err != nil {
			return nil, nil, err
		}
		indep := pairing.Pow(ellAminus1)
		if indep.Equal(gf.One(c.m)) {
			continue
		}
		return pp, qq, nil
	}
}
