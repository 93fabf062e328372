// Package isogeny implements Vélu-style degree-2 and degree-3
// isogenies between short Weierstrass curves, and the composite
// isogeny (degree ℓᵉ) built by chaining them along a balanced
// "strategy" traversal, the way a Go SIDH/SIKE port walks its
// isogeny tree with an explicit stack instead of recursion.
package isogeny

import (
	"errors"

	"github.com/elkablo/pqc-go/pkg/bigint"
	"github.com/elkablo/pqc-go/pkg/curve"
	"github.com/elkablo/pqc-go/pkg/gf"
)

// ErrShortStrategy is returned when a strategy array is shorter than
// e+1 entries.
var ErrShortStrategy = errors.New("isogeny: strategy array shorter than e+1")

// ErrBadStrategyBase is returned when strategy[1] != 1, violating the
// base-case invariant.
var ErrBadStrategyBase = errors.New("isogeny: strategy[1] must equal 1")

// Small is a degree-ℓ isogeny (E, E′, G, ℓ) with ℓ∈{2,3}: the
// codomain E′ is derived from E and the kernel generator G by the
// closed-form Vélu formulas.
type Small struct {
	domain   *curve.Curve
	codomain *curve.Curve
	g        *curve.Point
	degree   int
}

// NewSmall builds the degree-2 or degree-3 isogeny with kernel
// generator g on domain, computing its codomain via the closed-form
// formulas:
//
//	ℓ=2: s=x(G); t = A+3s²;           w = 2B+3A·s+5s³
//	ℓ=3: s=2·x(G); s2=x(G)²; ss=4·s2;
//	     t = 2A + 3·(ss-2·s2);        w = 4B + 3A·s + 5·(ss·s-3·s·s2)
//	E′ = (A-5t, B-7w)
//
// Degrees beyond 3 are out of scope for this core.
func NewSmall(domain *curve.Curve, g *curve.Point, degree int) (*Small, error) {
	if degree != 2 && degree != 3 {
		return nil, errors.New("isogeny: only degree 2 and 3 small isogenies are supported")
	}
	if g.IsIdentity() {
		return nil, errors.New("isogeny: kernel generator is the identity")
	}
	m := domain.Modulus()
	a := domain.A()
	b := domain.B()

	z2 := func(n int64) *gf.Element { return gf.New(m, bigint.NewZ(n), bigint.NewZ(0)) }

	var t, w *gf.Element
	switch degree {
	case 2:
		// s = x(G); t = A+3s²; w = 2B+3As+5s³.
		s := g.X()
		t = a.Add(z2(3).Mul(s.Square()))
		w = z2(2).Mul(b).Add(z2(3).Mul(a).Mul(s)).Add(z2(5).Mul(s.Square()).Mul(s))
	case 3:
		// s=2x(G), s2=x(G)², ss=4s2 (=s²):
		// t = A(ℓ-1)+3(ss-2s2), w = 2B(ℓ-1)+3As+5(ss*s-3s*s2).
		s := z2(2).Mul(g.X())
		s2 := g.X().Square()
		ss := z2(4).Mul(s2)
		lMinus1 := z2(int64(degree - 1))
		t = a.Mul(lMinus1).Add(z2(3).Mul(ss.Sub(z2(2).Mul(s2))))
		w = z2(2).Mul(b).Mul(lMinus1).Add(z2(3).Mul(a).Mul(s)).Add(z2(5).Mul(ss.Mul(s).Sub(z2(3).Mul(s).Mul(s2))))
	}

	newA := a.Sub(z2(5).Mul(t))
	newB := b.Sub(z2(7).Mul(w))
	codomain := curve.NewCurve(m, newA, newB)

	return &Small{domain: domain, codomain: codomain, g: g, degree: degree}, nil
}

// Domain returns the curve the isogeny maps from.
func (s *Small) Domain() *curve.Curve { return s.domain }

// Codomain returns the curve the isogeny maps to.
func (s *Small) Codomain() *curve.Curve { return s.codomain }

// Degree returns the isogeny's degree (2 or 3).
func (s *Small) Degree() int { return s.degree }

// Generator returns the kernel generator G on the domain curve.
func (s *Small) Generator() *curve.Point { return s.g }

// Eval evaluates φ(P) using Vélu's sum: for each nontrivial multiple
// kG of G (k=1..ℓ-1), accumulate (x(P+kG)-x(kG), y(P+kG)-y(kG)) into
// (Δx,Δy) and return (x(P)+Δx, y(P)+Δy) on E′. The identity maps to
// the identity.
func (s *Small) Eval(p *curve.Point) (*curve.Point, error) {
	if p.IsIdentity() {
		return curve.Identity(s.codomain), nil
	}

	m := s.domain.Modulus()
	dx := gf.Zero(m)
	dy := gf.Zero(m)

	kg := s.g
	for k := 1; k < s.degree; k++ {
		sum := p.Add(kg)
		if sum.IsIdentity() {
			// P lies in the kernel: maps to the identity.
			return curve.Identity(s.codomain), nil
		}
		dx = dx.Add(sum.X().Sub(kg.X()))
		dy = dy.Add(sum.Y().Sub(kg.Y()))
		kg = kg.Add(s.g)
	}

	x := p.X().Add(dx)
	y := p.Y().Add(dy)
	return curve.NewAffine(s.codomain, x, y), nil
}
