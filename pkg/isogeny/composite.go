package isogeny

import (
	"github.com/elkablo/pqc-go/pkg/bigint"
	"github.com/elkablo/pqc-go/pkg/curve"
)

// Composite is a chain of e small degree-ℓ isogenies φ₀,…,φ_{e-1}
// whose composition has degree ℓᵉ. Evaluation of a
// point is the left-to-right composition of the small φᵢ; the image
// of the last isogeny is the final codomain curve, the only curve
// subsequent public-key users see.
type Composite struct {
	degree int // ℓ
	steps  []*Small
}

// Degree returns the small-isogeny degree ℓ shared by every step.
func (c *Composite) Degree() int { return c.degree }

// Steps returns the e small isogenies in construction order.
func (c *Composite) Steps() []*Small { return c.steps }

// Codomain returns the final codomain curve: the image of the last
// small isogeny, the only curve a public key exposes.
func (c *Composite) Codomain() *curve.Curve {
	return c.steps[len(c.steps)-1].Codomain()
}

// Eval evaluates the composite isogeny at p by composing each small
// step's Eval left-to-right.
func (c *Composite) Eval(p *curve.Point) (*curve.Point, error) {
	cur := p
	for _, step := range c.steps {
		var err error
		cur, err = step.Eval(cur)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// ellPow returns ℓ^n as a bigint.Z.
func ellPow(ell int64, n int) *bigint.Z {
	r := bigint.NewZ(1)
	l := bigint.NewZ(ell)
	for i := 0; i < n; i++ {
		r = r.Mul(l)
	}
	return r
}

// NewCompositeNaive builds the composite ℓᵉ-isogeny from a generator g
// of order ℓᵉ on domain using the naive O(e²) construction: for
// i=0..e-1, use as the degree-ℓ kernel generator the point
// [ℓ^(e-i-1)]·R where R starts as g and is replaced after each step
// by φᵢ(R).
func NewCompositeNaive(domain *curve.Curve, g *curve.Point, ell int64, e int, degree int) (*Composite, error) {
	steps := make([]*Small, 0, e)
	cur := domain
	r := g
	for i := 0; i < e; i++ {
		kernelGen, err := r.ScalarMul(ellPow(ell, e-i-1))
		if err != nil {
			return nil, err
		}
		step, err := NewSmall(cur, kernelGen, degree)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
		r, err = step.Eval(r)
		if err != nil {
			return nil, err
		}
		cur = step.Codomain()
	}
	return &Composite{degree: degree, steps: steps}, nil
}

// strategyFrame is a (point, height) pair held on the construction
// stack, mirroring the SIDH strategy-tree traversal's explicit stack
// of partially-pushed isogeny images.
type strategyFrame struct {
	r *curve.Point
	h int
}

// NewCompositeStrategy builds the composite ℓᵉ-isogeny using a
// strategy array: strategy[h] for h∈[1..e] gives a split s∈[1..h-1].
// strategy[0] is unused and strategy[1] must equal 1 (the base case:
// a single small isogeny). The traversal keeps a stack of (R,h) pairs
// and, on encountering h=1, builds a small isogeny from R on the
// current curve and pushes φ(R′) for every surviving stack entry
// while decrementing their h. This costs O(e log e) scalar
// multiplications and isogeny evaluations, versus the naive
// construction's O(e²).
func NewCompositeStrategy(domain *curve.Curve, g *curve.Point, ell int64, e int, degree int, strategy []int) (*Composite, error) {
	if len(strategy) < e+1 {
		return nil, ErrShortStrategy
	}
	if e >= 1 && strategy[1] != 1 {
		return nil, ErrBadStrategyBase
	}

	steps := make([]*Small, 0, e)
	cur := domain

	stack := []strategyFrame{{r: g, h: e}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.h == 1 {
			step, err := NewSmall(cur, top.r, degree)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
			cur = step.Codomain()

			for i := range stack {
				newR, err := step.Eval(stack[i].r)
				if err != nil {
					return nil, err
				}
				stack[i].r = newR
				stack[i].h--
			}
			continue
		}

		s := strategy[top.h]
		rPrime, err := top.r.ScalarMul(ellPow(ell, top.h-s))
		if err != nil {
			return nil, err
		}
		// Push (R,h) back unchanged, then (R',s) on top: the s-subtree
		// is processed first (LIFO), and each small isogeny it builds
		// decrements every surviving frame's h — including this one —
		// so (R,h) organically becomes (R,h-s) with R carried through
		// the s-subtree's composed isogeny by the time it resurfaces.
		stack = append(stack, strategyFrame{r: top.r, h: top.h})
		stack = append(stack, strategyFrame{r: rPrime, h: s})
	}

	return &Composite{degree: degree, steps: steps}, nil
}
