// Package bigint provides the arbitrary-precision integer facade used
// throughout the isogeny engine. It wraps math/big.Int with the
// fixed-width little-endian serialization and modular helpers the
// rest of the module expects, leaning on math/big for scalar
// arithmetic instead of a hand-rolled bignum.
package bigint

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
)

// Errors returned by Z operations.
var (
	// ErrShortBuffer is returned by Serialize when the requested width
	// cannot hold the value.
	ErrShortBuffer = errors.New("bigint: buffer too short for value")

	// ErrNotQuadraticResidue is returned by ModSqrt when the argument
	// is not a square modulo p.
	ErrNotQuadraticResidue = errors.New("bigint: value is not a square mod p")
)

// Z is a signed arbitrary-precision integer.
type Z struct {
	v big.Int
}

// NewZ wraps an int64 as a Z.
func NewZ(n int64) *Z {
	z := &Z{}
	z.v.SetInt64(n)
	return z
}

// Zero returns a new Z holding 0.
func Zero() *Z { return &Z{} }

// FromBigInt wraps an existing math/big.Int by value (copies it).
func FromBigInt(b *big.Int) *Z {
	z := &Z{}
	z.v.Set(b)
	return z
}

// BigInt returns the underlying math/big.Int. Callers must not mutate
// the returned value; it aliases z's internal state.
func (z *Z) BigInt() *big.Int { return &z.v }

// Clone returns an independent copy of z.
func (z *Z) Clone() *Z {
	out := &Z{}
	out.v.Set(&z.v)
	return out
}

// Add returns z+o as a new Z.
func (z *Z) Add(o *Z) *Z {
	out := &Z{}
	out.v.Add(&z.v, &o.v)
	return out
}

// Sub returns z-o as a new Z.
func (z *Z) Sub(o *Z) *Z {
	out := &Z{}
	out.v.Sub(&z.v, &o.v)
	return out
}

// Mul returns z*o as a new Z.
func (z *Z) Mul(o *Z) *Z {
	out := &Z{}
	out.v.Mul(&z.v, &o.v)
	return out
}

// Div returns the truncated quotient z/o.
func (z *Z) Div(o *Z) *Z {
	out := &Z{}
	out.v.Quo(&z.v, &o.v)
	return out
}

// Rem returns the truncated remainder z%o.
func (z *Z) Rem(o *Z) *Z {
	out := &Z{}
	out.v.Rem(&z.v, &o.v)
	return out
}

// Neg returns -z.
func (z *Z) Neg() *Z {
	out := &Z{}
	out.v.Neg(&z.v)
	return out
}

// Lsh returns z shifted left by n bits.
func (z *Z) Lsh(n uint) *Z {
	out := &Z{}
	out.v.Lsh(&z.v, n)
	return out
}

// Rsh returns z shifted right by n bits.
func (z *Z) Rsh(n uint) *Z {
	out := &Z{}
	out.v.Rsh(&z.v, n)
	return out
}

// Or returns the bitwise OR of z and o. Both must be non-negative.
func (z *Z) Or(o *Z) *Z {
	out := &Z{}
	out.v.Or(&z.v, &o.v)
	return out
}

// And returns the bitwise AND of z and o.
func (z *Z) And(o *Z) *Z {
	out := &Z{}
	out.v.And(&z.v, &o.v)
	return out
}

// Cmp compares z and o: -1, 0, or 1.
func (z *Z) Cmp(o *Z) int { return z.v.Cmp(&o.v) }

// Sign returns -1, 0, or 1 for the sign of z.
func (z *Z) Sign() int { return z.v.Sign() }

// IsZero reports whether z is zero.
func (z *Z) IsZero() bool { return z.v.Sign() == 0 }

// Mod returns z reduced into [0, m) (Euclidean mod, always non-negative
// for positive m, matching the "always reduced into [0, p)" invariant
// that field-element coordinates rely on).
func (z *Z) Mod(m *Z) *Z {
	out := &Z{}
	out.v.Mod(&z.v, &m.v)
	return out
}

// ModInverse returns z^-1 mod m, or nil if z has no inverse mod m (for
// prime m, only z ≡ 0 has no inverse).
func (z *Z) ModInverse(m *Z) *Z {
	out := &Z{}
	r := out.v.ModInverse(&z.v, &m.v)
	if r == nil {
		return nil
	}
	return out
}

// ModPow returns z^e mod m.
func (z *Z) ModPow(e, m *Z) *Z {
	out := &Z{}
	out.v.Exp(&z.v, &e.v, &m.v)
	return out
}

// ModSqrt returns a square root of z modulo p, where p must be prime
// and p ≡ 3 (mod 4): computed directly as z^((p+1)/4) mod p. Callers
// must have already established z is a square mod
// p (e.g. via IsSquareModP); otherwise the candidate root fails the
// check against z and ModSqrt returns nil and ErrNotQuadraticResidue.
func (z *Z) ModSqrt(p *Z) (*Z, error) {
	one := NewZ(1)
	four := NewZ(4)
	exp := p.Add(one).Div(four)
	root := z.ModPow(exp, p)
	check := root.Mul(root).Mod(p)
	if check.Cmp(z.Mod(p)) != 0 {
		return nil, ErrNotQuadraticResidue
	}
	return root, nil
}

// IsSquareModP reports whether z is a quadratic residue modulo the
// prime p, via Euler's criterion: z^((p-1)/2) ≡ 1 (mod p). Zero is
// considered a square.
func (z *Z) IsSquareModP(p *Z) bool {
	zr := z.Mod(p)
	if zr.IsZero() {
		return true
	}
	one := NewZ(1)
	two := NewZ(2)
	exp := p.Sub(one).Div(two)
	r := zr.ModPow(exp, p)
	return r.Cmp(one) == 0
}

// IsProbablyPrime reports whether z passes n rounds of Miller-Rabin
// (delegated to math/big's implementation).
func (z *Z) IsProbablyPrime(n int) bool { return z.v.ProbablyPrime(n) }

// BitLen returns the number of bits required to represent |z|, with
// BitLen(0) == 0.
func (z *Z) BitLen() int { return z.v.BitLen() }

// ByteLen returns the minimum number of bytes required to represent
// |z|, with ByteLen(0) == 0.
func (z *Z) ByteLen() int { return (z.v.BitLen() + 7) / 8 }

// Bit returns the bit at index i (0 = least significant) of |z|.
func (z *Z) Bit(i int) uint { return z.v.Bit(i) }

// Int64 returns the low 64 bits of z interpreted as signed.
func (z *Z) Int64() int64 { return z.v.Int64() }

// Serialize returns a fixed-width, little-endian, unsigned
// representation of z (low byte first). It returns ErrShortBuffer if
// z does not fit in length bytes.
func (z *Z) Serialize(length int) ([]byte, error) {
	if z.v.Sign() < 0 {
		return nil, errors.New("bigint: cannot serialize a negative value")
	}
	if z.ByteLen() > length {
		return nil, ErrShortBuffer
	}
	be := z.v.Bytes() // big-endian, minimal length
	out := make([]byte, length)
	n := len(be)
	for i := 0; i < n; i++ {
		out[i] = be[n-1-i]
	}
	return out, nil
}

// Unserialize parses a little-endian unsigned byte string into a Z:
// shift-then-or accumulation processed from the most-significant
// input byte down to byte 0, so that byte i contributes value
// s[i]·256^i.
func Unserialize(s []byte) *Z {
	z := &Z{}
	for i := len(s) - 1; i >= 0; i-- {
		z.v.Lsh(&z.v, 8)
		var b big.Int
		b.SetUint64(uint64(s[i]))
		z.v.Or(&z.v, &b)
	}
	return z
}

// RandomBelow returns a uniformly random Z in [0, bound), sampled from
// the given entropy source. It delegates to math/big's rejection
// sampler (crypto/rand.Int), the same unbiased rejection technique
// pkg/prng uses for its own small-integer sampling, just operating on
// an arbitrary-width bound.
func RandomBelow(reader io.Reader, bound *Z) (*Z, error) {
	if bound.Sign() <= 0 {
		return nil, errors.New("bigint: bound must be positive")
	}
	r, err := rand.Int(reader, &bound.v)
	if err != nil {
		return nil, err
	}
	return FromBigInt(r), nil
}
