package bigint

import (
	"crypto/rand"
	"testing"
)

func TestSerializeUnserializeRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		value  int64
		width  int
	}{
		{"zero", 0, 4},
		{"one byte", 200, 1},
		{"needs padding", 1, 8},
		{"max width", 255, 1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			z := NewZ(c.value)
			buf, err := z.Serialize(c.width)
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			if len(buf) != c.width {
				t.Fatalf("got %d bytes, want %d", len(buf), c.width)
			}
			got := Unserialize(buf)
			if got.Cmp(z) != 0 {
				t.Fatalf("round trip mismatch: got %v want %v", got.v.String(), c.value)
			}
		})
	}
}

func TestSerializeLittleEndian(t *testing.T) {
	z := NewZ(0x0102)
	buf, err := z.Serialize(2)
	if err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0x02 || buf[1] != 0x01 {
		t.Fatalf("expected little-endian [02 01], got %x", buf)
	}
}

func TestSerializeTooShort(t *testing.T) {
	z := NewZ(1000)
	if _, err := z.Serialize(1); err != ErrShortBuffer {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}
}

func TestModSqrtPlus3Mod4(t *testing.T) {
	// p = 11 is ≡ 3 (mod 4); 4 is a square mod 11 (2^2=4, 9^2=81=4 mod 11).
	p := NewZ(11)
	x := NewZ(4)
	root, err := x.ModSqrt(p)
	if err != nil {
		t.Fatalf("ModSqrt: %v", err)
	}
	sq := root.Mul(root).Mod(p)
	if sq.Cmp(x.Mod(p)) != 0 {
		t.Fatalf("sqrt check failed: root=%v sq=%v", root.v.String(), sq.v.String())
	}
}

func TestModSqrtNonResidue(t *testing.T) {
	p := NewZ(11)
	x := NewZ(2) // 2 is not a QR mod 11
	if _, err := x.ModSqrt(p); err != ErrNotQuadraticResidue {
		t.Fatalf("expected ErrNotQuadraticResidue, got %v", err)
	}
}

func TestIsSquareModP(t *testing.T) {
	p := NewZ(11)
	squares := map[int64]bool{0: true, 1: true, 3: true, 4: true, 5: true, 9: true}
	for v := int64(0); v < 11; v++ {
		want := squares[v]
		got := NewZ(v).IsSquareModP(p)
		if got != want {
			t.Errorf("IsSquareModP(%d) = %v, want %v", v, got, want)
		}
	}
}

func TestModInverse(t *testing.T) {
	p := NewZ(11)
	x := NewZ(7)
	inv := x.ModInverse(p)
	if inv == nil {
		t.Fatal("expected inverse")
	}
	one := x.Mul(inv).Mod(p)
	if one.Cmp(NewZ(1)) != 0 {
		t.Fatalf("x*inv mod p != 1, got %v", one.v.String())
	}
}

func TestModInverseOfZero(t *testing.T) {
	p := NewZ(11)
	if NewZ(0).ModInverse(p) != nil {
		t.Fatal("expected nil inverse for 0")
	}
}

func TestRandomBelow(t *testing.T) {
	bound := NewZ(1000)
	for i := 0; i < 20; i++ {
		r, err := RandomBelow(rand.Reader, bound)
		if err != nil {
			t.Fatalf("RandomBelow: %v", err)
		}
		if r.Sign() < 0 || r.Cmp(bound) >= 0 {
			t.Fatalf("RandomBelow out of range: %v", r.v.String())
		}
	}
}

func TestBitLenAndByteLen(t *testing.T) {
	z := NewZ(256)
	if z.BitLen() != 9 {
		t.Fatalf("BitLen = %d, want 9", z.BitLen())
	}
	if z.ByteLen() != 2 {
		t.Fatalf("ByteLen = %d, want 2", z.ByteLen())
	}
	if NewZ(0).ByteLen() != 0 {
		t.Fatal("ByteLen(0) should be 0")
	}
}

func TestBit(t *testing.T) {
	z := NewZ(0b1010)
	if z.Bit(0) != 0 || z.Bit(1) != 1 || z.Bit(3) != 1 {
		t.Fatal("unexpected bit pattern")
	}
}
