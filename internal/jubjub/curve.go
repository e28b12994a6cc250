package jubjub

import (
	"errors"
	"math/big"
)

// Jubjub curve parameters: -x^2 + y^2 = 1 + d*x^2*y^2 over Fr.
// a = -1, d is the canonical Jubjub constant from the protocol spec.
var (
	curveA Fr
	curveD Fr
)

func init() {
	curveA.SetOne().Neg(&curveA)
	if _, err := curveD.SetString("19257038036680949359750312669786877991949435402254120286184196891950884077233"); err != nil {
		panic("jubjub: invalid curve parameter d: " + err.Error())
	}
}

// Point is an affine point on the Jubjub curve. The zero value is NOT
// a valid point; use Identity() for the group identity.
type Point struct {
	X, Y Fr
}

// Identity returns the group identity element (0, 1).
func Identity() Point {
	var p Point
	p.Y.SetOne()
	return p
}

// IsIdentity reports whether p is the group identity.
func (p Point) IsIdentity() bool {
	var zero, one Fr
	one.SetOne()
	return p.X.Equal(&zero) && p.Y.Equal(&one)
}

// IsOnCurve checks the twisted Edwards curve equation.
func (p Point) IsOnCurve() bool {
	var x2, y2, lhs, rhs, dxy, one Fr
	x2.Square(&p.X)
	y2.Square(&p.Y)
	one.SetOne()

	lhs.Mul(&curveA, &x2)
	lhs.Add(&lhs, &y2)

	dxy.Mul(&curveD, &x2)
	dxy.Mul(&dxy, &y2)
	rhs.Add(&one, &dxy)

	return lhs.Equal(&rhs)
}

// Add computes the unified twisted Edwards addition law.
func (p Point) Add(q Point) Point {
	var x1y2, y1x2, x1x2, y1y2, dx1x2y1y2, one, num1, num2, den1, den2 Fr

	x1y2.Mul(&p.X, &q.Y)
	y1x2.Mul(&p.Y, &q.X)
	num1.Add(&x1y2, &y1x2)

	x1x2.Mul(&p.X, &q.X)
	y1y2.Mul(&p.Y, &q.Y)
	num2.Mul(&curveA, &x1x2)
	num2.Neg(&num2)
	num2.Add(&num2, &y1y2)

	dx1x2y1y2.Mul(&x1x2, &y1y2)
	dx1x2y1y2.Mul(&dx1x2y1y2, &curveD)

	one.SetOne()
	den1.Add(&one, &dx1x2y1y2)
	den2.Sub(&one, &dx1x2y1y2)

	var out Point
	den1.Inverse(&den1)
	den2.Inverse(&den2)
	out.X.Mul(&num1, &den1)
	out.Y.Mul(&num2, &den2)
	return out
}

// Neg returns -p.
func (p Point) Neg() Point {
	var np Point
	np.X.Neg(&p.X)
	np.Y.Set(&p.Y)
	return np
}

// Double computes p+p via the general addition law.
func (p Point) Double() Point {
	return p.Add(p)
}

// ScalarMul computes s*p using a double-and-add ladder.
func (p Point) ScalarMul(s Fs) Point {
	return p.scalarMulBigInt(s.BigInt())
}

func (p Point) scalarMulBigInt(n *big.Int) Point {
	acc := Identity()
	base := p
	for i := 0; i < n.BitLen(); i++ {
		if n.Bit(i) == 1 {
			acc = acc.Add(base)
		}
		base = base.Double()
	}
	return acc
}

// Equal reports whether p and q are the same affine point.
func (p Point) Equal(q Point) bool {
	return p.X.Equal(&q.X) && p.Y.Equal(&q.Y)
}

// errPointNotOnCurve and errNotPrimeOrder are the two ways a byte
// string fails to decode to a prime-order-subgroup Point.
var (
	errPointNotOnCurve = errors.New("jubjub: point not on curve")
	errNotPrimeOrder   = errors.New("jubjub: point not in prime-order subgroup")
)

// cofactor is Jubjub's cofactor; group_hash rejects points that are
// pure cofactor-torsion (cofactor*p == identity) and accepts only
// those for which fsModulus*p == identity, i.e. the prime-order
// subgroup.
const cofactor = 8

// IsPrimeOrder reports whether p, already known to be on the curve,
// lies in the prime-order subgroup.
func (p Point) IsPrimeOrder() bool {
	if !p.IsOnCurve() {
		return false
	}
	cleared := p.scalarMulBigInt(big.NewInt(cofactor))
	if cleared.IsIdentity() {
		return false
	}
	return p.scalarMulBigInt(fsModulus).IsIdentity()
}
