// Package jubjub implements the Jubjub twisted Edwards curve embedded in
// the BLS12-381 scalar field, along with the fixed generator table,
// group hash and Pedersen hash that the Sapling protocol builds on.
//
// The curve and field arithmetic is the one piece of this module that
// really is "out of scope" per the cryptographic core spec: callers
// never reach into a Point or Scalar, they only call the methods on
// this package's boundary types. Coordinate field arithmetic is
// delegated to gnark-crypto's BLS12-381 scalar field implementation;
// this package supplies the twisted Edwards group law and the
// Sapling-specific hash-to-curve and hash-to-scalar routines on top of
// it.
package jubjub

import (
	"crypto/subtle"
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// Fr is the BLS12-381 scalar field. Jubjub point coordinates live here;
// a note commitment's exposed value (cm) is an Fr element.
type Fr = fr.Element

// fsModulus is the order of Jubjub's prime-order subgroup (~252 bits),
// the canonical constant from the Zcash protocol specification.
var fsModulus, _ = new(big.Int).SetString(
	"6554484396890773809930967563523245729705921265872317281365359162392183254199", 10,
)

// Fs is Jubjub's own scalar field, used for note randomness, value
// commitment randomness, and spend-authorization re-randomization.
type Fs struct {
	v big.Int
}

// NewFsFromBigInt reduces n modulo the Jubjub subgroup order.
func NewFsFromBigInt(n *big.Int) Fs {
	var s Fs
	s.v.Mod(n, fsModulus)
	return s
}

// FsFromLEBytes reduces a little-endian byte string modulo the Jubjub
// subgroup order. Used by ViewingKey.IVK (§3) once the top bits of the
// hash output have already been masked by the caller.
func FsFromLEBytes(b []byte) Fs {
	be := make([]byte, len(b))
	for i, c := range b {
		be[len(b)-1-i] = c
	}
	return NewFsFromBigInt(new(big.Int).SetBytes(be))
}

// Bytes returns the little-endian canonical encoding of s, 32 bytes.
func (s Fs) Bytes() [32]byte {
	be := s.v.FillBytes(make([]byte, 32))
	var out [32]byte
	for i, c := range be {
		out[31-i] = c
	}
	return out
}

// Add returns s + o mod fsModulus.
func (s Fs) Add(o Fs) Fs {
	var sum big.Int
	sum.Add(&s.v, &o.v)
	return NewFsFromBigInt(&sum)
}

// Mul returns s * o mod fsModulus.
func (s Fs) Mul(o Fs) Fs {
	var prod big.Int
	prod.Mul(&s.v, &o.v)
	return NewFsFromBigInt(&prod)
}

// IsZero reports whether s is the zero scalar.
func (s Fs) IsZero() bool {
	return s.v.Sign() == 0
}

// Equal reports whether s and o represent the same scalar, in constant
// time over their canonical encodings.
func (s Fs) Equal(o Fs) bool {
	a, b := s.Bytes(), o.Bytes()
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// BigInt exposes the underlying representative, for scalar
// multiplication against a Point.
func (s Fs) BigInt() *big.Int {
	return new(big.Int).Set(&s.v)
}

// ErrScalarOutOfRange reports an encoded integer that is not a
// canonical representative below the field modulus.
var ErrScalarOutOfRange = errors.New("jubjub: scalar not canonical")

func bigZero() *big.Int       { return big.NewInt(0) }
func bigOne() *big.Int        { return big.NewInt(1) }
func bigFour() *big.Int       { return big.NewInt(4) }
func bigFromInt(n int) *big.Int { return big.NewInt(int64(n)) }

// negFs returns -s mod fsModulus.
func negFs(s Fs) Fs {
	var neg big.Int
	neg.Neg(&s.v)
	return NewFsFromBigInt(&neg)
}
