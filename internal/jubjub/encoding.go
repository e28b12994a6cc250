package jubjub

// Encode returns the canonical 32-byte compressed point encoding: the
// little-endian Y coordinate with the sign of X folded into the top
// bit, exactly the representation used for both hashing and the wire
// (spec.md §4.A: "Point encodings are canonical, fixed-size (32
// bytes), and consistent across hashing and the wire").
func (p Point) Encode() [32]byte {
	yBytes := p.Y.Bytes() // big-endian, gnark-crypto convention
	var out [32]byte
	for i, c := range yBytes {
		out[31-i] = c
	}
	if isOddBigEndian(p.X.Bytes()) {
		out[31] |= 0x80
	}
	return out
}

func isOddBigEndian(be [32]byte) bool {
	return be[31]&1 == 1
}

// DecodePrimeOrder parses a canonical 32-byte point encoding and
// additionally requires the result to be in the prime-order subgroup,
// the check scan_output (spec.md §4.B) needs for an untrusted epk.
func DecodePrimeOrder(enc [32]byte) (Point, error) {
	p, err := Decode(enc)
	if err != nil {
		return Point{}, err
	}
	if !p.IsPrimeOrder() {
		return Point{}, errNotPrimeOrder
	}
	return p, nil
}

// Decode parses a canonical 32-byte point encoding, returning an error
// if the point is not on the curve. It does NOT check subgroup
// membership; callers that need a prime-order point (e.g. scanning
// untrusted epk values, §4.B) must call IsPrimeOrder explicitly.
func Decode(enc [32]byte) (Point, error) {
	signBit := enc[31]&0x80 != 0
	enc[31] &= 0x7f

	var le [32]byte
	for i, c := range enc {
		le[31-i] = c
	}

	var y Fr
	y.SetBytes(le[:])

	x, err := recoverX(y, signBit)
	if err != nil {
		return Point{}, err
	}
	p := Point{X: x, Y: y}
	if !p.IsOnCurve() {
		return Point{}, errPointNotOnCurve
	}
	return p, nil
}

// recoverX solves the curve equation for x given y and the desired
// sign of x: x^2 = (y^2 - 1) / (d*y^2 - a).
func recoverX(y Fr, sign bool) (Fr, error) {
	var y2, num, den, x2, x Fr
	y2.Square(&y)

	var one Fr
	one.SetOne()
	num.Sub(&y2, &one)

	den.Mul(&curveD, &y2)
	den.Sub(&den, &curveA)

	if den.IsZero() {
		return Fr{}, errPointNotOnCurve
	}
	den.Inverse(&den)
	x2.Mul(&num, &den)

	if x2.Legendre() == -1 {
		return Fr{}, errPointNotOnCurve
	}
	x.Sqrt(&x2)

	xBE := x.Bytes()
	if isOddBigEndian(xBE) != sign {
		x.Neg(&x)
	}
	return x, nil
}
