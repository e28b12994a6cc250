package jubjub

import "encoding/binary"

// pedersenChunksPerGenerator bounds how many 3-bit windows are folded
// onto a single segment generator before rolling over to the next one,
// matching the chunking sapling-crypto's pedersen_hash module uses to
// keep each generator's scalar within a safe range.
const pedersenChunksPerGenerator = 63

// PedersenHash computes the Sapling Pedersen hash of a bit string,
// personalized by tag (e.g. "NoteCm" for note commitments), returning
// the resulting curve point. bits is consumed in groups of three,
// matching the Pedersen-hash-over-windows construction sapling-crypto
// uses (each window re-encodes {000..111} as a signed value in
// {-4,..,-1} or {1,..,4} that scales the window's segment generator).
func PedersenHash(tag []byte, bits []bool) Point {
	acc := Identity()

	segment := 0
	for chunkStart := 0; chunkStart < len(bits); chunkStart += 3 * pedersenChunksPerGenerator {
		end := chunkStart + 3*pedersenChunksPerGenerator
		if end > len(bits) {
			end = len(bits)
		}
		generator := segmentGenerator(tag, segment)
		acc = acc.Add(generator.ScalarMul(windowsToScalar(bits[chunkStart:end])))
		segment++
	}
	return acc
}

// segmentGenerator derives the Pedersen generator for the given
// segment index under the given personalization tag, via the same
// find_group_hash retry loop used for the fixed generator table.
func segmentGenerator(tag []byte, segment int) Point {
	buf := make([]byte, len(tag)+4)
	copy(buf, tag)
	binary.LittleEndian.PutUint32(buf[len(tag):], uint32(segment))
	pt, ok := findGroupHash(buf, PersonalizationPedersenCRH)
	if !ok {
		panic("jubjub: could not derive pedersen segment generator")
	}
	return pt
}

// windowsToScalar folds a run of 3-bit windows into a single Jubjub
// scalar: window i contributes enc(bits[3i:3i+3]) * 2^(4*i), where
// enc maps {b0,b1,b2} to the signed value (1-2*b2)*(1+b0+2*b1) in
// {-4,..,4} excluding 0, the standard Pedersen-hash window encoding.
func windowsToScalar(bits []bool) Fs {
	acc := NewFsFromBigInt(bigZero())
	shift := NewFsFromBigInt(bigOne())
	sixteen := NewFsFromBigInt(bigFromInt(16))

	for i := 0; i < len(bits); i += 3 {
		var b0, b1, b2 bool
		if i < len(bits) {
			b0 = bits[i]
		}
		if i+1 < len(bits) {
			b1 = bits[i+1]
		}
		if i+2 < len(bits) {
			b2 = bits[i+2]
		}
		mag := 1
		if b0 {
			mag += 1
		}
		if b1 {
			mag += 2
		}
		window := NewFsFromBigInt(bigFromInt(mag))
		if b2 {
			window = negFs(window)
		}
		acc = acc.Add(window.Mul(shift))
		shift = shift.Mul(sixteen)
	}
	return acc
}
