package jubjub

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2s"
)

// FixedGenerator names one of the process-wide generator points a
// Params table hands out (spec.md §6).
type FixedGenerator int

const (
	ValueCommitmentValue FixedGenerator = iota
	ValueCommitmentRandomness
	ProofGenerationKey
	SpendingKeyGenerator
	NoteCommitmentRandomness
	NullifierPosition
)

// Personalization tags, bit-exact per spec.md §6. Each must be exactly
// 8 ASCII bytes; blake2s takes the personalization as-is.
var (
	PersonalizationGroupHashGD = [8]byte{'Z', 'c', 'a', 's', 'h', '_', 'g', 'd'}
	PersonalizationCRHIVK      = [8]byte{'Z', 'c', 'a', 's', 'h', 'i', 'v', 'k'}
	PersonalizationPRFNF       = [8]byte{'Z', 'c', 'a', 's', 'h', '_', 'n', 'f'}
	PersonalizationPedersenCRH = [8]byte{'Z', 'c', 'a', 's', 'h', '_', 'P', 'H'}
)

// Params is the process-wide immutable Jubjub parameter table: fixed
// generators plus the curve constants exposed in this package. It is
// constructed once via NewParams and passed by reference thereafter
// (spec.md §5, §9: "Process-wide JUBJUB params ... initialize once at
// process start; treat as immutable; pass by borrow").
type Params struct {
	generators map[FixedGenerator]Point
}

// NewParams derives the fixed-generator table deterministically via
// group hash over a distinct per-generator tag, mirroring how
// sapling-crypto's constants module ties each FixedGenerators variant
// to a personalized hash-to-curve rather than an arbitrary point.
func NewParams() *Params {
	p := &Params{generators: make(map[FixedGenerator]Point, 6)}
	tags := map[FixedGenerator]string{
		ValueCommitmentValue:      "GenValueCommitmentValue",
		ValueCommitmentRandomness: "GenValueCommitmentRandomness",
		ProofGenerationKey:        "GenProofGenerationKey",
		SpendingKeyGenerator:      "GenSpendingKeyGenerator",
		NoteCommitmentRandomness:  "GenNoteCommitmentRandomness",
		NullifierPosition:         "GenNullifierPosition",
	}
	for g, tag := range tags {
		pt, ok := findGroupHash([]byte(tag), PersonalizationGroupHashGD)
		if !ok {
			panic("jubjub: fixed generator derivation failed for " + tag)
		}
		p.generators[g] = pt
	}
	return p
}

// Generator returns the fixed generator point for name.
func (p *Params) Generator(name FixedGenerator) Point {
	return p.generators[name]
}

// GroupHash implements Zcash's single-shot group hash: blake2s the tag
// under the given personalization, attempt to decode the digest as a
// curve point, and require it to land in the prime-order subgroup.
// Returns ok=false on any failure (spec.md §4.A Diversifier.g_d).
func GroupHash(tag []byte, personalization [8]byte) (Point, bool) {
	digest := blakeWithPersonalization(personalization, tag)
	var enc [32]byte
	copy(enc[:], digest)

	pt, err := Decode(enc)
	if err != nil {
		return Point{}, false
	}
	if !pt.IsPrimeOrder() {
		return Point{}, false
	}
	return pt, true
}

// findGroupHash retries GroupHash over an incrementing counter
// appended to tag, used only for deriving the fixed generator table
// at startup (not part of the per-diversifier hot path, which is a
// true single-shot per spec.md).
func findGroupHash(tag []byte, personalization [8]byte) (Point, bool) {
	buf := make([]byte, len(tag)+4)
	copy(buf, tag)
	for i := uint32(0); i < 256; i++ {
		binary.LittleEndian.PutUint32(buf[len(tag):], i)
		if pt, ok := GroupHash(buf, personalization); ok {
			return pt, true
		}
	}
	return Point{}, false
}

// blakeWithPersonalization computes BLAKE2s-256(personalization, input).
func blakeWithPersonalization(personalization [8]byte, input []byte) []byte {
	h, err := blake2s.New256WithPersonalization(personalization[:])
	if err != nil {
		// golang.org/x/crypto/blake2s only fails this constructor on a
		// bad key/personalization length, both fixed-size here.
		panic("jubjub: blake2s init: " + err.Error())
	}
	_, _ = h.Write(input)
	return h.Sum(nil)
}

// PersonalizationRedJubjubSig tags the Fiat-Shamir challenge hash used
// by RedJubjub-style signatures (spend-authorization and binding
// signatures both reduce to the same Schnorr construction over
// different generators).
var PersonalizationRedJubjubSig = [8]byte{'Z', 'c', 'a', 's', 'h', '_', 'R', 'S'}

// HashToScalar computes a Jubjub scalar from a personalized BLAKE2s
// digest over the concatenation of a and b. Used to derive the
// Fiat-Shamir challenge c = H(R || pubkey || digest) in a Schnorr
// signature: callers pass R as a and pubkey||digest as b (or any other
// split, since the hash only sees the concatenation).
func HashToScalar(personalization [8]byte, a, b []byte) Fs {
	input := make([]byte, 0, len(a)+len(b))
	input = append(input, a...)
	input = append(input, b...)
	digest := blakeWithPersonalization(personalization, input)
	return FsFromLEBytes(digest)
}
