// Package sapling implements the Sapling cryptographic primitives:
// value commitments, diversified payment addresses, viewing keys, and
// note commitments/nullifiers over the Jubjub curve (spec.md §4.A).
package sapling

import (
	"encoding/binary"
	"errors"

	"github.com/shielded-labs/sapling-go/internal/jubjub"
)

// ErrInvalidDiversifier is returned whenever a Diversifier's g_d does
// not land in the prime-order subgroup (spec.md §3 Diversifier).
var ErrInvalidDiversifier = errors.New("sapling: diversifier does not yield a prime-order point")

// Diversifier is an opaque 11-byte diversification tag.
type Diversifier [11]byte

// GD derives the diversified base point for d, or ErrInvalidDiversifier
// if d does not yield a point in Jubjub's prime-order subgroup.
func (d Diversifier) GD(params *jubjub.Params) (jubjub.Point, error) {
	_ = params // generator table carries no diversifier-specific state; kept for symmetry with the Rust API shape
	pt, ok := jubjub.GroupHash(d[:], jubjub.PersonalizationGroupHashGD)
	if !ok {
		return jubjub.Point{}, ErrInvalidDiversifier
	}
	return pt, nil
}

// ValueCommitment is a homomorphic commitment to a note value: the
// builder sums per-spend and per-output value commitments to prove
// conservation without revealing individual amounts (spec.md §3).
type ValueCommitment struct {
	Value     uint64
	Randomness jubjub.Fs
}

// Commit computes value*G_V + randomness*G_R (spec.md §4.A).
func (vc ValueCommitment) Commit(params *jubjub.Params) jubjub.Point {
	v := jubjub.NewFsFromBigInt(uint64ToBigInt(vc.Value))
	valueTerm := params.Generator(jubjub.ValueCommitmentValue).ScalarMul(v)
	randTerm := params.Generator(jubjub.ValueCommitmentRandomness).ScalarMul(vc.Randomness)
	return valueTerm.Add(randTerm)
}

// ProofGenerationKey is the secret material a spend proof is built
// from: a spend-authorization public point and the nullifier-deriving
// secret scalar.
type ProofGenerationKey struct {
	Ak  jubjub.Point
	Nsk jubjub.Fs
}

// IntoViewingKey derives the (ak, nk) viewing key from a proof
// generation key (spec.md §4.A).
func (pgk ProofGenerationKey) IntoViewingKey(params *jubjub.Params) ViewingKey {
	return ViewingKey{
		Ak: pgk.Ak,
		Nk: params.Generator(jubjub.ProofGenerationKey).ScalarMul(pgk.Nsk),
	}
}

// ViewingKey exposes ak/nk, from which both the incoming viewing key
// scalar and one-time re-randomized spend-auth keys are derived.
type ViewingKey struct {
	Ak jubjub.Point
	Nk jubjub.Point
}

// IVK computes the incoming viewing key per spec.md §4.A: BLAKE2s-256
// with personalization "Zcashivk" over ak_enc || nk_enc, masking the
// top 5 bits of the last byte before reducing into Fs.
func (vk ViewingKey) IVK() jubjub.Fs {
	akEnc := vk.Ak.Encode()
	nkEnc := vk.Nk.Encode()

	preimage := make([]byte, 64)
	copy(preimage[0:32], akEnc[:])
	copy(preimage[32:64], nkEnc[:])

	digest := blake2sIVK(preimage)
	digest[31] &= 0b0000_0111

	return jubjub.FsFromLEBytes(digest[:])
}

// RK computes the one-time re-randomized spend-authorization key
// ak + ar*G_SK (spec.md GLOSSARY, §4.C step 8 consumes the
// corresponding private half via the prover/signer boundary).
func (vk ViewingKey) RK(ar jubjub.Fs, params *jubjub.Params) jubjub.Point {
	return vk.Ak.Add(params.Generator(jubjub.SpendingKeyGenerator).ScalarMul(ar))
}

// IntoPaymentAddress derives the payment address for d under this
// viewing key, or ErrInvalidDiversifier if d is invalid.
func (vk ViewingKey) IntoPaymentAddress(d Diversifier, params *jubjub.Params) (PaymentAddress, error) {
	gd, err := d.GD(params)
	if err != nil {
		return PaymentAddress{}, err
	}
	return PaymentAddress{
		Diversifier: d,
		PkD:         gd.ScalarMul(vk.IVK()),
	}, nil
}

// PaymentAddress is (diversifier, pk_d) — data only; it carries no
// proof that pk_d = ivk*g_d for any particular viewing key (spec.md
// §3 PaymentAddress invariant note).
type PaymentAddress struct {
	Diversifier Diversifier
	PkD         jubjub.Point
}

// GD re-derives the diversified base point for this address.
func (a PaymentAddress) GD(params *jubjub.Params) (jubjub.Point, error) {
	return a.Diversifier.GD(params)
}

// CreateNote builds a Note for this address, or ErrInvalidDiversifier
// if the address's diversifier is invalid.
func (a PaymentAddress) CreateNote(value uint64, r jubjub.Fs, params *jubjub.Params) (Note, error) {
	gd, err := a.GD(params)
	if err != nil {
		return Note{}, err
	}
	return Note{
		Value: value,
		GD:    gd,
		PkD:   a.PkD,
		R:     r,
	}, nil
}

// Note is a spendable shielded output. Once constructed it is never
// mutated; it is consumed logically by becoming a spend via its
// nullifier (spec.md §3 LIFECYCLES).
type Note struct {
	Value uint64
	GD    jubjub.Point
	PkD   jubjub.Point
	R     jubjub.Fs
}

// Uncommitted is the smallest Fr element provably not the x-coordinate
// of any curve point, used as the leaf value for empty commitment-tree
// slots (spec.md §4.A).
func Uncommitted() jubjub.Fr {
	var one jubjub.Fr
	one.SetOne()
	return one
}

// cmFullPoint computes r*G_NC + PedersenHash("NoteCm", value||g_d||pk_d).
func (n Note) cmFullPoint(params *jubjub.Params) jubjub.Point {
	contentBits := noteContentBits(n)
	hash := jubjub.PedersenHash([]byte("NoteCm"), contentBits)
	randTerm := params.Generator(jubjub.NoteCommitmentRandomness).ScalarMul(n.R)
	return randTerm.Add(hash)
}

// CM returns the note commitment as exposed to the rest of the
// system: the affine x-coordinate of the full commitment point, an
// injective encoding because the point lies in the prime-order
// subgroup (spec.md §4.A Note.cm).
func (n Note) CM(params *jubjub.Params) jubjub.Fr {
	return n.cmFullPoint(params).X
}

// NF derives the nullifier for this note at the given tree position
// under viewing key vk: BLAKE2s("Zcash_nf", nk || rho) where
// rho = cm + position*G_NP (spec.md §3, §4.A).
func (n Note) NF(vk ViewingKey, position uint64, params *jubjub.Params) [32]byte {
	cm := n.cmFullPoint(params)
	posTerm := params.Generator(jubjub.NullifierPosition).ScalarMul(positionToFs(position))
	rho := cm.Add(posTerm)

	nkEnc := vk.Nk.Encode()
	rhoEnc := rho.Encode()

	preimage := make([]byte, 64)
	copy(preimage[0:32], nkEnc[:])
	copy(preimage[32:64], rhoEnc[:])

	return blake2sNF(preimage)
}

// noteContentBits lays out value_LE_64 || g_d_enc || pk_d_enc as an
// LSB-first bit sequence, the exact byte ordering spec.md §3 and §4.A
// require for the Pedersen hash input: "hash inputs are constructed by
// concatenation, never by encoding length prefixes".
func noteContentBits(n Note) []bool {
	var valueBytes [8]byte
	binary.LittleEndian.PutUint64(valueBytes[:], n.Value)

	gdEnc := n.GD.Encode()
	pkdEnc := n.PkD.Encode()

	content := make([]byte, 0, 8+32+32)
	content = append(content, valueBytes[:]...)
	content = append(content, gdEnc[:]...)
	content = append(content, pkdEnc[:]...)

	bits := make([]bool, 0, len(content)*8)
	for _, b := range content {
		for i := 0; i < 8; i++ {
			bits = append(bits, (b>>uint(i))&1 == 1)
		}
	}
	return bits
}

func positionToFs(position uint64) jubjub.Fs {
	return jubjub.NewFsFromBigInt(uint64ToBigInt(position))
}
