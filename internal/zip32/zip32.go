// Package zip32 implements the shape of Sapling HD key derivation:
// an ExtendedSpendingKey/ExtendedFullViewingKey pair reachable via a
// path of hardened child indices. spec.md §1 explicitly scopes the
// real ZIP-32 algorithm out ("ZIP-32 HD key derivation beyond the
// shape of a spending key / full viewing key"); this package commits
// to a single concrete hardened-derivation construction (HMAC-SHA512
// over the parent key and chain code, BIP32-style) rather than the
// real ZIP-32 PRF — see DESIGN.md.
package zip32

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"

	"github.com/shielded-labs/sapling-go/internal/jubjub"
	"github.com/shielded-labs/sapling-go/internal/sapling"
)

// OutgoingViewingKey lets the sender later recognize their own outputs
// (spec.md GLOSSARY: ovk).
type OutgoingViewingKey [32]byte

// ExpandedSpendingKey holds the secret scalars derived from a seed:
// ask (spend-authorization secret) and nsk (nullifier-deriving
// secret), plus the derived ovk.
type ExpandedSpendingKey struct {
	Ask jubjub.Fs
	Nsk jubjub.Fs
	Ovk OutgoingViewingKey
}

// ProofGenerationKey derives the (ak, nsk) proof generation key from
// this expanded spending key (spec.md §6: "expsk.proof_generation_key(params)").
func (e ExpandedSpendingKey) ProofGenerationKey(params *jubjub.Params) sapling.ProofGenerationKey {
	ak := params.Generator(jubjub.SpendingKeyGenerator).ScalarMul(e.Ask)
	return sapling.ProofGenerationKey{Ak: ak, Nsk: e.Nsk}
}

// ExtendedSpendingKey is a node in the HD key tree: the expanded
// spending key material plus a 32-byte chain code used to derive
// hardened children.
type ExtendedSpendingKey struct {
	Depth     uint8
	ChainCode [32]byte
	Expsk     ExpandedSpendingKey
}

// ChildIndex is a single hardened derivation step (spec.md §6 only
// uses hardened indices: 32', coin_type', account').
type ChildIndex uint32

// Hardened builds a hardened child index from a plain index i.
func Hardened(i uint32) ChildIndex {
	return ChildIndex(i | 0x8000_0000)
}

// Master derives the root ExtendedSpendingKey from a seed.
func Master(seed []byte) *ExtendedSpendingKey {
	mac := hmac.New(sha512.New, []byte("Sapling_ZIP32_HD_Seed"))
	mac.Write(seed)
	digest := mac.Sum(nil)

	var xsk ExtendedSpendingKey
	xsk.Expsk.Ask = jubjub.FsFromLEBytes(digest[0:32])
	xsk.Expsk.Nsk = jubjub.FsFromLEBytes(digest[32:64])
	copy(xsk.Expsk.Ovk[:], digest[32:64])
	copy(xsk.ChainCode[:], digest[:32])
	return &xsk
}

// deriveChild computes one hardened derivation step.
func (x *ExtendedSpendingKey) deriveChild(idx ChildIndex) *ExtendedSpendingKey {
	askBytes := x.Expsk.Ask.Bytes()
	nskBytes := x.Expsk.Nsk.Bytes()

	mac := hmac.New(sha512.New, x.ChainCode[:])
	mac.Write([]byte{0x00})
	mac.Write(askBytes[:])
	mac.Write(nskBytes[:])
	var idxBytes [4]byte
	binary.LittleEndian.PutUint32(idxBytes[:], uint32(idx))
	mac.Write(idxBytes[:])
	digest := mac.Sum(nil)

	child := &ExtendedSpendingKey{Depth: x.Depth + 1}
	copy(child.ChainCode[:], digest[:32])

	askDelta := jubjub.FsFromLEBytes(digest[32:64])
	child.Expsk.Ask = x.Expsk.Ask.Add(askDelta)
	child.Expsk.Nsk = x.Expsk.Nsk.Add(jubjub.FsFromLEBytes(digest[:32]))
	copy(child.Expsk.Ovk[:], digest[32:64])
	return child
}

// FromPath walks master through a sequence of hardened child indices,
// the exact shape spec.md §4.C and §6 need:
// DerivePath(master, [32', coin_type', account']).
func FromPath(master *ExtendedSpendingKey, path []ChildIndex) *ExtendedSpendingKey {
	cur := master
	for _, idx := range path {
		cur = cur.deriveChild(idx)
	}
	return cur
}

// ExtendedFullViewingKey is the public-facing counterpart of an
// ExtendedSpendingKey: a Sapling ViewingKey plus the ovk, with no
// access to ask/nsk.
type ExtendedFullViewingKey struct {
	Fvk FullViewingKey
}

// FullViewingKey bundles the viewing key proper with its ovk
// (spec.md §6: "ExtendedFullViewingKey exposes .fvk.vk ... and .fvk.ovk").
type FullViewingKey struct {
	Vk  sapling.ViewingKey
	Ovk OutgoingViewingKey
}

// FromExtendedSpendingKey derives the full viewing key side of an
// extended spending key.
func FromExtendedSpendingKey(x *ExtendedSpendingKey, params *jubjub.Params) ExtendedFullViewingKey {
	pgk := x.Expsk.ProofGenerationKey(params)
	return ExtendedFullViewingKey{
		Fvk: FullViewingKey{
			Vk:  pgk.IntoViewingKey(params),
			Ovk: x.Expsk.Ovk,
		},
	}
}

// IVK exposes this viewing key's incoming viewing key scalar, the
// narrow surface internal/scanner needs to trial-decrypt against it.
func (e ExtendedFullViewingKey) IVK() jubjub.Fs {
	return e.Fvk.Vk.IVK()
}

// DefaultAddress derives the default (diversifier, address) pair for
// this viewing key, using the first diversifier d[0] = 0..255 (other
// bytes zero) that yields a valid address, as the test-harness
// default_address() does in
// spec.md §8 S1-S4.
func (e ExtendedFullViewingKey) DefaultAddress(params *jubjub.Params) (sapling.Diversifier, sapling.PaymentAddress, error) {
	var d sapling.Diversifier
	for i := 0; i < 256; i++ {
		d[0] = byte(i)
		addr, err := e.Fvk.Vk.IntoPaymentAddress(d, params)
		if err == nil {
			return d, addr, nil
		}
	}
	return sapling.Diversifier{}, sapling.PaymentAddress{}, sapling.ErrInvalidDiversifier
}
