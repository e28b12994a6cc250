package builder

import (
	"github.com/shielded-labs/sapling-go/internal/jubjub"
	"github.com/shielded-labs/sapling-go/internal/merkletree"
	"github.com/shielded-labs/sapling-go/internal/sapling"
)

// Signature is a RedJubjub-style 64-byte Schnorr signature: the nonce
// commitment R followed by the scalar response S. Verifying it against
// a public key X and digest means recomputing c =
// HashToScalar(R||X||digest) and checking S*G == R + c*X.
type Signature [64]byte

// ProvingContext accumulates the per-spend/output value-commitment
// randomness and produces the transaction's binding signature (spec.md
// §6: "ProvingContext capability"). A single build invocation owns
// exactly one context (spec.md §3 OWNERSHIP).
type ProvingContext interface {
	// BindingSig attests that the sum of spend value commitments minus
	// the sum of output value commitments equals valueBalance*G_V, by
	// signing sighash with the accumulated bsk.
	BindingSig(valueBalance int64, sighash [32]byte) (Signature, error)
}

// TxProver is the injected Groth16 capability set (spec.md §6). Both
// SpendProof and OutputProof additionally fold their value-commitment
// randomness into ctx, which is why every proof call threads the same
// ProvingContext through a build.
type TxProver interface {
	SpendProof(ctx ProvingContext, pgk sapling.ProofGenerationKey, diversifier sapling.Diversifier, rcm, ar jubjub.Fs, value uint64, anchor jubjub.Fr, witness *merkletree.Witness) (zkproof []byte, cv, rk jubjub.Point, err error)
	OutputProof(ctx ProvingContext, esk jubjub.Fs, to sapling.PaymentAddress, rcm jubjub.Fs, value uint64) (zkproof []byte, cv jubjub.Point, err error)
}

// NoteEncryptor packages a note for its recipient and, for the sender,
// for later outgoing recognition (spec.md §6). Ciphertext packing
// itself (ChaChaPoly layout) is out of scope (spec.md §1 Non-goals);
// this produces fixed-size placeholders of the spec's exact sizes so
// every downstream field (sighash, wire assembly) has the right shape.
type NoteEncryptor interface {
	Esk() jubjub.Fs
	Epk() jubjub.Point
	EncryptNotePlaintext() [580]byte
	EncryptOutgoingPlaintext(cv jubjub.Point, cmu jubjub.Fr) [80]byte
}
