// Package builder assembles a shielded transaction from input notes,
// output notes, and Merkle-path witnesses (spec.md §4.C). It is pure
// orchestration atop internal/sapling and internal/jubjub: the prover
// and the proving context (which produces the binding signature) are
// injected dependencies (spec.md §6, §9). The RNG is crypto/rand and
// spend-auth signing is internal; callers cannot replace either.
package builder

import (
	"crypto/rand"
	"io"

	"github.com/shielded-labs/sapling-go/internal/jubjub"
	"github.com/shielded-labs/sapling-go/internal/merkletree"
	"github.com/shielded-labs/sapling-go/internal/sapling"
	"github.com/shielded-labs/sapling-go/internal/sighash"
	"github.com/shielded-labs/sapling-go/internal/zip32"
)

// DefaultFee is the default transaction fee in zatoshi (spec.md §6).
const DefaultFee = 10_000

// state is the builder's position in its Empty -> Accumulating ->
// Built lifecycle (spec.md §4.C).
type state int

const (
	stateAccumulating state = iota
	stateBuilt
)

// spendInfo is SpendDescriptionInfo (spec.md §3): builder-internal
// bookkeeping for one spend, kept private to the package.
type spendInfo struct {
	accountID   uint32
	diversifier sapling.Diversifier
	note        sapling.Note
	ar          jubjub.Fs
	witness     *merkletree.Witness
}

// outputInfo is OutputDescriptionInfo (spec.md §3).
type outputInfo struct {
	ovk   zip32.OutgoingViewingKey
	to    sapling.PaymentAddress
	note  sapling.Note
	memo  []byte
}

// SpendDescription is the frozen, proved form of one spend in a built
// transaction.
type SpendDescription struct {
	Cv          jubjub.Point
	Anchor      jubjub.Fr
	Nullifier   [32]byte
	Rk          jubjub.Point
	ZkProof     []byte
	SpendAuthSig Signature
}

// OutputDescription is the frozen, proved form of one output in a
// built transaction.
type OutputDescription struct {
	Cv            jubjub.Point
	Cmu           jubjub.Fr
	Epk           jubjub.Point
	EncCiphertext [580]byte
	OutCiphertext [80]byte
	ZkProof       []byte
}

// Transaction is the frozen output of a successful build (spec.md §3:
// "after build it is consumed and the TransactionData is frozen").
type Transaction struct {
	ConsensusBranchID uint32
	Fee               int64
	ValueBalance      int64
	Spends            []SpendDescription
	Outputs           []OutputDescription
	Sighash           [32]byte
	BindingSig        Signature
}

// Builder accumulates spends and outputs before a single build call
// consumes it (spec.md §3 OWNERSHIP, §9 "affine, move-once builders").
type Builder struct {
	state state

	coinType uint32
	fee      int64

	valueBalance int64
	spends       []spendInfo
	outputs      []outputInfo

	anchor    *jubjub.Fr
	anchorRaw [32]byte

	changeAddress *sapling.PaymentAddress
	changeOVK     *zip32.OutgoingViewingKey

	params *jubjub.Params
	rand   io.Reader
}

// New constructs an empty Builder for coinType, entering Accumulating
// immediately (spec.md §4.C: "new(coin_type) -> Builder: ... default
// fee = 10,000 zatoshi, no anchor, no change address").
func New(coinType uint32, params *jubjub.Params) *Builder {
	return &Builder{
		state:    stateAccumulating,
		coinType: coinType,
		fee:      DefaultFee,
		params:   params,
		rand:     rand.Reader,
	}
}

// SetFee replaces the fee. Negative fees are not rejected here; the
// value-balance check in Build catches infeasibility (spec.md §4.C).
func (b *Builder) SetFee(fee int64) {
	b.fee = fee
}

// SetChangeAddress overrides auto-change's address selection with an
// explicit address and outgoing viewing key.
func (b *Builder) SetChangeAddress(ovk zip32.OutgoingViewingKey, addr sapling.PaymentAddress) {
	b.changeOVK = &ovk
	b.changeAddress = &addr
}

func frEncode(f jubjub.Fr) [32]byte {
	be := f.Bytes()
	var le [32]byte
	for i, c := range be {
		le[31-i] = c
	}
	return le
}

// AddSaplingSpend records one spend (spec.md §4.C add_sapling_spend).
// The first call fixes the transaction's anchor; subsequent calls must
// agree with it or the call fails with AnchorMismatchError and leaves
// the builder unchanged (spec.md §8 property 6).
func (b *Builder) AddSaplingSpend(accountID uint32, diversifier sapling.Diversifier, note sapling.Note, ar jubjub.Fs, witness *merkletree.Witness, tree *merkletree.CommitmentTree) error {
	cm := note.CM(b.params)
	root, err := witness.Root(tree, cm)
	if err != nil {
		return &WitnessMaterializationError{Err: err}
	}
	rootEnc := frEncode(root)

	if b.anchor == nil {
		rootCopy := root
		b.anchor = &rootCopy
		b.anchorRaw = rootEnc
	} else if rootEnc != b.anchorRaw {
		return &AnchorMismatchError{Expected: b.anchorRaw, Got: rootEnc}
	}

	b.valueBalance += int64(note.Value)
	b.spends = append(b.spends, spendInfo{
		accountID:   accountID,
		diversifier: diversifier,
		note:        note,
		ar:          ar,
		witness:     witness,
	})
	return nil
}

// AddSaplingOutput records one output (spec.md §4.C
// add_sapling_output). Fails with InvalidTargetAddressError if the
// target's diversifier does not yield a curve point.
func (b *Builder) AddSaplingOutput(ovk zip32.OutgoingViewingKey, to sapling.PaymentAddress, value uint64, memo []byte) error {
	gd, err := to.GD(b.params)
	if err != nil {
		return &InvalidTargetAddressError{}
	}

	rcm, err := jubjub.RandomFsFromReader(b.rand)
	if err != nil {
		return err
	}

	note := sapling.Note{Value: value, GD: gd, PkD: to.PkD, R: rcm}
	b.valueBalance -= int64(value)
	b.outputs = append(b.outputs, outputInfo{ovk: ovk, to: to, note: note, memo: memo})
	return nil
}

// ValueBalance exposes the current signed value balance (spec.md §8
// property 5).
func (b *Builder) ValueBalance() int64 {
	return b.valueBalance
}

// Build drives proof generation and signature assembly, consuming the
// builder (spec.md §4.C build, steps 1-10).
func (b *Builder) Build(consensusBranchID uint32, masterXsk *zip32.ExtendedSpendingKey, prover TxProver, provingCtx ProvingContext) (*Transaction, error) {
	if b.state == stateBuilt {
		return nil, &ProverFailureError{Err: errBuilderAlreadyBuilt}
	}

	// Step 1: value check.
	change := b.valueBalance - b.fee
	if change < 0 {
		return nil, &ChangeNegativeError{Change: change}
	}

	// Step 2: auto-change.
	if change > 0 {
		var changeAddr sapling.PaymentAddress
		var changeOVK zip32.OutgoingViewingKey

		if b.changeAddress != nil {
			changeAddr = *b.changeAddress
			changeOVK = *b.changeOVK
		} else if len(b.spends) > 0 {
			first := b.spends[0]
			path := []zip32.ChildIndex{
				zip32.Hardened(32),
				zip32.Hardened(b.coinType),
				zip32.Hardened(first.accountID),
			}
			xskPrime := zip32.FromPath(masterXsk, path)
			fvk := zip32.FromExtendedSpendingKey(xskPrime, b.params)
			changeOVK = fvk.Fvk.Ovk
			changeAddr = sapling.PaymentAddress{Diversifier: first.diversifier, PkD: first.note.PkD}
		} else {
			return nil, &NoChangeAddressError{}
		}

		if err := b.AddSaplingOutput(changeOVK, changeAddr, uint64(change), nil); err != nil {
			return nil, err
		}
	}

	var anchorFr jubjub.Fr
	if b.anchor != nil {
		anchorFr = *b.anchor
	}

	// Steps 5-6: spend and output descriptions, in insertion order.
	spendDescs := make([]SpendDescription, 0, len(b.spends))
	for _, sp := range b.spends {
		xsk := zip32.FromPath(masterXsk, []zip32.ChildIndex{
			zip32.Hardened(32),
			zip32.Hardened(b.coinType),
			zip32.Hardened(sp.accountID),
		})
		pgk := xsk.Expsk.ProofGenerationKey(b.params)
		vk := pgk.IntoViewingKey(b.params)
		nullifier := sp.note.NF(vk, sp.witness.Position, b.params)

		zkproof, cv, rk, err := prover.SpendProof(provingCtx, pgk, sp.diversifier, sp.note.R, sp.ar, sp.note.Value, anchorFr, sp.witness)
		if err != nil {
			return nil, &ProverFailureError{Err: err}
		}

		spendDescs = append(spendDescs, SpendDescription{
			Cv:        cv,
			Anchor:    anchorFr,
			Nullifier: nullifier,
			Rk:        rk,
			ZkProof:   zkproof,
		})
	}

	outputDescs := make([]OutputDescription, 0, len(b.outputs))
	for _, out := range b.outputs {
		encryptor, err := NewNoteEncryptor(b.rand, out.ovk, out.note, out.to, out.memo)
		if err != nil {
			return nil, err
		}

		zkproof, cv, err := prover.OutputProof(provingCtx, encryptor.Esk(), out.to, out.note.R, out.note.Value)
		if err != nil {
			return nil, &ProverFailureError{Err: err}
		}

		cmu := out.note.CM(b.params)
		encCiphertext := encryptor.EncryptNotePlaintext()
		outCiphertext := encryptor.EncryptOutgoingPlaintext(cv, cmu)

		outputDescs = append(outputDescs, OutputDescription{
			Cv:            cv,
			Cmu:           cmu,
			Epk:           encryptor.Epk(),
			EncCiphertext: encCiphertext,
			OutCiphertext: outCiphertext,
			ZkProof:       zkproof,
		})
	}

	// Step 7: sighash over blank-signature descriptions.
	digest := sighash.HashAll(consensusBranchID, b.fee, b.valueBalance, toSighashSpends(spendDescs), toSighashOutputs(outputDescs))

	// Step 8: spend-auth signatures.
	for i, sp := range b.spends {
		xsk := zip32.FromPath(masterXsk, []zip32.ChildIndex{
			zip32.Hardened(32),
			zip32.Hardened(b.coinType),
			zip32.Hardened(sp.accountID),
		})
		spendDescs[i].SpendAuthSig = spendAuthSign(xsk.Expsk.Ask, sp.ar, digest, b.params)
	}

	// Step 9: binding signature.
	bindingSig, err := provingCtx.BindingSig(b.valueBalance, digest)
	if err != nil {
		return nil, &BindingSigFailedError{}
	}

	b.state = stateBuilt
	return &Transaction{
		ConsensusBranchID: consensusBranchID,
		Fee:               b.fee,
		ValueBalance:      b.valueBalance,
		Spends:            spendDescs,
		Outputs:           outputDescs,
		Sighash:           digest,
		BindingSig:        bindingSig,
	}, nil
}

// BuildNoSign is the clean design spec.md §9 prescribes for multisig
// flows: spend-auth signatures are left blank, but the binding
// signature (which depends only on the prover context, not ask) is
// still attached. Callers receive an assemblable-but-unauthorized
// transaction plus the sighash that an external co-signer must sign
// over.
func (b *Builder) BuildNoSign(consensusBranchID uint32, masterXsk *zip32.ExtendedSpendingKey, prover TxProver, provingCtx ProvingContext) (*Transaction, [32]byte, error) {
	tx, err := b.Build(consensusBranchID, masterXsk, prover, provingCtx)
	if err != nil {
		return nil, [32]byte{}, err
	}
	for i := range tx.Spends {
		tx.Spends[i].SpendAuthSig = Signature{}
	}
	return tx, tx.Sighash, nil
}

func toSighashSpends(spends []SpendDescription) []sighash.SpendDigestInput {
	out := make([]sighash.SpendDigestInput, len(spends))
	for i, sp := range spends {
		out[i] = sighash.SpendDigestInput{
			Cv:        sp.Cv.Encode(),
			Anchor:    frEncode(sp.Anchor),
			Nullifier: sp.Nullifier,
			Rk:        sp.Rk.Encode(),
			ZkProof:   sp.ZkProof,
		}
	}
	return out
}

func toSighashOutputs(outputs []OutputDescription) []sighash.OutputDigestInput {
	out := make([]sighash.OutputDigestInput, len(outputs))
	for i, o := range outputs {
		out[i] = sighash.OutputDigestInput{
			Cv:            o.Cv.Encode(),
			Cmu:           frEncode(o.Cmu),
			Epk:           o.Epk.Encode(),
			EncCiphertext: o.EncCiphertext[:],
			OutCiphertext: o.OutCiphertext[:],
			ZkProof:       o.ZkProof,
		}
	}
	return out
}

// spendAuthSign computes a RedJubjub-style spend-authorization
// signature over digest, keyed by ask re-randomized with ar (spec.md
// §4.C step 8, GLOSSARY "rk"). This is a Schnorr signature: sample a
// nonce, commit to it as R, derive the Fiat-Shamir challenge c from
// (R, rk, digest), and respond with S = nonce + c*rsk. A verifier who
// knows rk (carried in the SpendDescription alongside this signature)
// and digest recomputes c and checks S*G == R + c*rk.
func spendAuthSign(ask, ar jubjub.Fs, digest [32]byte, params *jubjub.Params) Signature {
	rsk := ask.Add(ar)
	rk := params.Generator(jubjub.SpendingKeyGenerator).ScalarMul(rsk)

	nonce, err := jubjub.RandomFsFromReader(rand.Reader)
	if err != nil {
		return Signature{}
	}
	r := params.Generator(jubjub.SpendingKeyGenerator).ScalarMul(nonce)

	rEnc := r.Encode()
	rkEnc := rk.Encode()
	c := jubjub.HashToScalar(jubjub.PersonalizationRedJubjubSig, rEnc[:], append(append([]byte{}, rkEnc[:]...), digest[:]...))
	s := nonce.Add(c.Mul(rsk))

	var sig Signature
	sEnc := s.Bytes()
	copy(sig[0:32], rEnc[:])
	copy(sig[32:64], sEnc[:])
	return sig
}

var errBuilderAlreadyBuilt = builderAlreadyBuiltError{}

type builderAlreadyBuiltError struct{}

func (builderAlreadyBuiltError) Error() string { return "builder: build already consumed this builder" }
