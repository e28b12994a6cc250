package builder

import (
	"context"
	"testing"

	"github.com/shielded-labs/sapling-go/internal/jubjub"
	"github.com/shielded-labs/sapling-go/internal/merkletree"
	"github.com/shielded-labs/sapling-go/internal/zip32"
)

// TestScenarioS4RealProverBuildsTransaction is S4's "(Real prover ⇒
// Ok(Transaction))" case: an exactly-funded build, proved and signed
// with GnarkTxProver/gnarkProvingContext instead of the mocks, must
// succeed end to end.
func TestScenarioS4RealProverBuildsTransaction(t *testing.T) {
	params, master, addr, d := testSetup(t)
	ctx := context.Background()
	tree := merkletree.New(merkletree.NewInMemoryStore(), params)

	r, err := jubjub.RandomFs()
	if err != nil {
		t.Fatalf("RandomFs: %v", err)
	}
	note, err := addr.CreateNote(60000, r, params)
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	pos, err := tree.Append(ctx, note.CM(params))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	w, err := tree.Witness(ctx, pos)
	if err != nil {
		t.Fatalf("Witness: %v", err)
	}

	b := New(1, params)
	ar, err := jubjub.RandomFs()
	if err != nil {
		t.Fatalf("RandomFs: %v", err)
	}
	if err := b.AddSaplingSpend(0, d, note, ar, w, tree); err != nil {
		t.Fatalf("AddSaplingSpend: %v", err)
	}

	var ovk zip32.OutgoingViewingKey
	if err := b.AddSaplingOutput(ovk, addr, 50000, nil); err != nil {
		t.Fatalf("AddSaplingOutput: %v", err)
	}

	prover, err := NewGnarkTxProver(params)
	if err != nil {
		t.Fatalf("NewGnarkTxProver: %v", err)
	}
	provingCtx := NewGnarkProvingContext()

	tx, err := b.Build(1, master, prover, provingCtx)
	if err != nil {
		t.Fatalf("expected real-prover build to succeed, got %v", err)
	}
	if len(tx.Spends) != 1 || len(tx.Outputs) != 1 {
		t.Fatalf("got %d spend(s), %d output(s), want 1 and 1", len(tx.Spends), len(tx.Outputs))
	}
	if tx.ValueBalance != 10000 {
		t.Fatalf("value balance = %d, want 10000", tx.ValueBalance)
	}
	var zero Signature
	if tx.BindingSig == zero {
		t.Fatal("expected a non-zero binding signature")
	}
	for i, sp := range tx.Spends {
		if sp.SpendAuthSig == zero {
			t.Fatalf("spend %d: expected a non-zero spend-auth signature", i)
		}
	}
}

// TestSpendAuthSignVerifies checks the Schnorr identity the real
// signer and a verifier would both compute: S*G == R + c*rk.
func TestSpendAuthSignVerifies(t *testing.T) {
	params := jubjub.NewParams()
	ask, err := jubjub.RandomFs()
	if err != nil {
		t.Fatalf("RandomFs ask: %v", err)
	}
	ar, err := jubjub.RandomFs()
	if err != nil {
		t.Fatalf("RandomFs ar: %v", err)
	}
	var digest [32]byte
	digest[0] = 0x42

	sig := spendAuthSign(ask, ar, digest, params)

	rEnc := [32]byte{}
	copy(rEnc[:], sig[0:32])
	sEnc := [32]byte{}
	copy(sEnc[:], sig[32:64])

	r, err := jubjub.Decode(rEnc)
	if err != nil {
		t.Fatalf("decode R: %v", err)
	}
	s := jubjub.FsFromLEBytes(sEnc[:])

	rsk := ask.Add(ar)
	rk := params.Generator(jubjub.SpendingKeyGenerator).ScalarMul(rsk)
	rkEnc := rk.Encode()

	challenge := jubjub.HashToScalar(jubjub.PersonalizationRedJubjubSig, rEnc[:], append(append([]byte{}, rkEnc[:]...), digest[:]...))

	lhs := params.Generator(jubjub.SpendingKeyGenerator).ScalarMul(s)
	rhs := r.Add(rk.ScalarMul(challenge))
	if !lhs.Equal(rhs) {
		t.Fatal("spend-auth signature failed to verify: S*G != R + c*rk")
	}
}
