package builder

import (
	"github.com/shielded-labs/sapling-go/internal/jubjub"
	"github.com/shielded-labs/sapling-go/internal/merkletree"
	"github.com/shielded-labs/sapling-go/internal/sapling"
)

// MockTxProver returns structurally valid but cryptographically
// invalid artifacts (spec.md §6: "A mock implementation for tests
// returns structurally valid but cryptographically invalid artifacts;
// consumers must tolerate downstream binding-signature failure from
// mocks"). It is paired with mockProvingContext, which accumulates
// nothing and always fails BindingSig, matching scenario S4.
type MockTxProver struct{}

// NewMockTxProver constructs a MockTxProver.
func NewMockTxProver() *MockTxProver {
	return &MockTxProver{}
}

func (m *MockTxProver) SpendProof(ctx ProvingContext, pgk sapling.ProofGenerationKey, diversifier sapling.Diversifier, rcm, ar jubjub.Fs, value uint64, anchor jubjub.Fr, witness *merkletree.Witness) ([]byte, jubjub.Point, jubjub.Point, error) {
	vc := sapling.ValueCommitment{Value: value, Randomness: rcm}
	params := jubjub.NewParams()
	cv := vc.Commit(params)

	rk := pgk.Ak.Add(params.Generator(jubjub.SpendingKeyGenerator).ScalarMul(ar))

	if mctx, ok := ctx.(*mockProvingContext); ok {
		mctx.accumulate(rcm, true)
	}

	proof := make([]byte, 192) // Groth16 proof size, structurally valid length
	return proof, cv, rk, nil
}

func (m *MockTxProver) OutputProof(ctx ProvingContext, esk jubjub.Fs, to sapling.PaymentAddress, rcm jubjub.Fs, value uint64) ([]byte, jubjub.Point, error) {
	vc := sapling.ValueCommitment{Value: value, Randomness: rcm}
	params := jubjub.NewParams()
	cv := vc.Commit(params)

	if mctx, ok := ctx.(*mockProvingContext); ok {
		mctx.accumulate(rcm, false)
	}

	proof := make([]byte, 192)
	return proof, cv, nil
}

// mockProvingContext deliberately does not accumulate bsk correctly:
// it tracks nothing usable for a real binding signature and always
// fails, matching scenario S4 ("Failed to create bindingSig") where
// an exactly-funded, mock-proved transaction still cannot bind.
type mockProvingContext struct {
	spendCount  int
	outputCount int
}

// NewMockProvingContext constructs a fresh mock proving context.
func NewMockProvingContext() ProvingContext {
	return &mockProvingContext{}
}

func (c *mockProvingContext) accumulate(_ jubjub.Fs, isSpend bool) {
	if isSpend {
		c.spendCount++
	} else {
		c.outputCount++
	}
}

func (c *mockProvingContext) BindingSig(valueBalance int64, sighash [32]byte) (Signature, error) {
	return Signature{}, &BindingSigFailedError{}
}
