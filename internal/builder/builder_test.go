package builder

import (
	"context"
	"testing"

	"github.com/shielded-labs/sapling-go/internal/jubjub"
	"github.com/shielded-labs/sapling-go/internal/merkletree"
	"github.com/shielded-labs/sapling-go/internal/sapling"
	"github.com/shielded-labs/sapling-go/internal/zip32"
)

func testSetup(t *testing.T) (*jubjub.Params, *zip32.ExtendedSpendingKey, sapling.PaymentAddress, sapling.Diversifier) {
	t.Helper()
	params := jubjub.NewParams()
	master := zip32.Master(nil)
	fvk := zip32.FromExtendedSpendingKey(master, params)
	d, addr, err := fvk.DefaultAddress(params)
	if err != nil {
		t.Fatalf("DefaultAddress: %v", err)
	}
	return params, master, addr, d
}

func newTreeWithSpend(t *testing.T, params *jubjub.Params, addr sapling.PaymentAddress, value uint64) (*merkletree.CommitmentTree, sapling.Note, *merkletree.Witness) {
	t.Helper()
	ctx := context.Background()
	tree := merkletree.New(merkletree.NewInMemoryStore(), params)

	r, err := jubjub.RandomFs()
	if err != nil {
		t.Fatalf("RandomFs: %v", err)
	}
	note, err := addr.CreateNote(value, r, params)
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
	return tree, note, w
}

// S1: empty build fails with "Change is negative: -10000".
func TestScenarioS1EmptyBuildFails(t *testing.T) {
	params, master, _, _ := testSetup(t)
	b := New(1, params)

	_, err := b.Build(1, master, NewMockTxProver(), NewMockProvingContext())
	if err == nil {
		t.Fatal("expected error building an empty transaction")
	}
	if err.Error() != "Change is negative: -10000" {
		t.Fatalf("got %q, want %q", err.Error(), "Change is negative: -10000")
	}
}

// S2: output-only build fails with "Change is negative: -60000".
func TestScenarioS2OutputOnlyFails(t *testing.T) {
	params, master, addr, _ := testSetup(t)
	b := New(1, params)

	var ovk zip32.OutgoingViewingKey
	if err := b.AddSaplingOutput(ovk, addr, 50000, nil); err != nil {
		t.Fatalf("AddSaplingOutput: %v", err)
	}

	_, err := b.Build(1, master, NewMockTxProver(), NewMockProvingContext())
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Change is negative: -60000" {
		t.Fatalf("got %q, want %q", err.Error(), "Change is negative: -60000")
	}
}

// S3: under-funded spend fails with "Change is negative: -1".
func TestScenarioS3UnderfundedSpendFails(t *testing.T) {
	params, master, addr, d := testSetup(t)
	b := New(1, params)

	tree, note, w := newTreeWithSpend(t, params, addr, 59999)
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

	_, err = b.Build(1, master, NewMockTxProver(), NewMockProvingContext())
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Change is negative: -1" {
		t.Fatalf("got %q, want %q", err.Error(), "Change is negative: -1")
	}
}

// TestScenarioS4WithSharedTree is S4: both spends are
// witnessed against the same final tree state, so both report the same
// anchor, consistent with add_sapling_spend's single-anchor contract.
func TestScenarioS4WithSharedTree(t *testing.T) {
	params, master, addr, d := testSetup(t)
	ctx := context.Background()
	tree := merkletree.New(merkletree.NewInMemoryStore(), params)

	mkNote := func(value uint64) sapling.Note {
		r, _ := jubjub.RandomFs()
		n, err := addr.CreateNote(value, r, params)
		if err != nil {
			t.Fatalf("CreateNote: %v", err)
		}
		return n
	}

	note1 := mkNote(30000)
	note2 := mkNote(30000)
	pos1, err := tree.Append(ctx, note1.CM(params))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	pos2, err := tree.Append(ctx, note2.CM(params))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	w1, err := tree.Witness(ctx, pos1)
	if err != nil {
		t.Fatalf("Witness: %v", err)
	}
	w2, err := tree.Witness(ctx, pos2)
	if err != nil {
		t.Fatalf("Witness: %v", err)
	}

	b := New(1, params)
	ar1, _ := jubjub.RandomFs()
	ar2, _ := jubjub.RandomFs()
	if err := b.AddSaplingSpend(0, d, note1, ar1, w1, tree); err != nil {
		t.Fatalf("AddSaplingSpend 1: %v", err)
	}
	if err := b.AddSaplingSpend(0, d, note2, ar2, w2, tree); err != nil {
		t.Fatalf("AddSaplingSpend 2: %v", err)
	}

	var ovk zip32.OutgoingViewingKey
	if err := b.AddSaplingOutput(ovk, addr, 50000, nil); err != nil {
		t.Fatalf("AddSaplingOutput: %v", err)
	}

	_, err = b.Build(1, master, NewMockTxProver(), NewMockProvingContext())
	if err == nil {
		t.Fatal("expected binding-sig failure with the mock prover")
	}
	if err.Error() != "Failed to create bindingSig" {
		t.Fatalf("got %q, want %q", err.Error(), "Failed to create bindingSig")
	}
}

// S5: spends witnessed against two different trees disagree on anchor.
func TestScenarioS5AnchorMismatch(t *testing.T) {
	params, _, addr, d := testSetup(t)
	b := New(1, params)

	tree1, note1, w1 := newTreeWithSpend(t, params, addr, 10000)
	ar1, _ := jubjub.RandomFs()
	if err := b.AddSaplingSpend(0, d, note1, ar1, w1, tree1); err != nil {
		t.Fatalf("first AddSaplingSpend: %v", err)
	}

	tree2, note2, w2 := newTreeWithSpend(t, params, addr, 20000)
	ar2, _ := jubjub.RandomFs()
	err := b.AddSaplingSpend(0, d, note2, ar2, w2, tree2)
	if err == nil {
		t.Fatal("expected AnchorMismatchError")
	}
	if _, ok := err.(*AnchorMismatchError); !ok {
		t.Fatalf("got %T, want *AnchorMismatchError", err)
	}

	// Builder state is unchanged: still exactly one spend recorded.
	if len(b.spends) != 1 {
		t.Fatalf("expected builder to retain only the first spend, got %d", len(b.spends))
	}
	if b.valueBalance != 10000 {
		t.Fatalf("expected unchanged value balance 10000, got %d", b.valueBalance)
	}
}

func TestValueBalanceAccounting(t *testing.T) {
	params, _, addr, d := testSetup(t)
	b := New(1, params)

	tree, note, w := newTreeWithSpend(t, params, addr, 100)
	ar, _ := jubjub.RandomFs()
	if err := b.AddSaplingSpend(0, d, note, ar, w, tree); err != nil {
		t.Fatalf("AddSaplingSpend: %v", err)
	}

	var ovk zip32.OutgoingViewingKey
	if err := b.AddSaplingOutput(ovk, addr, 30, nil); err != nil {
		t.Fatalf("AddSaplingOutput: %v", err)
	}

	if got, want := b.ValueBalance(), int64(70); got != want {
		t.Fatalf("value balance = %d, want %d", got, want)
	}
}
