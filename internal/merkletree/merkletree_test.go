package merkletree

import (
	"context"
	"testing"

	"github.com/shielded-labs/sapling-go/internal/jubjub"
)

func frOf(v uint64) jubjub.Fr {
	var f jubjub.Fr
	f.SetUint64(v)
	return f
}

func TestEmptyTreeRootIsDeterministic(t *testing.T) {
	params := jubjub.NewParams()
	t1 := New(NewInMemoryStore(), params)
	t2 := New(NewInMemoryStore(), params)

	ctx := context.Background()
	r1, err := t1.Root(ctx)
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	r2, err := t2.Root(ctx)
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if !r1.Equal(&r2) {
		t.Fatal("two empty trees produced different roots")
	}
}

func TestAppendChangesRoot(t *testing.T) {
	ctx := context.Background()
	params := jubjub.NewParams()
	tree := New(NewInMemoryStore(), params)

	before, err := tree.Root(ctx)
	if err != nil {
		t.Fatalf("Root: %v", err)
	}

	pos, err := tree.Append(ctx, frOf(42))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if pos != 0 {
		t.Fatalf("expected first leaf at position 0, got %d", pos)
	}

	after, err := tree.Root(ctx)
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if before.Equal(&after) {
		t.Fatal("root did not change after appending a leaf")
	}
}

func TestWitnessReproducesRoot(t *testing.T) {
	ctx := context.Background()
	params := jubjub.NewParams()
	tree := New(NewInMemoryStore(), params)

	leaves := []jubjub.Fr{frOf(1), frOf(2), frOf(3), frOf(4)}
	positions := make([]uint64, len(leaves))
	for i, leaf := range leaves {
		pos, err := tree.Append(ctx, leaf)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		positions[i] = pos
	}

	root, err := tree.Root(ctx)
	if err != nil {
		t.Fatalf("Root: %v", err)
	}

	for i, leaf := range leaves {
		w, err := tree.Witness(ctx, positions[i])
		if err != nil {
			t.Fatalf("Witness: %v", err)
		}
		got, err := w.Root(tree, leaf)
		if err != nil {
			t.Fatalf("witness Root: %v", err)
		}
		if !got.Equal(&root) {
			t.Fatalf("witness for leaf %d did not reproduce the tree root", i)
		}
	}
}

func TestWitnessRejectsStaleAnchorAfterAppend(t *testing.T) {
	ctx := context.Background()
	params := jubjub.NewParams()
	tree := New(NewInMemoryStore(), params)

	leaf := frOf(7)
	pos, err := tree.Append(ctx, leaf)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	w, err := tree.Witness(ctx, pos)
	if err != nil {
		t.Fatalf("Witness: %v", err)
	}
	staleRoot, err := w.Root(tree, leaf)
	if err != nil {
		t.Fatalf("witness Root: %v", err)
	}

	if _, err := tree.Append(ctx, frOf(9)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	currentRoot, err := tree.Root(ctx)
	if err != nil {
		t.Fatalf("Root: %v", err)
	}

	if staleRoot.Equal(&currentRoot) {
		t.Fatal("root should change once a new leaf is appended to the same subtree")
	}
}

func TestInvalidPositionRejected(t *testing.T) {
	ctx := context.Background()
	params := jubjub.NewParams()
	tree := New(NewInMemoryStore(), params)

	if _, err := tree.Witness(ctx, 0); err != ErrInvalidPosition {
		t.Fatalf("expected ErrInvalidPosition for an empty tree, got %v", err)
	}
}
