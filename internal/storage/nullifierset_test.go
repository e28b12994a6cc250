package storage

import (
	"context"
	"testing"
)

func TestNullifierSetMarksAndChecksSpent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryNullifierStore()
	set := NewNullifierSet(store, 0)

	var nf [32]byte
	nf[0] = 0x01

	spent, err := set.IsSpent(ctx, nf)
	if err != nil {
		t.Fatalf("IsSpent: %v", err)
	}
	if spent {
		t.Fatal("expected unspent nullifier to report unspent")
	}

	var txHash [32]byte
	txHash[0] = 0xAA
	if err := set.MarkSpent(ctx, nf, txHash, 10); err != nil {
		t.Fatalf("MarkSpent: %v", err)
	}

	spent, err = set.IsSpent(ctx, nf)
	if err != nil {
		t.Fatalf("IsSpent after mark: %v", err)
	}
	if !spent {
		t.Fatal("expected nullifier to report spent after MarkSpent")
	}
}

func TestNullifierSetRejectsDoubleSpend(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryNullifierStore()
	set := NewNullifierSet(store, 0)

	var nf [32]byte
	nf[0] = 0x02
	var txHash [32]byte

	if err := set.MarkSpent(ctx, nf, txHash, 1); err != nil {
		t.Fatalf("first MarkSpent: %v", err)
	}
	if err := set.MarkSpent(ctx, nf, txHash, 2); err != ErrDuplicate {
		t.Fatalf("second MarkSpent: got %v, want ErrDuplicate", err)
	}
}

func TestNullifierSetCacheEvictsAtLimit(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryNullifierStore()
	set := NewNullifierSet(store, 2)

	for i := byte(0); i < 5; i++ {
		var nf [32]byte
		nf[0] = i
		if err := set.MarkSpent(ctx, nf, [32]byte{}, uint64(i)); err != nil {
			t.Fatalf("MarkSpent %d: %v", i, err)
		}
	}

	set.mu.RLock()
	size := len(set.cache)
	set.mu.RUnlock()
	if size > 2 {
		t.Fatalf("expected cache size bounded to <= 2, got %d", size)
	}

	// The durable store still has every entry regardless of cache eviction.
	for i := byte(0); i < 5; i++ {
		var nf [32]byte
		nf[0] = i
		spent, err := set.IsSpent(ctx, nf)
		if err != nil {
			t.Fatalf("IsSpent %d: %v", i, err)
		}
		if !spent {
			t.Fatalf("expected nullifier %d to still report spent via durable store", i)
		}
	}
}
