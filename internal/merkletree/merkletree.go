// Package merkletree implements the fixed-depth Sapling note
// commitment tree: an append-only incremental Merkle tree whose
// internal nodes are combined with the Pedersen hash (not SHA-256),
// and whose empty-leaf value is sapling.Uncommitted() rather than an
// all-zero hash (spec.md §4.A). Grounded on the teacher's
// CommitmentTree/TreeStore/MerklePath shape in internal/zkp/merkle.go,
// generalized from a SHA-256 binary hash tree to the Sapling
// MerkleCRH construction.
package merkletree

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/shielded-labs/sapling-go/internal/jubjub"
	"github.com/shielded-labs/sapling-go/internal/sapling"
)

// Depth is the fixed depth of the Sapling commitment tree.
const Depth = 32

var (
	ErrTreeFull        = errors.New("merkletree: tree is full")
	ErrInvalidPosition = errors.New("merkletree: invalid position")
	ErrInvalidWitness  = errors.New("merkletree: witness length does not match tree depth")
)

// Node is a tree node: the LE byte encoding of an Fr element, the same
// shape a note commitment already takes.
type Node [32]byte

func frToNode(f jubjub.Fr) Node {
	be := f.Bytes()
	var n Node
	for i, c := range be {
		n[31-i] = c
	}
	return n
}

func nodeToFr(n Node) jubjub.Fr {
	var be [32]byte
	for i, c := range n {
		be[31-i] = c
	}
	var f jubjub.Fr
	f.SetBytes(be[:])
	return f
}

// Store persists tree nodes, the current root, and the leaf count.
// Callers needing durability (spec.md DOMAIN STACK) back this with
// Postgres via internal/storage; tests use InMemoryStore.
type Store interface {
	GetNode(ctx context.Context, level int, index uint64) (Node, bool, error)
	SetNode(ctx context.Context, level int, index uint64, node Node) error
	GetSize(ctx context.Context) (uint64, error)
	SetSize(ctx context.Context, size uint64) error
}

// Witness is an authentication path from a leaf to the tree root, the
// shape a spend proof needs to prove commitment-tree membership
// without revealing the leaf's position (spec.md §4.C step 2,
// "witness materialization").
type Witness struct {
	Siblings []Node
	Position uint64
}

// CommitmentTree is the append-only note commitment accumulator.
type CommitmentTree struct {
	mu     sync.RWMutex
	params *jubjub.Params
	store  Store
	size   uint64

	emptyAtLevel []Node
}

// New constructs a CommitmentTree backed by store, precomputing the
// empty subtree value at each level from sapling.Uncommitted().
func New(store Store, params *jubjub.Params) *CommitmentTree {
	t := &CommitmentTree{params: params, store: store}
	t.emptyAtLevel = make([]Node, Depth+1)
	t.emptyAtLevel[0] = frToNode(sapling.Uncommitted())
	for level := 1; level <= Depth; level++ {
		child := t.emptyAtLevel[level-1]
		t.emptyAtLevel[level] = t.hashPair(level-1, child, child)
	}
	return t
}

// Load restores the leaf count from the store (spec.md DOMAIN STACK:
// process restart must resume from persisted state).
func (t *CommitmentTree) Load(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	size, err := t.store.GetSize(ctx)
	if err != nil {
		return err
	}
	t.size = size
	return nil
}

// hashPair combines two level-`level` nodes into their level-`level+1`
// parent via the Pedersen hash, personalized per-level so that a
// collision between levels is infeasible.
func (t *CommitmentTree) hashPair(level int, left, right Node) Node {
	var levelBytes [4]byte
	binary.LittleEndian.PutUint32(levelBytes[:], uint32(level))
	tag := append([]byte("MerkleCRH"), levelBytes[:]...)

	bits := make([]bool, 0, 512)
	for _, b := range left {
		for i := 0; i < 8; i++ {
			bits = append(bits, (b>>uint(i))&1 == 1)
		}
	}
	for _, b := range right {
		for i := 0; i < 8; i++ {
			bits = append(bits, (b>>uint(i))&1 == 1)
		}
	}

	pt := jubjub.PedersenHash(tag, bits)
	return frToNode(pt.X)
}

func (t *CommitmentTree) nodeAt(ctx context.Context, level int, index uint64) (Node, error) {
	n, ok, err := t.store.GetNode(ctx, level, index)
	if err != nil {
		return Node{}, err
	}
	if !ok {
		return t.emptyAtLevel[level], nil
	}
	return n, nil
}

// Append adds a note commitment as the next leaf, updating every node
// on its path to the root, and returns its position.
func (t *CommitmentTree) Append(ctx context.Context, cm jubjub.Fr) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	maxLeaves := uint64(1) << Depth
	if t.size >= maxLeaves {
		return 0, ErrTreeFull
	}

	position := t.size
	leaf := frToNode(cm)
	if err := t.store.SetNode(ctx, 0, position, leaf); err != nil {
		return 0, err
	}

	currentIndex := position
	currentHash := leaf
	for level := 0; level < Depth; level++ {
		siblingIndex := currentIndex ^ 1
		sibling, err := t.nodeAt(ctx, level, siblingIndex)
		if err != nil {
			return 0, err
		}

		var parent Node
		if currentIndex%2 == 0 {
			parent = t.hashPair(level, currentHash, sibling)
		} else {
			parent = t.hashPair(level, sibling, currentHash)
		}

		currentIndex /= 2
		currentHash = parent
		if err := t.store.SetNode(ctx, level+1, currentIndex, currentHash); err != nil {
			return 0, err
		}
	}

	t.size = position + 1
	if err := t.store.SetSize(ctx, t.size); err != nil {
		return 0, err
	}
	return position, nil
}

// Root returns the current tree root as an Fr (the anchor a spend
// description is verified against, spec.md §3 Anchor).
func (t *CommitmentTree) Root(ctx context.Context) (jubjub.Fr, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.size == 0 {
		return nodeToFr(t.emptyAtLevel[Depth]), nil
	}
	root, err := t.nodeAt(ctx, Depth, 0)
	if err != nil {
		return jubjub.Fr{}, err
	}
	return nodeToFr(root), nil
}

// Witness materializes the authentication path for the leaf at
// position (spec.md §4.C step 2). Returns ErrInvalidPosition if the
// leaf has not been appended yet.
func (t *CommitmentTree) Witness(ctx context.Context, position uint64) (*Witness, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if position >= t.size {
		return nil, ErrInvalidPosition
	}

	siblings := make([]Node, Depth)
	currentIndex := position
	for level := 0; level < Depth; level++ {
		sibling, err := t.nodeAt(ctx, level, currentIndex^1)
		if err != nil {
			return nil, err
		}
		siblings[level] = sibling
		currentIndex /= 2
	}
	return &Witness{Siblings: siblings, Position: position}, nil
}

// Root recomputes the tree root implied by leaf under w, without
// touching the store — the check the builder uses to confirm a
// caller-supplied witness is still consistent with the tree's anchor
// (spec.md §4.C step 2, §7 AnchorMismatchError).
func (w *Witness) Root(tree *CommitmentTree, leaf jubjub.Fr) (jubjub.Fr, error) {
	if len(w.Siblings) != Depth {
		return jubjub.Fr{}, ErrInvalidWitness
	}

	current := frToNode(leaf)
	index := w.Position
	for level := 0; level < Depth; level++ {
		sibling := w.Siblings[level]
		if index%2 == 0 {
			current = tree.hashPair(level, current, sibling)
		} else {
			current = tree.hashPair(level, sibling, current)
		}
		index /= 2
	}
	return nodeToFr(current), nil
}

// InMemoryStore is a sync.RWMutex-guarded in-memory Store, the pattern
// the teacher uses for every in-process cache fronting a persistent
// store (spec.md AMBIENT STACK).
type InMemoryStore struct {
	mu    sync.RWMutex
	nodes map[int]map[uint64]Node
	size  uint64
}

// NewInMemoryStore constructs an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nodes: make(map[int]map[uint64]Node)}
}

func (s *InMemoryStore) GetNode(ctx context.Context, level int, index uint64) (Node, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	levelMap, ok := s.nodes[level]
	if !ok {
		return Node{}, false, nil
	}
	n, ok := levelMap[index]
	return n, ok, nil
}

func (s *InMemoryStore) SetNode(ctx context.Context, level int, index uint64, node Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nodes[level] == nil {
		s.nodes[level] = make(map[uint64]Node)
	}
	s.nodes[level][index] = node
	return nil
}

func (s *InMemoryStore) GetSize(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size, nil
}

func (s *InMemoryStore) SetSize(ctx context.Context, size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.size = size
	return nil
}
