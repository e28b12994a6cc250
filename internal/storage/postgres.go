// Package storage implements the durable backends behind
// internal/merkletree.Store and the spent-nullifier set: PostgreSQL
// via pgx, adapted from the teacher's storage.PostgresStore.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shielded-labs/sapling-go/internal/merkletree"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrDBConnection = errors.New("database connection error")
)

// Config holds database configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DefaultConfig returns default database configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "sapling",
		Password: "",
		Database: "sapling",
		SSLMode:  "disable",
		MaxConns: 20,
	}
}

// PostgresStore implements persistent storage for the note commitment
// tree and the spent-nullifier set using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(ctx context.Context, cfg *Config) (*PostgresStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.MaxConns,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// ============================================
// Commitment tree storage (internal/merkletree.Store)
// ============================================

// GetNode retrieves a tree node by (level, index).
func (s *PostgresStore) GetNode(ctx context.Context, level int, index uint64) (merkletree.Node, bool, error) {
	query := `SELECT node FROM commitment_tree_nodes WHERE level = $1 AND idx = $2`

	var raw []byte
	err := s.pool.QueryRow(ctx, query, level, index).Scan(&raw)
	if err == pgx.ErrNoRows {
		return merkletree.Node{}, false, nil
	}
	if err != nil {
		return merkletree.Node{}, false, fmt.Errorf("failed to get tree node: %w", err)
	}

	var node merkletree.Node
	copy(node[:], raw)
	return node, true, nil
}

// SetNode stores a tree node, overwriting any existing value at the
// same (level, index).
func (s *PostgresStore) SetNode(ctx context.Context, level int, index uint64, node merkletree.Node) error {
	query := `
		INSERT INTO commitment_tree_nodes (level, idx, node) VALUES ($1, $2, $3)
		ON CONFLICT (level, idx) DO UPDATE SET node = $3
	`
	if _, err := s.pool.Exec(ctx, query, level, index, node[:]); err != nil {
		return fmt.Errorf("failed to set tree node: %w", err)
	}
	return nil
}

// GetSize returns the persisted leaf count.
func (s *PostgresStore) GetSize(ctx context.Context) (uint64, error) {
	query := `SELECT size FROM commitment_tree_meta WHERE id = 1`

	var size uint64
	err := s.pool.QueryRow(ctx, query).Scan(&size)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get tree size: %w", err)
	}
	return size, nil
}

// SetSize updates the persisted leaf count.
func (s *PostgresStore) SetSize(ctx context.Context, size uint64) error {
	query := `
		INSERT INTO commitment_tree_meta (id, size) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET size = $1
	`
	if _, err := s.pool.Exec(ctx, query, size); err != nil {
		return fmt.Errorf("failed to set tree size: %w", err)
	}
	return nil
}

var _ merkletree.Store = (*PostgresStore)(nil)

// ============================================
// Nullifier set
// ============================================

// IsSpent reports whether nullifier has already been recorded spent.
func (s *PostgresStore) IsSpent(ctx context.Context, nullifier [32]byte) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM nullifiers WHERE nullifier = $1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, nullifier[:]).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check nullifier: %w", err)
	}
	return exists, nil
}

// MarkSpent records nullifier as spent by txHash at height. Returns
// ErrDuplicate if the nullifier was already recorded, the double-spend
// signal callers must treat as fatal.
func (s *PostgresStore) MarkSpent(ctx context.Context, nullifier [32]byte, txHash [32]byte, height uint64) error {
	query := `
		INSERT INTO nullifiers (nullifier, tx_hash, block_height) VALUES ($1, $2, $3)
		ON CONFLICT (nullifier) DO NOTHING
	`
	tag, err := s.pool.Exec(ctx, query, nullifier[:], txHash[:], height)
	if err != nil {
		return fmt.Errorf("failed to mark nullifier spent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}
