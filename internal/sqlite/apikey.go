package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/noaesperanza/imre/internal/auth"
	"github.com/noaesperanza/imre/internal/repository"
)

// APIKeyRepository implements auth.KeyStore for SQLite
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create stores a hashed key
func (r *APIKeyRepository) Create(ctx context.Context, key *auth.APIKey) error {
	query := `INSERT INTO api_keys (key_hash, tenant_id, actor_ref, description) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, key.Hash, key.TenantID, key.ActorRef, key.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// Lookup finds a key by hash
func (r *APIKeyRepository) Lookup(ctx context.Context, keyHash string) (*auth.APIKey, error) {
	query := `SELECT key_hash, tenant_id, actor_ref, COALESCE(description, '') FROM api_keys WHERE key_hash = ?`
	var key auth.APIKey
	err := r.db.QueryRowContext(ctx, query, keyHash).Scan(&key.Hash, &key.TenantID, &key.ActorRef, &key.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}
	return &key, nil
}

// Touch records the last use of a key
func (r *APIKeyRepository) Touch(ctx context.Context, keyHash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now().UTC(), keyHash)
	if err != nil {
		return fmt.Errorf("failed to touch api key: %w", err)
	}
	return nil
}
