package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/noaesperanza/imre/internal/repository"
)

// APIKey is a stored API credential.
type APIKey struct {
	Hash        string
	TenantID    string
	ActorRef    string
	Description string
}

// KeyStore looks up API keys by hash.
type KeyStore interface {
	Lookup(ctx context.Context, keyHash string) (*APIKey, error)
	Touch(ctx context.Context, keyHash string) error
}

// APIKeyResolver resolves opaque API keys against a KeyStore.
type APIKeyResolver struct {
	store KeyStore
}

// NewAPIKeyResolver creates a resolver over the store.
func NewAPIKeyResolver(store KeyStore) *APIKeyResolver {
	return &APIKeyResolver{store: store}
}

// Resolve implements Resolver.
func (r *APIKeyResolver) Resolve(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrUnauthorized
	}
	hash := HashToken(token)
	key, err := r.store.Lookup(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Identity{}, ErrUnauthorized
		}
		return Identity{}, fmt.Errorf("looking up api key: %w", err)
	}
	if key.TenantID == "" {
		return Identity{}, ErrUnauthorized
	}
	_ = r.store.Touch(ctx, hash)
	return Identity{TenantID: key.TenantID, ActorRef: key.ActorRef}, nil
}
