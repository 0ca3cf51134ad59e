// Package auth resolves bearer credentials into tenant identities.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrUnauthorized indicates a missing or invalid credential.
var ErrUnauthorized = errors.New("unauthorized: invalid token")

// DefaultTenant is used when authentication is disabled.
const DefaultTenant = "default"

// Identity is the authenticated caller. ActorRef is empty when the
// credential is not bound to a person.
type Identity struct {
	TenantID string
	ActorRef string
}

// Resolver maps a bearer token to an identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

type identityKey struct{}

// WithIdentity stores the identity in the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in the context.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// HashToken returns the stored form of an API key.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
