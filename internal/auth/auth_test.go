package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/noaesperanza/imre/internal/auth"
	"github.com/noaesperanza/imre/internal/repository"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type keyStore struct {
	mock.Mock
}

func (m *keyStore) Lookup(ctx context.Context, keyHash string) (*auth.APIKey, error) {
	args := m.Called(ctx, keyHash)
	if key, ok := args.Get(0).(*auth.APIKey); ok {
		return key, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *keyStore) Touch(ctx context.Context, keyHash string) error {
	return m.Called(ctx, keyHash).Error(0)
}

func TestAPIKeyResolver(t *testing.T) {
	ctx := context.Background()
	store := &keyStore{}
	hash := auth.HashToken("secret-key")
	store.On("Lookup", ctx, hash).Return(&auth.APIKey{Hash: hash, TenantID: "clinic-a", ActorRef: "dr-silva"}, nil)
	store.On("Lookup", ctx, auth.HashToken("wrong")).Return(nil, repository.ErrNotFound)
	store.On("Touch", ctx, hash).Return(nil)

	r := auth.NewAPIKeyResolver(store)
	id, err := r.Resolve(ctx, "secret-key")
	require.NoError(t, err)
	require.Equal(t, auth.Identity{TenantID: "clinic-a", ActorRef: "dr-silva"}, id)

	_, err = r.Resolve(ctx, "wrong")
	require.ErrorIs(t, err, auth.ErrUnauthorized)
	_, err = r.Resolve(ctx, " ")
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestJWTResolver(t *testing.T) {
	ctx := context.Background()
	r := auth.NewJWTResolver("shh", "imre")

	token, err := r.Issue(auth.Identity{TenantID: "clinic-a", ActorRef: "patient-1"}, time.Hour)
	require.NoError(t, err)

	id, err := r.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "clinic-a", id.TenantID)
	require.Equal(t, "patient-1", id.ActorRef)

	expired, err := r.Issue(auth.Identity{TenantID: "clinic-a"}, -time.Minute)
	require.NoError(t, err)
	_, err = r.Resolve(ctx, expired)
	require.ErrorIs(t, err, auth.ErrUnauthorized)

	other, err := auth.NewJWTResolver("other", "imre").Issue(auth.Identity{TenantID: "clinic-a"}, time.Hour)
	require.NoError(t, err)
	_, err = r.Resolve(ctx, other)
	require.ErrorIs(t, err, auth.ErrUnauthorized)

	noTenant, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "imre", Subject: "x"},
	}).SignedString([]byte("shh"))
	require.NoError(t, err)
	_, err = r.Resolve(ctx, noTenant)
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	jwtResolver := auth.NewJWTResolver("shh", "")
	store := &keyStore{}
	store.On("Lookup", ctx, mock.Anything).Return(nil, repository.ErrNotFound)

	chain := auth.Chain{auth.NewAPIKeyResolver(store), jwtResolver}
	token, err := jwtResolver.Issue(auth.Identity{TenantID: "clinic-b"}, time.Hour)
	require.NoError(t, err)

	id, err := chain.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "clinic-b", id.TenantID)

	_, err = chain.Resolve(ctx, "garbage")
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestIdentityContext(t *testing.T) {
	_, ok := auth.FromContext(context.Background())
	require.False(t, ok)

	ctx := auth.WithIdentity(context.Background(), auth.Identity{TenantID: "t"})
	id, ok := auth.FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "t", id.TenantID)
}
