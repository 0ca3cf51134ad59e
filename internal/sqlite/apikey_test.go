package sqlite

import (
	"context"
	"testing"

	"github.com/noaesperanza/imre/internal/auth"
	"github.com/noaesperanza/imre/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyRepository(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewAPIKeyRepository(db)

	key := &auth.APIKey{Hash: auth.HashToken("k1"), TenantID: "clinic-a", ActorRef: "dr-silva"}
	require.NoError(t, repo.Create(ctx, key))
	require.ErrorIs(t, repo.Create(ctx, key), repository.ErrDuplicate)

	loaded, err := repo.Lookup(ctx, key.Hash)
	require.NoError(t, err)
	require.Equal(t, "clinic-a", loaded.TenantID)
	require.Equal(t, "dr-silva", loaded.ActorRef)
	require.NoError(t, repo.Touch(ctx, key.Hash))

	_, err = repo.Lookup(ctx, auth.HashToken("other"))
	require.ErrorIs(t, err, repository.ErrNotFound)

	id, err := auth.NewAPIKeyResolver(repo).Resolve(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, auth.Identity{TenantID: "clinic-a", ActorRef: "dr-silva"}, id)
}
