package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/noaesperanza/imre/internal/domain/sharing"
	"github.com/noaesperanza/imre/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestGrantRepository_CreateListRevoke(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertCompletedSession(t, db, "s1", "tenant1", "patient-1")
	require.NoError(t, NewReportRepository(db).Create(ctx, "tenant1", newReport("r1", "s1")))

	repo := NewGrantRepository(db)
	base := time.Now().UTC()
	g1 := &sharing.Grant{ID: "g1", ReportID: "r1", GrantedToRef: "dr-silva", GrantedByRef: "patient-1", GrantedAt: base}
	g2 := &sharing.Grant{ID: "g2", ReportID: "r1", GrantedToRef: "dr-souza", GrantedByRef: "dr-silva", GrantedAt: base.Add(time.Second)}
	require.NoError(t, repo.Create(ctx, "tenant1", g2))
	require.NoError(t, repo.Create(ctx, "tenant1", g1))

	grants, err := repo.ListByReport(ctx, "tenant1", "r1")
	require.NoError(t, err)
	require.Len(t, grants, 2)
	require.Equal(t, "g1", grants[0].ID)
	require.Equal(t, "g2", grants[1].ID)
	require.True(t, grants[0].Active())

	rev := &sharing.Revocation{GrantID: "g1", RevokedByRef: "patient-1", RevokedAt: base.Add(time.Minute)}
	require.NoError(t, repo.Revoke(ctx, "tenant1", rev))
	require.ErrorIs(t, repo.Revoke(ctx, "tenant1", rev), repository.ErrDuplicate)
	require.ErrorIs(t, repo.Revoke(ctx, "tenant1", &sharing.Revocation{GrantID: "nope", RevokedByRef: "x", RevokedAt: base}), repository.ErrNotFound)

	loaded, err := repo.Get(ctx, "tenant1", "g1")
	require.NoError(t, err)
	require.False(t, loaded.Active())
	require.Equal(t, "patient-1", *loaded.RevokedByRef)

	// Revocation never deletes the grant.
	grants, err = repo.ListByReport(ctx, "tenant1", "r1")
	require.NoError(t, err)
	require.Len(t, grants, 2)

	_, err = repo.Get(ctx, "tenant2", "g1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGrantRepository_RequiresReport(t *testing.T) {
	db := NewTestDB(t)
	repo := NewGrantRepository(db)
	err := repo.Create(context.Background(), "tenant1", &sharing.Grant{
		ID: "g1", ReportID: "missing", GrantedToRef: "a", GrantedByRef: "b", GrantedAt: time.Now(),
	})
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)
}
