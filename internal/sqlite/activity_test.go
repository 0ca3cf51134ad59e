package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/noaesperanza/imre/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	sessionID := "s1"
	entry1 := &activity.ActivityEntry{
		SessionID:    &sessionID,
		ActorRef:     "patient-1",
		ActivityType: activity.TypeInterviewStarted,
		Summary:      "started interview",
	}
	entry2 := &activity.ActivityEntry{
		SessionID:    &sessionID,
		ActorRef:     "patient-1",
		ActivityType: activity.TypeAnswerRecorded,
		Summary:      "recorded opening.apresentacao",
		Details:      `{"stage_id":"opening"}`,
	}

	require.NoError(t, repo.Log(ctx, "tenant1", entry1))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.Log(ctx, "tenant1", entry2))
	require.NotZero(t, entry2.ID)

	entries, err := repo.List(ctx, "tenant1", activity.ListActivityOptions{SessionID: &sessionID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, entry2.ActivityType, entries[0].ActivityType)
	require.Equal(t, entry1.ActivityType, entries[1].ActivityType)
	require.Equal(t, "patient-1", entries[0].ActorRef)
	require.Nil(t, entries[0].ReportID)
}

func TestActivityRepository_FiltersAndTenantIsolation(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	reportID := "r1"
	require.NoError(t, repo.Log(ctx, "tenant1", &activity.ActivityEntry{
		ReportID: &reportID, ActivityType: activity.TypeReportShared, Summary: "shared",
	}))
	require.NoError(t, repo.Log(ctx, "tenant1", &activity.ActivityEntry{
		ReportID: &reportID, ActivityType: activity.TypeShareRevoked, Summary: "revoked",
	}))
	require.NoError(t, repo.Log(ctx, "tenant2", &activity.ActivityEntry{
		ReportID: &reportID, ActivityType: activity.TypeReportShared, Summary: "other tenant",
	}))

	shared := activity.TypeReportShared
	entries, err := repo.List(ctx, "tenant1", activity.ListActivityOptions{ReportID: &reportID, ActivityType: &shared})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "shared", entries[0].Summary)

	entries, err = repo.List(ctx, "tenant1", activity.ListActivityOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = repo.List(ctx, "tenant1", activity.ListActivityOptions{Offset: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = repo.List(ctx, "tenant3", activity.ListActivityOptions{})
	require.NoError(t, err)
	require.Empty(t, entries)
}
