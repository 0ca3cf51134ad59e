package evaluation_test

import (
	"context"
	"testing"

	"github.com/noaesperanza/imre/internal/domain/activity"
	"github.com/noaesperanza/imre/internal/domain/catalog"
	"github.com/noaesperanza/imre/internal/domain/interview"
	"github.com/noaesperanza/imre/internal/domain/interview/interviewtest"
	"github.com/noaesperanza/imre/internal/domain/report"
	"github.com/noaesperanza/imre/internal/domain/sharing"
	"github.com/noaesperanza/imre/internal/evaluation"
	"github.com/noaesperanza/imre/internal/sqlite"
	"github.com/stretchr/testify/require"
)

const tenant = "tenant1"

func newService(t *testing.T) *evaluation.Service {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	cat := catalog.Default()
	activityRepo := sqlite.NewActivityRepository(db)
	reportRepo, err := report.NewCachedRepository(sqlite.NewReportRepository(db), 16)
	require.NoError(t, err)

	interviews := interview.NewService(sqlite.NewSessionRepository(db), activityRepo, interview.NewEngine(cat, nil), interview.DefaultMaxRetries, nil)
	reports := report.NewService(reportRepo, activityRepo, report.NewSynthesizer(cat), nil)
	gate := sharing.NewService(sqlite.NewGrantRepository(db), reportRepo, activityRepo, nil)

	return evaluation.NewService(interviews, reports, gate, activity.NewService(activityRepo, nil), nil)
}

func answerAll(t *testing.T, svc *evaluation.Service, sessionID string, steps []interviewtest.Step) *interview.Snapshot {
	t.Helper()
	var snap *interview.Snapshot
	for _, s := range steps {
		var err error
		snap, err = svc.Answer(context.Background(), tenant, evaluation.AnswerRequest{
			SessionID: sessionID,
			StageID:   s.StageID,
			FieldKey:  s.FieldKey,
			Value:     s.Value,
			ActorRef:  "patient-1",
		})
		require.NoError(t, err, "%s.%s", s.StageID, s.FieldKey)
	}
	return snap
}

func TestEvaluation_FullInterview(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	snap, err := svc.StartInterview(ctx, tenant, "patient-1")
	require.NoError(t, err)
	require.Equal(t, catalog.StageOpening, snap.CurrentStageID)
	require.Len(t, snap.PendingFields, 1)

	_, err = svc.StartInterview(ctx, tenant, "patient-1")
	require.ErrorIs(t, err, interview.ErrDuplicateActiveSession)

	_, err = svc.GetReport(ctx, tenant, snap.SessionID, "")
	require.ErrorIs(t, err, evaluation.ErrReportPending)

	last := answerAll(t, svc, snap.SessionID, interviewtest.DefaultSteps())
	require.Equal(t, interview.StatusAwaitingConfirmation, last.Status)
	require.Empty(t, last.PendingFields)

	_, err = svc.GetReport(ctx, tenant, snap.SessionID, "")
	require.ErrorIs(t, err, evaluation.ErrReportPending)

	result, err := svc.Confirm(ctx, tenant, snap.SessionID, "patient-1")
	require.NoError(t, err)
	require.Equal(t, interview.StatusCompleted, result.Session.Status)
	require.NotNil(t, result.Report)
	require.Equal(t, report.RecommendScheduleConsultation, result.Report.Recommendation)
	require.True(t, result.Report.ConsentToShare)
	require.Len(t, result.Report.Sections, 12)

	again, err := svc.GetReport(ctx, tenant, snap.SessionID, "")
	require.NoError(t, err)
	require.Equal(t, result.Report.ID, again.ID)

	view, err := svc.GetSession(ctx, tenant, snap.SessionID, "")
	require.NoError(t, err)
	require.Len(t, view.Answers, len(interviewtest.DefaultSteps()))

	// A new interview may start once the previous one is terminal.
	_, err = svc.StartInterview(ctx, tenant, "patient-1")
	require.NoError(t, err)
	sessions, err := svc.ListSessions(ctx, tenant, "patient-1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	entries, err := svc.RecentActivity(ctx, tenant, activity.ListActivityOptions{Limit: 100})
	require.NoError(t, err)
	types := map[activity.ActivityType]int{}
	for _, e := range entries {
		types[e.ActivityType]++
	}
	require.Equal(t, 2, types[activity.TypeInterviewStarted])
	require.Equal(t, len(interviewtest.DefaultSteps()), types[activity.TypeAnswerRecorded])
	require.Equal(t, 1, types[activity.TypeInterviewCompleted])
	require.Equal(t, 1, types[activity.TypeReportGenerated])
}

func TestEvaluation_RejectedAnswerKeepsState(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	snap, err := svc.StartInterview(ctx, tenant, "patient-2")
	require.NoError(t, err)

	_, err = svc.Answer(ctx, tenant, evaluation.AnswerRequest{
		SessionID: snap.SessionID,
		StageID:   catalog.StageAlergias,
		FieldKey:  "possui_alergias",
		Value:     "sim",
	})
	require.ErrorIs(t, err, interview.ErrStageMismatch)

	view, err := svc.GetSession(ctx, tenant, snap.SessionID, "")
	require.NoError(t, err)
	require.Equal(t, 0, view.CurrentStageIndex)
	require.Empty(t, view.Answers)
	require.Equal(t, snap.Version, view.Version)
}

func TestEvaluation_AbandonHasNoReport(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	snap, err := svc.StartInterview(ctx, tenant, "patient-3")
	require.NoError(t, err)

	abandoned, err := svc.Abandon(ctx, tenant, snap.SessionID, "paciente desistiu", "patient-3")
	require.NoError(t, err)
	require.Equal(t, interview.StatusAbandoned, abandoned.Status)

	_, err = svc.GetReport(ctx, tenant, snap.SessionID, "")
	require.ErrorIs(t, err, report.ErrSessionNotCompleted)

	_, err = svc.Confirm(ctx, tenant, snap.SessionID, "patient-3")
	require.ErrorIs(t, err, interview.ErrInvalidState)
}

func TestEvaluation_Sharing(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	snap, err := svc.StartInterview(ctx, tenant, "patient-4")
	require.NoError(t, err)
	answerAll(t, svc, snap.SessionID, interviewtest.DefaultSteps())
	result, err := svc.Confirm(ctx, tenant, snap.SessionID, "patient-4")
	require.NoError(t, err)
	reportID := result.Report.ID

	_, err = svc.ViewReport(ctx, tenant, reportID, "dr-silva")
	require.ErrorIs(t, err, sharing.ErrUnauthorized)

	_, err = svc.ShareReport(ctx, tenant, reportID, "dr-silva", "intruder")
	require.ErrorIs(t, err, sharing.ErrUnauthorized)

	grant, err := svc.ShareReport(ctx, tenant, reportID, "dr-silva", "patient-4")
	require.NoError(t, err)
	require.True(t, grant.Active())

	_, err = svc.ShareReport(ctx, tenant, reportID, "dr-silva", "patient-4")
	require.ErrorIs(t, err, sharing.ErrAlreadyGranted)

	viewed, err := svc.ViewReport(ctx, tenant, reportID, "dr-silva")
	require.NoError(t, err)
	require.Equal(t, reportID, viewed.ID)

	revoked, err := svc.RevokeShare(ctx, tenant, grant.ID, "patient-4")
	require.NoError(t, err)
	require.False(t, revoked.Active())

	_, err = svc.RevokeShare(ctx, tenant, grant.ID, "patient-4")
	require.ErrorIs(t, err, sharing.ErrInvalidState)

	_, err = svc.ViewReport(ctx, tenant, reportID, "dr-silva")
	require.ErrorIs(t, err, sharing.ErrUnauthorized)

	grants, err := svc.ListGrants(ctx, tenant, reportID, "patient-4")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.NotNil(t, grants[0].RevokedAt)
}

func TestEvaluation_ReadsGoThroughGate(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	snap, err := svc.StartInterview(ctx, tenant, "patient-5")
	require.NoError(t, err)

	// No report exists yet, so only the patient may look.
	_, err = svc.GetReport(ctx, tenant, snap.SessionID, "dr-stranger")
	require.ErrorIs(t, err, sharing.ErrUnauthorized)
	_, err = svc.GetReport(ctx, tenant, snap.SessionID, "patient-5")
	require.ErrorIs(t, err, evaluation.ErrReportPending)

	answerAll(t, svc, snap.SessionID, interviewtest.DefaultSteps())
	result, err := svc.Confirm(ctx, tenant, snap.SessionID, "patient-5")
	require.NoError(t, err)
	reportID := result.Report.ID

	_, err = svc.GetSession(ctx, tenant, snap.SessionID, "dr-stranger")
	require.ErrorIs(t, err, sharing.ErrUnauthorized)
	_, err = svc.GetReport(ctx, tenant, snap.SessionID, "dr-stranger")
	require.ErrorIs(t, err, sharing.ErrUnauthorized)
	_, err = svc.ListGrants(ctx, tenant, reportID, "dr-stranger")
	require.ErrorIs(t, err, sharing.ErrUnauthorized)

	view, err := svc.GetSession(ctx, tenant, snap.SessionID, "patient-5")
	require.NoError(t, err)
	require.NotEmpty(t, view.Answers)

	_, err = svc.ShareReport(ctx, tenant, reportID, "dr-stranger", "patient-5")
	require.NoError(t, err)

	// A grantee reads the report but not the raw answers.
	rep, err := svc.GetReport(ctx, tenant, snap.SessionID, "dr-stranger")
	require.NoError(t, err)
	require.Equal(t, reportID, rep.ID)
	grants, err := svc.ListGrants(ctx, tenant, reportID, "dr-stranger")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	_, err = svc.GetSession(ctx, tenant, snap.SessionID, "dr-stranger")
	require.ErrorIs(t, err, sharing.ErrUnauthorized)
}

func TestEvaluation_Catalog(t *testing.T) {
	svc := newService(t)
	stages := svc.Catalog()
	require.Len(t, stages, 12)
	require.Equal(t, catalog.StageRelatorioFinal, stages[11].ID)
}
