package report_test

import (
	"context"
	"testing"

	"github.com/noaesperanza/imre/internal/domain/activity"
	"github.com/noaesperanza/imre/internal/domain/catalog"
	"github.com/noaesperanza/imre/internal/domain/interview"
	"github.com/noaesperanza/imre/internal/domain/interview/interviewtest"
	"github.com/noaesperanza/imre/internal/domain/report"
	"github.com/noaesperanza/imre/internal/repository"
	"github.com/noaesperanza/imre/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReportService_GenerateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant1"
	c := catalog.Default()
	sess := interviewtest.Completed(t, interview.NewEngine(c, nil), "patient-1", interviewtest.DefaultSteps())

	reports := &mocks.ReportRepository{}
	activities := &mocks.ActivityRepository{}
	reports.On("GetBySession", ctx, tenantID, sess.ID).Return(nil, repository.ErrNotFound).Once()
	reports.On("Create", ctx, tenantID, mock.AnythingOfType("*report.Report")).Return(nil).Once()
	activities.On("Log", ctx, tenantID, mock.MatchedBy(func(e *activity.ActivityEntry) bool {
		return e.ActivityType == activity.TypeReportGenerated
	})).Return(nil).Once()

	svc := report.NewService(reports, activities, report.NewSynthesizer(c), nil)
	first, err := svc.Generate(ctx, tenantID, sess, "patient-1")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.False(t, first.GeneratedAt.IsZero())

	reports.On("GetBySession", ctx, tenantID, sess.ID).Return(first, nil)
	second, err := svc.Generate(ctx, tenantID, sess, "patient-1")
	require.NoError(t, err)
	require.Same(t, first, second)
	reports.AssertNumberOfCalls(t, "Create", 1)
	activities.AssertExpectations(t)
}

func TestReportService_GenerateRace(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant1"
	c := catalog.Default()
	sess := interviewtest.Completed(t, interview.NewEngine(c, nil), "patient-1", interviewtest.DefaultSteps())
	winner := &report.Report{ID: "r-winner", SessionID: sess.ID}

	reports := &mocks.ReportRepository{}
	reports.On("GetBySession", ctx, tenantID, sess.ID).Return(nil, repository.ErrNotFound).Once()
	reports.On("Create", ctx, tenantID, mock.Anything).Return(repository.ErrDuplicate)
	reports.On("GetBySession", ctx, tenantID, sess.ID).Return(winner, nil)

	svc := report.NewService(reports, nil, report.NewSynthesizer(c), nil)
	rep, err := svc.Generate(ctx, tenantID, sess, "patient-1")
	require.NoError(t, err)
	require.Equal(t, "r-winner", rep.ID)
}

func TestReportService_GenerateRejectsIncomplete(t *testing.T) {
	ctx := context.Background()
	c := catalog.Default()
	sess := interview.NewEngine(c, nil).Begin("tenant1", "patient-1")

	reports := &mocks.ReportRepository{}
	reports.On("GetBySession", ctx, "tenant1", sess.ID).Return(nil, repository.ErrNotFound)

	svc := report.NewService(reports, nil, report.NewSynthesizer(c), nil)
	_, err := svc.Generate(ctx, "tenant1", sess, "patient-1")
	require.ErrorIs(t, err, report.ErrSessionNotCompleted)
	reports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestReportService_GetMapsNotFound(t *testing.T) {
	ctx := context.Background()
	reports := &mocks.ReportRepository{}
	reports.On("Get", ctx, "tenant1", "missing").Return(nil, repository.ErrNotFound)
	reports.On("GetBySession", ctx, "tenant1", "missing").Return(nil, repository.ErrNotFound)

	svc := report.NewService(reports, nil, report.NewSynthesizer(catalog.Default()), nil)
	_, err := svc.Get(ctx, "tenant1", "missing")
	require.ErrorIs(t, err, report.ErrReportNotFound)
	_, err = svc.GetBySession(ctx, "tenant1", "missing")
	require.ErrorIs(t, err, report.ErrReportNotFound)
}

func TestCachedRepository(t *testing.T) {
	ctx := context.Background()
	rep := &report.Report{ID: "r1", SessionID: "s1"}

	inner := &mocks.ReportRepository{}
	inner.On("Get", ctx, "tenant1", "r1").Return(rep, nil).Once()
	inner.On("Get", ctx, "tenant2", "r1").Return(nil, repository.ErrNotFound)

	cached, err := report.NewCachedRepository(inner, 8)
	require.NoError(t, err)

	for range 3 {
		got, err := cached.Get(ctx, "tenant1", "r1")
		require.NoError(t, err)
		require.Same(t, rep, got)
	}
	got, err := cached.GetBySession(ctx, "tenant1", "s1")
	require.NoError(t, err)
	require.Same(t, rep, got)
	inner.AssertNumberOfCalls(t, "Get", 1)
	inner.AssertNotCalled(t, "GetBySession", mock.Anything, mock.Anything, mock.Anything)

	_, err = cached.Get(ctx, "tenant2", "r1")
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.Equal(t, 1, cached.Len())

	_, err = report.NewCachedRepository(inner, 0)
	require.Error(t, err)
}
