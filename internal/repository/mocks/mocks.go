package mocks

import (
	"context"

	"github.com/noaesperanza/imre/internal/domain/activity"
	"github.com/noaesperanza/imre/internal/domain/interview"
	"github.com/noaesperanza/imre/internal/domain/report"
	"github.com/noaesperanza/imre/internal/domain/sharing"
	"github.com/stretchr/testify/mock"
)

// SessionRepository is a mock for interview.SessionRepository.
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, tenantID string, sess *interview.Session) error {
	args := m.Called(ctx, tenantID, sess)
	return args.Error(0)
}

func (m *SessionRepository) Get(ctx context.Context, tenantID, id string) (*interview.Session, error) {
	args := m.Called(ctx, tenantID, id)
	if sess, ok := args.Get(0).(*interview.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) Save(ctx context.Context, tenantID string, sess *interview.Session, expectedVersion int64) error {
	args := m.Called(ctx, tenantID, sess, expectedVersion)
	return args.Error(0)
}

func (m *SessionRepository) GetActiveByPatient(ctx context.Context, tenantID, patientRef string) (*interview.Session, error) {
	args := m.Called(ctx, tenantID, patientRef)
	if sess, ok := args.Get(0).(*interview.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) ListByPatient(ctx context.Context, tenantID, patientRef string) ([]interview.SessionInfo, error) {
	args := m.Called(ctx, tenantID, patientRef)
	if list, ok := args.Get(0).([]interview.SessionInfo); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ReportRepository is a mock for report.Repository.
type ReportRepository struct {
	mock.Mock
}

func (m *ReportRepository) Create(ctx context.Context, tenantID string, rep *report.Report) error {
	args := m.Called(ctx, tenantID, rep)
	return args.Error(0)
}

func (m *ReportRepository) Get(ctx context.Context, tenantID, id string) (*report.Report, error) {
	args := m.Called(ctx, tenantID, id)
	if rep, ok := args.Get(0).(*report.Report); ok {
		return rep, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ReportRepository) GetBySession(ctx context.Context, tenantID, sessionID string) (*report.Report, error) {
	args := m.Called(ctx, tenantID, sessionID)
	if rep, ok := args.Get(0).(*report.Report); ok {
		return rep, args.Error(1)
	}
	return nil, args.Error(1)
}

// GrantRepository is a mock for sharing.GrantRepository.
type GrantRepository struct {
	mock.Mock
}

func (m *GrantRepository) Create(ctx context.Context, tenantID string, grant *sharing.Grant) error {
	args := m.Called(ctx, tenantID, grant)
	return args.Error(0)
}

func (m *GrantRepository) Get(ctx context.Context, tenantID, id string) (*sharing.Grant, error) {
	args := m.Called(ctx, tenantID, id)
	if grant, ok := args.Get(0).(*sharing.Grant); ok {
		return grant, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *GrantRepository) ListByReport(ctx context.Context, tenantID, reportID string) ([]sharing.Grant, error) {
	args := m.Called(ctx, tenantID, reportID)
	if list, ok := args.Get(0).([]sharing.Grant); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *GrantRepository) Revoke(ctx context.Context, tenantID string, rev *sharing.Revocation) error {
	args := m.Called(ctx, tenantID, rev)
	return args.Error(0)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, tenantID, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, tenantID, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
