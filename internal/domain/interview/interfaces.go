package interview

import (
	"context"

	"github.com/noaesperanza/imre/internal/domain/activity"
)

// SessionRepository provides durable storage for interview sessions.
type SessionRepository interface {
	Create(ctx context.Context, tenantID string, sess *Session) error
	Get(ctx context.Context, tenantID, id string) (*Session, error)
	Save(ctx context.Context, tenantID string, sess *Session, expectedVersion int64) error
	GetActiveByPatient(ctx context.Context, tenantID, patientRef string) (*Session, error)
	ListByPatient(ctx context.Context, tenantID, patientRef string) ([]SessionInfo, error)
}

// ActivityRepository logs interview activities.
type ActivityRepository interface {
	Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error
}
