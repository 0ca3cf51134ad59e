package report

import (
	"context"

	"github.com/noaesperanza/imre/internal/domain/activity"
)

// Repository stores reports. Create fails with repository.ErrDuplicate when
// the session already has a report.
type Repository interface {
	Create(ctx context.Context, tenantID string, rep *Report) error
	Get(ctx context.Context, tenantID, id string) (*Report, error)
	GetBySession(ctx context.Context, tenantID, sessionID string) (*Report, error)
}

// ActivityRepository logs report activities.
type ActivityRepository interface {
	Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error
}
