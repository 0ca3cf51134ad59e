package sharing

import (
	"context"

	"github.com/noaesperanza/imre/internal/domain/activity"
	"github.com/noaesperanza/imre/internal/domain/report"
)

// GrantRepository stores grants and their revocations.
type GrantRepository interface {
	Create(ctx context.Context, tenantID string, grant *Grant) error
	Get(ctx context.Context, tenantID, id string) (*Grant, error)
	ListByReport(ctx context.Context, tenantID, reportID string) ([]Grant, error)
	Revoke(ctx context.Context, tenantID string, rev *Revocation) error
}

// ReportRepository loads the report being shared.
type ReportRepository interface {
	Get(ctx context.Context, tenantID, id string) (*report.Report, error)
}

// ActivityRepository logs sharing decisions.
type ActivityRepository interface {
	Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error
}
