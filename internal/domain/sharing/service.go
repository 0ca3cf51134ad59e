package sharing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/noaesperanza/imre/internal/domain/activity"
	"github.com/noaesperanza/imre/internal/domain/report"
	"github.com/noaesperanza/imre/internal/repository"
)

// Service is the consent and sharing gate for reports.
type Service struct {
	grants     GrantRepository
	reports    ReportRepository
	activities ActivityRepository
	logger     *slog.Logger
}

// NewService creates a new sharing service.
func NewService(grants GrantRepository, reports ReportRepository, activities ActivityRepository, logger *slog.Logger) *Service {
	return &Service{
		grants:     grants,
		reports:    reports,
		activities: activities,
		logger:     logger,
	}
}

// GrantRequest describes a share of a report with another party.
type GrantRequest struct {
	ReportID     string
	GrantedToRef string
	GrantedByRef string
}

// Grant authorizes GrantedToRef to view the report. The owning patient may
// always share; a current grantee may re-share only when the patient
// consented to sharing.
func (s *Service) Grant(ctx context.Context, tenantID string, req GrantRequest) (*Grant, error) {
	req.GrantedToRef = strings.TrimSpace(req.GrantedToRef)
	req.GrantedByRef = strings.TrimSpace(req.GrantedByRef)
	if req.ReportID == "" || req.GrantedToRef == "" || req.GrantedByRef == "" {
		return nil, ErrInvalidInput
	}

	rep, err := s.loadReport(ctx, tenantID, req.ReportID)
	if err != nil {
		return nil, err
	}
	if req.GrantedToRef == rep.PatientRef {
		return nil, ErrInvalidInput
	}

	existing, err := s.grants.ListByReport(ctx, tenantID, rep.ID)
	if err != nil {
		return nil, fmt.Errorf("listing grants: %w", err)
	}

	if !mayShare(rep, existing, req.GrantedByRef) {
		s.logActivity(ctx, tenantID, rep, req.GrantedByRef, activity.TypeShareDenied,
			fmt.Sprintf("%s may not share report %s", req.GrantedByRef, rep.ID),
			map[string]any{"granted_to": req.GrantedToRef})
		return nil, ErrUnauthorized
	}
	if activeGrantee(existing, req.GrantedToRef) {
		return nil, ErrAlreadyGranted
	}

	grant := &Grant{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		ReportID:     rep.ID,
		GrantedToRef: req.GrantedToRef,
		GrantedByRef: req.GrantedByRef,
		GrantedAt:    time.Now().UTC(),
	}
	if err := s.grants.Create(ctx, tenantID, grant); err != nil {
		return nil, fmt.Errorf("creating grant: %w", err)
	}

	s.logActivity(ctx, tenantID, rep, req.GrantedByRef, activity.TypeReportShared,
		fmt.Sprintf("shared report %s with %s", rep.ID, grant.GrantedToRef),
		map[string]any{"grant_id": grant.ID, "granted_to": grant.GrantedToRef})
	return grant, nil
}

// Revoke ends a grant. Only the owning patient or the original grantor may
// revoke.
func (s *Service) Revoke(ctx context.Context, tenantID, grantID, revokedByRef string) (*Grant, error) {
	revokedByRef = strings.TrimSpace(revokedByRef)
	if grantID == "" || revokedByRef == "" {
		return nil, ErrInvalidInput
	}

	grant, err := s.grants.Get(ctx, tenantID, grantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGrantNotFound
		}
		return nil, fmt.Errorf("loading grant: %w", err)
	}
	rep, err := s.loadReport(ctx, tenantID, grant.ReportID)
	if err != nil {
		return nil, err
	}
	if revokedByRef != rep.PatientRef && revokedByRef != grant.GrantedByRef {
		return nil, ErrUnauthorized
	}
	if !grant.Active() {
		return nil, ErrInvalidState
	}

	rev := &Revocation{
		GrantID:      grant.ID,
		RevokedByRef: revokedByRef,
		RevokedAt:    time.Now().UTC(),
	}
	if err := s.grants.Revoke(ctx, tenantID, rev); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("revoking grant: %w", err)
	}
	grant.RevokedAt = &rev.RevokedAt
	grant.RevokedByRef = &rev.RevokedByRef

	s.logActivity(ctx, tenantID, rep, revokedByRef, activity.TypeShareRevoked,
		fmt.Sprintf("revoked grant %s", grant.ID),
		map[string]any{"grant_id": grant.ID, "granted_to": grant.GrantedToRef})
	return grant, nil
}

// ListGrants returns every grant of the report, revoked ones included,
// ordered by grant time.
func (s *Service) ListGrants(ctx context.Context, tenantID, reportID string) ([]Grant, error) {
	if reportID == "" {
		return nil, ErrInvalidInput
	}
	if _, err := s.loadReport(ctx, tenantID, reportID); err != nil {
		return nil, err
	}
	grants, err := s.grants.ListByReport(ctx, tenantID, reportID)
	if err != nil {
		return nil, fmt.Errorf("listing grants: %w", err)
	}
	return grants, nil
}

// CanView reports whether viewer is the owner or an active grantee.
func (s *Service) CanView(ctx context.Context, tenantID, reportID, viewerRef string) (bool, error) {
	rep, err := s.loadReport(ctx, tenantID, reportID)
	if err != nil {
		return false, err
	}
	if viewerRef == rep.PatientRef {
		return true, nil
	}
	grants, err := s.grants.ListByReport(ctx, tenantID, reportID)
	if err != nil {
		return false, fmt.Errorf("listing grants: %w", err)
	}
	return activeGrantee(grants, viewerRef), nil
}

func (s *Service) loadReport(ctx context.Context, tenantID, reportID string) (*report.Report, error) {
	rep, err := s.reports.Get(ctx, tenantID, reportID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("loading report: %w", err)
	}
	return rep, nil
}

func (s *Service) logActivity(ctx context.Context, tenantID string, rep *report.Report, actorRef string, typ activity.ActivityType, summary string, details map[string]any) {
	if s.activities == nil {
		return
	}
	err := s.activities.Log(ctx, tenantID, &activity.ActivityEntry{
		SessionID:    &rep.SessionID,
		ReportID:     &rep.ID,
		ActorRef:     actorRef,
		ActivityType: typ,
		Summary:      summary,
		Details:      activity.Details(details),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to log activity", "type", typ, "error", err)
	}
}

func mayShare(rep *report.Report, grants []Grant, actorRef string) bool {
	if actorRef == rep.PatientRef {
		return true
	}
	return rep.ConsentToShare && activeGrantee(grants, actorRef)
}

func activeGrantee(grants []Grant, ref string) bool {
	for _, g := range grants {
		if g.Active() && g.GrantedToRef == ref {
			return true
		}
	}
	return false
}
