package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/noaesperanza/imre/internal/domain/activity"
	"github.com/noaesperanza/imre/internal/domain/interview"
	"github.com/noaesperanza/imre/internal/repository"
)

// Service generates and serves reports.
type Service struct {
	reports     Repository
	activities  ActivityRepository
	synthesizer *Synthesizer
	logger      *slog.Logger
}

// NewService creates a new report service.
func NewService(reports Repository, activities ActivityRepository, synthesizer *Synthesizer, logger *slog.Logger) *Service {
	return &Service{
		reports:     reports,
		activities:  activities,
		synthesizer: synthesizer,
		logger:      logger,
	}
}

// Generate returns the report of a completed session, synthesizing and
// storing it on first call.
func (s *Service) Generate(ctx context.Context, tenantID string, sess *interview.Session, actorRef string) (*Report, error) {
	if sess == nil {
		return nil, ErrInvalidInput
	}

	existing, err := s.reports.GetBySession(ctx, tenantID, sess.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("loading report: %w", err)
	}

	rep, err := s.synthesizer.Synthesize(sess)
	if err != nil {
		return nil, err
	}
	rep.ID = uuid.NewString()
	rep.TenantID = tenantID
	rep.GeneratedAt = time.Now().UTC()

	if err := s.reports.Create(ctx, tenantID, rep); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with another generator for the same session.
			return s.GetBySession(ctx, tenantID, sess.ID)
		}
		return nil, fmt.Errorf("creating report: %w", err)
	}

	if s.activities != nil {
		err := s.activities.Log(ctx, tenantID, &activity.ActivityEntry{
			SessionID:    &rep.SessionID,
			ReportID:     &rep.ID,
			ActorRef:     actorRef,
			ActivityType: activity.TypeReportGenerated,
			Summary:      fmt.Sprintf("generated report %s", rep.ID),
			Details:      activity.Details(map[string]any{"recommendation": rep.Recommendation}),
		})
		if err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to log activity", "error", err)
		}
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "report generated",
			"report_id", rep.ID, "session_id", rep.SessionID, "recommendation", rep.Recommendation)
	}
	return rep, nil
}

// Get loads a report by id.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Report, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	rep, err := s.reports.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("loading report: %w", err)
	}
	return rep, nil
}

// GetBySession loads the report of a session.
func (s *Service) GetBySession(ctx context.Context, tenantID, sessionID string) (*Report, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	rep, err := s.reports.GetBySession(ctx, tenantID, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("loading report: %w", err)
	}
	return rep, nil
}
