// Package evaluation is the entry point for the initial clinical
// evaluation. It drives the interview, produces the report on confirmation
// and mediates sharing.
package evaluation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/noaesperanza/imre/internal/domain/activity"
	"github.com/noaesperanza/imre/internal/domain/catalog"
	"github.com/noaesperanza/imre/internal/domain/interview"
	"github.com/noaesperanza/imre/internal/domain/report"
	"github.com/noaesperanza/imre/internal/domain/sharing"
	"github.com/noaesperanza/imre/internal/metrics"
)

// ErrReportPending indicates the interview has not been confirmed yet.
var ErrReportPending = errors.New("report pending: interview not yet confirmed")

// Service composes the interview, report, sharing and activity services.
type Service struct {
	interviews *interview.Service
	reports    *report.Service
	sharing    *sharing.Service
	activity   *activity.Service
	logger     *slog.Logger
}

// NewService creates the evaluation facade.
func NewService(
	interviews *interview.Service,
	reports *report.Service,
	sharing *sharing.Service,
	activity *activity.Service,
	logger *slog.Logger,
) *Service {
	return &Service{
		interviews: interviews,
		reports:    reports,
		sharing:    sharing,
		activity:   activity,
		logger:     logger,
	}
}

// AnswerRequest is one answer submission.
type AnswerRequest struct {
	SessionID string
	StageID   string
	FieldKey  string
	Value     any
	ActorRef  string
}

// ConfirmResult is the outcome of ratifying an interview.
type ConfirmResult struct {
	Session interview.Snapshot `json:"session"`
	Report  *report.Report     `json:"report,omitempty"`
}

// SessionView is a snapshot together with the collected answers.
type SessionView struct {
	interview.Snapshot
	Answers       []interview.Answer `json:"answers"`
	AbandonReason *string            `json:"abandon_reason,omitempty"`
}

// StartInterview opens a new interview for the patient.
func (s *Service) StartInterview(ctx context.Context, tenantID, patientRef string) (*interview.Snapshot, error) {
	sess, err := s.interviews.Start(ctx, tenantID, patientRef)
	if err != nil {
		return nil, err
	}
	metrics.RecordInterviewStarted()
	snap := s.interviews.Snapshot(sess)
	return &snap, nil
}

// Answer submits one answer and returns the resulting snapshot.
func (s *Service) Answer(ctx context.Context, tenantID string, req AnswerRequest) (*interview.Snapshot, error) {
	sess, tr, err := s.interviews.SubmitAnswer(ctx, tenantID, interview.SubmitRequest{
		SessionID: req.SessionID,
		StageID:   req.StageID,
		FieldKey:  req.FieldKey,
		Value:     req.Value,
		ActorRef:  req.ActorRef,
	})
	if err != nil {
		if outcome := rejection(err); outcome != "" {
			metrics.RecordAnswer(req.StageID, outcome)
		}
		return nil, err
	}

	metrics.RecordAnswer(req.StageID, "accepted")
	if tr.Advanced() {
		metrics.RecordStageAdvance(req.StageID)
	}
	snap := s.interviews.Snapshot(sess)
	return &snap, nil
}

// Confirm ratifies the collected record and synthesizes the report.
func (s *Service) Confirm(ctx context.Context, tenantID, sessionID, actorRef string) (*ConfirmResult, error) {
	sess, err := s.interviews.ConfirmClosure(ctx, tenantID, sessionID, actorRef)
	if err != nil {
		return nil, err
	}
	metrics.RecordInterviewFinished(string(sess.Status))

	result := &ConfirmResult{Session: s.interviews.Snapshot(sess)}
	rep, err := s.generate(ctx, tenantID, sess, actorRef)
	if err != nil {
		// The session stays completed; GetReport retries generation.
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "report generation failed", "session_id", sess.ID, "error", err)
		}
		return result, nil
	}
	result.Report = rep
	return result, nil
}

// Abandon ends an interview without a report.
func (s *Service) Abandon(ctx context.Context, tenantID, sessionID, reason, actorRef string) (*interview.Snapshot, error) {
	sess, err := s.interviews.Abandon(ctx, tenantID, sessionID, reason, actorRef)
	if err != nil {
		return nil, err
	}
	metrics.RecordInterviewFinished(string(sess.Status))
	snap := s.interviews.Snapshot(sess)
	return &snap, nil
}

// GetSession returns the current view of a session. A non-empty viewerRef
// must be the session's patient; an empty one is trusted.
func (s *Service) GetSession(ctx context.Context, tenantID, sessionID, viewerRef string) (*SessionView, error) {
	sess, err := s.interviews.Get(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if !ownedBy(sess, viewerRef) {
		metrics.RecordSharingDecision("view", "denied")
		return nil, sharing.ErrUnauthorized
	}
	return &SessionView{
		Snapshot:      s.interviews.Snapshot(sess),
		Answers:       sess.Answers,
		AbandonReason: sess.AbandonReason,
	}, nil
}

// ActiveSession returns the patient's non-terminal session.
func (s *Service) ActiveSession(ctx context.Context, tenantID, patientRef string) (*SessionView, error) {
	sess, err := s.interviews.ActiveForPatient(ctx, tenantID, patientRef)
	if err != nil {
		return nil, err
	}
	return &SessionView{
		Snapshot: s.interviews.Snapshot(sess),
		Answers:  sess.Answers,
	}, nil
}

// ListSessions lists every session of a patient.
func (s *Service) ListSessions(ctx context.Context, tenantID, patientRef string) ([]interview.SessionInfo, error) {
	return s.interviews.ListForPatient(ctx, tenantID, patientRef)
}

// GetReport returns the report of a session, or ErrReportPending while the
// interview is still open. Abandoned interviews never have a report. A
// non-empty viewerRef must be the patient or an active grantee of the
// stored report.
func (s *Service) GetReport(ctx context.Context, tenantID, sessionID, viewerRef string) (*report.Report, error) {
	sess, err := s.interviews.Get(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if !ownedBy(sess, viewerRef) {
		if err := s.authorizeGrantee(ctx, tenantID, sess.ID, viewerRef); err != nil {
			return nil, err
		}
	}
	switch sess.Status {
	case interview.StatusCompleted:
		return s.generate(ctx, tenantID, sess, "")
	case interview.StatusAbandoned:
		return nil, report.ErrSessionNotCompleted
	default:
		return nil, ErrReportPending
	}
}

// ViewReport returns a report to its owner or an active grantee.
func (s *Service) ViewReport(ctx context.Context, tenantID, reportID, viewerRef string) (*report.Report, error) {
	allowed, err := s.sharing.CanView(ctx, tenantID, reportID, viewerRef)
	if err != nil {
		return nil, err
	}
	if !allowed {
		metrics.RecordSharingDecision("view", "denied")
		return nil, sharing.ErrUnauthorized
	}
	return s.reports.Get(ctx, tenantID, reportID)
}

// ShareReport grants targetRef access to the report on behalf of actingRef.
func (s *Service) ShareReport(ctx context.Context, tenantID, reportID, targetRef, actingRef string) (*sharing.Grant, error) {
	grant, err := s.sharing.Grant(ctx, tenantID, sharing.GrantRequest{
		ReportID:     reportID,
		GrantedToRef: targetRef,
		GrantedByRef: actingRef,
	})
	metrics.RecordSharingDecision("grant", decision(err))
	return grant, err
}

// RevokeShare ends a grant on behalf of actingRef.
func (s *Service) RevokeShare(ctx context.Context, tenantID, grantID, actingRef string) (*sharing.Grant, error) {
	grant, err := s.sharing.Revoke(ctx, tenantID, grantID, actingRef)
	metrics.RecordSharingDecision("revoke", decision(err))
	return grant, err
}

// ListGrants lists every grant of a report. A non-empty viewerRef must be
// allowed to view the report.
func (s *Service) ListGrants(ctx context.Context, tenantID, reportID, viewerRef string) ([]sharing.Grant, error) {
	if viewerRef != "" {
		allowed, err := s.sharing.CanView(ctx, tenantID, reportID, viewerRef)
		if err != nil {
			return nil, err
		}
		if !allowed {
			metrics.RecordSharingDecision("view", "denied")
			return nil, sharing.ErrUnauthorized
		}
	}
	return s.sharing.ListGrants(ctx, tenantID, reportID)
}

// Catalog returns the stage definitions in order.
func (s *Service) Catalog() []catalog.StageDefinition {
	return s.interviews.Engine().Catalog().Stages()
}

// RecentActivity lists audit entries, newest first.
func (s *Service) RecentActivity(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	return s.activity.GetRecentActivity(ctx, tenantID, opts)
}

// authorizeGrantee lets viewerRef through only when the session already has
// a report and the gate allows viewerRef to see it.
func (s *Service) authorizeGrantee(ctx context.Context, tenantID, sessionID, viewerRef string) error {
	rep, err := s.reports.GetBySession(ctx, tenantID, sessionID)
	if errors.Is(err, report.ErrReportNotFound) {
		metrics.RecordSharingDecision("view", "denied")
		return sharing.ErrUnauthorized
	}
	if err != nil {
		return err
	}
	allowed, err := s.sharing.CanView(ctx, tenantID, rep.ID, viewerRef)
	if err != nil {
		return err
	}
	if !allowed {
		metrics.RecordSharingDecision("view", "denied")
		return sharing.ErrUnauthorized
	}
	return nil
}

func ownedBy(sess *interview.Session, viewerRef string) bool {
	return viewerRef == "" || viewerRef == sess.PatientRef
}

func (s *Service) generate(ctx context.Context, tenantID string, sess *interview.Session, actorRef string) (*report.Report, error) {
	existing, err := s.reports.GetBySession(ctx, tenantID, sess.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, report.ErrReportNotFound) {
		return nil, err
	}
	rep, err := s.reports.Generate(ctx, tenantID, sess, actorRef)
	if err != nil {
		return nil, err
	}
	metrics.RecordReportGenerated(string(rep.Recommendation))
	return rep, nil
}

func rejection(err error) string {
	switch {
	case errors.Is(err, interview.ErrStageMismatch):
		return "stage_mismatch"
	case errors.Is(err, interview.ErrUnknownField):
		return "unknown_field"
	case errors.Is(err, interview.ErrValidation):
		return "validation_error"
	case errors.Is(err, interview.ErrInvalidState):
		return "invalid_state"
	}
	return ""
}

func decision(err error) string {
	switch {
	case err == nil:
		return "allowed"
	case errors.Is(err, sharing.ErrUnauthorized):
		return "denied"
	case errors.Is(err, sharing.ErrAlreadyGranted):
		return "already_granted"
	}
	return "error"
}
