package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/noaesperanza/imre/internal/domain/activity"
	"github.com/noaesperanza/imre/internal/repository"
)

// DefaultMaxRetries bounds re-read and reapply cycles on concurrent writes.
const DefaultMaxRetries = 3

// Service persists engine transitions with optimistic concurrency.
type Service struct {
	sessions   SessionRepository
	activities ActivityRepository
	engine     *Engine
	maxRetries int
	logger     *slog.Logger
}

// NewService creates a new interview service.
func NewService(
	sessions SessionRepository,
	activities ActivityRepository,
	engine *Engine,
	maxRetries int,
	logger *slog.Logger,
) *Service {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Service{
		sessions:   sessions,
		activities: activities,
		engine:     engine,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// SubmitRequest describes one answer submission.
type SubmitRequest struct {
	SessionID string
	StageID   string
	FieldKey  string
	Value     any
	ActorRef  string
}

// Engine exposes the state machine used by the service.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Start opens a new session for the patient.
func (s *Service) Start(ctx context.Context, tenantID, patientRef string) (*Session, error) {
	patientRef = strings.TrimSpace(patientRef)
	if patientRef == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.sessions.GetActiveByPatient(ctx, tenantID, patientRef); err == nil {
		return nil, ErrDuplicateActiveSession
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("checking active session: %w", err)
	}

	sess := s.engine.Begin(tenantID, patientRef)
	if err := s.sessions.Create(ctx, tenantID, sess); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateActiveSession
		}
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logActivity(ctx, tenantID, sess.ID, patientRef, activity.TypeInterviewStarted,
		fmt.Sprintf("started interview for %s", patientRef), nil)
	return sess, nil
}

// Get loads a session.
func (s *Service) Get(ctx context.Context, tenantID, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	sess, err := s.sessions.Get(ctx, tenantID, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return sess, nil
}

// ActiveForPatient returns the patient's non-terminal session.
func (s *Service) ActiveForPatient(ctx context.Context, tenantID, patientRef string) (*Session, error) {
	sess, err := s.sessions.GetActiveByPatient(ctx, tenantID, patientRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading active session: %w", err)
	}
	return sess, nil
}

// ListForPatient lists every session of the patient, newest first.
func (s *Service) ListForPatient(ctx context.Context, tenantID, patientRef string) ([]SessionInfo, error) {
	if strings.TrimSpace(patientRef) == "" {
		return nil, ErrInvalidInput
	}
	return s.sessions.ListByPatient(ctx, tenantID, patientRef)
}

// SubmitAnswer records an answer and returns the updated session together
// with the transition it caused.
func (s *Service) SubmitAnswer(ctx context.Context, tenantID string, req SubmitRequest) (*Session, Transition, error) {
	if req.SessionID == "" || req.StageID == "" || req.FieldKey == "" {
		return nil, Transition{}, ErrInvalidInput
	}

	var tr Transition
	sess, err := s.mutate(ctx, tenantID, req.SessionID, func(cur *Session) (*Session, error) {
		next, t, err := s.engine.SubmitAnswer(cur, req.StageID, req.FieldKey, req.Value)
		tr = t
		return next, err
	})
	if err != nil {
		var se *SubmissionError
		if errors.As(err, &se) {
			s.logActivity(ctx, tenantID, req.SessionID, req.ActorRef, activity.TypeAnswerRejected,
				fmt.Sprintf("rejected %s.%s", req.StageID, req.FieldKey), se.Details())
		}
		return nil, Transition{}, err
	}

	s.logActivity(ctx, tenantID, sess.ID, req.ActorRef, activity.TypeAnswerRecorded,
		fmt.Sprintf("recorded %s.%s", req.StageID, req.FieldKey), nil)
	switch {
	case tr.ToStatus == StatusAwaitingConfirmation && tr.FromStatus != tr.ToStatus:
		s.logActivity(ctx, tenantID, sess.ID, req.ActorRef, activity.TypeAwaitingConfirmation,
			"all stages answered, awaiting confirmation", nil)
	case tr.ToStageIndex > tr.FromStageIndex:
		s.logActivity(ctx, tenantID, sess.ID, req.ActorRef, activity.TypeStageAdvanced,
			fmt.Sprintf("advanced from stage %d to %d", tr.FromStageIndex, tr.ToStageIndex),
			map[string]any{"from": tr.FromStageIndex, "to": tr.ToStageIndex})
	}
	return sess, tr, nil
}

// ConfirmClosure completes a session awaiting confirmation.
func (s *Service) ConfirmClosure(ctx context.Context, tenantID, sessionID, actorRef string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	sess, err := s.mutate(ctx, tenantID, sessionID, s.engine.ConfirmClosure)
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, tenantID, sess.ID, actorRef, activity.TypeInterviewCompleted, "interview confirmed", nil)
	return sess, nil
}

// Abandon terminates a session without a report.
func (s *Service) Abandon(ctx context.Context, tenantID, sessionID, reason, actorRef string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	sess, err := s.mutate(ctx, tenantID, sessionID, func(cur *Session) (*Session, error) {
		return s.engine.Abandon(cur, reason)
	})
	if err != nil {
		return nil, err
	}
	var details map[string]any
	if sess.AbandonReason != nil {
		details = map[string]any{"reason": *sess.AbandonReason}
	}
	s.logActivity(ctx, tenantID, sess.ID, actorRef, activity.TypeInterviewAbandoned, "interview abandoned", details)
	return sess, nil
}

// Snapshot renders a session for callers.
func (s *Service) Snapshot(sess *Session) Snapshot {
	return s.engine.Snapshot(sess)
}

// mutate runs read, apply and conditional save, re-reading on conflict.
func (s *Service) mutate(ctx context.Context, tenantID, sessionID string, apply func(*Session) (*Session, error)) (*Session, error) {
	for attempt := 0; ; attempt++ {
		cur, err := s.Get(ctx, tenantID, sessionID)
		if err != nil {
			return nil, err
		}
		next, err := apply(cur)
		if err != nil {
			return nil, err
		}
		next.Version = cur.Version + 1

		err = s.sessions.Save(ctx, tenantID, next, cur.Version)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrSessionNotFound
			}
			return nil, fmt.Errorf("saving session: %w", err)
		}
		if attempt >= s.maxRetries {
			return nil, ErrStaleWrite
		}
		if s.logger != nil {
			s.logger.DebugContext(ctx, "session write conflict, retrying",
				"session_id", sessionID, "attempt", attempt+1)
		}
	}
}

func (s *Service) logActivity(ctx context.Context, tenantID, sessionID, actorRef string, typ activity.ActivityType, summary string, details map[string]any) {
	if s.activities == nil {
		return
	}
	err := s.activities.Log(ctx, tenantID, &activity.ActivityEntry{
		SessionID:    &sessionID,
		ActorRef:     actorRef,
		ActivityType: typ,
		Summary:      summary,
		Details:      activity.Details(details),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to log activity", "type", typ, "error", err)
	}
}
