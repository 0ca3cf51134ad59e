package interview

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/noaesperanza/imre/internal/domain/catalog"
)

// Engine is the interview state machine. It never mutates the session it is
// given; every transition returns a new copy.
type Engine struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

// NewEngine creates an engine over the catalog. A nil clock uses time.Now.
func NewEngine(c *catalog.Catalog, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{catalog: c, now: now}
}

// Catalog returns the catalog the engine enforces.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Begin creates a fresh session positioned at the first stage.
func (e *Engine) Begin(tenantID, patientRef string) *Session {
	now := e.now().UTC()
	return &Session{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		PatientRef:        patientRef,
		CurrentStageIndex: 0,
		Answers:           []Answer{},
		Status:            StatusInProgress,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// SubmitAnswer validates and records one answer, advancing the session when
// the current stage has every requirement met.
func (e *Engine) SubmitAnswer(sess *Session, stageID, fieldKey string, raw any) (*Session, Transition, error) {
	if sess.Status != StatusInProgress {
		return nil, Transition{}, &SubmissionError{
			Err:      ErrInvalidState,
			StageID:  stageID,
			FieldKey: fieldKey,
			Message:  "session is " + string(sess.Status),
		}
	}

	current, err := e.catalog.StageAt(sess.CurrentStageIndex)
	if err != nil {
		return nil, Transition{}, err
	}
	if stageID != current.ID {
		return nil, Transition{}, &SubmissionError{
			Err:             ErrStageMismatch,
			StageID:         stageID,
			ExpectedStageID: current.ID,
			FieldKey:        fieldKey,
		}
	}

	field, ok := current.Field(fieldKey)
	if !ok {
		return nil, Transition{}, &SubmissionError{
			Err:      ErrUnknownField,
			StageID:  stageID,
			FieldKey: fieldKey,
			Message:  "expected one of " + fieldKeys(current),
		}
	}

	answered := sess.StageAnswers(current.ID)
	if _, dup := answered[fieldKey]; dup {
		return nil, Transition{}, rejected(stageID, fieldKey, "already_answered", "field was already answered")
	}
	if !current.Applicable(field, answered) {
		return nil, Transition{}, rejected(stageID, fieldKey, "not_applicable",
			"field applies only when "+field.RequiredIf.Field+" is "+field.RequiredIf.Equals)
	}

	value, err := field.Normalize(raw)
	if err != nil {
		var ve *catalog.ValueError
		if errors.As(err, &ve) {
			return nil, Transition{}, rejected(stageID, fieldKey, ve.Constraint, ve.Message)
		}
		return nil, Transition{}, err
	}

	now := e.now().UTC()
	next := sess.Clone()
	next.Answers = append(next.Answers, Answer{
		StageID:    current.ID,
		FieldKey:   field.Key,
		Kind:       field.Kind,
		Value:      value,
		RecordedAt: now,
	})
	next.UpdatedAt = now
	answered[field.Key] = value

	tr := Transition{
		FromStageIndex: sess.CurrentStageIndex,
		ToStageIndex:   sess.CurrentStageIndex,
		FromStatus:     sess.Status,
		ToStatus:       sess.Status,
	}
	if len(current.Missing(answered)) == 0 {
		if _, err := e.catalog.NextStage(current.Order); errors.Is(err, catalog.ErrEndOfCatalog) {
			next.Status = StatusAwaitingConfirmation
		} else if err != nil {
			return nil, Transition{}, err
		} else {
			next.CurrentStageIndex++
		}
		tr.ToStageIndex = next.CurrentStageIndex
		tr.ToStatus = next.Status
	}
	return next, tr, nil
}

// ConfirmClosure ratifies the collected record.
func (e *Engine) ConfirmClosure(sess *Session) (*Session, error) {
	if sess.Status != StatusAwaitingConfirmation {
		return nil, ErrInvalidState
	}
	now := e.now().UTC()
	next := sess.Clone()
	next.Status = StatusCompleted
	next.CompletedAt = &now
	next.UpdatedAt = now
	return next, nil
}

// Abandon ends a non-terminal session without producing a report.
func (e *Engine) Abandon(sess *Session, reason string) (*Session, error) {
	if sess.Status.Terminal() {
		return nil, ErrInvalidState
	}
	now := e.now().UTC()
	next := sess.Clone()
	next.Status = StatusAbandoned
	next.AbandonedAt = &now
	next.UpdatedAt = now
	if reason = strings.TrimSpace(reason); reason != "" {
		next.AbandonReason = &reason
	}
	return next, nil
}

// Snapshot renders the caller-facing view of a session.
func (e *Engine) Snapshot(sess *Session) Snapshot {
	snap := Snapshot{
		SessionID:         sess.ID,
		PatientRef:        sess.PatientRef,
		CurrentStageIndex: sess.CurrentStageIndex,
		TotalStages:       e.catalog.TotalStages(),
		Status:            sess.Status,
		PendingFields:     []PendingField{},
		Version:           sess.Version,
		UpdatedAt:         sess.UpdatedAt,
	}
	current, err := e.catalog.StageAt(sess.CurrentStageIndex)
	if err != nil {
		return snap
	}
	snap.CurrentStageID = current.ID
	snap.CurrentStageTitle = current.Title
	if sess.Status != StatusInProgress {
		return snap
	}

	answered := sess.StageAnswers(current.ID)
	for _, f := range current.Open(answered) {
		pf := PendingField{
			Key:      f.Key,
			Label:    f.Label,
			Prompt:   f.Prompt,
			Kind:     f.Kind,
			Required: f.Required || f.RequiredIf != nil,
			Options:  f.Options,
		}
		if f.Kind == catalog.KindScale {
			lo, hi := f.Min, f.Max
			pf.Min, pf.Max = &lo, &hi
		}
		snap.PendingFields = append(snap.PendingFields, pf)
	}
	return snap
}

func rejected(stageID, fieldKey, constraint, message string) error {
	return &SubmissionError{
		Err:        ErrValidation,
		StageID:    stageID,
		FieldKey:   fieldKey,
		Constraint: constraint,
		Message:    message,
	}
}

func fieldKeys(st catalog.StageDefinition) string {
	keys := make([]string, len(st.Fields))
	for i, f := range st.Fields {
		keys[i] = f.Key
	}
	return strings.Join(keys, ", ")
}
