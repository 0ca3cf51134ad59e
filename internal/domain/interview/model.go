package interview

import (
	"time"

	"github.com/noaesperanza/imre/internal/domain/catalog"
)

// Status represents the lifecycle state of an interview session.
type Status string

const (
	StatusInProgress           Status = "in_progress"
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
	StatusCompleted            Status = "completed"
	StatusAbandoned            Status = "abandoned"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Answer is one validated field value collected during the interview.
type Answer struct {
	StageID    string        `json:"stage_id"`
	FieldKey   string        `json:"field_key"`
	Kind       catalog.Kind  `json:"kind"`
	Value      catalog.Value `json:"value"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// Session is the persisted progress of one patient through the catalog.
type Session struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenant_id"`
	PatientRef        string     `json:"patient_ref"`
	CurrentStageIndex int        `json:"current_stage_index"`
	Answers           []Answer   `json:"answers"`
	Status            Status     `json:"status"`
	AbandonReason     *string    `json:"abandon_reason,omitempty"`
	Version           int64      `json:"version"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	AbandonedAt       *time.Time `json:"abandoned_at,omitempty"`
}

// Clone returns a deep copy so engine transitions never alias stored state.
func (s *Session) Clone() *Session {
	out := *s
	out.Answers = make([]Answer, len(s.Answers))
	for i, a := range s.Answers {
		a.Value.Choices = append([]string(nil), a.Value.Choices...)
		if a.Value.Scale != nil {
			n := *a.Value.Scale
			a.Value.Scale = &n
		}
		out.Answers[i] = a
	}
	if s.AbandonReason != nil {
		r := *s.AbandonReason
		out.AbandonReason = &r
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	if s.AbandonedAt != nil {
		t := *s.AbandonedAt
		out.AbandonedAt = &t
	}
	return &out
}

// StageAnswers returns the values collected for one stage, keyed by field.
func (s *Session) StageAnswers(stageID string) map[string]catalog.Value {
	out := make(map[string]catalog.Value)
	for _, a := range s.Answers {
		if a.StageID == stageID {
			out[a.FieldKey] = a.Value
		}
	}
	return out
}

// SessionInfo summarizes a session for listings.
type SessionInfo struct {
	ID                string    `json:"id"`
	PatientRef        string    `json:"patient_ref"`
	Status            Status    `json:"status"`
	CurrentStageIndex int       `json:"current_stage_index"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PendingField is a prompt the caller should render next.
type PendingField struct {
	Key      string           `json:"key"`
	Label    string           `json:"label"`
	Prompt   string           `json:"prompt"`
	Kind     catalog.Kind     `json:"kind"`
	Required bool             `json:"required"`
	Options  []catalog.Option `json:"options,omitempty"`
	Min      *int             `json:"min,omitempty"`
	Max      *int             `json:"max,omitempty"`
}

// Snapshot is the caller-facing view of a session.
type Snapshot struct {
	SessionID         string         `json:"session_id"`
	PatientRef        string         `json:"patient_ref"`
	CurrentStageID    string         `json:"current_stage_id"`
	CurrentStageTitle string         `json:"current_stage_title"`
	CurrentStageIndex int            `json:"current_stage_index"`
	TotalStages       int            `json:"total_stages"`
	Status            Status         `json:"status"`
	PendingFields     []PendingField `json:"pending_fields"`
	Version           int64          `json:"version"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Transition describes the state change caused by an accepted answer.
type Transition struct {
	FromStageIndex int
	ToStageIndex   int
	FromStatus     Status
	ToStatus       Status
}

// Advanced reports whether the answer completed its stage.
func (t Transition) Advanced() bool {
	return t.ToStageIndex != t.FromStageIndex || t.ToStatus != t.FromStatus
}
