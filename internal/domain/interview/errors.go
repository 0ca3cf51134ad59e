package interview

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound indicates the session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStageMismatch indicates an answer tagged for a stage other than the current one.
	ErrStageMismatch = errors.New("stage mismatch")
	// ErrUnknownField indicates the field isn't declared on the current stage.
	ErrUnknownField = errors.New("unknown field")
	// ErrValidation indicates the value violates the field constraint.
	ErrValidation = errors.New("validation error")
	// ErrInvalidState indicates the operation isn't allowed in the session status.
	ErrInvalidState = errors.New("invalid session state")
	// ErrDuplicateActiveSession indicates the patient already has a non-terminal session.
	ErrDuplicateActiveSession = errors.New("patient already has an active session")
	// ErrStaleWrite indicates concurrent writers kept invalidating the update.
	ErrStaleWrite = errors.New("stale write")
	// ErrInvalidInput indicates missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")
)

// SubmissionError carries what a caller needs to re-render the right prompt.
type SubmissionError struct {
	Err             error
	StageID         string
	ExpectedStageID string
	FieldKey        string
	Constraint      string
	Message         string
}

func (e *SubmissionError) Error() string {
	switch {
	case e.ExpectedStageID != "":
		return fmt.Sprintf("%s: got stage %q, current stage is %q", e.Err, e.StageID, e.ExpectedStageID)
	case e.Message != "":
		return fmt.Sprintf("%s: %s.%s: %s", e.Err, e.StageID, e.FieldKey, e.Message)
	}
	return fmt.Sprintf("%s: %s.%s", e.Err, e.StageID, e.FieldKey)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Details flattens the error for transport payloads.
func (e *SubmissionError) Details() map[string]any {
	d := map[string]any{}
	if e.StageID != "" {
		d["stage_id"] = e.StageID
	}
	if e.ExpectedStageID != "" {
		d["expected_stage_id"] = e.ExpectedStageID
	}
	if e.FieldKey != "" {
		d["field_key"] = e.FieldKey
	}
	if e.Constraint != "" {
		d["constraint"] = e.Constraint
	}
	return d
}
