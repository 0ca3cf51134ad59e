package mcp

import (
	"errors"
	"fmt"

	"github.com/noaesperanza/imre/internal/domain/activity"
	"github.com/noaesperanza/imre/internal/domain/interview"
	"github.com/noaesperanza/imre/internal/domain/report"
	"github.com/noaesperanza/imre/internal/domain/sharing"
	"github.com/noaesperanza/imre/internal/evaluation"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. It returns nil for
// errors outside the domain taxonomy.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var details any
	var sub *interview.SubmissionError
	if errors.As(err, &sub) {
		details = sub.Details()
	}

	switch {
	case errors.Is(err, interview.ErrStageMismatch):
		hint := "Answer the current stage first"
		if sub != nil && sub.ExpectedStageID != "" {
			hint = fmt.Sprintf("Submit answers for stage %q", sub.ExpectedStageID)
		}
		return &APIError{Code: "STAGE_MISMATCH", Message: messageOf(sub, "answer does not belong to the current stage"), Details: details, RecoveryHint: hint}
	case errors.Is(err, interview.ErrUnknownField):
		return &APIError{Code: "UNKNOWN_FIELD", Message: messageOf(sub, "field is not part of the current stage"), Details: details, RecoveryHint: "Use a field listed in pending_fields"}
	case errors.Is(err, interview.ErrValidation):
		return &APIError{Code: "VALIDATION_ERROR", Message: messageOf(sub, "answer violates the field constraint"), Details: details, RecoveryHint: "Ask the patient again and resubmit a valid value"}
	case errors.Is(err, interview.ErrInvalidState):
		return &APIError{Code: "INVALID_STATE", Message: messageOf(sub, "operation not allowed in the current status"), Details: details, RecoveryHint: "Call get_session to read the current status"}
	case errors.Is(err, interview.ErrSessionNotFound):
		return &APIError{Code: "NOT_FOUND", Message: "session not found", RecoveryHint: "Check the session id or start a new interview"}
	case errors.Is(err, interview.ErrDuplicateActiveSession):
		return &APIError{Code: "DUPLICATE_ACTIVE_SESSION", Message: "patient already has an open interview", RecoveryHint: "Resume it with get_session by patient_ref"}
	case errors.Is(err, interview.ErrStaleWrite):
		return &APIError{Code: "STALE_WRITE", Message: "session was modified concurrently", RecoveryHint: "Re-read the session and retry"}
	case errors.Is(err, interview.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Check required arguments"}
	case errors.Is(err, evaluation.ErrReportPending):
		return &APIError{Code: "REPORT_PENDING", Message: "interview not yet confirmed", RecoveryHint: "Finish the interview and call confirm_closure"}
	case errors.Is(err, report.ErrSessionNotCompleted):
		return &APIError{Code: "SESSION_NOT_COMPLETED", Message: "interview did not complete", RecoveryHint: "Abandoned interviews have no report"}
	case errors.Is(err, report.ErrReportNotFound), errors.Is(err, sharing.ErrReportNotFound):
		return &APIError{Code: "NOT_FOUND", Message: "report not found", RecoveryHint: "Check the report id"}
	case errors.Is(err, sharing.ErrGrantNotFound):
		return &APIError{Code: "NOT_FOUND", Message: "grant not found", RecoveryHint: "Call list_grants to find the grant id"}
	case errors.Is(err, sharing.ErrUnauthorized):
		return &APIError{Code: "UNAUTHORIZED", Message: "not allowed to access this report", RecoveryHint: "Only the patient or an active grantee may do this"}
	case errors.Is(err, sharing.ErrAlreadyGranted):
		return &APIError{Code: "ALREADY_GRANTED", Message: "an active grant already exists", RecoveryHint: "No action needed"}
	case errors.Is(err, sharing.ErrInvalidState):
		return &APIError{Code: "INVALID_STATE", Message: "grant already revoked"}
	case errors.Is(err, sharing.ErrInvalidInput), errors.Is(err, report.ErrInvalidInput), errors.Is(err, activity.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Check required arguments"}
	default:
		return nil
	}
}

func messageOf(sub *interview.SubmissionError, fallback string) string {
	if sub != nil && sub.Message != "" {
		return sub.Message
	}
	return fallback
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
