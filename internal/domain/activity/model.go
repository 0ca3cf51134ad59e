package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeInterviewStarted     ActivityType = "interview_started"
	TypeAnswerRecorded       ActivityType = "answer_recorded"
	TypeAnswerRejected       ActivityType = "answer_rejected"
	TypeStageAdvanced        ActivityType = "stage_advanced"
	TypeAwaitingConfirmation ActivityType = "awaiting_confirmation"
	TypeInterviewCompleted   ActivityType = "interview_completed"
	TypeInterviewAbandoned   ActivityType = "interview_abandoned"
	TypeReportGenerated      ActivityType = "report_generated"
	TypeReportShared         ActivityType = "report_shared"
	TypeShareDenied          ActivityType = "share_denied"
	TypeShareRevoked         ActivityType = "share_revoked"
)

// ActivityEntry represents an event in the audit log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	TenantID     string       `json:"tenant_id"`
	SessionID    *string      `json:"session_id,omitempty"`
	ReportID     *string      `json:"report_id,omitempty"`
	ActorRef     string       `json:"actor_ref,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
