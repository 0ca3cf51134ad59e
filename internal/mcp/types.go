package mcp

import (
	"encoding/json"
	"time"

	"github.com/noaesperanza/imre/internal/domain/activity"
	"github.com/noaesperanza/imre/internal/domain/catalog"
	"github.com/noaesperanza/imre/internal/domain/interview"
	"github.com/noaesperanza/imre/internal/domain/report"
	"github.com/noaesperanza/imre/internal/domain/sharing"
)

type StartInterviewParams struct {
	PatientRef string `json:"patient_ref,omitempty"`
}

type SubmitAnswerParams struct {
	SessionID string `json:"session_id"`
	StageID   string `json:"stage_id"`
	FieldKey  string `json:"field_key"`
	Value     any    `json:"value"`
}

type SessionParams struct {
	SessionID string `json:"session_id"`
}

type AbandonParams struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason,omitempty"`
}

type GetSessionParams struct {
	SessionID  string `json:"session_id,omitempty"`
	PatientRef string `json:"patient_ref,omitempty"`
}

type ListSessionsParams struct {
	PatientRef string `json:"patient_ref,omitempty"`
}

type ViewReportParams struct {
	ReportID  string `json:"report_id"`
	ViewerRef string `json:"viewer_ref,omitempty"`
}

type ShareReportParams struct {
	ReportID      string `json:"report_id"`
	TargetRef     string `json:"target_ref"`
	ActingUserRef string `json:"acting_user_ref,omitempty"`
}

type RevokeShareParams struct {
	GrantID       string `json:"grant_id"`
	ActingUserRef string `json:"acting_user_ref,omitempty"`
}

type ListGrantsParams struct {
	ReportID string `json:"report_id"`
}

type GetRecentActivityParams struct {
	SessionID *string `json:"session_id,omitempty"`
	ReportID  *string `json:"report_id,omitempty"`
	Type      *string `json:"type,omitempty"`
	Limit     int     `json:"limit,omitempty"`
	Offset    int     `json:"offset,omitempty"`
}

// Tool results are always JSON objects so they can travel as structured
// content.

type CatalogResponse struct {
	Stages []catalog.StageDefinition `json:"stages"`
}

type SessionListResponse struct {
	Sessions []interview.SessionInfo `json:"sessions"`
}

type ConfirmResponse struct {
	Session interview.Snapshot `json:"session"`
	Report  *report.Report     `json:"report,omitempty"`
	// ReportPending is set when synthesis failed and will be retried by
	// get_report.
	ReportPending bool `json:"report_pending,omitempty"`
}

type GrantListResponse struct {
	Grants []sharing.Grant `json:"grants"`
}

type ActivityEntryResponse struct {
	Timestamp time.Time             `json:"timestamp"`
	Type      activity.ActivityType `json:"type"`
	SessionID string                `json:"session_id,omitempty"`
	ReportID  string                `json:"report_id,omitempty"`
	ActorRef  string                `json:"actor_ref,omitempty"`
	Summary   string                `json:"summary"`
	Details   json.RawMessage       `json:"details,omitempty"`
}

type ActivityListResponse struct {
	Entries []ActivityEntryResponse `json:"entries"`
}
