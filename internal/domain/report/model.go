package report

import "time"

// Recommendation is the binary scheduling outcome of a report.
type Recommendation string

const (
	RecommendScheduleConsultation Recommendation = "schedule_consultation"
	RecommendNoAction             Recommendation = "no_action"
)

// Section is the narrative for one catalog stage.
type Section struct {
	StageID       string `json:"stage_id"`
	Title         string `json:"title"`
	NarrativeText string `json:"narrative_text"`
	Reported      bool   `json:"reported"`
}

// Report is the immutable clinical report of a completed interview.
type Report struct {
	ID             string         `json:"id"`
	TenantID       string         `json:"tenant_id"`
	SessionID      string         `json:"session_id"`
	PatientRef     string         `json:"patient_ref"`
	Sections       []Section      `json:"sections"`
	Recommendation Recommendation `json:"recommendation"`
	ConsentToShare bool           `json:"consent_to_share"`
	GeneratedAt    time.Time      `json:"generated_at"`
}
