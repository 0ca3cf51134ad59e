package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noaesperanza/imre/internal/domain/report"
	"github.com/noaesperanza/imre/internal/repository"
)

// ReportRepository implements report.Repository for SQLite
type ReportRepository struct {
	db *DB
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `
	id, tenant_id, session_id, patient_ref, sections,
	recommendation, consent_to_share, generated_at`

// Create inserts a report. A second report for the same session fails with
// repository.ErrDuplicate.
func (r *ReportRepository) Create(ctx context.Context, tenantID string, rep *report.Report) error {
	sections, err := json.Marshal(rep.Sections)
	if err != nil {
		return fmt.Errorf("failed to encode sections: %w", err)
	}

	query := `INSERT INTO clinical_reports (` + reportColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		rep.ID,
		tenantID,
		rep.SessionID,
		rep.PatientRef,
		string(sections),
		rep.Recommendation,
		rep.ConsentToShare,
		rep.GeneratedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create report: %w", err)
	}

	rep.TenantID = tenantID
	return nil
}

// Get retrieves a report by ID
func (r *ReportRepository) Get(ctx context.Context, tenantID, id string) (*report.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM clinical_reports WHERE id = ? AND tenant_id = ?`
	return r.get(ctx, query, id, tenantID)
}

// GetBySession retrieves the report of a session
func (r *ReportRepository) GetBySession(ctx context.Context, tenantID, sessionID string) (*report.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM clinical_reports WHERE session_id = ? AND tenant_id = ?`
	return r.get(ctx, query, sessionID, tenantID)
}

func (r *ReportRepository) get(ctx context.Context, query string, args ...any) (*report.Report, error) {
	var rep report.Report
	var sections string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&rep.ID,
		&rep.TenantID,
		&rep.SessionID,
		&rep.PatientRef,
		&sections,
		&rep.Recommendation,
		&rep.ConsentToShare,
		&rep.GeneratedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if err := json.Unmarshal([]byte(sections), &rep.Sections); err != nil {
		return nil, fmt.Errorf("failed to decode sections: %w", err)
	}
	return &rep, nil
}
