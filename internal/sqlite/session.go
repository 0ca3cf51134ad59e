package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noaesperanza/imre/internal/domain/interview"
	"github.com/noaesperanza/imre/internal/repository"
)

// SessionRepository implements interview.SessionRepository for SQLite
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `
	id, tenant_id, patient_ref, current_stage_index, status, answers,
	abandon_reason, version, created_at, updated_at, completed_at, abandoned_at`

// Create inserts a new session
func (r *SessionRepository) Create(ctx context.Context, tenantID string, sess *interview.Session) error {
	answers, err := encodeAnswers(sess.Answers)
	if err != nil {
		return err
	}

	query := `INSERT INTO interview_sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		sess.ID,
		tenantID,
		sess.PatientRef,
		sess.CurrentStageIndex,
		sess.Status,
		answers,
		sess.AbandonReason,
		sess.Version,
		sess.CreatedAt,
		sess.UpdatedAt,
		sess.CompletedAt,
		sess.AbandonedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	sess.TenantID = tenantID
	return nil
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(ctx context.Context, tenantID, id string) (*interview.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM interview_sessions WHERE id = ? AND tenant_id = ?`
	sess, err := scanSession(r.db.QueryRowContext(ctx, query, id, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// Save replaces the stored session when its version still equals
// expectedVersion.
func (r *SessionRepository) Save(ctx context.Context, tenantID string, sess *interview.Session, expectedVersion int64) error {
	answers, err := encodeAnswers(sess.Answers)
	if err != nil {
		return err
	}

	query := `
		UPDATE interview_sessions
		SET current_stage_index = ?, status = ?, answers = ?, abandon_reason = ?,
		    version = ?, updated_at = ?, completed_at = ?, abandoned_at = ?
		WHERE id = ? AND tenant_id = ? AND version = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		sess.CurrentStageIndex,
		sess.Status,
		answers,
		sess.AbandonReason,
		sess.Version,
		sess.UpdatedAt,
		sess.CompletedAt,
		sess.AbandonedAt,
		sess.ID,
		tenantID,
		expectedVersion,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to save session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM interview_sessions WHERE id = ? AND tenant_id = ?)`
		if err := r.db.QueryRowContext(ctx, checkQuery, sess.ID, tenantID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check session existence: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}
		// Session exists but version moved on - conflict
		return repository.ErrConflict
	}

	return nil
}

// GetActiveByPatient returns the patient's non-terminal session
func (r *SessionRepository) GetActiveByPatient(ctx context.Context, tenantID, patientRef string) (*interview.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM interview_sessions
		WHERE tenant_id = ? AND patient_ref = ? AND status IN (?, ?)`
	sess, err := scanSession(r.db.QueryRowContext(ctx, query,
		tenantID, patientRef, interview.StatusInProgress, interview.StatusAwaitingConfirmation))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return sess, nil
}

// ListByPatient lists every session of a patient, newest first
func (r *SessionRepository) ListByPatient(ctx context.Context, tenantID, patientRef string) ([]interview.SessionInfo, error) {
	query := `
		SELECT id, patient_ref, status, current_stage_index, created_at, updated_at
		FROM interview_sessions
		WHERE tenant_id = ? AND patient_ref = ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, patientRef)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []interview.SessionInfo{}
	for rows.Next() {
		var info interview.SessionInfo
		if err := rows.Scan(
			&info.ID,
			&info.PatientRef,
			&info.Status,
			&info.CurrentStageIndex,
			&info.CreatedAt,
			&info.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}
	return sessions, nil
}

func scanSession(row *sql.Row) (*interview.Session, error) {
	var sess interview.Session
	var answers string
	var abandonReason sql.NullString
	var completedAt, abandonedAt sql.NullTime
	if err := row.Scan(
		&sess.ID,
		&sess.TenantID,
		&sess.PatientRef,
		&sess.CurrentStageIndex,
		&sess.Status,
		&answers,
		&abandonReason,
		&sess.Version,
		&sess.CreatedAt,
		&sess.UpdatedAt,
		&completedAt,
		&abandonedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(answers), &sess.Answers); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}
	if abandonReason.Valid {
		sess.AbandonReason = &abandonReason.String
	}
	if completedAt.Valid {
		sess.CompletedAt = &completedAt.Time
	}
	if abandonedAt.Valid {
		sess.AbandonedAt = &abandonedAt.Time
	}
	return &sess, nil
}

func encodeAnswers(answers []interview.Answer) (string, error) {
	if answers == nil {
		answers = []interview.Answer{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("failed to encode answers: %w", err)
	}
	return string(data), nil
}
