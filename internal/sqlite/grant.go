package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/noaesperanza/imre/internal/domain/sharing"
	"github.com/noaesperanza/imre/internal/repository"
)

// GrantRepository implements sharing.GrantRepository for SQLite
type GrantRepository struct {
	db *DB
}

// NewGrantRepository creates a new GrantRepository
func NewGrantRepository(db *DB) *GrantRepository {
	return &GrantRepository{db: db}
}

const grantSelect = `
	SELECT g.id, g.tenant_id, g.report_id, g.granted_to_ref, g.granted_by_ref,
	       g.granted_at, v.revoked_at, v.revoked_by_ref
	FROM sharing_grants g
	LEFT JOIN sharing_revocations v ON v.grant_id = g.id
`

// Create inserts a new grant
func (r *GrantRepository) Create(ctx context.Context, tenantID string, grant *sharing.Grant) error {
	query := `
		INSERT INTO sharing_grants (
			id, tenant_id, report_id, granted_to_ref, granted_by_ref, granted_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		grant.ID,
		tenantID,
		grant.ReportID,
		grant.GrantedToRef,
		grant.GrantedByRef,
		grant.GrantedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create grant: %w", err)
	}

	grant.TenantID = tenantID
	return nil
}

// Get retrieves a grant with its revocation, if any
func (r *GrantRepository) Get(ctx context.Context, tenantID, id string) (*sharing.Grant, error) {
	query := grantSelect + ` WHERE g.id = ? AND g.tenant_id = ?`
	grant, err := scanGrant(r.db.QueryRowContext(ctx, query, id, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}
	return grant, nil
}

// ListByReport lists every grant of a report ordered by grant time
func (r *GrantRepository) ListByReport(ctx context.Context, tenantID, reportID string) ([]sharing.Grant, error) {
	query := grantSelect + ` WHERE g.report_id = ? AND g.tenant_id = ? ORDER BY g.granted_at ASC, g.rowid ASC`
	rows, err := r.db.QueryContext(ctx, query, reportID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	grants := []sharing.Grant{}
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, *grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grant rows: %w", err)
	}
	return grants, nil
}

// Revoke appends a revocation record. A grant can be revoked once.
func (r *GrantRepository) Revoke(ctx context.Context, tenantID string, rev *sharing.Revocation) error {
	query := `
		INSERT INTO sharing_revocations (grant_id, tenant_id, revoked_by_ref, revoked_at)
		SELECT id, tenant_id, ?, ? FROM sharing_grants WHERE id = ? AND tenant_id = ?
	`
	result, err := r.db.ExecContext(ctx, query, rev.RevokedByRef, rev.RevokedAt, rev.GrantID, tenantID)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to revoke grant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrant(row rowScanner) (*sharing.Grant, error) {
	var grant sharing.Grant
	var revokedAt sql.NullTime
	var revokedBy sql.NullString
	if err := row.Scan(
		&grant.ID,
		&grant.TenantID,
		&grant.ReportID,
		&grant.GrantedToRef,
		&grant.GrantedByRef,
		&grant.GrantedAt,
		&revokedAt,
		&revokedBy,
	); err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		grant.RevokedAt = &revokedAt.Time
	}
	if revokedBy.Valid {
		grant.RevokedByRef = &revokedBy.String
	}
	return &grant, nil
}
