package sharing

import "time"

// Grant authorizes a second party to view a report. Grants are never
// deleted; revocation is recorded separately.
type Grant struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	ReportID     string     `json:"report_id"`
	GrantedToRef string     `json:"granted_to_ref"`
	GrantedByRef string     `json:"granted_by_ref"`
	GrantedAt    time.Time  `json:"granted_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	RevokedByRef *string    `json:"revoked_by_ref,omitempty"`
}

// Active reports whether the grant has not been revoked.
func (g Grant) Active() bool {
	return g.RevokedAt == nil
}

// Revocation is the additive record that ends a grant.
type Revocation struct {
	GrantID      string    `json:"grant_id"`
	RevokedByRef string    `json:"revoked_by_ref"`
	RevokedAt    time.Time `json:"revoked_at"`
}
