package sharing

import "errors"

var (
	// ErrUnauthorized indicates the actor may not share or revoke.
	ErrUnauthorized = errors.New("not permitted to share this report")
	// ErrAlreadyGranted indicates an identical active grant exists.
	ErrAlreadyGranted = errors.New("report already shared with this party")
	// ErrGrantNotFound indicates the grant doesn't exist.
	ErrGrantNotFound = errors.New("grant not found")
	// ErrReportNotFound indicates the report doesn't exist.
	ErrReportNotFound = errors.New("report not found")
	// ErrInvalidInput indicates missing or contradictory request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidState indicates the grant was already revoked.
	ErrInvalidState = errors.New("grant already revoked")
)
