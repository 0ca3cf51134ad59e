package report

import "errors"

var (
	// ErrReportNotFound indicates the report doesn't exist.
	ErrReportNotFound = errors.New("report not found")
	// ErrSessionNotCompleted indicates synthesis was requested before confirmation.
	ErrSessionNotCompleted = errors.New("session not completed")
	// ErrInvalidInput indicates missing request fields.
	ErrInvalidInput = errors.New("invalid input")
)
