// Package common defines shared sentinel errors and small helpers used
// across taskboard layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Session errors.
	ErrNotAuthenticated = errors.New("no authenticated identity")
	ErrInvalidToken     = errors.New("invalid session token")

	// Validation errors for task fields.
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrInvalidPriority = errors.New("invalid task priority")
	ErrInvalidDueDate  = errors.New("invalid due date, expected YYYY-MM-DD")
	ErrEmptyName       = errors.New("name must not be empty")

	// Board errors.
	ErrUnknownColumn = errors.New("unknown board column")
)
