package domain

import "errors"

var (
	// ErrNotFound is returned when a project id does not exist. Callers map
	// it to 404; a status query never falls back to a default value.
	ErrNotFound = errors.New("project not found")

	// ErrInvalidKind is returned for kinds outside the seeded set.
	ErrInvalidKind = errors.New("invalid project kind")

	// ErrInvalidStatus guards against writing anything outside the closed
	// creating/ready/failed set.
	ErrInvalidStatus = errors.New("invalid project status")
)
