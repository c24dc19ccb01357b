package storage

import "errors"

var (
	// ErrValidation is returned when a template is missing its name or pattern.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a template id is not live in its pool.
	ErrNotFound = errors.New("not found")
)
