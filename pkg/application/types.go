package application

import "errors"

// Common errors returned by the application package.
var (
	// ErrConfigRequired is returned when no configuration is provided.
	ErrConfigRequired = errors.New("configuration is required")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("application already started")
)
