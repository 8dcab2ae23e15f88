package run

import "errors"

// Domain errors for run store operations.
var (
	// ErrRunNotFound is returned when a run record does not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunExists is returned when attempting to create a run record that already exists.
	ErrRunExists = errors.New("run already exists")

	// ErrInvalidRunID is returned when a run ID is invalid (e.g., empty).
	ErrInvalidRunID = errors.New("invalid run ID")

	// ErrConnectionFailed is returned when connection to the store backend fails.
	ErrConnectionFailed = errors.New("store connection failed")
)
