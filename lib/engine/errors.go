package engine

import "errors"

var (
	// ErrNotFound is returned when the runtime has no such container or exec.
	ErrNotFound = errors.New("container not found")

	// ErrUnavailable is returned when the runtime cannot be reached.
	ErrUnavailable = errors.New("container runtime unavailable")
)
