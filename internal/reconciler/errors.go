package reconciler

import "errors"

var (
	// ErrCycleInProgress is returned when a cycle is requested while another one runs.
	ErrCycleInProgress = errors.New("sync cycle already in progress")
	// ErrPanic wraps a panic recovered inside a cycle.
	ErrPanic = errors.New("sync cycle panicked")
)
