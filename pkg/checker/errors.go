package checker

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch marks a task that could not get a price from the fare source.
	ErrFetch = errors.New("price fetch failed")

	// ErrPersist marks a task whose store write or delete failed.
	ErrPersist = errors.New("alert persistence failed")

	// ErrSetup marks a batch that aborted before any task started.
	ErrSetup = errors.New("batch setup failed")
)

// SetupError reports which setup stage aborted a batch run.
type SetupError struct {
	Stage string // "launch" or "load"
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrSetup, e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

func (e *SetupError) Is(target error) bool { return target == ErrSetup }
