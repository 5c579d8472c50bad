package task

import (
	"errors"
	"fmt"
)

var (
	// ErrCanceled marks a lifecycle hook veto. It is not a failure: the
	// transition simply does not happen.
	ErrCanceled = errors.New("task: transition canceled")

	ErrEffectPanicked  = errors.New("task: effect panicked")
	ErrEmptySnapshot   = errors.New("task: empty settings snapshot")
	ErrInvalidSnapshot = errors.New("task: invalid settings snapshot")
	ErrInvalidName     = errors.New("task: invalid name")
	ErrDuplicateName   = errors.New("task: duplicate name")
	ErrNotFound        = errors.New("task: not found")
	ErrInvalidInterval = errors.New("task: interval must be 1-60 minutes")
)

// Cancel returns a veto carrying a human-readable reason.
// The reason is narrated in the task's log line as-is.
func Cancel(reason string) error {
	return cancelError{reason: reason}
}

type cancelError struct{ reason string }

func (e cancelError) Error() string { return e.reason }
func (e cancelError) Unwrap() error { return ErrCanceled }

// IsCanceled reports whether err is a hook veto.
func IsCanceled(err error) bool { return errors.Is(err, ErrCanceled) }

type panicError struct {
	value any
}

func (e panicError) Error() string { return fmt.Sprintf("effect panicked: %v", e.value) }
func (e panicError) Unwrap() error { return ErrEffectPanicked }
