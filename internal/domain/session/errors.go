package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the session doesn't exist
	ErrNotFound = errors.New("session not found")

	// ErrRoleViolation means the actor is not allowed to perform the
	// transition (not a participant, or the wrong side of the pair)
	ErrRoleViolation = errors.New("actor may not perform this transition")

	// ErrInvalidTransition means the operation was invoked from a state
	// that forbids it
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrSelfSession is returned when learner and teacher are the same user
	ErrSelfSession = errors.New("learner and teacher must be different users")

	// ErrScheduleInPast is returned when the scheduled time is not in the future
	ErrScheduleInPast = errors.New("scheduled time must be in the future")
)

// InvalidTransitionError carries the current state and attempted operation.
// errors.Is(err, ErrInvalidTransition) matches it.
type InvalidTransitionError struct {
	From Status
	Op   Transition
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a session in state %q", e.Op, e.From)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
