package liveclass

import "errors"

var (
	ErrNotFound      = errors.New("class not found")
	ErrNotHost       = errors.New("only the host may do this")
	ErrHostJoin      = errors.New("host cannot join own class")
	ErrClassFull     = errors.New("class is full")
	ErrNotJoinable   = errors.New("class is not accepting attendees")
	ErrNotAttendee   = errors.New("not an attendee of this class")
	ErrInvalidStatus = errors.New("operation not allowed in current class status")
	ErrStartsInPast  = errors.New("class start time must be in the future")
)
