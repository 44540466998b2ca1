package session

import (
	"time"

	"github.com/google/uuid"
)

// Status is a session state machine value
type Status string

const (
	StatusRequested  Status = "requested"
	StatusAccepted   Status = "accepted"
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusDisputed   Status = "disputed"
)

// Transition names a state machine operation
type Transition string

const (
	TransitionAccept   Transition = "accept"
	TransitionSchedule Transition = "schedule"
	TransitionStart    Transition = "start"
	TransitionComplete Transition = "complete"
	TransitionCancel   Transition = "cancel"
	TransitionDispute  Transition = "dispute"
)

// validFrom lists the states each transition may fire from. Credits only
// ever move on complete (in_progress -> completed) and cancel (release).
var validFrom = map[Transition][]Status{
	TransitionAccept:   {StatusRequested},
	TransitionSchedule: {StatusAccepted},
	TransitionStart:    {StatusAccepted, StatusScheduled},
	TransitionComplete: {StatusInProgress},
	TransitionCancel:   {StatusRequested, StatusAccepted, StatusScheduled, StatusInProgress},
	TransitionDispute:  {StatusCompleted},
}

// target maps each transition to its result state
var target = map[Transition]Status{
	TransitionAccept:   StatusAccepted,
	TransitionSchedule: StatusScheduled,
	TransitionStart:    StatusInProgress,
	TransitionComplete: StatusCompleted,
	TransitionCancel:   StatusCancelled,
	TransitionDispute:  StatusDisputed,
}

// CanTransition reports whether t may fire from state from
func CanTransition(from Status, t Transition) bool {
	for _, s := range validFrom[t] {
		if s == from {
			return true
		}
	}
	return false
}

// TargetState returns the state a transition lands in
func TargetState(t Transition) Status {
	return target[t]
}

// Session is a skill exchange between a learner (payer) and a teacher
// (payee). Bounty claims create sessions directly in the accepted state.
type Session struct {
	ID                 uuid.UUID     `db:"id"`
	LearnerID          uuid.UUID     `db:"learner_id"`
	TeacherID          uuid.UUID     `db:"teacher_id"`
	SkillID            uuid.UUID     `db:"skill_id"`
	Status             Status        `db:"status"`
	CreditsAmount      int64         `db:"credits_amount"`
	CreditsLocked      bool          `db:"credits_locked"`
	Message            string        `db:"message"`
	ScheduledAt        *time.Time    `db:"scheduled_at"`
	StartedAt          *time.Time    `db:"started_at"`
	CompletedAt        *time.Time    `db:"completed_at"`
	CancelledAt        *time.Time    `db:"cancelled_at"`
	CancelledBy        uuid.NullUUID `db:"cancelled_by"`
	CancellationReason string        `db:"cancellation_reason"`
	CreatedAt          time.Time     `db:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at"`
}

// IsParticipant reports whether userID is the learner or the teacher
func (s *Session) IsParticipant(userID uuid.UUID) bool {
	return s.LearnerID == userID || s.TeacherID == userID
}
