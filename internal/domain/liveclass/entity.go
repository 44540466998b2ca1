package liveclass

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type AttendeeStatus string

const (
	AttendeeJoined  AttendeeStatus = "joined"
	AttendeeLeft    AttendeeStatus = "left"
	AttendeeSettled AttendeeStatus = "settled"
)

// Class is a one-to-many session: each attendee holds credits_per_seat
// against the class, and completion settles every remaining hold to the
// host individually.
type Class struct {
	ID             uuid.UUID `db:"id"`
	HostID         uuid.UUID `db:"host_id"`
	SkillID        uuid.UUID `db:"skill_id"`
	Title          string    `db:"title"`
	CreditsPerSeat int64     `db:"credits_per_seat"`
	Capacity       int       `db:"capacity"`
	Status         Status    `db:"status"`
	StartsAt       time.Time `db:"starts_at"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type Attendee struct {
	ClassID   uuid.UUID      `db:"class_id"`
	UserID    uuid.UUID      `db:"user_id"`
	Status    AttendeeStatus `db:"status"`
	JoinedAt  time.Time      `db:"joined_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}
