package bounty

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusClaimed   Status = "claimed"
	StatusCancelled Status = "cancelled"
)

// Bounty is a standing offer: the poster's credits are held from the
// moment of posting until a qualified teacher claims or the poster
// cancels. Claiming converts the bounty into an accepted session.
type Bounty struct {
	ID            uuid.UUID     `db:"id"`
	PosterID      uuid.UUID     `db:"poster_id"`
	SkillID       uuid.UUID     `db:"skill_id"`
	CreditsAmount int64         `db:"credits_amount"`
	MinLevel      int           `db:"min_level"`
	Status        Status        `db:"status"`
	Description   string        `db:"description"`
	SessionID     uuid.NullUUID `db:"session_id"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}
