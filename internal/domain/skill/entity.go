package skill

import (
	"time"

	"github.com/google/uuid"
)

// Skill is a teachable subject referenced by sessions, bounties and classes
type Skill struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
