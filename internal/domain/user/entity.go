package user

import (
	"time"

	"github.com/google/uuid"
)

// User is a marketplace participant. Auth and profile content live in
// external services; this core keeps the cached ledger balance and the
// denormalized counters that feed reputation and level gating.
type User struct {
	ID                uuid.UUID `db:"id" json:"id"`
	DisplayName       string    `db:"display_name" json:"display_name"`
	CreditBalance     int64     `db:"credit_balance" json:"credit_balance"`
	SessionsCompleted int       `db:"sessions_completed" json:"sessions_completed"`
	SessionsTaught    int       `db:"sessions_taught" json:"sessions_taught"`
	Level             int       `db:"level" json:"level"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// levelThresholds maps taught-session counts to levels. Reputation proper is
// computed externally; the core only maintains the counters and this gate.
var levelThresholds = []struct {
	taught int
	level  int
}{
	{50, 5},
	{30, 4},
	{15, 3},
	{5, 2},
	{0, 1},
}

// LevelForTaught returns the level for a taught-session count
func LevelForTaught(taught int) int {
	for _, t := range levelThresholds {
		if taught >= t.taught {
			return t.level
		}
	}
	return 1
}
