package ledger

import (
	"time"

	"github.com/google/uuid"
)

// EntryStatus is the single lifecycle vocabulary for ledger entries.
// The only legal mutations are reserved -> spent and reserved -> cancelled;
// amount and user_id are immutable once written.
type EntryStatus string

const (
	// StatusReserved marks credits held against a pending obligation
	StatusReserved EntryStatus = "reserved"
	// StatusSpent marks credits permanently deducted
	StatusSpent EntryStatus = "spent"
	// StatusEarned marks credits permanently granted
	StatusEarned EntryStatus = "earned"
	// StatusCancelled marks a voided reservation
	StatusCancelled EntryStatus = "cancelled"
)

// ReferenceType identifies what an entry is tied to
type ReferenceType string

const (
	ReferenceSession    ReferenceType = "session"
	ReferenceBounty     ReferenceType = "bounty"
	ReferenceLiveClass  ReferenceType = "live_class"
	ReferenceAdjustment ReferenceType = "adjustment"
)

// Reference ties an entry to the session, bounty or class that caused it
type Reference struct {
	ID   uuid.UUID
	Type ReferenceType
}

// Entry is one append-only ledger row
type Entry struct {
	ID             uuid.UUID     `db:"id"`
	UserID         uuid.UUID     `db:"user_id"`
	Amount         int64         `db:"amount"`
	Status         EntryStatus   `db:"status"`
	BalanceAfter   int64         `db:"balance_after"`
	ReferenceID    uuid.NullUUID `db:"reference_id"`
	ReferenceType  string        `db:"reference_type"`
	RelatedEntryID uuid.NullUUID `db:"related_entry_id"`
	Description    string        `db:"description"`
	ExpiresAt      *time.Time    `db:"expires_at"`
	CreatedAt      time.Time     `db:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at"`
}

// HeldAmount returns the positive number of credits a reserved entry holds
func (e *Entry) HeldAmount() int64 {
	if e.Amount < 0 {
		return -e.Amount
	}
	return e.Amount
}

// Balance is the derived view of a user's credits. Total counts only
// permanent (spent/earned) entries, so a hold leaves it untouched until
// settlement and a cancelled hold never affects it.
type Balance struct {
	Total     int64 `json:"total"`
	Reserved  int64 `json:"reserved"`
	Available int64 `json:"available"`
}

// Settlement is the result of converting a reservation into a final
// debit/credit pair
type Settlement struct {
	Amount        int64     `json:"amount"`
	PayerID       uuid.UUID `json:"payer_id"`
	PayeeID       uuid.UUID `json:"payee_id"`
	PayerBalance  int64     `json:"payer_balance"`
	PayeeBalance  int64     `json:"payee_balance"`
	DebitEntryID  uuid.UUID `json:"debit_entry_id"`
	CreditEntryID uuid.UUID `json:"credit_entry_id"`
}

// SweepResult reports one expiration sweep run
type SweepResult struct {
	CancelledCount int         `json:"cancelled_count"`
	CancelledIDs   []uuid.UUID `json:"cancelled_ids"`
}
