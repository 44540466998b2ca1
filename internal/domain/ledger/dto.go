package ledger

import (
	"time"

	"github.com/google/uuid"
)

// EntryResponse is the wire shape of a ledger entry
type EntryResponse struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	Amount         int64      `json:"amount"`
	Status         string     `json:"status"`
	BalanceAfter   int64      `json:"balance_after"`
	ReferenceID    *uuid.UUID `json:"reference_id,omitempty"`
	ReferenceType  string     `json:"reference_type,omitempty"`
	RelatedEntryID *uuid.UUID `json:"related_entry_id,omitempty"`
	Description    string     `json:"description"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ToResponse converts an entry to its wire shape
func (e *Entry) ToResponse() EntryResponse {
	resp := EntryResponse{
		ID:            e.ID,
		UserID:        e.UserID,
		Amount:        e.Amount,
		Status:        string(e.Status),
		BalanceAfter:  e.BalanceAfter,
		ReferenceType: e.ReferenceType,
		Description:   e.Description,
		ExpiresAt:     e.ExpiresAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	if e.ReferenceID.Valid {
		id := e.ReferenceID.UUID
		resp.ReferenceID = &id
	}
	if e.RelatedEntryID.Valid {
		id := e.RelatedEntryID.UUID
		resp.RelatedEntryID = &id
	}
	return resp
}

// ToResponses converts a slice of entries
func ToResponses(entries []Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, entries[i].ToResponse())
	}
	return out
}

// AdjustRequest is the admin balance adjustment payload
type AdjustRequest struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	Delta       int64     `json:"delta" validate:"required"`
	Description string    `json:"description" validate:"max=500"`
}
