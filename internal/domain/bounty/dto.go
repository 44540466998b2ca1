package bounty

import (
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-api/internal/domain/ledger"
	"github.com/skillswap/skillswap-api/internal/domain/session"
)

type PostRequest struct {
	SkillID       uuid.UUID `json:"skill_id" validate:"required"`
	CreditsAmount int64     `json:"credits_amount" validate:"required,gt=0"`
	MinLevel      int       `json:"min_level" validate:"omitempty,min=1,max=5"`
	Description   string    `json:"description" validate:"max=1000"`
}

type BountyResponse struct {
	ID            uuid.UUID  `json:"id"`
	PosterID      uuid.UUID  `json:"poster_id"`
	SkillID       uuid.UUID  `json:"skill_id"`
	CreditsAmount int64      `json:"credits_amount"`
	MinLevel      int        `json:"min_level"`
	Status        Status     `json:"status"`
	Description   string     `json:"description,omitempty"`
	SessionID     *uuid.UUID `json:"session_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type ResultResponse struct {
	Bounty   *BountyResponse          `json:"bounty"`
	Hold     *ledger.EntryResponse    `json:"hold,omitempty"`
	Released *ledger.EntryResponse    `json:"released,omitempty"`
	Session  *session.SessionResponse `json:"session,omitempty"`
}

func ToResponse(b *Bounty) *BountyResponse {
	resp := &BountyResponse{
		ID:            b.ID,
		PosterID:      b.PosterID,
		SkillID:       b.SkillID,
		CreditsAmount: b.CreditsAmount,
		MinLevel:      b.MinLevel,
		Status:        b.Status,
		Description:   b.Description,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
	if b.SessionID.Valid {
		id := b.SessionID.UUID
		resp.SessionID = &id
	}
	return resp
}

func ToResponses(bounties []Bounty) []BountyResponse {
	out := make([]BountyResponse, len(bounties))
	for i := range bounties {
		out[i] = *ToResponse(&bounties[i])
	}
	return out
}

func toResultResponse(r *Result) *ResultResponse {
	resp := &ResultResponse{Bounty: ToResponse(r.Bounty)}
	if r.Hold != nil {
		hold := r.Hold.ToResponse()
		resp.Hold = &hold
	}
	if r.Released != nil {
		released := r.Released.ToResponse()
		resp.Released = &released
	}
	if r.Session != nil {
		resp.Session = session.ToResponse(r.Session)
	}
	return resp
}
