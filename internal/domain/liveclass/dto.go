package liveclass

import (
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-api/internal/domain/ledger"
)

type CreateRequest struct {
	SkillID        uuid.UUID `json:"skill_id" validate:"required"`
	Title          string    `json:"title" validate:"required,max=200"`
	CreditsPerSeat int64     `json:"credits_per_seat" validate:"required,gt=0"`
	Capacity       int       `json:"capacity" validate:"required,min=1,max=500"`
	StartsAt       time.Time `json:"starts_at" validate:"required"`
}

type ClassResponse struct {
	ID             uuid.UUID `json:"id"`
	HostID         uuid.UUID `json:"host_id"`
	SkillID        uuid.UUID `json:"skill_id"`
	Title          string    `json:"title"`
	CreditsPerSeat int64     `json:"credits_per_seat"`
	Capacity       int       `json:"capacity"`
	Status         Status    `json:"status"`
	StartsAt       time.Time `json:"starts_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type AttendeeResponse struct {
	UserID   uuid.UUID      `json:"user_id"`
	Status   AttendeeStatus `json:"status"`
	JoinedAt time.Time      `json:"joined_at"`
}

type ResultResponse struct {
	Class          *ClassResponse        `json:"class"`
	Hold           *ledger.EntryResponse `json:"hold,omitempty"`
	Released       *ledger.EntryResponse `json:"released,omitempty"`
	Settlements    []ledger.Settlement   `json:"settlements,omitempty"`
	SettleFailures int                   `json:"settle_failures,omitempty"`
}

func ToResponse(c *Class) *ClassResponse {
	return &ClassResponse{
		ID:             c.ID,
		HostID:         c.HostID,
		SkillID:        c.SkillID,
		Title:          c.Title,
		CreditsPerSeat: c.CreditsPerSeat,
		Capacity:       c.Capacity,
		Status:         c.Status,
		StartsAt:       c.StartsAt,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func ToResponses(classes []Class) []ClassResponse {
	out := make([]ClassResponse, len(classes))
	for i := range classes {
		out[i] = *ToResponse(&classes[i])
	}
	return out
}

func ToAttendeeResponses(attendees []Attendee) []AttendeeResponse {
	out := make([]AttendeeResponse, len(attendees))
	for i, a := range attendees {
		out[i] = AttendeeResponse{UserID: a.UserID, Status: a.Status, JoinedAt: a.JoinedAt}
	}
	return out
}

func toResultResponse(r *Result) *ResultResponse {
	resp := &ResultResponse{
		Class:          ToResponse(r.Class),
		Settlements:    r.Settlements,
		SettleFailures: r.SettleFailures,
	}
	if r.Hold != nil {
		hold := r.Hold.ToResponse()
		resp.Hold = &hold
	}
	if r.Released != nil {
		released := r.Released.ToResponse()
		resp.Released = &released
	}
	return resp
}
