package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-api/internal/domain/ledger"
)

type CreateRequest struct {
	TeacherID     uuid.UUID `json:"teacher_id" validate:"required"`
	SkillID       uuid.UUID `json:"skill_id" validate:"required"`
	CreditsAmount int64     `json:"credits_amount" validate:"required,gt=0"`
	Message       string    `json:"message" validate:"max=1000"`
}

type ScheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type SessionResponse struct {
	ID                 uuid.UUID  `json:"id"`
	LearnerID          uuid.UUID  `json:"learner_id"`
	TeacherID          uuid.UUID  `json:"teacher_id"`
	SkillID            uuid.UUID  `json:"skill_id"`
	Status             Status     `json:"status"`
	CreditsAmount      int64      `json:"credits_amount"`
	CreditsLocked      bool       `json:"credits_locked"`
	Message            string     `json:"message,omitempty"`
	ScheduledAt        *time.Time `json:"scheduled_at,omitempty"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy        *uuid.UUID `json:"cancelled_by,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type TransitionResponse struct {
	Session    *SessionResponse      `json:"session"`
	Hold       *ledger.EntryResponse `json:"hold,omitempty"`
	Released   *ledger.EntryResponse `json:"released,omitempty"`
	Settlement *ledger.Settlement    `json:"settlement,omitempty"`
}

func ToResponse(s *Session) *SessionResponse {
	resp := &SessionResponse{
		ID:                 s.ID,
		LearnerID:          s.LearnerID,
		TeacherID:          s.TeacherID,
		SkillID:            s.SkillID,
		Status:             s.Status,
		CreditsAmount:      s.CreditsAmount,
		CreditsLocked:      s.CreditsLocked,
		Message:            s.Message,
		ScheduledAt:        s.ScheduledAt,
		StartedAt:          s.StartedAt,
		CompletedAt:        s.CompletedAt,
		CancelledAt:        s.CancelledAt,
		CancellationReason: s.CancellationReason,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
	if s.CancelledBy.Valid {
		id := s.CancelledBy.UUID
		resp.CancelledBy = &id
	}
	return resp
}

func ToResponses(sessions []Session) []SessionResponse {
	out := make([]SessionResponse, len(sessions))
	for i := range sessions {
		out[i] = *ToResponse(&sessions[i])
	}
	return out
}

func toTransitionResponse(r *Result) *TransitionResponse {
	resp := &TransitionResponse{Session: ToResponse(r.Session), Settlement: r.Settlement}
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
