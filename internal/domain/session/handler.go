package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skillswap/skillswap-api/internal/domain/ledger"
	"github.com/skillswap/skillswap-api/internal/domain/skill"
	"github.com/skillswap/skillswap-api/internal/domain/user"
	"github.com/skillswap/skillswap-api/internal/middleware"
	"github.com/skillswap/skillswap-api/internal/pkg/response"
	"github.com/skillswap/skillswap-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create requests a new session, reserving the caller's credits
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationFailed(w, fields)
		return
	}

	result, err := h.svc.Request(r.Context(), userID, RequestInput{
		TeacherID:     req.TeacherID,
		SkillID:       req.SkillID,
		CreditsAmount: req.CreditsAmount,
		Message:       req.Message,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, toTransitionResponse(result))
}

// List returns the caller's sessions
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	status := r.URL.Query().Get("status")
	if err := validator.ValidateVar(status, "session_status"); err != nil {
		response.BadRequest(w, "invalid status filter")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	sessions, err := h.svc.ListByUser(r.Context(), userID, status, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, ToResponses(sessions))
}

// Get returns one session the caller participates in
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid session id")
		return
	}

	sess, err := h.svc.Get(r.Context(), userID, sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, ToResponse(sess))
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Accept)
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Start)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Complete)
}

func (h *Handler) Dispute(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Dispute)
}

// Schedule sets a future meeting time
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid session id")
		return
	}

	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationFailed(w, fields)
		return
	}

	result, err := h.svc.Schedule(r.Context(), userID, sessionID, req.ScheduledAt)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, toTransitionResponse(result))
}

// Cancel aborts a session and releases any active hold
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid session id")
		return
	}

	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationFailed(w, fields)
		return
	}

	result, err := h.svc.Cancel(r.Context(), userID, sessionID, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, toTransitionResponse(result))
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, sessionID uuid.UUID) (*Result, error)) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid session id")
		return
	}

	result, err := fn(r.Context(), userID, sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, toTransitionResponse(result))
}

// Routes returns session routes for authenticated users
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/accept", h.Accept)
	r.Post("/{id}/schedule", h.Schedule)
	r.Post("/{id}/start", h.Start)
	r.Post("/{id}/complete", h.Complete)
	r.Post("/{id}/cancel", h.Cancel)
	r.Post("/{id}/dispute", h.Dispute)
	return r
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		insufficient *ledger.InsufficientBalanceError
		invalid      *InvalidTransitionError
	)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "session not found")
	case errors.Is(err, ErrRoleViolation):
		response.Forbidden(w, "not allowed for this session")
	case errors.Is(err, ErrSelfSession):
		response.BadRequest(w, "cannot request a session with yourself")
	case errors.Is(err, ErrScheduleInPast):
		response.BadRequest(w, "scheduled time must be in the future")
	case errors.As(err, &invalid):
		response.ErrorWithDetails(w, http.StatusConflict, "INVALID_TRANSITION", "transition not allowed", map[string]string{
			"from":      string(invalid.From),
			"operation": string(invalid.Op),
		})
	case errors.As(err, &insufficient):
		response.ErrorWithDetails(w, http.StatusConflict, "INSUFFICIENT_BALANCE", "insufficient available balance", map[string]string{
			"available": strconv.FormatInt(insufficient.Available, 10),
			"required":  strconv.FormatInt(insufficient.Required, 10),
		})
	case errors.Is(err, ledger.ErrInvalidAmount):
		response.BadRequest(w, "credits amount must be positive")
	case errors.Is(err, user.ErrNotFound):
		response.NotFound(w, "user not found")
	case errors.Is(err, skill.ErrNotFound):
		response.NotFound(w, "skill not found")
	case errors.Is(err, ledger.ErrReservationNotFound):
		response.Conflict(w, "no active reservation for this session")
	default:
		response.InternalError(w)
	}
}
