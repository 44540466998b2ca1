package liveclass

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

// Create schedules a class hosted by the caller
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

	result, err := h.svc.Create(r.Context(), userID, CreateInput{
		SkillID:        req.SkillID,
		Title:          req.Title,
		CreditsPerSeat: req.CreditsPerSeat,
		Capacity:       req.Capacity,
		StartsAt:       req.StartsAt,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, toResultResponse(result))
}

// List returns upcoming classes
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	classes, err := h.svc.ListUpcoming(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, ToResponses(classes))
}

// Get returns one class by id
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	classID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid class id")
		return
	}

	c, err := h.svc.Get(r.Context(), classID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, ToResponse(c))
}

// Attendees returns a class roster
func (h *Handler) Attendees(w http.ResponseWriter, r *http.Request) {
	classID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid class id")
		return
	}

	attendees, err := h.svc.Attendees(r.Context(), classID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, ToAttendeeResponses(attendees))
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, h.svc.Join)
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, h.svc.Leave)
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, h.svc.Start)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, h.svc.Complete)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, h.svc.Cancel)
}

func (h *Handler) operate(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, classID uuid.UUID) (*Result, error)) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}
	classID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid class id")
		return
	}

	result, err := fn(r.Context(), userID, classID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, toResultResponse(result))
}

// Routes returns live class routes for authenticated users
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/attendees", h.Attendees)
	r.Post("/{id}/join", h.Join)
	r.Post("/{id}/leave", h.Leave)
	r.Post("/{id}/start", h.Start)
	r.Post("/{id}/complete", h.Complete)
	r.Post("/{id}/cancel", h.Cancel)
	return r
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var insufficient *ledger.InsufficientBalanceError
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "class not found")
	case errors.Is(err, ErrNotHost):
		response.Forbidden(w, "only the host may do this")
	case errors.Is(err, ErrHostJoin):
		response.BadRequest(w, "host cannot join own class")
	case errors.Is(err, ErrClassFull):
		response.Conflict(w, "class is full")
	case errors.Is(err, ErrNotJoinable):
		response.Conflict(w, "class is not accepting attendees")
	case errors.Is(err, ErrNotAttendee):
		response.BadRequest(w, "not an attendee of this class")
	case errors.Is(err, ErrInvalidStatus):
		response.Conflict(w, "operation not allowed in current class status")
	case errors.Is(err, ErrStartsInPast):
		response.BadRequest(w, "start time must be in the future")
	case errors.As(err, &insufficient):
		response.ErrorWithDetails(w, http.StatusConflict, "INSUFFICIENT_BALANCE", "insufficient available balance", map[string]string{
			"available": strconv.FormatInt(insufficient.Available, 10),
			"required":  strconv.FormatInt(insufficient.Required, 10),
		})
	case errors.Is(err, ledger.ErrInvalidAmount):
		response.BadRequest(w, "credits per seat must be positive")
	case errors.Is(err, skill.ErrNotFound):
		response.NotFound(w, "skill not found")
	default:
		response.InternalError(w)
	}
}
