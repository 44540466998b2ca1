package bounty

import (
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

// Post creates an open bounty backed by a credit hold
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationFailed(w, fields)
		return
	}

	result, err := h.svc.Post(r.Context(), userID, PostInput{
		SkillID:       req.SkillID,
		CreditsAmount: req.CreditsAmount,
		MinLevel:      req.MinLevel,
		Description:   req.Description,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, toResultResponse(result))
}

// List returns open bounties
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	bounties, err := h.svc.ListOpen(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, ToResponses(bounties))
}

// Get returns one bounty by id
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	bountyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid bounty id")
		return
	}

	b, err := h.svc.Get(r.Context(), bountyID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, ToResponse(b))
}

// Claim accepts a bounty, creating an accepted session
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	bountyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid bounty id")
		return
	}

	result, err := h.svc.Claim(r.Context(), userID, bountyID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, toResultResponse(result))
}

// Cancel withdraws an open bounty
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	bountyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid bounty id")
		return
	}

	result, err := h.svc.Cancel(r.Context(), userID, bountyID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, toResultResponse(result))
}

// Routes returns bounty routes for authenticated users
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Post)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/claim", h.Claim)
	r.Post("/{id}/cancel", h.Cancel)
	return r
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var insufficient *ledger.InsufficientBalanceError
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "bounty not found")
	case errors.Is(err, ErrNotOpen):
		response.Conflict(w, "bounty is not open")
	case errors.Is(err, ErrOwnBounty):
		response.BadRequest(w, "cannot claim your own bounty")
	case errors.Is(err, ErrNotPoster):
		response.Forbidden(w, "only the poster may cancel a bounty")
	case errors.Is(err, ErrLevelTooLow):
		response.Forbidden(w, "teacher level below bounty minimum")
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
	default:
		response.InternalError(w)
	}
}
