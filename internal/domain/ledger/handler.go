package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skillswap/skillswap-api/internal/middleware"
	"github.com/skillswap/skillswap-api/internal/pkg/response"
	"github.com/skillswap/skillswap-api/internal/pkg/validator"
)

type Handler struct {
	svc     *Service
	sweeper *Sweeper
}

func NewHandler(svc *Service, sweeper *Sweeper) *Handler {
	return &Handler{svc: svc, sweeper: sweeper}
}

// GetBalance returns the caller's {total, reserved, available}
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	balance, err := h.svc.Balance(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, balance)
}

// ListEntries returns the caller's paginated ledger history
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.svc.Entries(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, ToResponses(entries))
}

// Adjust grants or deducts credits (admin only)
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationFailed(w, fields)
		return
	}

	entry, err := h.svc.Adjust(r.Context(), req.UserID, req.Delta, req.Description)
	if err != nil {
		var insufficient *InsufficientBalanceError
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "delta must be non-zero")
		case errors.As(err, &insufficient):
			response.ErrorWithDetails(w, http.StatusConflict, "INSUFFICIENT_BALANCE", "insufficient available balance", map[string]string{
				"available": strconv.FormatInt(insufficient.Available, 10),
				"required":  strconv.FormatInt(insufficient.Required, 10),
			})
		case errors.Is(err, ErrUserNotFound):
			response.NotFound(w, "user not found")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, entry.ToResponse())
}

// Sweep triggers an on-demand expiration sweep (admin only)
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.SweepOnce(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, result)
}

// Routes returns ledger routes for authenticated users
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/balance", h.GetBalance)
	r.Get("/entries", h.ListEntries)
	return r
}

// AdminRoutes returns admin-only ledger routes
func (h *Handler) AdminRoutes(authMiddleware, adminMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(adminMiddleware)
	r.Post("/adjust", h.Adjust)
	r.Post("/sweep", h.Sweep)
	return r
}
