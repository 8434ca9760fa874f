package withdrawal

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starclip/starclip-api/internal/domain/wallet"
	"github.com/starclip/starclip-api/internal/middleware"
	"github.com/starclip/starclip-api/internal/pkg/gateway"
	"github.com/starclip/starclip-api/internal/pkg/money"
	"github.com/starclip/starclip-api/internal/pkg/response"
	"github.com/starclip/starclip-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createRequest struct {
	Amount  string `json:"amount" validate:"required,amount"`
	Method  string `json:"method" validate:"required,withdraw_method"`
	Details string `json:"details" validate:"required,max=500"`
}

// Create submits a withdrawal request for the authenticated creator.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		response.BadRequest(w, "invalid amount")
		return
	}

	wd, err := h.svc.Request(r.Context(), userID, amount, Method(req.Method), req.Details)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "amount must be greater than zero")
		case errors.Is(err, ErrBelowMinimum):
			response.BadRequest(w, "amount is below the minimum withdrawal")
		case errors.Is(err, ErrInsufficientAvailable):
			response.Conflict(w, "INSUFFICIENT_AVAILABLE", "amount exceeds available balance")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, wd)
}

// List returns the authenticated creator's withdrawal history.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	wds, err := h.svc.ListByCreator(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"withdrawals": wds})
}

// Available reports the amount the creator can withdraw right now.
func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	available, err := h.svc.Available(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]string{"available": available.StringFixed(2)})
}

// AdminList returns withdrawals by status, pending by default.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	status := Status(r.URL.Query().Get("status"))
	if status == "" {
		status = StatusPending
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	wds, err := h.svc.ListByStatus(r.Context(), status, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"withdrawals": wds})
}

// Approve debits the creator and dispatches the payout.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid withdrawal ID")
		return
	}

	wd, err := h.svc.Approve(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "withdrawal not found")
		case errors.Is(err, ErrAlreadyProcessed):
			response.Conflict(w, "ALREADY_PROCESSED", "withdrawal already processed")
		case errors.Is(err, wallet.ErrInsufficientFunds):
			response.Conflict(w, "INSUFFICIENT_FUNDS", "balance no longer covers this withdrawal")
		case errors.Is(err, gateway.ErrGateway):
			// The debit is committed; only the payout dispatch failed.
			response.BadGateway(w, "payout dispatch failed, withdrawal is completed")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, wd)
}

// Reject releases the reservation without a ledger mutation.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid withdrawal ID")
		return
	}

	wd, err := h.svc.Reject(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "withdrawal not found")
		case errors.Is(err, ErrAlreadyProcessed):
			response.Conflict(w, "ALREADY_PROCESSED", "withdrawal already processed")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, wd)
}

// Routes for the authenticated creator surface.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/available", h.Available)
	return r
}

// AdminRoutes for the moderation surface. Callers mount these behind the
// admin role check.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.AdminList)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/reject", h.Reject)
	return r
}
