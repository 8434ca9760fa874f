package earning

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starclip/starclip-api/internal/domain/wallet"
	"github.com/starclip/starclip-api/internal/middleware"
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

type completedRequest struct {
	CreatorID   string `json:"creator_id" validate:"required,uuid"`
	GrossAmount string `json:"gross_amount" validate:"required,amount"`
}

type declinedRequest struct {
	FanID  string `json:"fan_id" validate:"required,uuid"`
	Amount string `json:"amount" validate:"required,amount"`
}

type bookedRequest struct {
	FanID  string `json:"fan_id" validate:"required,uuid"`
	Amount string `json:"amount" validate:"required,amount"`
}

// Completed handles the request-completed event from the request service.
func (h *Handler) Completed(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid request ID")
		return
	}

	var req completedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	creatorID, _ := uuid.Parse(req.CreatorID)
	gross, err := money.Parse(req.GrossAmount)
	if err != nil {
		response.BadRequest(w, "invalid gross amount")
		return
	}

	e, err := h.svc.OnRequestCompleted(r.Context(), requestID, creatorID, gross)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			response.BadRequest(w, "gross amount must be greater than zero")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, e)
}

// Declined refunds the fan's reserved funds after a creator declines.
func (h *Handler) Declined(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid request ID")
		return
	}

	var req declinedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	fanID, _ := uuid.Parse(req.FanID)
	amount, err := money.Parse(req.Amount)
	if err != nil {
		response.BadRequest(w, "invalid amount")
		return
	}

	if err := h.svc.OnRequestDeclined(r.Context(), requestID, fanID, amount); err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			response.BadRequest(w, "amount must be greater than zero")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]string{"status": "refunded"})
}

// Booked debits the fan when a video request is placed.
func (h *Handler) Booked(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid request ID")
		return
	}

	var req bookedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	fanID, _ := uuid.Parse(req.FanID)
	amount, err := money.Parse(req.Amount)
	if err != nil {
		response.BadRequest(w, "invalid amount")
		return
	}

	if err := h.svc.BookRequest(r.Context(), requestID, fanID, amount); err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "amount must be greater than zero")
		case errors.Is(err, wallet.ErrInsufficientFunds):
			response.Conflict(w, "INSUFFICIENT_FUNDS", "insufficient wallet balance")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]string{"status": "booked"})
}

// List returns the authenticated creator's earnings.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	earnings, err := h.svc.ListByCreator(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"earnings": earnings})
}

// Refund reverses a disputed earning while it is still pending. Admin only.
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	earningID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid earning ID")
		return
	}

	e, err := h.svc.Refund(r.Context(), earningID, middleware.GetUserID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "earning not found")
		case errors.Is(err, ErrNotRefundable):
			response.Conflict(w, "ALREADY_PROCESSED", "earning is no longer refundable")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, e)
}

// Routes for the authenticated creator surface.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.List)
	return r
}

// InternalRoutes for service-to-service request lifecycle events.
func (h *Handler) InternalRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{id}/booked", h.Booked)
	r.Post("/{id}/completed", h.Completed)
	r.Post("/{id}/declined", h.Declined)
	return r
}
