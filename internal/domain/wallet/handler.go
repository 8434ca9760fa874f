package wallet

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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

type topUpRequest struct {
	Amount string `json:"amount" validate:"required,amount"`
}

type webhookRequest struct {
	OrderID string `json:"order_id"`
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"balance": balance})
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txs, err := h.svc.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"transactions": txs})
}

func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req topUpRequest
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

	order, err := h.svc.InitTopUp(r.Context(), userID, amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrNegativeAmount):
			response.BadRequest(w, "amount must be greater than zero")
		case errors.Is(err, gateway.ErrGateway):
			response.BadGateway(w, "payment provider unavailable")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, order)
}

// Webhook settles a top-up after the gateway confirms (or fails) the capture.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		response.BadRequest(w, "invalid webhook payload")
		return
	}

	t, err := h.svc.ConfirmTopUp(r.Context(), req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadySettled):
			// Gateway retries are expected; the settlement already happened.
			response.OK(w, map[string]interface{}{"status": "already_settled"})
		case errors.Is(err, ErrAccountNotFound):
			response.NotFound(w, "unknown order")
		case errors.Is(err, gateway.ErrGateway):
			response.BadGateway(w, "payment provider unavailable")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]interface{}{"status": string(t.Status)})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/balance", h.Balance)
	r.Get("/transactions", h.Transactions)
	r.Post("/topup", h.TopUp)
	return r
}

func (h *Handler) WebhookRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/gateway", h.Webhook)
	return r
}
