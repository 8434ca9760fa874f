package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starclip/starclip-api/internal/domain/audit"
	"github.com/starclip/starclip-api/internal/domain/wallet"
	"github.com/starclip/starclip-api/internal/middleware"
	"github.com/starclip/starclip-api/internal/pkg/money"
	"github.com/starclip/starclip-api/internal/pkg/response"
	"github.com/starclip/starclip-api/internal/pkg/validator"
)

// AuditReader lists audit entries for the admin surface.
type AuditReader interface {
	List(ctx context.Context, entity string, limit, offset int) ([]audit.Entry, error)
}

// Handler is the single entry point for privileged ledger mutations. Every
// route here is mounted behind the admin role check.
type Handler struct {
	wallets  *wallet.Service
	auditLog AuditReader
}

func NewHandler(wallets *wallet.Service, auditLog AuditReader) *Handler {
	return &Handler{wallets: wallets, auditLog: auditLog}
}

type adjustRequest struct {
	Amount string `json:"amount" validate:"required,amount"`
	Reason string `json:"reason" validate:"required,max=500"`
}

// Adjust applies a signed manual balance correction. The Idempotency-Key
// header is required so a retried submission returns the first result instead
// of applying twice.
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid account ID")
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		response.BadRequest(w, "Idempotency-Key header is required")
		return
	}

	var req adjustRequest
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

	t, err := h.wallets.AdminAdjust(r.Context(), accountID, amount, req.Reason, middleware.GetUserID(r.Context()), idempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrNegativeAmount):
			response.BadRequest(w, "amount must be non-zero")
		case errors.Is(err, wallet.ErrInsufficientFunds):
			response.Conflict(w, "INSUFFICIENT_FUNDS", "adjustment would make the balance negative")
		case errors.Is(err, wallet.ErrReferenceConflict):
			response.Conflict(w, "IDEMPOTENCY_CONFLICT", "idempotency key was used with a different amount")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, t)
}

// Audit lists audit entries, optionally filtered by entity.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	entity := r.URL.Query().Get("entity")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.auditLog.List(r.Context(), entity, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"entries": entries})
}

// Reconcile replays an account's completed transactions against its stored
// balance.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "account_id"))
	if err != nil {
		response.BadRequest(w, "invalid account ID")
		return
	}

	rec, err := h.wallets.Reconcile(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, wallet.ErrAccountNotFound) {
			response.NotFound(w, "account not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, rec)
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/accounts/{id}/adjust", h.Adjust)
	r.Get("/audit", h.Audit)
	r.Get("/reconcile/{account_id}", h.Reconcile)
	return r
}
