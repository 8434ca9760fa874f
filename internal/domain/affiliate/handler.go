package affiliate

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

type recordRequest struct {
	AffiliateID    string `json:"affiliate_id" validate:"required,uuid"`
	ReferredUserID string `json:"referred_user_id" validate:"omitempty,uuid"`
	Type           string `json:"type" validate:"required,commission_type"`
	ActionValue    string `json:"action_value" validate:"required,amount"`
}

// Record handles a referral event from the identity or request service.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	affiliateID, _ := uuid.Parse(req.AffiliateID)
	var referredUserID *uuid.UUID
	if req.ReferredUserID != "" {
		id, _ := uuid.Parse(req.ReferredUserID)
		referredUserID = &id
	}

	actionValue, err := money.Parse(req.ActionValue)
	if err != nil {
		response.BadRequest(w, "invalid action value")
		return
	}

	c, err := h.svc.Record(r.Context(), affiliateID, referredUserID, Type(req.Type), actionValue)
	if err != nil {
		if errors.Is(err, ErrInvalidValue) {
			response.BadRequest(w, "action value must be greater than zero")
			return
		}
		response.InternalError(w)
		return
	}

	response.Created(w, c)
}

// List returns the authenticated affiliate's commissions, optionally filtered
// by status.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	status := Status(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	commissions, err := h.svc.List(r.Context(), userID, status, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"commissions": commissions})
}

// Tier reports the affiliate's current tier.
func (h *Handler) Tier(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	tier, err := h.svc.TierFor(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, tier)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(r *http.Request, id, actorID uuid.UUID) (*Commission, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid commission ID")
		return
	}

	c, err := fn(r, id, middleware.GetUserID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "commission not found")
		case errors.Is(err, ErrAlreadyProcessed):
			response.Conflict(w, "ALREADY_PROCESSED", "commission already processed")
		case errors.Is(err, ErrNotConfirmed):
			response.Conflict(w, "NOT_CONFIRMED", "commission must be confirmed before payout")
		case errors.Is(err, gateway.ErrGateway):
			response.BadGateway(w, "payout dispatch failed, commission is paid")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, c)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(r *http.Request, id, actorID uuid.UUID) (*Commission, error) {
		return h.svc.Confirm(r.Context(), id, actorID)
	})
}

func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(r *http.Request, id, actorID uuid.UUID) (*Commission, error) {
		return h.svc.Pay(r.Context(), id, actorID)
	})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(r *http.Request, id, actorID uuid.UUID) (*Commission, error) {
		return h.svc.Cancel(r.Context(), id, actorID)
	})
}

// GetTiers returns the tier table.
func (h *Handler) GetTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.svc.Tiers(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{"tiers": tiers})
}

type tierRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Threshold   string `json:"threshold" validate:"required"`
	RatePercent string `json:"rate_percent" validate:"required"`
}

type replaceTiersRequest struct {
	Tiers []tierRequest `json:"tiers" validate:"required,min=1,dive"`
}

// ReplaceTiers swaps the whole tier table. Admin only.
func (h *Handler) ReplaceTiers(w http.ResponseWriter, r *http.Request) {
	var req replaceTiersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	tiers := make([]Tier, 0, len(req.Tiers))
	for _, t := range req.Tiers {
		threshold, err := money.Parse(t.Threshold)
		if err != nil {
			response.BadRequest(w, "invalid tier threshold")
			return
		}
		rate, err := money.Parse(t.RatePercent)
		if err != nil {
			response.BadRequest(w, "invalid tier rate")
			return
		}
		tiers = append(tiers, Tier{Name: t.Name, Threshold: threshold, RatePercent: rate})
	}

	if err := h.svc.ReplaceTiers(r.Context(), tiers, middleware.GetUserID(r.Context())); err != nil {
		if errors.Is(err, ErrInvalidTiers) {
			response.BadRequest(w, "tier list is invalid")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]string{"status": "replaced"})
}

// Routes for the authenticated affiliate surface.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/commissions", h.List)
	r.Get("/tier", h.Tier)
	return r
}

// AdminRoutes for commission moderation and tier config. Callers mount these
// behind the admin role check.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/commissions/{id}/confirm", h.Confirm)
	r.Post("/commissions/{id}/pay", h.Pay)
	r.Post("/commissions/{id}/cancel", h.Cancel)
	r.Get("/tiers", h.GetTiers)
	r.Put("/tiers", h.ReplaceTiers)
	return r
}

// InternalRoutes for service-to-service referral events.
func (h *Handler) InternalRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Record)
	return r
}
