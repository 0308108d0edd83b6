// AngelaMos | 2026
// handler.go

package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/tutor-backend/internal/config"
	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
	"github.com/carterperez-dev/templates/tutor-backend/internal/middleware"
)

type Handler struct {
	service      *Service
	validator    *validator.Validate
	stripeSecret string
	mpesaToken   string
}

func NewHandler(service *Service, cfg config.PaymentsConfig) *Handler {
	return &Handler{
		service:      service,
		validator:    validator.New(validator.WithRequiredStructEnabled()),
		stripeSecret: cfg.StripeWebhookSecret,
		mpesaToken:   cfg.MpesaCallbackToken,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/payments", func(r chi.Router) {
		r.Post("/webhooks/stripe", h.StripeWebhook)
		r.Post("/webhooks/mpesa", h.MpesaWebhook)

		r.With(authenticator).Post("/", h.Initiate)
		r.With(authenticator).Delete("/{id}", h.Cancel)
	})
}

func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())

	var req InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Initiate(r.Context(), learnerID, req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrDuplicateKey):
			core.JSONError(w, core.DuplicateError("transaction_id"))
		case errors.Is(err, core.ErrInvalidInput):
			core.BadRequest(w, err.Error())
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "learner")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.Created(w, resp)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())

	err := h.service.Cancel(r.Context(), learnerID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "pending payment")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}
