// AngelaMos | 2026
// handler.go

package learner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
	"github.com/carterperez-dev/templates/tutor-backend/internal/middleware"
	"github.com/carterperez-dev/templates/tutor-backend/internal/quota"
)

// UsageSource reports today's metered counts for a learner.
type UsageSource interface {
	TodayUsage(ctx context.Context, learnerID string) (Usage, error)
}

type Handler struct {
	service   *Service
	usage     UsageSource
	policy    *quota.Policy
	clock     core.Clock
	validator *validator.Validate
}

func NewHandler(
	service *Service,
	usage UsageSource,
	policy *quota.Policy,
	clock core.Clock,
) *Handler {
	return &Handler{
		service:   service,
		usage:     usage,
		policy:    policy,
		clock:     clock,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/learners", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMe)
		r.Put("/me", h.UpdateMe)
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())

	l, err := h.service.Get(r.Context(), learnerID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "learner")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	now := h.clock.Now()
	resp := ToProfileResponse(l, now)

	usage, err := h.usage.TodayUsage(r.Context(), l.ID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	resp.Usage = toUsageResponse(l, usage, h.policy, now)

	core.OK(w, resp)
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	l, err := h.service.UpdateProfile(r.Context(), learnerID, req)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "learner")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToProfileResponse(l, h.clock.Now()))
}
