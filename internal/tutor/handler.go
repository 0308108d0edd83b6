// AngelaMos | 2026
// handler.go

package tutor

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
	"github.com/carterperez-dev/templates/tutor-backend/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the tutor endpoints. askLimit throttles the
// provider-backed ask route on top of the daily quota.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, askLimit func(http.Handler) http.Handler,
) {
	r.Route("/tutor", func(r chi.Router) {
		r.Get("/subjects", h.Catalog)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.With(askLimit).Post("/ask", h.Ask)
			r.Get("/history", h.History)
		})
	})
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Ask(r.Context(), learnerID, req)
	if err != nil {
		switch {
		case core.IsAppError(err):
			core.JSONError(w, err)
		case errors.Is(err, core.ErrProviderUnavailable):
			core.JSONError(w, core.ProviderUnavailableError(
				"the tutor is unavailable right now, please try again",
			))
		case errors.Is(err, core.ErrInvalidInput):
			core.BadRequest(w, err.Error())
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "learner")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, resp)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())

	page := max(parseIntQuery(r, "page", 1), 1)
	pageSize := min(max(parseIntQuery(r, "page_size", 20), 1), 100)

	chats, total, err := h.service.History(r.Context(), learnerID, page, pageSize)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, chats, page, pageSize, total)
}

func (h *Handler) Catalog(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, CatalogResponse{
		Subjects:  Subjects(),
		ExamTypes: ExamTypes(),
	})
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
