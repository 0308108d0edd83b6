// AngelaMos | 2026
// handler.go

package badge

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/badges", h.List)
}

func (h *Handler) List(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, Catalog())
}
