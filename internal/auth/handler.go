// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

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

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/session", h.StartSession)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Post("/claim", h.Claim)
			r.Post("/logout", h.Logout)
			r.Post("/logout-all", h.LogoutAll)
			r.Get("/sessions", h.GetSessions)
			r.Delete("/sessions/{sessionID}", h.RevokeSession)
		})
	})
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil &&
		!errors.Is(err, io.EOF) {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.StartSession(
		r.Context(),
		req,
		r.UserAgent(),
		middleware.ClientIP(r),
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrClaimedLearner):
			core.JSONError(
				w,
				core.UnauthorizedError("this learner has an account, please log in"),
			)
		case errors.Is(err, ErrSessionActive):
			core.JSONError(w, core.NewAppError(
				err,
				"learner already has an active session, refresh it instead",
				http.StatusConflict,
				"SESSION_ACTIVE",
			))
		case errors.Is(err, core.ErrInvalidInput):
			core.BadRequest(w, "invalid learner id")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())
	if learnerID == "" {
		core.Unauthorized(w, "")
		return
	}

	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Claim(
		r.Context(),
		learnerID,
		req,
		r.UserAgent(),
		middleware.ClientIP(r),
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailExists):
			core.JSONError(w, core.DuplicateError("email"))
		case errors.Is(err, ErrAlreadyClaimed):
			core.JSONError(w, core.NewAppError(
				err,
				"learner already has an account",
				http.StatusConflict,
				"ALREADY_CLAIMED",
			))
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "learner")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.Created(w, resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Login(
		r.Context(),
		req,
		r.UserAgent(),
		middleware.ClientIP(r),
	)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			core.JSONError(
				w,
				core.UnauthorizedError("invalid email or password"),
			)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Refresh(
		r.Context(),
		req.RefreshToken,
		r.UserAgent(),
		middleware.ClientIP(r),
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenReuse):
			core.JSONError(w, core.NewAppError(
				core.ErrTokenRevoked,
				"security alert: token reuse detected, all sessions revoked",
				http.StatusUnauthorized,
				"TOKEN_REUSE_DETECTED",
			))
		case errors.Is(err, core.ErrTokenExpired):
			core.JSONError(w, core.TokenExpiredError())
		case errors.Is(err, core.ErrTokenRevoked):
			core.JSONError(w, core.TokenRevokedError())
		case errors.Is(err, core.ErrTokenInvalid):
			core.JSONError(w, core.TokenInvalidError())
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		core.Unauthorized(w, "")
		return
	}

	var req LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil &&
		!errors.Is(err, io.EOF) {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken, claims); err != nil {
		if errors.Is(err, core.ErrForbidden) {
			core.Forbidden(w, "cannot revoke another learner's token")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())
	if learnerID == "" {
		core.Unauthorized(w, "")
		return
	}

	if err := h.service.LogoutAll(r.Context(), learnerID); err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) GetSessions(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())
	if learnerID == "" {
		core.Unauthorized(w, "")
		return
	}

	sessions, err := h.service.GetActiveSessions(r.Context(), learnerID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, SessionsResponse{Sessions: sessions})
}

func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())
	if learnerID == "" {
		core.Unauthorized(w, "")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		core.BadRequest(w, "session ID required")
		return
	}

	if err := h.service.RevokeSession(r.Context(), learnerID, sessionID); err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "session")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.NoContent(w)
}
