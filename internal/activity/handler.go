// AngelaMos | 2026
// handler.go

package activity

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
	"github.com/carterperez-dev/templates/tutor-backend/internal/middleware"
)

const multipartOverhead = 1 << 20

var pdfMagic = []byte("%PDF-")

type Handler struct {
	service        *Service
	maxUploadBytes int64
	validator      *validator.Validate
}

func NewHandler(service *Service, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		validator:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/quizzes", h.RecordQuiz)
		r.Post("/uploads", h.Upload)
		r.Put("/progress", h.TrackProgress)
		r.Get("/progress", h.ListProgress)
	})
}

func (h *Handler) RecordQuiz(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())

	var req RecordQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	out, err := h.service.RecordQuiz(r.Context(), learnerID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, out)
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			core.JSONError(w, core.NewAppError(
				err,
				"file too large",
				http.StatusRequestEntityTooLarge,
				"FILE_TOO_LARGE",
			))
			return
		}
		core.BadRequest(w, "invalid multipart form")
		return
	}
	defer func() {
		//nolint:errcheck // best-effort temp file cleanup
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		core.BadRequest(w, "file field is required")
		return
	}
	defer file.Close() //nolint:errcheck // read-only multipart file

	if header.Size > h.maxUploadBytes {
		core.JSONError(w, core.NewAppError(
			nil,
			"file too large",
			http.StatusRequestEntityTooLarge,
			"FILE_TOO_LARGE",
		))
		return
	}

	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(file, head); err != nil ||
		!bytes.Equal(head, pdfMagic) ||
		!strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		core.BadRequest(w, "only PDF files are accepted")
		return
	}

	out, err := h.service.RecordUpload(
		r.Context(),
		learnerID,
		header.Filename,
		header.Size,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, UploadResponse{
		Filename:  sanitizeFilename(header.Filename),
		SizeBytes: header.Size,
		Outcome:   out,
	})
}

func (h *Handler) TrackProgress(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())

	var req TrackProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	p, err := h.service.TrackProgress(r.Context(), learnerID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, p)
}

func (h *Handler) ListProgress(w http.ResponseWriter, r *http.Request) {
	learnerID := middleware.GetLearnerID(r.Context())

	topics, err := h.service.ListProgress(
		r.Context(),
		learnerID,
		r.URL.Query().Get("subject"),
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ProgressListResponse{Topics: topics})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case core.IsAppError(err):
		core.JSONError(w, err)
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "learner")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	default:
		core.InternalServerError(w, err)
	}
}
