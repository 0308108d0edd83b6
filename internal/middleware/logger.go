// AngelaMos | 2026
// logger.go

package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						"request_id", GetRequestID(r.Context()),
						"panic", rec,
						"stack", string(debug.Stack()),
					)
					if ww.Status() == 0 {
						core.JSON(ww, http.StatusInternalServerError, core.Response{
							Success: false,
							Error: &core.ErrorBody{
								Code:    "INTERNAL_ERROR",
								Message: "an unexpected error occurred",
							},
						})
					}
				}

				attrs := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", GetRequestID(r.Context()),
				}
				if traceID := core.TraceIDFromContext(r.Context()); traceID != "" {
					attrs = append(attrs, "trace_id", traceID)
				}

				switch {
				case ww.Status() >= http.StatusInternalServerError:
					logger.Error("request", attrs...)
				case ww.Status() >= http.StatusBadRequest:
					logger.Warn("request", attrs...)
				default:
					logger.Info("request", attrs...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
