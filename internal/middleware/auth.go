// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

const (
	LearnerIDKey contextKey = "learner_id"
	ClaimsKey    contextKey = "jwt_claims"
)

const AdminKeyHeader = "X-Admin-Key"

type TokenVerifier interface {
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*AccessTokenClaims, error)
}

type AccessTokenClaims struct {
	LearnerID string
	TokenID   string
	ExpiresAt time.Time
}

func Authenticator(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)

			if token == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("missing authorization token"),
				)
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				handleAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth attaches claims when a valid token is presented and
// otherwise lets the request through anonymously.
func OptionalAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := ExtractToken(r); token != "" {
				claims, err := verifier.VerifyAccessToken(r.Context(), token)
				if err == nil {
					r = r.WithContext(withClaims(r.Context(), claims))
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminKey guards operator endpoints with a static shared key.
// An empty configured key disables the endpoints entirely.
func RequireAdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !core.SecretEqual(key, r.Header.Get(AdminKeyHeader)) {
				core.JSONError(
					w,
					core.ForbiddenError("admin key required"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func withClaims(ctx context.Context, claims *AccessTokenClaims) context.Context {
	ctx = context.WithValue(ctx, LearnerIDKey, claims.LearnerID)
	return context.WithValue(ctx, ClaimsKey, claims)
}

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func handleAuthError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	case errors.Is(err, core.ErrTokenRevoked):
		core.JSONError(w, core.TokenRevokedError())
	default:
		core.JSONError(w, core.TokenInvalidError())
	}
}

func GetLearnerID(ctx context.Context) string {
	if id, ok := ctx.Value(LearnerIDKey).(string); ok {
		return id
	}
	return ""
}

func GetClaims(ctx context.Context) *AccessTokenClaims {
	if claims, ok := ctx.Value(ClaimsKey).(*AccessTokenClaims); ok {
		return claims
	}
	return nil
}

func IsAuthenticated(ctx context.Context) bool {
	return GetLearnerID(ctx) != ""
}
