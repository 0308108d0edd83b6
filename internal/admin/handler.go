// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
	"github.com/carterperez-dev/templates/tutor-backend/internal/learner"
)

type LearnerAdmin interface {
	Get(ctx context.Context, id string) (*learner.Learner, error)
	Stats(ctx context.Context) (learner.Stats, error)
	SetPremium(ctx context.Context, id string, expiresAt *time.Time) error
	ClearPremium(ctx context.Context, id string) error
}

type PaymentAdmin interface {
	CountPending(ctx context.Context) (int, error)
	PurgeStale(ctx context.Context) (int64, error)
}

type SessionAdmin interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type Handler struct {
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	redisPing  func(ctx context.Context) error
	dbPing     func(ctx context.Context) error
	learners   LearnerAdmin
	payments   PaymentAdmin
	sessions   SessionAdmin
	clock      core.Clock
	validator  *validator.Validate
}

type HandlerConfig struct {
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
	DBPing     func(ctx context.Context) error
	Learners   LearnerAdmin
	Payments   PaymentAdmin
	Sessions   SessionAdmin
	Clock      core.Clock
}

func NewHandler(cfg HandlerConfig) *Handler {
	clock := cfg.Clock
	if clock == nil {
		clock = core.SystemClock{}
	}

	return &Handler{
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		redisPing:  cfg.RedisPing,
		dbPing:     cfg.DBPing,
		learners:   cfg.Learners,
		payments:   cfg.Payments,
		sessions:   cfg.Sessions,
		clock:      clock,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	adminKey func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(adminKey)

		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/db", h.GetDatabaseStats)
		r.Get("/stats/redis", h.GetRedisStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)

		r.Put("/learners/{learnerID}/premium", h.GrantPremium)
		r.Delete("/learners/{learnerID}/premium", h.RevokePremium)

		r.Post("/payments/purge", h.PurgePayments)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbHealthy := true
	if h.dbPing != nil {
		if err := h.dbPing(ctx); err != nil {
			dbHealthy = false
		}
	}

	redisHealthy := true
	if h.redisPing != nil {
		if err := h.redisPing(ctx); err != nil {
			redisHealthy = false
		}
	}

	ledger, err := h.ledgerStats(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, SystemStatsResponse{
		Ledger: ledger,
		Database: DatabaseStatus{
			Healthy: dbHealthy,
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: redisHealthy,
			Stats:   h.getRedisStats(),
		},
		Runtime: readRuntimeStats(),
	})
}

func (h *Handler) ledgerStats(ctx context.Context) (*LedgerStats, error) {
	if h.learners == nil {
		return nil, nil
	}

	stats, err := h.learners.Stats(ctx)
	if err != nil {
		return nil, err
	}

	out := &LedgerStats{
		Learners:      stats.Total,
		PremiumActive: stats.PremiumActive,
		ActiveToday:   stats.ActiveToday,
	}

	if h.payments != nil {
		pending, err := h.payments.CountPending(ctx)
		if err != nil {
			return nil, err
		}
		out.PendingPayments = pending
	}

	return out, nil
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.getDBStats())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.getRedisStats())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, readRuntimeStats())
}

// GrantPremium overrides a learner's premium state. Without a body the grant
// has no end date.
func (h *Handler) GrantPremium(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "learnerID")

	var req GrantPremiumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	now := h.clock.Now()
	expiresAt, err := req.expiry(now)
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	l, err := h.learners.Get(r.Context(), id)
	if err != nil {
		writeLearnerError(w, err)
		return
	}

	if err := h.learners.SetPremium(r.Context(), l.ID, expiresAt); err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, PremiumOverrideResponse{
		LearnerID: l.ID,
		Premium:   true,
		ExpiresAt: expiresAt,
	})
}

func (h *Handler) RevokePremium(w http.ResponseWriter, r *http.Request) {
	l, err := h.learners.Get(r.Context(), chi.URLParam(r, "learnerID"))
	if err != nil {
		writeLearnerError(w, err)
		return
	}

	if err := h.learners.ClearPremium(r.Context(), l.ID); err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

// PurgePayments removes pending payments past their TTL together with expired
// refresh tokens.
func (h *Handler) PurgePayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payments, err := h.payments.PurgeStale(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	var tokens int64
	if h.sessions != nil {
		tokens, err = h.sessions.PurgeExpired(ctx, h.clock.Now())
		if err != nil {
			core.InternalServerError(w, err)
			return
		}
	}

	core.OK(w, PurgeResponse{
		PendingPayments: payments,
		RefreshTokens:   tokens,
	})
}

func writeLearnerError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "learner")
		return
	}
	core.InternalServerError(w, err)
}

func readRuntimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
	}
}
