// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

// RateLimitConfig controls one limiter. Counters live in Redis; when Redis
// cannot answer, an in-process token bucket per key takes over so a Redis
// outage degrades to per-instance limits rather than none.
type RateLimitConfig struct {
	Limit    redis_rate.Limit
	KeyFunc  func(*http.Request) string
	FailOpen bool
}

type RateLimiter struct {
	limiter  *redis_rate.Limiter
	fallback *bucketStore
	config   RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}

	return &RateLimiter{
		limiter:  redis_rate.NewLimiter(rdb),
		fallback: newBucketStore(bucketIdle),
		config:   cfg,
	}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.config.KeyFunc(r)

		res, err := rl.allow(r.Context(), key)
		if err != nil {
			if !rl.config.FailOpen {
				core.JSONError(w, core.NewAppError(
					err,
					"Rate limiter unavailable",
					http.StatusServiceUnavailable,
					"SERVICE_UNAVAILABLE",
				))
				return
			}
			slog.Warn("rate limiter unavailable, failing open",
				"error", err,
				"key", key,
			)
			next.ServeHTTP(w, r)
			return
		}

		writeLimitHeaders(w.Header(), res, rl.config.Limit)

		if res.Allowed == 0 {
			writeLimited(w, res)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(
	ctx context.Context,
	key string,
) (*redis_rate.Result, error) {
	res, err := rl.limiter.Allow(ctx, key, rl.config.Limit)
	if err == nil {
		return res, nil
	}

	slog.Debug("redis limiter failed, using local bucket", "key", key, "error", err)
	return rl.fallback.take(key, rl.config.Limit, time.Now())
}

// ClientIP prefers the last X-Forwarded-For hop, which is the one appended
// by the proxy in front of us.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return strings.TrimSpace(hops[len(hops)-1])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + ClientIP(r)
}

// KeyByLearner keys authenticated requests by learner id so guests behind
// one NAT do not share a bucket.
func KeyByLearner(r *http.Request) string {
	if learnerID := GetLearnerID(r.Context()); learnerID != "" {
		return "ratelimit:learner:" + learnerID
	}
	return KeyByIP(r)
}

func KeyByLearnerAndEndpoint(r *http.Request) string {
	return KeyByLearner(r) + ":endpoint:" + routePattern(r.URL.Path)
}

// routePattern collapses id-like path segments so every learner shares one
// endpoint name.
func routePattern(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if isIDSegment(seg) {
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

func isIDSegment(s string) bool {
	if s == "" {
		return false
	}
	if len(s) == 36 && uuid.Validate(s) == nil {
		return true
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func writeLimitHeaders(
	h http.Header,
	res *redis_rate.Result,
	limit redis_rate.Limit,
) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset",
		strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))
	h.Set("RateLimit-Policy",
		fmt.Sprintf("%d;w=%d", limit.Rate, int(limit.Period.Seconds())))
	h.Set("RateLimit",
		fmt.Sprintf("%d;t=%d", res.Remaining, int(res.ResetAfter.Seconds())))
}

func writeLimited(w http.ResponseWriter, res *redis_rate.Result) {
	retryAfter := max(int(res.RetryAfter.Seconds()), 1)

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	core.JSONError(w, core.NewAppError(
		nil,
		fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retryAfter),
		http.StatusTooManyRequests,
		"RATE_LIMITED",
	))
}

const bucketIdle = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// bucketStore is the local fallback: one token bucket per key, swept once a
// key has been idle for longer than idle.
type bucketStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	idle    time.Duration
}

func newBucketStore(idle time.Duration) *bucketStore {
	s := &bucketStore{buckets: make(map[string]*bucket), idle: idle}
	go s.sweepEvery(idle / 2)
	return s
}

func (s *bucketStore) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for now := range ticker.C {
		s.sweep(now)
	}
}

func (s *bucketStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, b := range s.buckets {
		if now.Sub(b.lastSeen) > s.idle {
			delete(s.buckets, key)
		}
	}
}

func (s *bucketStore) take(
	key string,
	limit redis_rate.Limit,
	now time.Time,
) (*redis_rate.Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return nil, fmt.Errorf("local limiter: invalid limit %d per %s", limit.Rate, limit.Period)
	}
	perSecond := float64(limit.Rate) / limit.Period.Seconds()
	interval := time.Duration(float64(time.Second) / perSecond)

	s.mu.Lock()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(perSecond), limit.Burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)
	remaining := max(int(b.limiter.TokensAt(now)), 0)
	s.mu.Unlock()

	res := &redis_rate.Result{
		Limit:      limit,
		Remaining:  remaining,
		RetryAfter: -1,
		ResetAfter: interval,
	}
	if allowed {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}
	return res, nil
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   rate,
		Burst:  burst,
		Period: time.Minute,
	}
}
