// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/tutor-backend/internal/config"
)

// Redis backs the ledger's short-lived state: rate limit counters and the
// access token blacklist. Ledger keys are namespaced by the configured
// prefix so several deployments can share one instance.
type Redis struct {
	Client *redis.Client
	prefix string
}

// NewRedis connects with the pool sized from config and retries the first
// ping, since Redis often comes up after the API in compose and k8s.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = cfg.PoolTimeout
	opts.ConnMaxIdleTime = 5 * time.Minute

	r := NewRedisClient(redis.NewClient(opts), cfg.KeyPrefix)

	attempts := max(cfg.ConnectAttempts, 1)
	backoff := 250 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err = r.Ping(ctx)
		if err == nil {
			return r, nil
		}
		if attempt == attempts {
			break
		}

		slog.Warn("redis not ready, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		select {
		case <-ctx.Done():
			_ = r.Close()
			return nil, fmt.Errorf("connect redis: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	_ = r.Close()
	return nil, fmt.Errorf("connect redis after %d attempts: %w", attempts, err)
}

// NewRedisClient wraps an existing client without pinging it.
func NewRedisClient(client *redis.Client, prefix string) *Redis {
	return &Redis{Client: client, prefix: prefix}
}

// Key joins parts under the ledger prefix.
func (r *Redis) Key(parts ...string) string {
	return r.prefix + strings.Join(parts, ":")
}

// BlacklistToken marks an access token id as revoked until ttl elapses.
// Tokens that already expired need no entry.
func (r *Redis) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.Client.Set(ctx, r.Key("blacklist", jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (r *Redis) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := r.Client.Exists(ctx, r.Key("blacklist", jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check token blacklist: %w", err)
	}
	return n > 0, nil
}

func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.Client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	return nil
}

func (r *Redis) PoolStats() *redis.PoolStats {
	return r.Client.PoolStats()
}
