// AngelaMos | 2026
// dto.go

package admin

import (
	"errors"
	"time"
)

type GrantPremiumRequest struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Days      *int       `json:"days,omitempty"       validate:"omitempty,min=1,max=3650"`
}

func (r GrantPremiumRequest) expiry(now time.Time) (*time.Time, error) {
	switch {
	case r.ExpiresAt != nil && r.Days != nil:
		return nil, errors.New("set either expires_at or days, not both")
	case r.ExpiresAt != nil:
		if !r.ExpiresAt.After(now) {
			return nil, errors.New("expires_at must be in the future")
		}
		return r.ExpiresAt, nil
	case r.Days != nil:
		t := now.Add(time.Duration(*r.Days) * 24 * time.Hour)
		return &t, nil
	default:
		return nil, nil
	}
}

type PremiumOverrideResponse struct {
	LearnerID string     `json:"learner_id"`
	Premium   bool       `json:"premium"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type PurgeResponse struct {
	PendingPayments int64 `json:"pending_payments"`
	RefreshTokens   int64 `json:"refresh_tokens"`
}

type SystemStatsResponse struct {
	Ledger   *LedgerStats   `json:"ledger,omitempty"`
	Database DatabaseStatus `json:"database"`
	Redis    RedisStatus    `json:"redis"`
	Runtime  RuntimeStats   `json:"runtime"`
}

type LedgerStats struct {
	Learners        int `json:"learners"`
	PremiumActive   int `json:"premium_active"`
	ActiveToday     int `json:"active_today"`
	PendingPayments int `json:"pending_payments"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
