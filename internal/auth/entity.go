// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

type RefreshToken struct {
	ID           string     `db:"id"`
	LearnerID    string     `db:"learner_id"`
	TokenHash    string     `db:"token_hash"`
	FamilyID     string     `db:"family_id"`
	ExpiresAt    time.Time  `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
	IsUsed       bool       `db:"is_used"`
	UsedAt       *time.Time `db:"used_at"`
	RevokedAt    *time.Time `db:"revoked_at"`
	ReplacedByID *string    `db:"replaced_by_id"`
	UserAgent    string     `db:"user_agent"`
	IPAddress    string     `db:"ip_address"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsValid reports whether the token can still be exchanged at now. Used
// tokens are never valid; presenting one is treated as reuse.
func (t *RefreshToken) IsValid(now time.Time) bool {
	return !t.IsExpired(now) && !t.IsRevoked() && !t.IsUsed
}
