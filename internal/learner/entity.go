// AngelaMos | 2026
// entity.go

package learner

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type Learner struct {
	ID               string     `db:"id"`
	Email            *string    `db:"email"`
	PasswordHash     *string    `db:"password_hash"`
	Language         string     `db:"language"`
	Goals            Goals      `db:"goals"`
	QueryCount       int        `db:"query_count"`
	Streak           int        `db:"streak"`
	LastStreakDate   *time.Time `db:"last_streak_date"`
	Premium          bool       `db:"premium"`
	PremiumExpiresAt *time.Time `db:"premium_expires_at"`
	LastActiveAt     time.Time  `db:"last_active_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`

	Badges []string `db:"-"`
}

// IsPremiumActive reports whether premium applies at now. The expiry is only
// consulted when the flag is set, and a nil expiry means no end date.
func (l *Learner) IsPremiumActive(now time.Time) bool {
	if !l.Premium {
		return false
	}
	if l.PremiumExpiresAt == nil {
		return true
	}
	return now.Before(*l.PremiumExpiresAt)
}

func (l *Learner) IsClaimed() bool {
	return l.Email != nil && *l.Email != ""
}

const DefaultLanguage = "en"

// Goals is the learner's set of learning goals, stored as a JSONB array.
type Goals []string

func (g Goals) Value() (driver.Value, error) {
	if g == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(g))
}

func (g *Goals) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*g = Goals{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan goals: unsupported type %T", src)
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan goals: %w", err)
	}
	*g = Goals(out)
	return nil
}

// Normalize trims duplicates and blanks while keeping first-seen order.
func (g Goals) Normalize() Goals {
	seen := make(map[string]struct{}, len(g))
	out := make(Goals, 0, len(g))
	for _, goal := range g {
		if goal == "" {
			continue
		}
		if _, ok := seen[goal]; ok {
			continue
		}
		seen[goal] = struct{}{}
		out = append(out, goal)
	}
	return out
}

type Stats struct {
	Total         int `db:"total"`
	PremiumActive int `db:"premium_active"`
	ActiveToday   int `db:"active_today"`
}
