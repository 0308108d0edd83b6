// AngelaMos | 2026
// dto.go

package learner

import (
	"time"

	"github.com/carterperez-dev/templates/tutor-backend/internal/badge"
	"github.com/carterperez-dev/templates/tutor-backend/internal/quota"
)

type UpdateProfileRequest struct {
	Language *string  `json:"language,omitempty" validate:"omitempty,min=2,max=10,alpha"`
	Goals    []string `json:"goals,omitempty"    validate:"omitempty,max=20,dive,min=1,max=200"`
}

type PremiumStatus struct {
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Usage is today's metered activity for one learner.
type Usage struct {
	Questions int `json:"questions"`
	Uploads   int `json:"uploads"`
}

type UsageResponse struct {
	Today Usage `json:"today"`
	// -1 means unlimited.
	QuestionsRemaining int `json:"questions_remaining"`
	UploadsRemaining   int `json:"uploads_remaining"`
}

type ProfileResponse struct {
	ID             string             `json:"id"`
	Email          *string            `json:"email,omitempty"`
	Language       string             `json:"language"`
	Goals          []string           `json:"goals"`
	QueryCount     int                `json:"query_count"`
	Streak         int                `json:"streak"`
	LastStreakDate *string            `json:"last_streak_date,omitempty"`
	Badges         []badge.Definition `json:"badges"`
	Premium        PremiumStatus      `json:"premium"`
	Usage          *UsageResponse     `json:"usage,omitempty"`
	LastActiveAt   time.Time          `json:"last_active_at"`
	CreatedAt      time.Time          `json:"created_at"`
}

func ToProfileResponse(l *Learner, now time.Time) ProfileResponse {
	resp := ProfileResponse{
		ID:           l.ID,
		Email:        l.Email,
		Language:     l.Language,
		Goals:        l.Goals,
		QueryCount:   l.QueryCount,
		Streak:       l.Streak,
		Badges:       make([]badge.Definition, 0, len(l.Badges)),
		LastActiveAt: l.LastActiveAt,
		CreatedAt:    l.CreatedAt,
		Premium: PremiumStatus{
			Active: l.IsPremiumActive(now),
		},
	}

	if resp.Goals == nil {
		resp.Goals = []string{}
	}

	if l.Premium {
		resp.Premium.ExpiresAt = l.PremiumExpiresAt
	}

	if l.LastStreakDate != nil {
		d := l.LastStreakDate.Format(time.DateOnly)
		resp.LastStreakDate = &d
	}

	for _, id := range l.Badges {
		def, ok := badge.Lookup(badge.ID(id))
		if !ok {
			def = badge.Definition{ID: badge.ID(id), Name: id}
		}
		resp.Badges = append(resp.Badges, def)
	}

	return resp
}

func toUsageResponse(
	l *Learner,
	usage Usage,
	policy *quota.Policy,
	now time.Time,
) *UsageResponse {
	return &UsageResponse{
		Today:              usage,
		QuestionsRemaining: policy.Remaining(l, quota.KindQuestion, usage.Questions, now),
		UploadsRemaining:   policy.Remaining(l, quota.KindPDFUpload, usage.Uploads, now),
	}
}
