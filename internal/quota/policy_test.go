// AngelaMos | 2026
// policy_test.go

package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type account struct {
	premiumUntil *time.Time
	premium      bool
}

func (a account) IsPremiumActive(now time.Time) bool {
	if !a.premium {
		return false
	}
	return a.premiumUntil == nil || now.Before(*a.premiumUntil)
}

func TestPolicy_Allow(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	p := NewPolicy(Limits{QuestionsPerDay: 10, UploadsPerDay: 1})

	tests := []struct {
		name  string
		acct  Account
		kind  Kind
		count int
		want  bool
	}{
		{"free question under limit", account{}, KindQuestion, 9, true},
		{"free question at limit", account{}, KindQuestion, 10, false},
		{"free first upload", account{}, KindPDFUpload, 0, true},
		{"free second upload", account{}, KindPDFUpload, 1, false},
		{"unknown kind denied", account{}, Kind("video"), 0, false},
		{"premium unbounded", account{premium: true}, KindQuestion, 500, true},
		{"premium unknown kind", account{premium: true}, Kind("video"), 0, true},
		{"premium not yet expired", account{premium: true, premiumUntil: &future}, KindPDFUpload, 3, true},
		{"expired premium falls back", account{premium: true, premiumUntil: &past}, KindQuestion, 10, false},
		{"expiry without flag ignored", account{premiumUntil: &future}, KindQuestion, 10, false},
		{"nil account is free tier", nil, KindQuestion, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Allow(tt.acct, tt.kind, tt.count, now))
		})
	}
}

func TestPolicy_ExpiryBoundary(t *testing.T) {
	exp := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewPolicy(Limits{QuestionsPerDay: 0})
	acct := account{premium: true, premiumUntil: &exp}

	assert.True(t, p.Allow(acct, KindQuestion, 0, exp.Add(-time.Nanosecond)))
	assert.False(t, p.Allow(acct, KindQuestion, 0, exp))
}

func TestPolicy_Remaining(t *testing.T) {
	now := time.Now()
	p := NewPolicy(Limits{QuestionsPerDay: 10, UploadsPerDay: 1})

	assert.Equal(t, 7, p.Remaining(account{}, KindQuestion, 3, now))
	assert.Equal(t, 0, p.Remaining(account{}, KindPDFUpload, 4, now))
	assert.Equal(t, -1, p.Remaining(account{premium: true}, KindQuestion, 3, now))
}
