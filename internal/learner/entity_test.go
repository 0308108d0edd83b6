// AngelaMos | 2026
// entity_test.go

package learner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPremiumActive(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		premium bool
		expires *time.Time
		want    bool
	}{
		{name: "free", premium: false, expires: nil, want: false},
		{name: "no end date", premium: true, expires: nil, want: true},
		{name: "not yet expired", premium: true, expires: &future, want: true},
		{name: "expired", premium: true, expires: &past, want: false},
		{name: "expires exactly now", premium: true, expires: &now, want: false},
		{name: "expiry ignored without flag", premium: false, expires: &future, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &Learner{Premium: tt.premium, PremiumExpiresAt: tt.expires}
			assert.Equal(t, tt.want, l.IsPremiumActive(now))
		})
	}
}

func TestGoalsScan(t *testing.T) {
	var g Goals
	require.NoError(t, g.Scan([]byte(`["algebra","essays"]`)))
	assert.Equal(t, Goals{"algebra", "essays"}, g)

	require.NoError(t, g.Scan(nil))
	assert.Equal(t, Goals{}, g)

	assert.Error(t, g.Scan(42))
	assert.Error(t, g.Scan("not json"))

	v, err := Goals(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
}

func TestGoalsNormalize(t *testing.T) {
	got := Goals{"kcse", "", "essays", "kcse"}.Normalize()
	assert.Equal(t, Goals{"kcse", "essays"}, got)
}

func TestCanonicalID(t *testing.T) {
	id, ok := canonicalID("9D8F7A6B-5C4D-4E3F-8A2B-1C0D9E8F7A6B")
	require.True(t, ok)
	assert.Equal(t, testID, id)

	_, ok = canonicalID("learner-42")
	assert.False(t, ok)
}
