// AngelaMos | 2026
// awarder_test.go

package badge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

func ratio(v float64) *float64 { return &v }

func TestEvaluate(t *testing.T) {
	th := Thresholds{PDFExplorerUploads: 5, PolyglotLanguages: 2}

	tests := []struct {
		name  string
		facts Facts
		want  []ID
	}{
		{"nothing", Facts{Streak: 1}, nil},
		{"first query", Facts{Streak: 1, FirstQuery: true}, []ID{FirstQuestion}},
		{"streak exactly three", Facts{Streak: 3}, []ID{Streak3}},
		{"streak four is not three", Facts{Streak: 4}, nil},
		{"streak seven", Facts{Streak: 7}, []ID{Streak7}},
		{"streak thirty", Facts{Streak: 30}, []ID{Streak30}},
		{"quiz at ninety percent", Facts{QuizRatio: ratio(0.9)}, []ID{QuizAce}},
		{"quiz below ninety", Facts{QuizRatio: ratio(0.89)}, nil},
		{"uploads at threshold", Facts{PDFUploads: 5}, []ID{PDFExplorer}},
		{"uploads below threshold", Facts{PDFUploads: 4}, nil},
		{"two languages", Facts{Languages: 2}, []ID{Polyglot}},
		{
			"several at once",
			Facts{Streak: 3, FirstQuery: true, QuizRatio: ratio(1), Languages: 3},
			[]ID{FirstQuestion, Streak3, QuizAce, Polyglot},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.facts, th))
		})
	}
}

func TestEvaluate_DefaultThresholds(t *testing.T) {
	assert.Empty(t, Evaluate(Facts{PDFUploads: 4, Languages: 1}, Thresholds{}))
	assert.Equal(t, []ID{PDFExplorer, Polyglot}, Evaluate(Facts{PDFUploads: 5, Languages: 2}, Thresholds{}))
}

func TestCatalog_CoversEveryRule(t *testing.T) {
	for _, r := range rules {
		_, ok := Lookup(r.id)
		assert.True(t, ok, "missing catalog entry for %s", r.id)
	}
	assert.Len(t, Catalog(), len(rules))
}

type memStore struct {
	mu     sync.Mutex
	badges map[string]map[string]struct{}
	err    error
}

func (m *memStore) AddBadges(
	_ context.Context,
	learnerID string,
	badges []string,
	_ time.Time,
) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.badges[learnerID]
	if !ok {
		return nil, nil
	}
	var added []string
	for _, b := range badges {
		if _, have := set[b]; have {
			continue
		}
		set[b] = struct{}{}
		added = append(added, b)
	}
	return added, nil
}

func TestAwarder_ReportsOnlyNewBadges(t *testing.T) {
	store := &memStore{badges: map[string]map[string]struct{}{
		"l1": {string(FirstQuestion): {}},
	}}
	a := NewAwarder(store, Thresholds{}, core.SystemClock{})

	got, err := a.EvaluateAndAward(context.Background(), "l1", Facts{Streak: 3, FirstQuery: true})
	require.NoError(t, err)
	assert.Equal(t, []ID{Streak3}, got)

	again, err := a.EvaluateAndAward(context.Background(), "l1", Facts{Streak: 3})
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, store.badges["l1"], 2)
}

func TestAwarder_ConcurrentEvaluationsAwardOnce(t *testing.T) {
	store := &memStore{badges: map[string]map[string]struct{}{"l1": {}}}
	a := NewAwarder(store, Thresholds{}, core.SystemClock{})

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := a.EvaluateAndAward(context.Background(), "l1", Facts{Streak: 7})
			assert.NoError(t, err)
			mu.Lock()
			total += len(got)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, total)
}

func TestAwarder_UnknownLearnerAndErrors(t *testing.T) {
	a := NewAwarder(&memStore{badges: map[string]map[string]struct{}{}}, Thresholds{}, core.SystemClock{})
	got, err := a.EvaluateAndAward(context.Background(), "ghost", Facts{Streak: 3})
	require.NoError(t, err)
	assert.Empty(t, got)

	boom := errors.New("db down")
	a = NewAwarder(&memStore{err: boom}, Thresholds{}, core.SystemClock{})
	_, err = a.EvaluateAndAward(context.Background(), "l1", Facts{Streak: 3})
	assert.ErrorIs(t, err, boom)
}
