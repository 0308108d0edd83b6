// AngelaMos | 2026
// service_test.go

package activity

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
	"github.com/carterperez-dev/templates/tutor-backend/internal/learner"
	"github.com/carterperez-dev/templates/tutor-backend/internal/quota"
)

// memActivity keeps activity rows for the learners listed in known.
type memActivity struct {
	mu       sync.Mutex
	known    map[string]bool
	chats    []ChatEntry
	quizzes  []QuizResult
	uploads  []Upload
	progress map[string]*TopicProgress
}

func newMemActivity(ids ...string) *memActivity {
	m := &memActivity{known: map[string]bool{}, progress: map[string]*TopicProgress{}}
	for _, id := range ids {
		m.known[id] = true
	}
	return m
}

func (m *memActivity) AppendChat(_ context.Context, e ChatEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.known[e.LearnerID] {
		return false, nil
	}
	e.ID = int64(len(m.chats) + 1)
	m.chats = append(m.chats, e)
	return true, nil
}

func (m *memActivity) AppendQuizResult(_ context.Context, q QuizResult) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.known[q.LearnerID] {
		return false, nil
	}
	m.quizzes = append(m.quizzes, q)
	return true, nil
}

func (m *memActivity) AppendUpload(_ context.Context, u Upload) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.known[u.LearnerID] {
		return false, nil
	}
	m.uploads = append(m.uploads, u)
	return true, nil
}

func (m *memActivity) UpsertProgress(_ context.Context, p TopicProgress) (*TopicProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.known[p.LearnerID] {
		return nil, nil
	}
	key := p.LearnerID + "|" + p.Subject + "|" + p.Topic
	cur, ok := m.progress[key]
	if !ok {
		p.TimesReviewed = 1
		m.progress[key] = &p
		out := p
		return &out, nil
	}
	cur.Confidence = p.Confidence
	cur.TimesReviewed++
	cur.UpdatedAt = p.UpdatedAt
	out := *cur
	return &out, nil
}

func (m *memActivity) CountChatsBetween(_ context.Context, id string, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.chats {
		if c.LearnerID == id && !c.CreatedAt.Before(from) && c.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *memActivity) CountUploadsBetween(_ context.Context, id string, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.uploads {
		if u.LearnerID == id && !u.CreatedAt.Before(from) && u.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *memActivity) CountUploads(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.uploads {
		if u.LearnerID == id {
			n++
		}
	}
	return n, nil
}

func (m *memActivity) CountDistinctLanguages(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	for _, c := range m.chats {
		if c.LearnerID == id {
			seen[c.Language] = true
		}
	}
	return len(seen), nil
}

func (m *memActivity) LatestQuizRatio(_ context.Context, id string) (*float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.quizzes) - 1; i >= 0; i-- {
		if m.quizzes[i].LearnerID == id {
			r := m.quizzes[i].Ratio()
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memActivity) ListProgress(_ context.Context, id, subject string) ([]TopicProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []TopicProgress{}
	for _, p := range m.progress {
		if p.LearnerID == id && (subject == "" || p.Subject == subject) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out, nil
}

func (m *memActivity) ListChats(_ context.Context, id string, limit, offset int) ([]ChatEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var mine []ChatEntry
	for _, c := range m.chats {
		if c.LearnerID == id {
			mine = append(mine, c)
		}
	}
	total := len(mine)
	if offset >= total {
		return []ChatEntry{}, total, nil
	}
	return mine[offset:min(offset+limit, total)], total, nil
}

type learnerMap map[string]*learner.Learner

func (m learnerMap) Get(_ context.Context, id string) (*learner.Learner, error) {
	l, ok := m[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return l, nil
}

const premiumID = "7a6b5c4d-3e2f-4a1b-8c9d-0e1f2a3b4c5d"

func newTestService(t *testing.T) (*Service, *memActivity, *testClock) {
	t.Helper()

	repo := newMemActivity(learnerID, premiumID)
	tracker, clock := newTrackerWithFacts(newLedger(), repo)
	learners := learnerMap{
		learnerID: {ID: learnerID},
		premiumID: {ID: premiumID, Premium: true},
	}
	policy := quota.NewPolicy(quota.Limits{QuestionsPerDay: 10, UploadsPerDay: 1})

	return NewService(repo, learners, policy, tracker, clock), repo, clock
}

func TestRecordQuiz(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordQuiz(ctx, learnerID, RecordQuizRequest{
		Subject: "mathematics", ExamType: "kcse", Score: 11, TotalQuestions: 10,
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Empty(t, repo.quizzes)

	out, err := svc.RecordQuiz(ctx, learnerID, RecordQuizRequest{
		Subject: "mathematics", ExamType: "kcse", Score: 9, TotalQuestions: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Streak)
	require.Len(t, repo.quizzes, 1)

	_, err = svc.RecordQuiz(ctx, "00000000-0000-4000-8000-000000000000", RecordQuizRequest{
		Subject: "mathematics", ExamType: "kcse", Score: 1, TotalQuestions: 10,
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRecordUploadQuota(t *testing.T) {
	svc, repo, clock := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordUpload(ctx, learnerID, "../../notes/chapter1.pdf", 2048)
	require.NoError(t, err)
	assert.Equal(t, "chapter1.pdf", repo.uploads[0].Filename)

	_, err = svc.RecordUpload(ctx, learnerID, "chapter2.pdf", 2048)
	assert.ErrorIs(t, err, core.ErrQuotaExceeded)
	assert.Len(t, repo.uploads, 1)

	for range 3 {
		_, err = svc.RecordUpload(ctx, premiumID, "past-paper.pdf", 4096)
		require.NoError(t, err)
	}

	clock.nextDay()
	_, err = svc.RecordUpload(ctx, learnerID, "chapter2.pdf", 2048)
	require.NoError(t, err, "quota resets at local midnight")

	_, err = svc.RecordUpload(ctx, "missing", "x.pdf", 1)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestTrackProgress(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	conf := func(v int) *int { return &v }

	p, err := svc.TrackProgress(ctx, learnerID, TrackProgressRequest{
		Subject: "biology", Topic: "osmosis", Confidence: conf(40),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.TimesReviewed)

	p, err = svc.TrackProgress(ctx, learnerID, TrackProgressRequest{
		Subject: "biology", Topic: "osmosis", Confidence: conf(75),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, p.TimesReviewed)
	assert.Equal(t, 75, p.Confidence)

	_, err = svc.TrackProgress(ctx, learnerID, TrackProgressRequest{
		Subject: "physics", Topic: "momentum", Confidence: conf(10),
	})
	require.NoError(t, err)

	bio, err := svc.ListProgress(ctx, learnerID, "biology")
	require.NoError(t, err)
	require.Len(t, bio, 1)
	assert.Equal(t, "osmosis", bio[0].Topic)

	all, err := svc.ListProgress(ctx, learnerID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.TrackProgress(ctx, "missing", TrackProgressRequest{
		Subject: "biology", Topic: "osmosis", Confidence: conf(1),
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestTodayUsage(t *testing.T) {
	svc, repo, clock := newTestService(t)
	ctx := context.Background()
	now := clock.Now()

	repo.chats = []ChatEntry{
		{LearnerID: learnerID, Language: "en", CreatedAt: now},
		{LearnerID: learnerID, Language: "sw", CreatedAt: now.Add(-time.Hour)},
		{LearnerID: learnerID, Language: "en", CreatedAt: now.AddDate(0, 0, -1)},
		{LearnerID: premiumID, Language: "en", CreatedAt: now},
	}
	repo.uploads = []Upload{{LearnerID: learnerID, CreatedAt: now}}

	usage, err := svc.TodayUsage(ctx, learnerID)
	require.NoError(t, err)
	assert.Equal(t, learner.Usage{Questions: 2, Uploads: 1}, usage)
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"notes.pdf":                "notes.pdf",
		"../../etc/passwd.pdf":     "passwd.pdf",
		`C:\Users\amina\past.pdf`:  "past.pdf",
		"/":                        "upload.pdf",
		".":                        "upload.pdf",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
