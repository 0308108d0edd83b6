// AngelaMos | 2026
// repository_test.go

package activity

import (
	"context"
	"database/sql/driver"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

var repoNow = time.Date(2026, 5, 4, 14, 30, 0, 0, time.UTC)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(sqlx.NewDb(db, "pgx")), mock
}

// sqlLike matches statement fragments in order, ignoring what lies between.
func sqlLike(fragments ...string) string {
	quoted := make([]string, len(fragments))
	for i, f := range fragments {
		quoted[i] = regexp.QuoteMeta(f)
	}
	return strings.Join(quoted, ".*")
}

func TestRepositoryAppendsSkipUnknownLearner(t *testing.T) {
	const guard = "WHERE EXISTS (SELECT 1 FROM learners WHERE id = $1::uuid)"

	tests := []struct {
		name   string
		table  string
		args   int
		append func(Repository) (bool, error)
	}{
		{
			name:  "chat",
			table: "chat_entries",
			args:  6,
			append: func(r Repository) (bool, error) {
				return r.AppendChat(context.Background(), ChatEntry{
					LearnerID: learnerID, Subject: "biology", Question: "q",
					Answer: "a", Language: "en", CreatedAt: repoNow,
				})
			},
		},
		{
			name:  "quiz",
			table: "quiz_results",
			args:  6,
			append: func(r Repository) (bool, error) {
				return r.AppendQuizResult(context.Background(), QuizResult{
					LearnerID: learnerID, Subject: "physics", ExamType: "kcse",
					Score: 7, TotalQuestions: 10, CompletedAt: repoNow,
				})
			},
		},
		{
			name:  "upload",
			table: "pdf_uploads",
			args:  4,
			append: func(r Repository) (bool, error) {
				return r.AppendUpload(context.Background(), Upload{
					LearnerID: learnerID, Filename: "notes.pdf",
					SizeBytes: 2048, CreatedAt: repoNow,
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			query := sqlLike("INSERT INTO "+tt.table, guard)

			args := make([]driver.Value, tt.args)
			for i := range args {
				args[i] = sqlmock.AnyArg()
			}
			args[0] = learnerID

			mock.ExpectExec(query).WithArgs(args...).
				WillReturnResult(sqlmock.NewResult(1, 1))
			ok, err := tt.append(repo)
			require.NoError(t, err)
			assert.True(t, ok)

			mock.ExpectExec(query).WithArgs(args...).
				WillReturnResult(sqlmock.NewResult(0, 0))
			ok, err = tt.append(repo)
			require.NoError(t, err)
			assert.False(t, ok, "no row for an unknown learner")

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepositoryUpsertProgress(t *testing.T) {
	repo, mock := newMockRepo(t)
	query := sqlLike(
		"INSERT INTO topic_progress",
		"SELECT $1::uuid, $2, $3, $4, 1, $5",
		"ON CONFLICT (learner_id, subject, topic) DO UPDATE",
		"SET confidence = EXCLUDED.confidence",
		"times_reviewed = topic_progress.times_reviewed + 1",
		"RETURNING",
	)
	columns := []string{"learner_id", "subject", "topic", "confidence", "times_reviewed", "updated_at"}
	p := TopicProgress{
		LearnerID: learnerID, Subject: "biology", Topic: "osmosis",
		Confidence: 40, UpdatedAt: repoNow,
	}

	mock.ExpectQuery(query).
		WithArgs(learnerID, "biology", "osmosis", 40, repoNow).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(learnerID, "biology", "osmosis", 40, 1, repoNow))

	got, err := repo.UpsertProgress(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TimesReviewed)

	p.Confidence = 80
	mock.ExpectQuery(query).
		WithArgs(learnerID, "biology", "osmosis", 80, repoNow).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(learnerID, "biology", "osmosis", 80, 2, repoNow))

	got, err = repo.UpsertProgress(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TimesReviewed)
	assert.Equal(t, 80, got.Confidence)

	mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows(columns))
	got, err = repo.UpsertProgress(context.Background(), p)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryDayWindowCounts(t *testing.T) {
	repo, mock := newMockRepo(t)
	from, to := core.DayBounds(repoNow)
	window := "WHERE learner_id = $1 AND created_at >= $2 AND created_at < $3"

	mock.ExpectQuery(sqlLike("SELECT COUNT(*) FROM chat_entries", window)).
		WithArgs(learnerID, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	chats, err := repo.CountChatsBetween(context.Background(), learnerID, from, to)
	require.NoError(t, err)
	assert.Equal(t, 4, chats)

	mock.ExpectQuery(sqlLike("SELECT COUNT(*) FROM pdf_uploads", window)).
		WithArgs(learnerID, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	uploads, err := repo.CountUploadsBetween(context.Background(), learnerID, from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, uploads)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryBadgeFacts(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM pdf_uploads WHERE learner_id = $1")).
		WithArgs(learnerID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	n, err := repo.CountUploads(ctx, learnerID)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	mock.ExpectQuery(sqlLike("SELECT COUNT(DISTINCT language) FROM chat_entries", "language <> ''")).
		WithArgs(learnerID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	n, err = repo.CountDistinctLanguages(ctx, learnerID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	latest := sqlLike(
		"SELECT score::float8 / total_questions",
		"ORDER BY completed_at DESC, id DESC",
		"LIMIT 1",
	)
	mock.ExpectQuery(latest).
		WithArgs(learnerID).
		WillReturnRows(sqlmock.NewRows([]string{"ratio"}).AddRow(0.9))
	ratio, err := repo.LatestQuizRatio(ctx, learnerID)
	require.NoError(t, err)
	require.NotNil(t, ratio)
	assert.InDelta(t, 0.9, *ratio, 1e-9)

	mock.ExpectQuery(latest).
		WithArgs(learnerID).
		WillReturnRows(sqlmock.NewRows([]string{"ratio"}))
	ratio, err = repo.LatestQuizRatio(ctx, learnerID)
	require.NoError(t, err)
	assert.Nil(t, ratio, "no quiz yet")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListChats(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM chat_entries WHERE learner_id = $1")).
		WithArgs(learnerID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(sqlLike("FROM chat_entries", "ORDER BY created_at DESC, id DESC", "LIMIT $2 OFFSET $3")).
		WithArgs(learnerID, 2, 0).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "learner_id", "subject", "question", "answer", "language", "created_at"},
		).
			AddRow(3, learnerID, "biology", "q3", "a3", "en", repoNow).
			AddRow(2, learnerID, "biology", "q2", "a2", "sw", repoNow.Add(-time.Minute)))

	chats, total, err := repo.ListChats(context.Background(), learnerID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, chats, 2)
	assert.EqualValues(t, 3, chats[0].ID)

	require.NoError(t, mock.ExpectationsWereMet())
}
