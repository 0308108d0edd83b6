// AngelaMos | 2026
// repository_test.go

package learner

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
	"github.com/carterperez-dev/templates/tutor-backend/internal/streak"
)

const testID = "9d8f7a6b-5c4d-4e3f-8a2b-1c0d9e8f7a6b"

var testNow = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(arrayConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(sqlx.NewDb(db, "pgx")), mock
}

// arrayConverter lets text[] arguments through the way pgx accepts them.
type arrayConverter struct{}

func (arrayConverter) ConvertValue(v any) (driver.Value, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func learnerRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "language", "goals", "query_count", "streak",
		"last_streak_date", "premium", "premium_expires_at", "last_active_at",
		"created_at", "updated_at",
	})
}

func TestRepositoryEnsure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO learners")).
		WithArgs(testID, testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Ensure(context.Background(), testID, testNow))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM learners WHERE id = $1")).
		WithArgs(testID).
		WillReturnRows(learnerRows().AddRow(
			testID, nil, nil, "en", []byte(`["kcse maths"]`), 4, 2,
			testNow, false, nil, testNow, testNow, testNow,
		))
	mock.ExpectQuery(regexp.QuoteMeta("FROM learner_badges")).
		WithArgs(testID).
		WillReturnRows(sqlmock.NewRows([]string{"badge"}).
			AddRow("first_question").
			AddRow("streak_3"))

	l, err := repo.GetByID(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, 4, l.QueryCount)
	assert.Equal(t, Goals{"kcse maths"}, l.Goals)
	assert.Equal(t, []string{"first_question", "streak_3"}, l.Badges)
	assert.False(t, l.IsClaimed())

	mock.ExpectQuery(regexp.QuoteMeta("FROM learners WHERE id = $1")).
		WithArgs(testID).
		WillReturnRows(learnerRows())

	_, err = repo.GetByID(context.Background(), testID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryRecordActivity(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SET query_count = query_count + 1")).
		WithArgs(testID, testNow).
		WillReturnRows(sqlmock.NewRows([]string{"query_count"}).AddRow(3))

	n, err := repo.RecordActivity(context.Background(), testID, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	mock.ExpectQuery(regexp.QuoteMeta("SET query_count = query_count + 1")).
		WithArgs(testID, testNow).
		WillReturnRows(sqlmock.NewRows([]string{"query_count"}))

	n, err = repo.RecordActivity(context.Background(), testID, testNow)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositorySetCredentials(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND email IS NULL")).
		WithArgs(testID, "a@b.co", "hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetCredentials(ctx, testID, "a@b.co", "hash"))

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND email IS NULL")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetCredentials(ctx, testID, "a@b.co", "hash"), core.ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND email IS NULL")).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, repo.SetCredentials(ctx, testID, "a@b.co", "hash"), core.ErrDuplicateKey)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpdateStreak(t *testing.T) {
	yesterday := testNow.AddDate(0, 0, -1)
	lockQuery := regexp.QuoteMeta("SELECT streak, last_streak_date")
	updateQuery := regexp.QuoteMeta("SET streak = $2, last_streak_date = $3")

	t.Run("advances under row lock", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs(testID).
			WillReturnRows(sqlmock.NewRows([]string{"streak", "last_streak_date"}).
				AddRow(2, yesterday))
		mock.ExpectExec(updateQuery).
			WithArgs(testID, 3, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		got, err := repo.UpdateStreak(context.Background(), testID,
			func(s streak.State) (streak.State, bool) {
				return streak.Advance(s, testNow)
			})
		require.NoError(t, err)
		assert.Equal(t, 3, got.Length)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unchanged skips write", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs(testID).
			WillReturnRows(sqlmock.NewRows([]string{"streak", "last_streak_date"}).
				AddRow(5, testNow))
		mock.ExpectCommit()

		got, err := repo.UpdateStreak(context.Background(), testID,
			func(s streak.State) (streak.State, bool) {
				return streak.Advance(s, testNow)
			})
		require.NoError(t, err)
		assert.Equal(t, 5, got.Length)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing learner rolls back", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs(testID).
			WillReturnRows(sqlmock.NewRows([]string{"streak", "last_streak_date"}))
		mock.ExpectRollback()

		_, err := repo.UpdateStreak(context.Background(), testID,
			func(s streak.State) (streak.State, bool) {
				return streak.Advance(s, testNow)
			})
		assert.ErrorIs(t, err, core.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("write failure rolls back", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs(testID).
			WillReturnRows(sqlmock.NewRows([]string{"streak", "last_streak_date"}).
				AddRow(0, nil))
		mock.ExpectExec(updateQuery).WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		_, err := repo.UpdateStreak(context.Background(), testID,
			func(s streak.State) (streak.State, bool) {
				return streak.Advance(s, testNow)
			})
		assert.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepositoryPremium(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()
	expires := testNow.Add(720 * time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("SET premium = TRUE")).
		WithArgs(testID, expires).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetPremium(ctx, testID, &expires))

	mock.ExpectExec(regexp.QuoteMeta("SET premium = FALSE")).
		WithArgs(testID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.ClearPremium(ctx, testID))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryAddBadges(t *testing.T) {
	repo, mock := newMockRepo(t)
	query := regexp.QuoteMeta(`FROM unnest($2::text[]) AS b`) + ".*" +
		regexp.QuoteMeta(`ON CONFLICT (learner_id, badge) DO NOTHING RETURNING badge`)
	offered := []string{"first_question", "streak_3"}

	mock.ExpectQuery(query).
		WithArgs(testID, offered, testNow).
		WillReturnRows(sqlmock.NewRows([]string{"badge"}).
			AddRow("first_question").AddRow("streak_3"))
	added, err := repo.AddBadges(context.Background(), testID, offered, testNow)
	require.NoError(t, err)
	assert.Equal(t, offered, added)

	// already held badges come back from the conflict clause as no rows
	mock.ExpectQuery(query).
		WithArgs(testID, offered, testNow).
		WillReturnRows(sqlmock.NewRows([]string{"badge"}))
	added, err = repo.AddBadges(context.Background(), testID, offered, testNow)
	require.NoError(t, err)
	assert.Empty(t, added)

	added, err = repo.AddBadges(context.Background(), testID, nil, testNow)
	require.NoError(t, err)
	assert.Empty(t, added)

	mock.ExpectQuery(query).WillReturnError(errors.New("conn reset"))
	_, err = repo.AddBadges(context.Background(), testID, offered, testNow)
	assert.ErrorContains(t, err, "add badges")

	require.NoError(t, mock.ExpectationsWereMet())
}
