// AngelaMos | 2026
// repository_test.go

package payment

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(sqlx.NewDb(db, "pgx")), mock
}

func TestRepositoryTake(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM pending_payments")).
		WithArgs(txID).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "learner_id", "amount", "currency", "provider", "created_at"},
		).AddRow(txID, learnerA, int64(499), "kes", "mobile_money", created))

	p, err := repo.Take(context.Background(), txID)
	require.NoError(t, err)
	assert.Equal(t, learnerA, p.LearnerID)
	assert.Equal(t, ProviderMobileMoney, p.Provider)
	assert.EqualValues(t, 499, p.Amount)

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM pending_payments")).
		WithArgs(txID).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "learner_id", "amount", "currency", "provider", "created_at"},
		))

	_, err = repo.Take(context.Background(), txID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryPut(t *testing.T) {
	repo, mock := newMockRepo(t)
	p := PendingPayment{
		ID:        "cs_test_1",
		LearnerID: learnerA,
		Amount:    499,
		Currency:  "usd",
		Provider:  ProviderCard,
		CreatedAt: time.Now(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pending_payments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.Put(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pending_payments")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.Put(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pending_payments")).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = repo.Put(context.Background(), p)
	assert.ErrorIs(t, err, core.ErrDuplicateKey)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryPurge(t *testing.T) {
	repo, mock := newMockRepo(t)
	before := time.Now().Add(-72 * time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM pending_payments WHERE created_at < $1")).
		WithArgs(before).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.PurgeOlderThan(context.Background(), before)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryDropScopedToLearner(t *testing.T) {
	repo, mock := newMockRepo(t)
	query := regexp.QuoteMeta("DELETE FROM pending_payments WHERE id = $1 AND learner_id = $2::uuid")

	mock.ExpectExec(query).
		WithArgs(txID, learnerA).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.Drop(context.Background(), txID, learnerA)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(query).
		WithArgs(txID, learnerA).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.Drop(context.Background(), txID, learnerA)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}
