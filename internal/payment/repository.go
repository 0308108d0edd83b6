// AngelaMos | 2026
// repository.go

package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

type Repository interface {
	Put(ctx context.Context, p PendingPayment) (bool, error)
	Take(ctx context.Context, id string) (*PendingPayment, error)
	Drop(ctx context.Context, id, learnerID string) (bool, error)
	PurgeOlderThan(ctx context.Context, before time.Time) (int64, error)
	CountPending(ctx context.Context) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const paymentColumns = `id, learner_id, amount, currency, provider, created_at`

// Put records a pending payment. It reports false when the learner does not
// exist and ErrDuplicateKey when the transaction id is already pending.
func (r *repository) Put(ctx context.Context, p PendingPayment) (bool, error) {
	query := `
		INSERT INTO pending_payments (` + paymentColumns + `)
		SELECT $1, $2::uuid, $3, $4, $5, $6
		WHERE EXISTS (SELECT 1 FROM learners WHERE id = $2::uuid)`

	result, err := r.db.ExecContext(ctx, query,
		p.ID, p.LearnerID, p.Amount, p.Currency, p.Provider, p.CreatedAt,
	)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return false, fmt.Errorf("put pending payment: %w", core.ErrDuplicateKey)
		}
		return false, fmt.Errorf("put pending payment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("put pending payment: %w", err)
	}

	return rows > 0, nil
}

// Take removes and returns the pending payment in one statement, so two
// concurrent confirmations of the same transaction cannot both receive it.
func (r *repository) Take(ctx context.Context, id string) (*PendingPayment, error) {
	query := `
		DELETE FROM pending_payments
		WHERE id = $1
		RETURNING ` + paymentColumns

	var p PendingPayment
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take pending payment: %w", err)
	}

	return &p, nil
}

// Drop cancels a pending payment owned by learnerID. It reports false when
// there is no such payment for that learner.
func (r *repository) Drop(ctx context.Context, id, learnerID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_payments WHERE id = $1 AND learner_id = $2::uuid`,
		id, learnerID,
	)
	if err != nil {
		return false, fmt.Errorf("drop pending payment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("drop pending payment: %w", err)
	}
	return rows > 0, nil
}

func (r *repository) PurgeOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_payments WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge pending payments: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge pending payments: %w", err)
	}
	return n, nil
}

func (r *repository) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM pending_payments`); err != nil {
		return 0, fmt.Errorf("count pending payments: %w", err)
	}
	return n, nil
}
