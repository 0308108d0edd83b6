// AngelaMos | 2026
// repository.go

package learner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
	"github.com/carterperez-dev/templates/tutor-backend/internal/streak"
)

type Repository interface {
	Ensure(ctx context.Context, id string, at time.Time) error
	GetByID(ctx context.Context, id string) (*Learner, error)
	GetByEmail(ctx context.Context, email string) (*Learner, error)
	SetCredentials(ctx context.Context, id, email, passwordHash string) error
	RecordActivity(ctx context.Context, id string, at time.Time) (int, error)
	UpdateProfile(ctx context.Context, id, language string, goals Goals) error
	UpdateStreak(
		ctx context.Context,
		id string,
		fn func(streak.State) (streak.State, bool),
	) (streak.State, error)
	AddBadges(
		ctx context.Context,
		id string,
		badges []string,
		at time.Time,
	) ([]string, error)
	ListBadges(ctx context.Context, id string) ([]string, error)
	SetPremium(ctx context.Context, id string, expiresAt *time.Time) error
	ClearPremium(ctx context.Context, id string) error
	Stats(ctx context.Context, now, dayStart time.Time) (Stats, error)
}

// DB is the handle the repository needs: plain queries plus transactions
// for the row-locked streak update.
type DB interface {
	core.DBTX
	core.Beginner
}

type repository struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &repository{db: db}
}

const learnerColumns = `
	id, email, password_hash, language, goals, query_count, streak,
	last_streak_date, premium, premium_expires_at, last_active_at,
	created_at, updated_at`

func (r *repository) Ensure(ctx context.Context, id string, at time.Time) error {
	query := `
		INSERT INTO learners (id, last_active_at, created_at, updated_at)
		VALUES ($1, $2, $2, $2)
		ON CONFLICT (id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("ensure learner: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Learner, error) {
	query := `SELECT ` + learnerColumns + ` FROM learners WHERE id = $1`

	var l Learner
	err := r.db.GetContext(ctx, &l, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get learner: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get learner: %w", err)
	}

	badges, err := r.ListBadges(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Badges = badges

	return &l, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*Learner, error) {
	query := `SELECT ` + learnerColumns + ` FROM learners WHERE email = $1`

	var l Learner
	err := r.db.GetContext(ctx, &l, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get learner by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get learner by email: %w", err)
	}

	return &l, nil
}

func (r *repository) SetCredentials(
	ctx context.Context,
	id, email, passwordHash string,
) error {
	query := `
		UPDATE learners
		SET email = $2, password_hash = $3, updated_at = NOW()
		WHERE id = $1 AND email IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, email, passwordHash)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("set credentials: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("set credentials: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set credentials: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("set credentials: %w", core.ErrNotFound)
	}

	return nil
}

// RecordActivity bumps the query counter and returns the new value.
// A missing learner yields (0, nil).
func (r *repository) RecordActivity(
	ctx context.Context,
	id string,
	at time.Time,
) (int, error) {
	query := `
		UPDATE learners
		SET query_count = query_count + 1, last_active_at = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING query_count`

	var count int
	err := r.db.GetContext(ctx, &count, query, id, at)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("record activity: %w", err)
	}

	return count, nil
}

func (r *repository) UpdateProfile(
	ctx context.Context,
	id, language string,
	goals Goals,
) error {
	query := `
		UPDATE learners
		SET language = $2, goals = $3, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, language, goals)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update profile: %w", core.ErrNotFound)
	}

	return nil
}

// UpdateStreak holds the learner row for the duration of fn so concurrent
// touches for the same learner apply one after the other.
func (r *repository) UpdateStreak(
	ctx context.Context,
	id string,
	fn func(streak.State) (streak.State, bool),
) (streak.State, error) {
	var next streak.State

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var row struct {
			Streak         int        `db:"streak"`
			LastStreakDate *time.Time `db:"last_streak_date"`
		}

		err := tx.GetContext(ctx, &row, `
			SELECT streak, last_streak_date
			FROM learners
			WHERE id = $1
			FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("update streak: %w", core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("update streak: %w", err)
		}

		var changed bool
		next, changed = fn(streak.State{
			Length:   row.Streak,
			LastDate: row.LastStreakDate,
		})
		if !changed {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE learners
			SET streak = $2, last_streak_date = $3, updated_at = NOW()
			WHERE id = $1`,
			id, next.Length, next.LastDate,
		)
		if err != nil {
			return fmt.Errorf("update streak: %w", err)
		}

		return nil
	})
	if err != nil {
		return streak.State{}, err
	}

	return next, nil
}

// AddBadges inserts any badges the learner does not hold yet and returns
// exactly those. Existing badges are never touched.
func (r *repository) AddBadges(
	ctx context.Context,
	id string,
	badges []string,
	at time.Time,
) ([]string, error) {
	if len(badges) == 0 {
		return nil, nil
	}

	query := `
		INSERT INTO learner_badges (learner_id, badge, awarded_at)
		SELECT $1::uuid, b, $3
		FROM unnest($2::text[]) AS b
		WHERE EXISTS (SELECT 1 FROM learners WHERE id = $1::uuid)
		ON CONFLICT (learner_id, badge) DO NOTHING
		RETURNING badge`

	var added []string
	if err := r.db.SelectContext(ctx, &added, query, id, badges, at); err != nil {
		return nil, fmt.Errorf("add badges: %w", err)
	}

	return added, nil
}

func (r *repository) ListBadges(ctx context.Context, id string) ([]string, error) {
	query := `
		SELECT badge
		FROM learner_badges
		WHERE learner_id = $1
		ORDER BY awarded_at, badge`

	badges := []string{}
	if err := r.db.SelectContext(ctx, &badges, query, id); err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}

	return badges, nil
}

func (r *repository) SetPremium(
	ctx context.Context,
	id string,
	expiresAt *time.Time,
) error {
	query := `
		UPDATE learners
		SET premium = TRUE, premium_expires_at = $2, updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, expiresAt); err != nil {
		return fmt.Errorf("set premium: %w", err)
	}

	return nil
}

func (r *repository) ClearPremium(ctx context.Context, id string) error {
	query := `
		UPDATE learners
		SET premium = FALSE, premium_expires_at = NULL, updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("clear premium: %w", err)
	}

	return nil
}

func (r *repository) Stats(
	ctx context.Context,
	now, dayStart time.Time,
) (Stats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (
				WHERE premium AND (premium_expires_at IS NULL OR premium_expires_at > $1)
			) AS premium_active,
			COUNT(*) FILTER (WHERE last_active_at >= $2) AS active_today
		FROM learners`

	var s Stats
	if err := r.db.GetContext(ctx, &s, query, now, dayStart); err != nil {
		return Stats{}, fmt.Errorf("learner stats: %w", err)
	}

	return s, nil
}
