// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

// Repository is the session store. Each refresh token row is one device
// session of a learner; rotation chains rows of the same family.
type Repository interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	Rotate(ctx context.Context, previousID string, next *RefreshToken) error
	HasLiveSession(ctx context.Context, learnerID string, now time.Time) (bool, error)
	ListSessions(ctx context.Context, learnerID string, now time.Time) ([]RefreshToken, error)
	RevokeSession(ctx context.Context, learnerID, sessionID string) (bool, error)
	RevokeFamily(ctx context.Context, familyID string) error
	RevokeAllForLearner(ctx context.Context, learnerID string) (int64, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// DB is what the session store needs: plain queries plus a transaction for
// rotation.
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

const sessionColumns = `
	id, learner_id, token_hash, family_id, expires_at, created_at,
	is_used, used_at, revoked_at, replaced_by_id, user_agent, ip_address`

// live holds for sessions that can still be refreshed at $2.
const live = `revoked_at IS NULL AND is_used = false AND expires_at > $2`

const insertSession = `
	INSERT INTO refresh_tokens (
		id, learner_id, token_hash, family_id, expires_at, user_agent, ip_address
	)
	SELECT $1, $2::uuid, $3, $4, $5, $6, $7
	WHERE EXISTS (SELECT 1 FROM learners WHERE id = $2::uuid)
	RETURNING created_at`

// Create opens a session for an existing learner. A learner deleted in the
// meantime yields ErrNotFound.
func (r *repository) Create(ctx context.Context, token *RefreshToken) error {
	if err := insert(ctx, r.db, token); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func insert(ctx context.Context, db core.DBTX, t *RefreshToken) error {
	err := db.GetContext(ctx, &t.CreatedAt, insertSession,
		t.ID, t.LearnerID, t.TokenHash, t.FamilyID, t.ExpiresAt, t.UserAgent, t.IPAddress,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

func (r *repository) FindByHash(
	ctx context.Context,
	tokenHash string,
) (*RefreshToken, error) {
	query := `SELECT ` + sessionColumns + ` FROM refresh_tokens WHERE token_hash = $1`

	var token RefreshToken
	err := r.db.GetContext(ctx, &token, query, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find session: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}

	return &token, nil
}

// Rotate consumes the previous token and stores its successor in one
// transaction. ErrNotFound means the previous token was already consumed,
// which callers treat as reuse.
func (r *repository) Rotate(
	ctx context.Context,
	previousID string,
	next *RefreshToken,
) error {
	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE refresh_tokens
			SET is_used = true, used_at = NOW(), replaced_by_id = $2
			WHERE id = $1 AND is_used = false AND revoked_at IS NULL`,
			previousID, next.ID,
		)
		if err != nil {
			return err
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return core.ErrNotFound
		}

		return insert(ctx, tx, next)
	})
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}

	return nil
}

// HasLiveSession reports whether any device still holds a usable refresh
// token for the learner.
func (r *repository) HasLiveSession(
	ctx context.Context,
	learnerID string,
	now time.Time,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM refresh_tokens
			WHERE learner_id = $1 AND ` + live + `
		)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, learnerID, now); err != nil {
		return false, fmt.Errorf("check live session: %w", err)
	}
	return exists, nil
}

func (r *repository) ListSessions(
	ctx context.Context,
	learnerID string,
	now time.Time,
) ([]RefreshToken, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM refresh_tokens
		WHERE learner_id = $1 AND ` + live + `
		ORDER BY created_at DESC`

	sessions := []RefreshToken{}
	if err := r.db.SelectContext(ctx, &sessions, query, learnerID, now); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// RevokeSession ends one session of learnerID. Sessions of other learners
// are indistinguishable from missing ones.
func (r *repository) RevokeSession(
	ctx context.Context,
	learnerID, sessionID string,
) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE id = $1 AND learner_id = $2 AND revoked_at IS NULL`,
		sessionID, learnerID,
	)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	return rows > 0, nil
}

func (r *repository) RevokeFamily(ctx context.Context, familyID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE family_id = $1 AND revoked_at IS NULL`,
		familyID,
	)
	if err != nil {
		return fmt.Errorf("revoke session family: %w", err)
	}
	return nil
}

func (r *repository) RevokeAllForLearner(
	ctx context.Context,
	learnerID string,
) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE learner_id = $1 AND revoked_at IS NULL`,
		learnerID,
	)
	if err != nil {
		return 0, fmt.Errorf("revoke learner sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke learner sessions: %w", err)
	}
	return n, nil
}

// Prune deletes sessions that expired or were revoked before the cutoff.
// Rotated rows stay until they expire so a replayed token is still caught
// as reuse.
func (r *repository) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1 OR revoked_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return n, nil
}
