// AngelaMos | 2026
// repository.go

package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

// Repository stores the append-only activity of learners. Appends for a
// learner that does not exist are dropped and reported as false.
type Repository interface {
	AppendChat(ctx context.Context, entry ChatEntry) (bool, error)
	AppendQuizResult(ctx context.Context, result QuizResult) (bool, error)
	AppendUpload(ctx context.Context, upload Upload) (bool, error)
	UpsertProgress(ctx context.Context, p TopicProgress) (*TopicProgress, error)

	CountChatsBetween(ctx context.Context, learnerID string, from, to time.Time) (int, error)
	CountUploadsBetween(ctx context.Context, learnerID string, from, to time.Time) (int, error)
	CountUploads(ctx context.Context, learnerID string) (int, error)
	CountDistinctLanguages(ctx context.Context, learnerID string) (int, error)
	LatestQuizRatio(ctx context.Context, learnerID string) (*float64, error)

	ListProgress(ctx context.Context, learnerID, subject string) ([]TopicProgress, error)
	ListChats(ctx context.Context, learnerID string, limit, offset int) ([]ChatEntry, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const learnerExists = `EXISTS (SELECT 1 FROM learners WHERE id = $1::uuid)`

func (r *repository) AppendChat(ctx context.Context, e ChatEntry) (bool, error) {
	query := `
		INSERT INTO chat_entries (learner_id, subject, question, answer, language, created_at)
		SELECT $1::uuid, $2, $3, $4, $5, $6
		WHERE ` + learnerExists

	return r.appendRow(ctx, "append chat", query,
		e.LearnerID, e.Subject, e.Question, e.Answer, e.Language, e.CreatedAt,
	)
}

func (r *repository) AppendQuizResult(ctx context.Context, q QuizResult) (bool, error) {
	query := `
		INSERT INTO quiz_results (learner_id, subject, exam_type, score, total_questions, completed_at)
		SELECT $1::uuid, $2, $3, $4, $5, $6
		WHERE ` + learnerExists

	return r.appendRow(ctx, "append quiz result", query,
		q.LearnerID, q.Subject, q.ExamType, q.Score, q.TotalQuestions, q.CompletedAt,
	)
}

func (r *repository) AppendUpload(ctx context.Context, u Upload) (bool, error) {
	query := `
		INSERT INTO pdf_uploads (learner_id, filename, size_bytes, created_at)
		SELECT $1::uuid, $2, $3, $4
		WHERE ` + learnerExists

	return r.appendRow(ctx, "append upload", query,
		u.LearnerID, u.Filename, u.SizeBytes, u.CreatedAt,
	)
}

func (r *repository) appendRow(
	ctx context.Context,
	op, query string,
	args ...any,
) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return rows > 0, nil
}

// UpsertProgress sets the confidence for a topic, counting a review on every
// call after the first. Returns nil for an unknown learner.
func (r *repository) UpsertProgress(
	ctx context.Context,
	p TopicProgress,
) (*TopicProgress, error) {
	query := `
		INSERT INTO topic_progress (learner_id, subject, topic, confidence, times_reviewed, updated_at)
		SELECT $1::uuid, $2, $3, $4, 1, $5
		WHERE ` + learnerExists + `
		ON CONFLICT (learner_id, subject, topic) DO UPDATE
		SET confidence = EXCLUDED.confidence,
		    times_reviewed = topic_progress.times_reviewed + 1,
		    updated_at = EXCLUDED.updated_at
		RETURNING learner_id, subject, topic, confidence, times_reviewed, updated_at`

	var out TopicProgress
	err := r.db.GetContext(ctx, &out, query,
		p.LearnerID, p.Subject, p.Topic, p.Confidence, p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("upsert progress: %w", err)
	}

	return &out, nil
}

func (r *repository) CountChatsBetween(
	ctx context.Context,
	learnerID string,
	from, to time.Time,
) (int, error) {
	query := `
		SELECT COUNT(*) FROM chat_entries
		WHERE learner_id = $1 AND created_at >= $2 AND created_at < $3`

	var n int
	if err := r.db.GetContext(ctx, &n, query, learnerID, from, to); err != nil {
		return 0, fmt.Errorf("count chats: %w", err)
	}
	return n, nil
}

func (r *repository) CountUploadsBetween(
	ctx context.Context,
	learnerID string,
	from, to time.Time,
) (int, error) {
	query := `
		SELECT COUNT(*) FROM pdf_uploads
		WHERE learner_id = $1 AND created_at >= $2 AND created_at < $3`

	var n int
	if err := r.db.GetContext(ctx, &n, query, learnerID, from, to); err != nil {
		return 0, fmt.Errorf("count uploads: %w", err)
	}
	return n, nil
}

func (r *repository) CountUploads(ctx context.Context, learnerID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM pdf_uploads WHERE learner_id = $1`, learnerID)
	if err != nil {
		return 0, fmt.Errorf("count all uploads: %w", err)
	}
	return n, nil
}

func (r *repository) CountDistinctLanguages(ctx context.Context, learnerID string) (int, error) {
	query := `
		SELECT COUNT(DISTINCT language) FROM chat_entries
		WHERE learner_id = $1 AND language <> ''`

	var n int
	if err := r.db.GetContext(ctx, &n, query, learnerID); err != nil {
		return 0, fmt.Errorf("count languages: %w", err)
	}
	return n, nil
}

// LatestQuizRatio returns score/total of the most recent quiz, or nil when
// the learner has none.
func (r *repository) LatestQuizRatio(ctx context.Context, learnerID string) (*float64, error) {
	query := `
		SELECT score::float8 / total_questions
		FROM quiz_results
		WHERE learner_id = $1
		ORDER BY completed_at DESC, id DESC
		LIMIT 1`

	var ratio float64
	err := r.db.GetContext(ctx, &ratio, query, learnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest quiz ratio: %w", err)
	}
	return &ratio, nil
}

func (r *repository) ListProgress(
	ctx context.Context,
	learnerID, subject string,
) ([]TopicProgress, error) {
	query := `
		SELECT learner_id, subject, topic, confidence, times_reviewed, updated_at
		FROM topic_progress
		WHERE learner_id = $1 AND ($2 = '' OR subject = $2)
		ORDER BY subject, topic`

	progress := []TopicProgress{}
	if err := r.db.SelectContext(ctx, &progress, query, learnerID, subject); err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return progress, nil
}

func (r *repository) ListChats(
	ctx context.Context,
	learnerID string,
	limit, offset int,
) ([]ChatEntry, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM chat_entries WHERE learner_id = $1`, learnerID)
	if err != nil {
		return nil, 0, fmt.Errorf("count chat history: %w", err)
	}

	query := `
		SELECT id, learner_id, subject, question, answer, language, created_at
		FROM chat_entries
		WHERE learner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	chats := []ChatEntry{}
	if err := r.db.SelectContext(ctx, &chats, query, learnerID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list chat history: %w", err)
	}

	return chats, total, nil
}
