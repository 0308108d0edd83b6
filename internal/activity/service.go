// AngelaMos | 2026
// service.go

package activity

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
	"github.com/carterperez-dev/templates/tutor-backend/internal/learner"
	"github.com/carterperez-dev/templates/tutor-backend/internal/quota"
)

type LearnerReader interface {
	Get(ctx context.Context, id string) (*learner.Learner, error)
}

type Service struct {
	repo     Repository
	learners LearnerReader
	policy   *quota.Policy
	tracker  *Tracker
	clock    core.Clock
}

func NewService(
	repo Repository,
	learners LearnerReader,
	policy *quota.Policy,
	tracker *Tracker,
	clock core.Clock,
) *Service {
	return &Service{
		repo:     repo,
		learners: learners,
		policy:   policy,
		tracker:  tracker,
		clock:    clock,
	}
}

// CountTodayChats counts questions asked since local midnight.
func (s *Service) CountTodayChats(ctx context.Context, learnerID string) (int, error) {
	from, to := core.DayBounds(s.clock.Now())
	return s.repo.CountChatsBetween(ctx, learnerID, from, to)
}

func (s *Service) CountTodayUploads(ctx context.Context, learnerID string) (int, error) {
	from, to := core.DayBounds(s.clock.Now())
	return s.repo.CountUploadsBetween(ctx, learnerID, from, to)
}

func (s *Service) TodayUsage(ctx context.Context, learnerID string) (learner.Usage, error) {
	questions, err := s.CountTodayChats(ctx, learnerID)
	if err != nil {
		return learner.Usage{}, err
	}

	uploads, err := s.CountTodayUploads(ctx, learnerID)
	if err != nil {
		return learner.Usage{}, err
	}

	return learner.Usage{Questions: questions, Uploads: uploads}, nil
}

func (s *Service) RecordQuiz(
	ctx context.Context,
	learnerID string,
	req RecordQuizRequest,
) (*Outcome, error) {
	if req.Score > req.TotalQuestions {
		return nil, fmt.Errorf(
			"record quiz: score exceeds total questions: %w",
			core.ErrInvalidInput,
		)
	}

	appended, err := s.repo.AppendQuizResult(ctx, QuizResult{
		LearnerID:      learnerID,
		Subject:        req.Subject,
		ExamType:       req.ExamType,
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
		CompletedAt:    s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if !appended {
		return nil, fmt.Errorf("record quiz: %w", core.ErrNotFound)
	}

	return s.track(ctx, learnerID, EventQuiz)
}

// RecordUpload stores upload metadata once the daily upload quota allows it.
func (s *Service) RecordUpload(
	ctx context.Context,
	learnerID, filename string,
	size int64,
) (*Outcome, error) {
	l, err := s.learners.Get(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	today, err := s.CountTodayUploads(ctx, l.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !s.policy.Allow(l, quota.KindPDFUpload, today, now) {
		limit, _ := s.policy.Limit(quota.KindPDFUpload)
		return nil, core.QuotaExceededError(string(quota.KindPDFUpload), limit)
	}

	appended, err := s.repo.AppendUpload(ctx, Upload{
		LearnerID: l.ID,
		Filename:  sanitizeFilename(filename),
		SizeBytes: size,
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	if !appended {
		return nil, fmt.Errorf("record upload: %w", core.ErrNotFound)
	}

	return s.track(ctx, l.ID, EventUpload)
}

func (s *Service) TrackProgress(
	ctx context.Context,
	learnerID string,
	req TrackProgressRequest,
) (*TopicProgress, error) {
	p, err := s.repo.UpsertProgress(ctx, TopicProgress{
		LearnerID:  learnerID,
		Subject:    req.Subject,
		Topic:      req.Topic,
		Confidence: *req.Confidence,
		UpdatedAt:  s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("track progress: %w", core.ErrNotFound)
	}

	if _, err := s.track(ctx, learnerID, EventProgress); err != nil {
		slog.Warn("progress tracked without ledger update",
			"learner_id", learnerID,
			"error", err,
		)
	}

	return p, nil
}

func (s *Service) ListProgress(
	ctx context.Context,
	learnerID, subject string,
) ([]TopicProgress, error) {
	return s.repo.ListProgress(ctx, learnerID, subject)
}

func (s *Service) track(ctx context.Context, learnerID string, event Event) (*Outcome, error) {
	out, err := s.tracker.Track(ctx, learnerID, event)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return "upload.pdf"
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}

var _ learner.UsageSource = (*Service)(nil)
