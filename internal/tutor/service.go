// AngelaMos | 2026
// service.go

package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/tutor-backend/internal/activity"
	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
	"github.com/carterperez-dev/templates/tutor-backend/internal/learner"
	"github.com/carterperez-dev/templates/tutor-backend/internal/quota"
)

type LearnerReader interface {
	Get(ctx context.Context, id string) (*learner.Learner, error)
}

type ChatStore interface {
	AppendChat(ctx context.Context, entry activity.ChatEntry) (bool, error)
	CountChatsBetween(ctx context.Context, learnerID string, from, to time.Time) (int, error)
	ListChats(ctx context.Context, learnerID string, limit, offset int) ([]activity.ChatEntry, int, error)
}

type Tracker interface {
	Track(ctx context.Context, learnerID string, event activity.Event) (activity.Outcome, error)
}

type Service struct {
	learners LearnerReader
	chats    ChatStore
	tracker  Tracker
	provider Provider
	policy   *quota.Policy
	clock    core.Clock
	timeout  time.Duration
}

type ServiceConfig struct {
	Learners LearnerReader
	Chats    ChatStore
	Tracker  Tracker
	Provider Provider
	Policy   *quota.Policy
	Clock    core.Clock
	Timeout  time.Duration
}

func NewService(cfg ServiceConfig) *Service {
	return &Service{
		learners: cfg.Learners,
		chats:    cfg.Chats,
		tracker:  cfg.Tracker,
		provider: cfg.Provider,
		policy:   cfg.Policy,
		clock:    cfg.Clock,
		timeout:  cfg.Timeout,
	}
}

// Ask answers one question. The quota is checked before the provider is
// called, and nothing is written when the provider fails.
func (s *Service) Ask(
	ctx context.Context,
	learnerID string,
	req AskRequest,
) (*AskResponse, error) {
	l, err := s.learners.Get(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	from, to := core.DayBounds(now)
	today, err := s.chats.CountChatsBetween(ctx, l.ID, from, to)
	if err != nil {
		return nil, err
	}

	if !s.policy.Allow(l, quota.KindQuestion, today, now) {
		limit, _ := s.policy.Limit(quota.KindQuestion)
		return nil, core.QuotaExceededError(string(quota.KindQuestion), limit)
	}

	subject, exam, err := resolve(req)
	if err != nil {
		return nil, err
	}

	language := strings.ToLower(req.Language)
	if language == "" {
		language = l.Language
	}

	answer, err := s.answer(ctx, Prompt{
		System:   SystemPrompt(subject, exam, language),
		Question: req.Question,
		Language: language,
	})
	if err != nil {
		return nil, err
	}

	entry := activity.ChatEntry{
		LearnerID: l.ID,
		Subject:   subject.ID,
		Question:  req.Question,
		Answer:    answer,
		Language:  language,
		CreatedAt: s.clock.Now(),
	}
	if _, err := s.chats.AppendChat(ctx, entry); err != nil {
		return nil, err
	}

	resp := &AskResponse{
		Answer:             answer,
		Subject:            subject.ID,
		Language:           language,
		QuestionsRemaining: s.policy.Remaining(l, quota.KindQuestion, today+1, now),
	}

	out, err := s.tracker.Track(ctx, l.ID, activity.EventQuestion)
	if err != nil {
		slog.Error("question answered without ledger update",
			"learner_id", l.ID,
			"error", err,
		)
		return resp, nil
	}
	resp.Ledger = &out

	return resp, nil
}

func (s *Service) answer(ctx context.Context, p Prompt) (string, error) {
	ctx, span := core.StartSpan(ctx, "tutor.answer",
		attribute.String("provider", s.provider.Name()),
	)
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	answer, err := s.provider.Answer(ctx, p)
	if err != nil {
		core.SetSpanError(ctx, err)
		slog.Warn("answer provider failed",
			"provider", s.provider.Name(),
			"error", err,
		)
		return "", fmt.Errorf("%w: %w", core.ErrProviderUnavailable, err)
	}

	return answer, nil
}

func (s *Service) History(
	ctx context.Context,
	learnerID string,
	page, pageSize int,
) ([]activity.ChatEntry, int, error) {
	return s.chats.ListChats(ctx, learnerID, pageSize, (page-1)*pageSize)
}

func resolve(req AskRequest) (Subject, *ExamType, error) {
	id := req.Subject
	if id == "" {
		id = DefaultSubject
	}

	subject, ok := LookupSubject(id)
	if !ok {
		return Subject{}, nil, fmt.Errorf("unknown subject %q: %w", id, core.ErrInvalidInput)
	}

	if req.ExamType == "" {
		return subject, nil, nil
	}

	exam, ok := LookupExamType(req.ExamType)
	if !ok {
		return Subject{}, nil, fmt.Errorf("unknown exam type %q: %w", req.ExamType, core.ErrInvalidInput)
	}

	return subject, &exam, nil
}
