// AngelaMos | 2026
// service.go

package learner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/tutor-backend/internal/auth"
	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

type Service struct {
	repo  Repository
	clock core.Clock
}

func NewService(repo Repository, clock core.Clock) *Service {
	return &Service{repo: repo, clock: clock}
}

// canonicalID returns the lowercase hyphenated form of id, or false when id
// is not a UUID. Non-UUID ids can never exist in the store.
func canonicalID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

// Ensure creates the learner if needed and returns the stored record.
// An empty id allocates a fresh one; an existing id is left untouched.
func (s *Service) Ensure(ctx context.Context, id string) (*Learner, error) {
	if id == "" {
		id = uuid.New().String()
	}

	canonical, ok := canonicalID(id)
	if !ok {
		return nil, fmt.Errorf("ensure learner %q: %w", id, core.ErrInvalidInput)
	}

	if err := s.repo.Ensure(ctx, canonical, s.clock.Now()); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, canonical)
}

func (s *Service) Get(ctx context.Context, id string) (*Learner, error) {
	canonical, ok := canonicalID(id)
	if !ok {
		return nil, fmt.Errorf("get learner: %w", core.ErrNotFound)
	}
	return s.repo.GetByID(ctx, canonical)
}

// RecordActivity returns the learner's new cumulative query count, or zero
// when the learner does not exist.
func (s *Service) RecordActivity(ctx context.Context, id string) (int, error) {
	canonical, ok := canonicalID(id)
	if !ok {
		return 0, nil
	}
	return s.repo.RecordActivity(ctx, canonical, s.clock.Now())
}

func (s *Service) UpdateProfile(
	ctx context.Context,
	id string,
	req UpdateProfileRequest,
) (*Learner, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	language := current.Language
	if req.Language != nil {
		language = strings.ToLower(*req.Language)
	}

	goals := current.Goals
	if req.Goals != nil {
		goals = Goals(req.Goals).Normalize()
	}

	if err := s.repo.UpdateProfile(ctx, current.ID, language, goals); err != nil {
		return nil, err
	}

	current.Language = language
	current.Goals = goals
	return current, nil
}

// SetPremium marks the learner premium until expiresAt; nil means no end.
// Unknown learners are ignored.
func (s *Service) SetPremium(
	ctx context.Context,
	id string,
	expiresAt *time.Time,
) error {
	canonical, ok := canonicalID(id)
	if !ok {
		return nil
	}
	return s.repo.SetPremium(ctx, canonical, expiresAt)
}

func (s *Service) ClearPremium(ctx context.Context, id string) error {
	canonical, ok := canonicalID(id)
	if !ok {
		return nil
	}
	return s.repo.ClearPremium(ctx, canonical)
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	now := s.clock.Now()
	dayStart, _ := core.DayBounds(now)
	return s.repo.Stats(ctx, now, dayStart)
}

func (s *Service) EnsureAccount(
	ctx context.Context,
	id string,
) (*auth.LearnerInfo, error) {
	l, err := s.Ensure(ctx, id)
	if err != nil {
		return nil, err
	}
	return toLearnerInfo(l), nil
}

func (s *Service) AccountByID(
	ctx context.Context,
	id string,
) (*auth.LearnerInfo, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toLearnerInfo(l), nil
}

func (s *Service) AccountByEmail(
	ctx context.Context,
	email string,
) (*auth.LearnerInfo, error) {
	l, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	return toLearnerInfo(l), nil
}

// ClaimAccount attaches credentials to a guest learner. A learner can be
// claimed once; the email must be unused.
func (s *Service) ClaimAccount(
	ctx context.Context,
	id, email, passwordHash string,
) (*auth.LearnerInfo, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if l.IsClaimed() {
		return nil, fmt.Errorf("claim account: %w", core.ErrForbidden)
	}

	email = strings.ToLower(email)
	if err := s.repo.SetCredentials(ctx, l.ID, email, passwordHash); err != nil {
		return nil, err
	}

	l.Email = &email
	l.PasswordHash = &passwordHash
	return toLearnerInfo(l), nil
}

func toLearnerInfo(l *Learner) *auth.LearnerInfo {
	info := &auth.LearnerInfo{ID: l.ID}
	if l.Email != nil {
		info.Email = *l.Email
	}
	if l.PasswordHash != nil {
		info.PasswordHash = *l.PasswordHash
	}
	return info
}

var _ auth.LearnerProvider = (*Service)(nil)
