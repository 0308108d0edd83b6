// AngelaMos | 2026
// service.go

package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/carterperez-dev/templates/tutor-backend/internal/config"
	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

type Service struct {
	repo       Repository
	activator  *Activator
	prices     map[Provider]Money
	pendingTTL time.Duration
	clock      core.Clock
}

func NewService(
	repo Repository,
	activator *Activator,
	premium config.PremiumConfig,
	payments config.PaymentsConfig,
	clock core.Clock,
) *Service {
	return &Service{
		repo:       repo,
		activator:  activator,
		prices: map[Provider]Money{
			ProviderCard: {
				Amount:   premium.Amount,
				Currency: strings.ToLower(premium.Currency),
			},
			ProviderMobileMoney: {
				Amount:   premium.MobileMoneyAmount,
				Currency: strings.ToLower(premium.MobileMoneyCurrency),
			},
		},
		pendingTTL: payments.PendingTTL,
		clock:      clock,
	}
}

// Initiate records the provider transaction the learner just started so a
// later confirmation can be matched back to them.
func (s *Service) Initiate(
	ctx context.Context,
	learnerID string,
	req InitiateRequest,
) (*PaymentResponse, error) {
	provider := Provider(req.Provider)
	price, ok := s.prices[provider]
	if !ok {
		return nil, fmt.Errorf("provider %q: %w", req.Provider, core.ErrInvalidInput)
	}

	p := PendingPayment{
		ID:        req.TransactionID,
		LearnerID: learnerID,
		Amount:    price.Amount,
		Currency:  price.Currency,
		Provider:  provider,
		CreatedAt: s.clock.Now(),
	}

	ok, err := s.repo.Put(ctx, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.ErrNotFound
	}

	return toPaymentResponse(p), nil
}

// Cancel abandons a payment the learner started. A confirmation that arrives
// afterwards finds nothing pending and is ignored.
func (s *Service) Cancel(ctx context.Context, learnerID, transactionID string) error {
	ok, err := s.repo.Drop(ctx, transactionID, learnerID)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrNotFound
	}

	slog.Info("pending payment cancelled",
		"learner_id", learnerID,
		"transaction_id", transactionID,
	)
	return nil
}

func (s *Service) Confirm(ctx context.Context, c Confirmation) (Outcome, error) {
	return s.activator.Confirm(ctx, c)
}

// PurgeStale drops pending payments older than the configured TTL.
func (s *Service) PurgeStale(ctx context.Context) (int64, error) {
	return s.repo.PurgeOlderThan(ctx, s.clock.Now().Add(-s.pendingTTL))
}

func (s *Service) CountPending(ctx context.Context) (int, error) {
	return s.repo.CountPending(ctx)
}
