// AngelaMos | 2026
// activator.go

package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

type PremiumGranter interface {
	SetPremium(ctx context.Context, learnerID string, expiresAt *time.Time) error
}

type Confirmation struct {
	TransactionID string
	Success       bool
	// Reference is the provider's receipt, kept for logs only.
	Reference string
	Provider  Provider
	// Paid is what the provider reports it collected; nil when the
	// notification carries no amount.
	Paid *Money
}

type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeActivated
	OutcomeDeclined
)

func (o Outcome) String() string {
	switch o {
	case OutcomeActivated:
		return "activated"
	case OutcomeDeclined:
		return "declined"
	default:
		return "unknown"
	}
}

type Activator struct {
	store   Repository
	premium PremiumGranter
	period  time.Duration
	clock   core.Clock
}

func NewActivator(
	store Repository,
	premium PremiumGranter,
	period time.Duration,
	clock core.Clock,
) *Activator {
	return &Activator{
		store:   store,
		premium: premium,
		period:  period,
		clock:   clock,
	}
}

// Confirm settles a provider confirmation against its pending payment. The
// pending record is consumed first, so any number of deliveries for the same
// transaction activate premium at most once. Confirmations for unknown or
// already settled transactions are logged and ignored.
func (a *Activator) Confirm(ctx context.Context, c Confirmation) (Outcome, error) {
	ctx, span := core.StartSpan(ctx, "payment.confirm",
		attribute.String("transaction_id", c.TransactionID),
		attribute.String("provider", string(c.Provider)),
		attribute.Bool("success", c.Success),
	)
	defer span.End()

	pending, err := a.store.Take(ctx, c.TransactionID)
	if errors.Is(err, core.ErrNotFound) {
		slog.Info("confirmation for unknown transaction ignored",
			"transaction_id", c.TransactionID,
			"provider", c.Provider,
		)
		return OutcomeUnknown, nil
	}
	if err != nil {
		core.SetSpanError(ctx, err)
		return OutcomeUnknown, fmt.Errorf("confirm payment: %w", err)
	}

	if !c.Success {
		slog.Info("payment declined",
			"transaction_id", c.TransactionID,
			"learner_id", pending.LearnerID,
		)
		return OutcomeDeclined, nil
	}

	if c.Paid != nil && !c.Paid.Equal(pending.Price()) {
		core.AddSpanEvent(ctx, "payment.amount_mismatch",
			attribute.Int64("expected", pending.Amount),
			attribute.Int64("paid", c.Paid.Amount),
		)
		slog.Warn("payment amount mismatch, declining",
			"transaction_id", c.TransactionID,
			"learner_id", pending.LearnerID,
			"expected_amount", pending.Amount,
			"expected_currency", pending.Currency,
			"paid_amount", c.Paid.Amount,
			"paid_currency", c.Paid.Currency,
		)
		return OutcomeDeclined, nil
	}

	expiresAt := a.clock.Now().Add(a.period)
	if err := a.premium.SetPremium(ctx, pending.LearnerID, &expiresAt); err != nil {
		core.SetSpanError(ctx, err)
		if _, putErr := a.store.Put(ctx, *pending); putErr != nil {
			slog.Error("failed to restore pending payment",
				"transaction_id", c.TransactionID,
				"error", putErr,
			)
		}
		return OutcomeUnknown, fmt.Errorf("activate premium: %w", err)
	}

	core.AddSpanEvent(ctx, "premium.activated",
		attribute.String("learner_id", pending.LearnerID),
		attribute.String("expires_at", expiresAt.Format(time.RFC3339)),
	)
	slog.Info("premium activated",
		"learner_id", pending.LearnerID,
		"transaction_id", c.TransactionID,
		"reference", c.Reference,
		"expires_at", expiresAt,
	)

	return OutcomeActivated, nil
}
