// AngelaMos | 2026
// entity.go

package payment

import (
	"strings"
	"time"
)

type Provider string

const (
	ProviderCard        Provider = "card"
	ProviderMobileMoney Provider = "mobile_money"
)

// PendingPayment links a provider transaction to the learner who started it.
// It lives until the provider confirms or an admin purge removes it.
type PendingPayment struct {
	ID        string    `db:"id"`
	LearnerID string    `db:"learner_id"`
	Amount    int64     `db:"amount"`
	Currency  string    `db:"currency"`
	Provider  Provider  `db:"provider"`
	CreatedAt time.Time `db:"created_at"`
}

// Money is an amount in minor units of a lower-case ISO currency.
type Money struct {
	Amount   int64
	Currency string
}

func (p PendingPayment) Price() Money {
	return Money{Amount: p.Amount, Currency: p.Currency}
}

func (m Money) Equal(o Money) bool {
	return m.Amount == o.Amount && strings.EqualFold(m.Currency, o.Currency)
}
