// AngelaMos | 2026
// policy.go

package quota

import (
	"time"
)

type Kind string

const (
	KindQuestion  Kind = "question"
	KindPDFUpload Kind = "pdf_upload"
)

type Limits struct {
	QuestionsPerDay int
	UploadsPerDay   int
}

// Account is the part of a learner the policy needs. Premium is evaluated
// against the time passed to Allow, not the time it was stored.
type Account interface {
	IsPremiumActive(now time.Time) bool
}

type Policy struct {
	limits Limits
}

func NewPolicy(limits Limits) *Policy {
	return &Policy{limits: limits}
}

// Limit returns the free-tier ceiling for kind and whether kind is metered.
func (p *Policy) Limit(kind Kind) (int, bool) {
	switch kind {
	case KindQuestion:
		return p.limits.QuestionsPerDay, true
	case KindPDFUpload:
		return p.limits.UploadsPerDay, true
	default:
		return 0, false
	}
}

// Allow decides whether account may perform one more kind action today,
// given todayCount actions already recorded.
func (p *Policy) Allow(account Account, kind Kind, todayCount int, now time.Time) bool {
	if account != nil && account.IsPremiumActive(now) {
		return true
	}

	limit, ok := p.Limit(kind)
	if !ok {
		return false
	}

	return todayCount < limit
}

// Remaining is the number of kind actions left today, or -1 when unlimited.
func (p *Policy) Remaining(account Account, kind Kind, todayCount int, now time.Time) int {
	if account != nil && account.IsPremiumActive(now) {
		return -1
	}

	limit, ok := p.Limit(kind)
	if !ok {
		return 0
	}

	return max(limit-todayCount, 0)
}
