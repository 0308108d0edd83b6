// AngelaMos | 2026
// awarder.go

package badge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

const quizAceRatio = 0.9

// Facts is the snapshot a single evaluation runs against.
type Facts struct {
	Streak     int
	FirstQuery bool
	QuizRatio  *float64
	PDFUploads int
	Languages  int
}

type Thresholds struct {
	PDFExplorerUploads int
	PolyglotLanguages  int
}

func (t Thresholds) withDefaults() Thresholds {
	if t.PDFExplorerUploads <= 0 {
		t.PDFExplorerUploads = 5
	}
	if t.PolyglotLanguages <= 0 {
		t.PolyglotLanguages = 2
	}
	return t
}

type rule struct {
	id    ID
	match func(Facts, Thresholds) bool
}

var rules = [...]rule{
	{FirstQuestion, func(f Facts, _ Thresholds) bool { return f.FirstQuery }},
	{Streak3, func(f Facts, _ Thresholds) bool { return f.Streak == 3 }},
	{Streak7, func(f Facts, _ Thresholds) bool { return f.Streak == 7 }},
	{Streak30, func(f Facts, _ Thresholds) bool { return f.Streak == 30 }},
	{QuizAce, func(f Facts, _ Thresholds) bool {
		return f.QuizRatio != nil && *f.QuizRatio >= quizAceRatio
	}},
	{PDFExplorer, func(f Facts, t Thresholds) bool { return f.PDFUploads >= t.PDFExplorerUploads }},
	{Polyglot, func(f Facts, t Thresholds) bool { return f.Languages >= t.PolyglotLanguages }},
}

// Evaluate returns every badge whose rule matches, in catalog order.
func Evaluate(f Facts, t Thresholds) []ID {
	t = t.withDefaults()

	var out []ID
	for _, r := range rules {
		if r.match(f, t) {
			out = append(out, r.id)
		}
	}
	return out
}

// Store unions badges into a learner's set and returns the ones that were
// not already present. Unknown learners yield an empty result.
type Store interface {
	AddBadges(
		ctx context.Context,
		learnerID string,
		badges []string,
		at time.Time,
	) ([]string, error)
}

type Awarder struct {
	store      Store
	thresholds Thresholds
	clock      core.Clock
}

func NewAwarder(store Store, thresholds Thresholds, clock core.Clock) *Awarder {
	return &Awarder{
		store:      store,
		thresholds: thresholds.withDefaults(),
		clock:      clock,
	}
}

func (a *Awarder) EvaluateAndAward(
	ctx context.Context,
	learnerID string,
	facts Facts,
) ([]ID, error) {
	matched := Evaluate(facts, a.thresholds)
	if len(matched) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matched))
	for i, id := range matched {
		ids[i] = string(id)
	}

	added, err := a.store.AddBadges(ctx, learnerID, ids, a.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("award badges: %w", err)
	}

	awarded := make([]ID, 0, len(added))
	for _, id := range added {
		awarded = append(awarded, ID(id))
		core.AddSpanEvent(ctx, "badge.awarded",
			attribute.String("learner_id", learnerID),
			attribute.String("badge", id),
		)
	}

	if len(awarded) > 0 {
		slog.Info("badges awarded", "learner_id", learnerID, "badges", added)
	}

	return awarded, nil
}
