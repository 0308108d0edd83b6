// AngelaMos | 2026
// tracker.go

package activity

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/tutor-backend/internal/badge"
	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

type ActivityRecorder interface {
	RecordActivity(ctx context.Context, learnerID string) (int, error)
}

type StreakToucher interface {
	Touch(ctx context.Context, learnerID string) (int, error)
}

type BadgeAwarder interface {
	EvaluateAndAward(
		ctx context.Context,
		learnerID string,
		facts badge.Facts,
	) ([]badge.ID, error)
}

// FactSource supplies the cumulative counts badge rules look at.
type FactSource interface {
	CountUploads(ctx context.Context, learnerID string) (int, error)
	CountDistinctLanguages(ctx context.Context, learnerID string) (int, error)
	LatestQuizRatio(ctx context.Context, learnerID string) (*float64, error)
}

type Event int

const (
	EventQuestion Event = iota
	EventQuiz
	EventUpload
	EventProgress
)

func (e Event) String() string {
	switch e {
	case EventQuestion:
		return "question"
	case EventQuiz:
		return "quiz"
	case EventUpload:
		return "upload"
	case EventProgress:
		return "progress"
	default:
		return "unknown"
	}
}

// Outcome is what one tracked action changed in the ledger.
type Outcome struct {
	QueryCount int        `json:"query_count,omitempty"`
	Streak     int        `json:"streak"`
	NewBadges  []badge.ID `json:"new_badges"`
}

type Tracker struct {
	recorder ActivityRecorder
	streaks  StreakToucher
	awarder  BadgeAwarder
	facts    FactSource
}

func NewTracker(
	recorder ActivityRecorder,
	streaks StreakToucher,
	awarder BadgeAwarder,
	facts FactSource,
) *Tracker {
	return &Tracker{
		recorder: recorder,
		streaks:  streaks,
		awarder:  awarder,
		facts:    facts,
	}
}

// Track runs the ledger pipeline for one learner action: count the query
// (questions only), advance the streak, then award whatever the new facts
// qualify for. Each step commits on its own.
func (t *Tracker) Track(
	ctx context.Context,
	learnerID string,
	event Event,
) (Outcome, error) {
	ctx, span := core.StartSpan(ctx, "activity.track",
		attribute.String("learner_id", learnerID),
		attribute.String("event", event.String()),
	)
	defer span.End()

	var out Outcome

	if event == EventQuestion {
		count, err := t.recorder.RecordActivity(ctx, learnerID)
		if err != nil {
			core.SetSpanError(ctx, err)
			return Outcome{}, fmt.Errorf("track %s: %w", event, err)
		}
		out.QueryCount = count
	}

	length, err := t.streaks.Touch(ctx, learnerID)
	if err != nil {
		core.SetSpanError(ctx, err)
		return Outcome{}, fmt.Errorf("track %s: %w", event, err)
	}
	out.Streak = length

	facts, err := t.gather(ctx, learnerID)
	if err != nil {
		core.SetSpanError(ctx, err)
		return Outcome{}, fmt.Errorf("track %s: %w", event, err)
	}
	facts.Streak = length
	facts.FirstQuery = event == EventQuestion && out.QueryCount == 1

	awarded, err := t.awarder.EvaluateAndAward(ctx, learnerID, facts)
	if err != nil {
		core.SetSpanError(ctx, err)
		return Outcome{}, fmt.Errorf("track %s: %w", event, err)
	}
	out.NewBadges = awarded
	if out.NewBadges == nil {
		out.NewBadges = []badge.ID{}
	}

	return out, nil
}

func (t *Tracker) gather(ctx context.Context, learnerID string) (badge.Facts, error) {
	uploads, err := t.facts.CountUploads(ctx, learnerID)
	if err != nil {
		return badge.Facts{}, err
	}

	languages, err := t.facts.CountDistinctLanguages(ctx, learnerID)
	if err != nil {
		return badge.Facts{}, err
	}

	ratio, err := t.facts.LatestQuizRatio(ctx, learnerID)
	if err != nil {
		return badge.Facts{}, err
	}

	return badge.Facts{
		PDFUploads: uploads,
		Languages:  languages,
		QuizRatio:  ratio,
	}, nil
}
