// AngelaMos | 2026
// engine.go

package streak

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

// State is the persisted streak of one learner. LastDate is a civil date
// (see core.CivilDate) and is nil until the first tracked day.
type State struct {
	Length   int
	LastDate *time.Time
}

// Advance applies one day of activity at today. The bool is false when the
// state is unchanged and nothing needs to be written.
//
// A last date in the future is not today and not yesterday, so it resets.
func Advance(s State, today time.Time) (State, bool) {
	day := core.CivilDate(today)

	if s.LastDate == nil {
		return State{Length: 1, LastDate: &day}, true
	}

	last := core.CivilDate(*s.LastDate)
	switch {
	case last.Equal(day):
		return s, false
	case last.Equal(day.AddDate(0, 0, -1)):
		return State{Length: s.Length + 1, LastDate: &day}, true
	default:
		return State{Length: 1, LastDate: &day}, true
	}
}

// Store runs fn against the current state while holding the learner's row,
// persisting the result when fn reports a change.
type Store interface {
	UpdateStreak(
		ctx context.Context,
		learnerID string,
		fn func(State) (State, bool),
	) (State, error)
}

type Engine struct {
	store Store
	clock core.Clock
}

func NewEngine(store Store, clock core.Clock) *Engine {
	return &Engine{store: store, clock: clock}
}

// Touch records activity for today and returns the resulting streak length.
// Unknown learners are a no-op reported as a zero streak.
func (e *Engine) Touch(ctx context.Context, learnerID string) (int, error) {
	today := e.clock.Now()

	state, err := e.store.UpdateStreak(ctx, learnerID, func(s State) (State, bool) {
		return Advance(s, today)
	})
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			slog.Debug("streak touch for unknown learner", "learner_id", learnerID)
			return 0, nil
		}
		return 0, fmt.Errorf("touch streak: %w", err)
	}

	return state.Length, nil
}
