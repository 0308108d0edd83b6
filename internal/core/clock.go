// AngelaMos | 2026
// clock.go

package core

import (
	"time"
)

// Clock is the single source of "now" for day-scoped ledger decisions.
// Calendar days follow the location of the returned time, which for
// SystemClock is the server's local zone.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// DayBounds returns [midnight, next midnight) of the calendar day containing t,
// in t's location.
func DayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// CivilDate strips the clock and zone from t, keeping its calendar date.
// Two CivilDate values compare equal iff they name the same day.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
