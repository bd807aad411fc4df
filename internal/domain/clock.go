package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

var clock clockwork.Clock = clockwork.NewRealClock()

// SetClock replaces the clock that stamps ProcessedAt on cluster events.
// Tests install a fake and reset with nil.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}

func processedAt() time.Time {
	return clock.Now().UTC()
}
