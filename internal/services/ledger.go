package services

import (
	"math"
	"time"
)

// entryLedger holds the entrants of the current round in arrival order.
// The same participant may occupy several slots.
type entryLedger struct {
	entrants []string
	pooled   uint64
}

func (l *entryLedger) add(participant string, stake uint64) (int, error) {
	if stake > math.MaxUint64-l.pooled {
		return 0, ErrStakeOverflow
	}
	l.entrants = append(l.entrants, participant)
	l.pooled += stake
	return len(l.entrants) - 1, nil
}

func (l *entryLedger) size() int {
	return len(l.entrants)
}

func (l *entryLedger) reset() {
	l.entrants = make([]string, 0)
	l.pooled = 0
}

type roundClock struct {
	startedAt time.Time
	interval  time.Duration
}

func (c roundClock) intervalElapsed(now time.Time) bool {
	return now.Sub(c.startedAt) >= c.interval
}

func (c *roundClock) restart(now time.Time) {
	c.startedAt = now
}
