package gossip

import "time"

// manualClock is a test double for Clock, advanced explicitly by tests
// that need deterministic control over the failure detector's elapsed
// time.
type manualClock struct {
	now time.Time
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{now: start}
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
