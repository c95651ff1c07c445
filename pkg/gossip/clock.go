package gossip

import "time"

// Clock abstracts the time source the engine's tick loop and failure
// detector read from. The production implementation is SystemClock; tests
// substitute a manual one to drive the suspicion timer deterministically,
// the same Clock/SystemClock split pkg/idgen uses for Snowflake IDs.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the local monotonic clock via time.Now, which in Go
// already carries a monotonic reading alongside the wall-clock one.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
