package gossip

import (
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of the engine's counters.
type Stats struct {
	KnownNodes       int
	SentMessages     uint64
	ReceivedMessages uint64
	LastTickDuration time.Duration
}

type counters struct {
	sentMessages     atomic.Uint64
	receivedMessages atomic.Uint64
	lastTickDuration atomic.Int64
}
