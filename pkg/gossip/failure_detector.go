package gossip

import "time"

// DefaultFailureTimeout and DefaultSuspicionThreshold are the default
// tuning values for the failure detector.
const (
	DefaultFailureTimeout    = 2000 * time.Millisecond
	DefaultSuspicionThreshold = 3
)

// failureDetector escalates silent peers through suspect -> failed using
// time elapsed between readings of the engine's Clock. It holds no state of its own; all state lives
// on the NodeView records it mutates in place.
type failureDetector struct {
	failureTimeout    time.Duration
	suspicionThreshold int
}

func newFailureDetector(failureTimeout time.Duration, suspicionThreshold int) *failureDetector {
	if failureTimeout <= 0 {
		failureTimeout = DefaultFailureTimeout
	}
	if suspicionThreshold <= 0 {
		suspicionThreshold = DefaultSuspicionThreshold
	}
	return &failureDetector{
		failureTimeout:    failureTimeout,
		suspicionThreshold: suspicionThreshold,
	}
}

// sweep runs one failure-detection pass over every peer in table at time
// now, mutating and re-storing any peer whose status changes, and
// notifying sink for each observed transition.
func (fd *failureDetector) sweep(table *Table, now time.Time, sink EventSink) {
	for _, node := range table.Snapshot() {
		switch node.Status {
		case StatusOnline:
			if now.Sub(node.SeenTime) >= fd.failureTimeout {
				old := node.Status
				node.Status = StatusSuspect
				node.SuspicionCount++
				node.LastSuspected = now
				table.Put(node)
				sink.OnTransition(node.Clone(), old)
			}
		case StatusSuspect:
			if now.Sub(node.LastSuspected) >= fd.failureTimeout {
				node.SuspicionCount++
				node.LastSuspected = now
				if node.SuspicionCount > fd.suspicionThreshold {
					old := node.Status
					node.Status = StatusFailed
					table.Put(node)
					sink.OnTransition(node.Clone(), old)
				} else {
					table.Put(node)
				}
			}
		}
	}
}
