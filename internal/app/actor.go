package app

import (
	"context"
	"time"

	"github.com/anthanhphan/go-gossip-engine/pkg/gossip"
	"github.com/anthanhphan/go-gossip-engine/pkg/resilience"
)

// engineActor serializes every call into a *gossip.Engine onto a single
// worker goroutine (pkg/resilience's WorkerPool with exactly one
// worker), so Tick, CleanupExpired, Leave, and HandleMessage never run
// concurrently with one another or with the read accessors the HTTP
// surface exposes. The engine documents itself as safe only under
// single-threaded calls; in this daemon, messages arrive from the UDP
// read loop and from fiber's per-request goroutines, and ticks arrive
// from their own ticker goroutine, so something has to fold all three
// onto one lane before they reach the engine.
type engineActor struct {
	engine *gossip.Engine
	pool   *resilience.WorkerPool
}

func newEngineActor(engine *gossip.Engine, queueSize int) *engineActor {
	return &engineActor{
		engine: engine,
		pool:   resilience.NewWorkerPool(1, queueSize),
	}
}

// HandleMessage queues msg for processing on the actor's goroutine and
// returns immediately; it satisfies both gossip.Engine.HandleMessage's
// signature and transport.Engine.
func (a *engineActor) HandleMessage(msg gossip.Message, recvTime time.Time) {
	_ = a.pool.Submit(context.Background(), func() {
		a.engine.HandleMessage(msg, recvTime)
	})
}

// Meet queues a meet introduction on the actor's goroutine.
func (a *engineActor) Meet(node gossip.NodeView) {
	_ = a.pool.Submit(context.Background(), func() {
		a.engine.Meet(node)
	})
}

// Tick queues one gossip cycle on the actor's goroutine.
func (a *engineActor) Tick() {
	_ = a.pool.Submit(context.Background(), a.engine.Tick)
}

// CleanupExpired queues one cleanup pass on the actor's goroutine.
func (a *engineActor) CleanupExpired(timeout time.Duration) {
	_ = a.pool.Submit(context.Background(), func() {
		a.engine.CleanupExpired(timeout)
	})
}

// Leave queues a graceful departure and blocks until it has run, since
// the caller (shutdown) needs it to have taken effect before tearing
// down the transports.
func (a *engineActor) Leave(id gossip.NodeID) {
	done := make(chan struct{})
	err := a.pool.Submit(context.Background(), func() {
		a.engine.Leave(id)
		close(done)
	})
	if err != nil {
		return
	}
	<-done
}

// Self returns a snapshot of the engine's own view, read on the actor's
// goroutine so it never races a concurrent Tick.
func (a *engineActor) Self() gossip.NodeView {
	result := make(chan gossip.NodeView, 1)
	err := a.pool.Submit(context.Background(), func() {
		result <- a.engine.Self()
	})
	if err != nil {
		return gossip.NodeView{}
	}
	return <-result
}

// Snapshot returns every known peer view, read on the actor's goroutine.
func (a *engineActor) Snapshot() []gossip.NodeView {
	result := make(chan []gossip.NodeView, 1)
	err := a.pool.Submit(context.Background(), func() {
		result <- a.engine.Snapshot()
	})
	if err != nil {
		return nil
	}
	return <-result
}

// Stats returns the engine's counters, read on the actor's goroutine.
func (a *engineActor) Stats() gossip.Stats {
	result := make(chan gossip.Stats, 1)
	err := a.pool.Submit(context.Background(), func() {
		result <- a.engine.Stats()
	})
	if err != nil {
		return gossip.Stats{}
	}
	return <-result
}

// Close stops accepting work and waits for the in-flight call to drain.
func (a *engineActor) Close() {
	a.pool.Close()
	a.pool.Wait()
}
