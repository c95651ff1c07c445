package gossip

import (
	"errors"
	"time"

	"github.com/anthanhphan/gosdk/logger"
)

// ErrNilSendHook is returned by New when constructed without a send hook.
var ErrNilSendHook = errors.New("gossip: send hook cannot be nil")

// SendFunc is the send hook contract: called synchronously, must not
// panic, and failures to deliver are silent to the engine.
type SendFunc func(msg Message, target NodeView)

// Config is the engine's configuration surface. Zero values are replaced
// by the documented defaults in New.
type Config struct {
	// HeartbeatInterval is advisory only: the engine never sleeps, the
	// driver decides when to call Tick. Default 100ms.
	HeartbeatInterval time.Duration
	// FailureTimeout is the silence duration before a peer becomes
	// suspect, and the duration between suspicion escalations. Default
	// 2000ms.
	FailureTimeout time.Duration
	// GossipFanout is the number of peers probed per tick. Default 3.
	GossipFanout int
	// PiggybackSize is the number of extra views attached to each probe.
	// Default 2.
	PiggybackSize int
	// SuspicionThreshold is the number of escalations tolerated before a
	// suspect peer is declared failed. Default 3.
	SuspicionThreshold int
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 100 * time.Millisecond
	}
	if c.FailureTimeout <= 0 {
		c.FailureTimeout = DefaultFailureTimeout
	}
	if c.GossipFanout <= 0 {
		c.GossipFanout = 3
	}
	if c.PiggybackSize <= 0 {
		c.PiggybackSize = 2
	}
	if c.SuspicionThreshold <= 0 {
		c.SuspicionThreshold = DefaultSuspicionThreshold
	}
	return c
}

// Engine holds the self view and owns the table, merge resolver,
// sampler, failure detector, message builder/handler, and event emitter.
// All mutation happens on whatever single thread calls Tick or
// HandleMessage; the engine itself holds no locks beyond the table's.
type Engine struct {
	self NodeView

	table    *Table
	sampler  *sampler
	detector *failureDetector
	config   Config

	sendFn SendFunc
	events EventSink
	clock  Clock

	stats counters
}

// New constructs an engine for self. sendFn must not be nil. opts may
// override the Clock, EventSink, and Config; both default to production
// values (SystemClock, a no-op sink, Config{}.withDefaults()).
func New(self NodeView, sendFn SendFunc, opts ...Option) (*Engine, error) {
	if sendFn == nil {
		return nil, ErrNilSendHook
	}

	e := &Engine{
		sendFn: sendFn,
		events: noopEventSink{},
		clock:  SystemClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.config = e.config.withDefaults()

	now := e.clock.Now()
	self.Status = StatusOnline
	self.SeenTime = now
	e.self = self

	e.table = NewTable()
	e.sampler = newSampler(e.table, self.ID, now)
	e.detector = newFailureDetector(e.config.FailureTimeout, e.config.SuspicionThreshold)

	return e, nil
}

// Option configures an Engine at construction time.
type Option func(*Engine)

func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

func WithEventSink(s EventSink) Option {
	return func(e *Engine) {
		if s != nil {
			e.events = s
		}
	}
}

func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// Self returns a snapshot of the engine's own view.
func (e *Engine) Self() NodeView { return e.self.Clone() }

// Find returns the stored view for id; self is resolved specially
// (spec's find_node returns self_ when id == self.id).
func (e *Engine) Find(id NodeID) (NodeView, bool) {
	if id == e.self.ID {
		return e.self.Clone(), true
	}
	return e.table.Find(id)
}

// Snapshot returns a copy of every known peer view, excluding self.
func (e *Engine) Snapshot() []NodeView { return e.table.Snapshot() }

// Size returns the number of known peers, excluding self.
func (e *Engine) Size() int { return e.table.Size() }

// Stats returns a point-in-time copy of the engine's counters.
func (e *Engine) Stats() Stats {
	return Stats{
		KnownNodes:       e.table.Size(),
		SentMessages:     e.stats.sentMessages.Load(),
		ReceivedMessages: e.stats.receivedMessages.Load(),
		LastTickDuration: time.Duration(e.stats.lastTickDuration.Load()),
	}
}

// Tick drives one gossip cycle: stamp self's seen time, probe up to
// GossipFanout random peers, advance self's heartbeat, then run the
// failure detector. Ordering within a tick is significant:
// probes are dispatched strictly before the heartbeat increments and
// before the failure-detector pass.
func (e *Engine) Tick() {
	start := e.clock.Now()
	e.self.SeenTime = start

	targets := e.sampler.sample(e.config.GossipFanout, e.self.ID)
	for _, target := range targets {
		extras := e.sampler.sample(e.config.PiggybackSize, target.ID)
		msg := buildProbe(MessagePing, e.selfView(), extras)
		e.dispatch(msg, target)
	}

	e.self.Heartbeat++
	e.self.Version++

	e.detector.sweep(e.table, start, e.eventSink())

	e.stats.lastTickDuration.Store(int64(e.clock.Now().Sub(start)))
}

// TickFullBroadcast performs the probe step against every online peer
// instead of a random subset, for rapid dissemination of a configuration
// change; otherwise identical to Tick.
func (e *Engine) TickFullBroadcast() {
	start := e.clock.Now()
	e.self.SeenTime = start

	for _, node := range e.table.Snapshot() {
		if node.Status != StatusOnline {
			continue
		}
		extras := e.sampler.sample(e.config.PiggybackSize, node.ID)
		msg := buildProbe(MessagePing, e.selfView(), extras)
		e.dispatch(msg, node)
	}

	e.self.Heartbeat++
	e.self.Version++

	e.detector.sweep(e.table, start, e.eventSink())

	e.stats.lastTickDuration.Store(int64(e.clock.Now().Sub(start)))
}

// HandleMessage applies an incoming message to the table at recvTime,
// possibly producing a reply via the send hook, and notifying the event
// sink of any observed status transitions. Thread-unsafe: the caller
// must guarantee single-threaded calls, same as Tick.
func (e *Engine) HandleMessage(msg Message, recvTime time.Time) {
	e.handleMessage(msg, recvTime)
}

// Meet introduces node: if it is not self and not already known, it is
// inserted as joining, then a meet message carrying only self is sent to
// it. Self-referential calls are silently ignored.
func (e *Engine) Meet(node NodeView) { e.introduce(node, MessageMeet) }

// Join behaves like Meet but emits a join-typed message, a hint to the
// peer that the sender is new.
func (e *Engine) Join(node NodeView) { e.introduce(node, MessageJoin) }

func (e *Engine) introduce(node NodeView, typ MessageType) {
	if node.ID == e.self.ID {
		return
	}

	if _, found := e.table.Find(node.ID); !found {
		nv := node
		nv.Status = StatusJoining
		nv.SeenTime = e.clock.Now()
		e.table.Put(nv)
		e.emit(nv, StatusUnknown)
	}

	msg := buildMeetOrJoin(typ, e.selfView())
	e.dispatch(msg, node)
}

// Leave emits leave messages (carrying the leaving view) to every peer
// currently online except id itself, then sets the leaving peer's local
// status to failed and notifies.
//
// id == self's own identity is the self-initiated case: the departing
// view carried is self's own current view, broadcast to every online
// peer. Self is never stored in the table, so there is no local status
// to update; only the peer-side views change once they apply the
// message.
//
// Otherwise id must be a known peer; if it is not in the table this is a
// no-op.
func (e *Engine) Leave(id NodeID) {
	if id == e.self.ID {
		msg := buildLeave(e.selfView(), e.selfView())
		for _, node := range e.table.Snapshot() {
			if node.Status == StatusOnline {
				e.dispatch(msg, node)
			}
		}
		return
	}

	departing, found := e.table.Find(id)
	if !found {
		return
	}

	msg := buildLeave(e.selfView(), departing)
	for _, node := range e.table.Snapshot() {
		if node.Status == StatusOnline && node.ID != id {
			e.dispatch(msg, node)
		}
	}

	old := departing.Status
	departing.Status = StatusFailed
	e.table.Put(departing)
	e.emit(departing, old)
}

// CleanupExpired removes every peer whose status is not online and whose
// seen time is older than timeout, without notification.
func (e *Engine) CleanupExpired(timeout time.Duration) {
	now := e.clock.Now()
	e.table.RemoveWhere(func(v NodeView) bool {
		return v.Status != StatusOnline && now.Sub(v.SeenTime) > timeout
	})
}

// Reset drops all peers and resets self's heartbeat to 1 and version to
// 0.
func (e *Engine) Reset() {
	e.table.Clear()
	e.self.Heartbeat = 1
	e.self.Version = 0
	e.self.SeenTime = e.clock.Now()
	e.stats.sentMessages.Store(0)
	e.stats.receivedMessages.Store(0)
}

func (e *Engine) selfView() NodeView { return e.self }

func (e *Engine) eventSink() EventSink { return e.events }

func (e *Engine) emit(current NodeView, previous Status) {
	if current.Status == previous {
		return
	}
	e.events.OnTransition(current.Clone(), previous)
}

func (e *Engine) dispatch(msg Message, target NodeView) {
	logger.Debugw("gossip: dispatching message", "type", msg.Type.String(), "target", target.ID.String())
	e.sendFn(msg, target)
	e.stats.sentMessages.Add(1)
}
