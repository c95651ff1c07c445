package gossip

import (
	"testing"
	"time"
)

type recordedTransition struct {
	view     NodeView
	previous Status
}

type spySink struct {
	transitions []recordedTransition
}

func (s *spySink) OnTransition(current NodeView, previous Status) {
	s.transitions = append(s.transitions, recordedTransition{view: current, previous: previous})
}

func TestFailureDetector_SuspicionEscalationScenario(t *testing.T) {
	// B stops responding at t0; at t0+2000ms B -> suspect (count=1);
	// t0+4000ms count=2; t0+6000ms count=3; t0+8000ms count=4>3 -> failed.
	table := NewTable()
	t0 := time.Now()
	table.InsertOrMerge(NodeView{ID: idFor(2), Status: StatusOnline, SeenTime: t0}, t0)

	fd := newFailureDetector(DefaultFailureTimeout, DefaultSuspicionThreshold)
	sink := &spySink{}

	fd.sweep(table, t0.Add(2000*time.Millisecond), sink)
	b, _ := table.Find(idFor(2))
	if b.Status != StatusSuspect || b.SuspicionCount != 1 {
		t.Fatalf("expected suspect/1 at t0+2000ms, got %v/%d", b.Status, b.SuspicionCount)
	}
	if len(sink.transitions) != 1 {
		t.Fatalf("expected exactly one event at t0+2000ms, got %d", len(sink.transitions))
	}

	fd.sweep(table, t0.Add(4000*time.Millisecond), sink)
	b, _ = table.Find(idFor(2))
	if b.Status != StatusSuspect || b.SuspicionCount != 2 {
		t.Fatalf("expected suspect/2 at t0+4000ms, got %v/%d", b.Status, b.SuspicionCount)
	}

	fd.sweep(table, t0.Add(6000*time.Millisecond), sink)
	b, _ = table.Find(idFor(2))
	if b.Status != StatusSuspect || b.SuspicionCount != 3 {
		t.Fatalf("expected suspect/3 at t0+6000ms, got %v/%d", b.Status, b.SuspicionCount)
	}

	fd.sweep(table, t0.Add(8000*time.Millisecond), sink)
	b, _ = table.Find(idFor(2))
	if b.Status != StatusFailed || b.SuspicionCount != 4 {
		t.Fatalf("expected failed/4 at t0+8000ms, got %v/%d", b.Status, b.SuspicionCount)
	}
	if len(sink.transitions) != 2 {
		t.Fatalf("expected a second event on the failed transition, got %d", len(sink.transitions))
	}
	last := sink.transitions[len(sink.transitions)-1]
	if last.previous != StatusSuspect || last.view.Status != StatusFailed {
		t.Fatalf("expected suspect->failed transition, got %v->%v", last.previous, last.view.Status)
	}
}

func TestFailureDetector_NoEventsBeforeFailureTimeout(t *testing.T) {
	table := NewTable()
	now := time.Now()
	table.InsertOrMerge(NodeView{ID: idFor(1), Status: StatusOnline, SeenTime: now}, now)

	fd := newFailureDetector(DefaultFailureTimeout, DefaultSuspicionThreshold)
	sink := &spySink{}

	fd.sweep(table, now.Add(time.Millisecond), sink)
	if len(sink.transitions) != 0 {
		t.Fatalf("expected no events before failure timeout elapses, got %d", len(sink.transitions))
	}
}

func TestFailureDetector_FailedIsTerminalUntilSupersedingView(t *testing.T) {
	table := NewTable()
	now := time.Now()
	table.InsertOrMerge(NodeView{ID: idFor(2), Status: StatusFailed, ConfigEpoch: 1, Heartbeat: 50, SeenTime: now}, now)

	fd := newFailureDetector(DefaultFailureTimeout, DefaultSuspicionThreshold)
	sink := &spySink{}
	fd.sweep(table, now.Add(time.Hour), sink)

	b, _ := table.Find(idFor(2))
	if b.Status != StatusFailed {
		t.Fatalf("expected failed to remain terminal under the detector alone, got %v", b.Status)
	}
	if len(sink.transitions) != 0 {
		t.Fatalf("expected no events from a terminal failed peer, got %d", len(sink.transitions))
	}

	// Recovery via higher epoch.
	resident, old, changed := table.InsertOrMerge(NodeView{ID: idFor(2), ConfigEpoch: 2, Heartbeat: 0, Status: StatusOnline}, now.Add(time.Hour))
	if !changed || old != StatusFailed || resident.Status != StatusOnline {
		t.Fatalf("expected higher epoch to recover the peer to online, got changed=%v old=%v new=%v", changed, old, resident.Status)
	}
}
