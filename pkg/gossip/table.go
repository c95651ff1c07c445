package gossip

import (
	"sync"
	"time"
)

// Table is the set of peer views known to one engine instance, keyed by
// identity, always excluding the engine's own identity.
type Table struct {
	mu    sync.RWMutex
	peers map[NodeID]NodeView
}

// NewTable returns an empty membership table.
func NewTable() *Table {
	return &Table{peers: make(map[NodeID]NodeView)}
}

// InsertOrMerge inserts view if absent (rewriting StatusUnknown to
// StatusJoining), or otherwise applies the merge resolver against the
// resident view. It returns the resident view after the operation and
// whether an observable status transition occurred, so the caller (the
// message handler or facade) can notify the event sink.
func (t *Table) InsertOrMerge(view NodeView, seenTime time.Time) (resident NodeView, oldStatus Status, changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing, ok := t.peers[view.ID]
	if !ok {
		nv := view
		if nv.Status == StatusUnknown {
			nv.Status = StatusJoining
		}
		nv.SeenTime = seenTime
		t.peers[nv.ID] = nv
		return nv, StatusUnknown, nv.Status != StatusUnknown
	}

	oldStatus = existing.Status
	if !Supersedes(view, existing) {
		return existing, oldStatus, false
	}

	nv := view
	nv.SeenTime = seenTime
	if nv.Status == StatusUnknown {
		nv.Status = StatusJoining
	}
	t.peers[nv.ID] = nv
	return nv, oldStatus, nv.Status != oldStatus
}

// Put stores view verbatim, used by the facade/handler once they have
// already decided on the final resident value (e.g. after mutating
// heartbeat/suspicion fields in place).
func (t *Table) Put(view NodeView) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[view.ID] = view
}

// Find returns the stored view for id, if any.
func (t *Table) Find(id NodeID) (NodeView, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.peers[id]
	return v, ok
}

// Snapshot returns a copy of every stored view. Iteration order is
// unspecified but stable within the call.
func (t *Table) Snapshot() []NodeView {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]NodeView, 0, len(t.peers))
	for _, v := range t.peers {
		out = append(out, v.Clone())
	}
	return out
}

// RemoveWhere deletes every view matching predicate, without notifying
// any event sink.
func (t *Table) RemoveWhere(predicate func(NodeView) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, v := range t.peers {
		if predicate(v) {
			delete(t.peers, id)
		}
	}
}

// Delete removes a single peer unconditionally.
func (t *Table) Delete(id NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, id)
}

// Clear removes every peer.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers = make(map[NodeID]NodeView)
}

// Size returns the number of stored peers.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}
