package gossip

import "time"

// handleMessage runs the locate/update/absorb/reply pipeline for one
// inbound message. It is a method on Engine, defined here rather than in
// engine.go, because it needs the engine's self view, sampler, and send
// hook to build a reply.
func (e *Engine) handleMessage(msg Message, now time.Time) {
	e.stats.receivedMessages.Add(1)

	sender, found := e.table.Find(msg.Sender)
	if !found {
		if msg.Type == MessageMeet || msg.Type == MessageJoin {
			for _, entry := range msg.Entries {
				if entry.ID == msg.Sender {
					// A bootstrapped sender enters as joining; the update
					// step below promotes it to online.
					boot := entry
					boot.Status = StatusJoining
					resident, old, changed := e.table.InsertOrMerge(boot, now)
					sender, found = resident, true
					if changed {
						e.emit(resident, old)
					}
					break
				}
			}
		}
	}

	if !found {
		// Unresolvable sender on a non-bootstrap message type is dropped
		// silently.
		return
	}

	oldStatus := sender.Status
	if msg.Timestamp > sender.Heartbeat {
		sender.Heartbeat = msg.Timestamp
	}
	sender.SeenTime = now
	sender.Version++

	if sender.Status == StatusSuspect {
		sender.SuspicionCount = 0
	}

	if sender.Status == StatusJoining {
		sender.Status = StatusOnline
	}

	if msg.Type == MessageLeave && sender.Status != StatusFailed {
		sender.Status = StatusFailed
	}

	e.table.Put(sender)
	if sender.Status != oldStatus {
		e.emit(sender, oldStatus)
	}

	for _, remote := range msg.Entries {
		if remote.ID == e.self.ID {
			// Entries referencing the engine's own identity are skipped
			// without consulting Supersedes: self is never stored in the
			// table, and only the engine itself advances its self view.
			continue
		}
		resident, old, changed := e.table.InsertOrMerge(remote, now)
		if changed {
			e.emit(resident, old)
		}
	}

	if msg.Type == MessagePing || msg.Type == MessageMeet || msg.Type == MessageJoin {
		extras := e.sampler.sample(e.config.PiggybackSize, msg.Sender)
		pong := buildProbe(MessagePong, e.selfView(), extras)
		e.dispatch(pong, sender)
	}
}
