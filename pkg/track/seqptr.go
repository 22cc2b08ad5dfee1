package track

import "github.com/ratchov/midish-sub000/pkg/ev"

// SeqPtr is a live cursor into a Track (§3.5): a current node, the ticks
// elapsed to reach it, and an owned StateList tracking every class
// started before the cursor. A Track must only be structurally mutated
// through an active SeqPtr (§3.5 invariant) — there is no other exported
// way to splice a node.
type SeqPtr struct {
	track  *Track
	cur    *node
	ticks  int64
	states *StateList
}

// TicsLeft returns the number of ticks remaining before the event at the
// cursor (or, at end of track, before the recorded trailing silence) is
// due.
func (p *SeqPtr) TicsLeft() int64 { return p.cur.delta }

// AtEnd reports whether the cursor has reached the NULL sentinel, i.e.
// there are no more events to read (there may still be trailing silence
// to skip).
func (p *SeqPtr) AtEnd() bool { return p.cur.isSentinel() }

// Pos returns the number of ticks elapsed from the start of the track to
// the cursor's current position.
func (p *SeqPtr) Pos() int64 { return p.ticks }

// States returns the cursor's live StateList.
func (p *SeqPtr) States() *StateList { return p.states }

// TicSkip advances the cursor by up to n ticks, stopping early if an event
// becomes due, and returns the number of ticks actually skipped (§4.3).
func (p *SeqPtr) TicSkip(n int64) int64 {
	var skipped int64
	for n > 0 {
		if p.cur.delta > 0 {
			step := min(n, p.cur.delta)
			p.cur.delta -= step
			n -= step
			skipped += step
			p.ticks += step
			continue
		}
		if p.cur.isSentinel() {
			// past the last recorded event: open-ended trailing silence
			p.ticks += n
			skipped += n
			return skipped
		}
		break // an event is due now
	}
	return skipped
}

// Peek returns the event due at the cursor without consuming it. ok is
// false if an event isn't due yet (TicsLeft() > 0) or the cursor is at the
// end of the track.
func (p *SeqPtr) Peek() (ev.Event, bool) {
	if p.cur.delta != 0 || p.cur.isSentinel() {
		return ev.Event{}, false
	}
	return p.cur.ev, true
}

// EvGet consumes the event due at the cursor, updates the StateList (§3.4)
// and advances past it, returning the resulting State (§4.3).
func (p *SeqPtr) EvGet() (*State, bool) {
	e, ok := p.Peek()
	if !ok {
		return nil, false
	}
	st := p.states.Observe(e, p.ticks)
	p.cur = p.cur.next
	return st, true
}

// EvPut inserts e at the cursor (§4.3). The node due at the cursor
// inherits e's new node's position and its pending delta shifts onto the
// new node, so the cursor itself remains due immediately afterwards (zero
// delta) — this is how multiple events land on the same tick. If e would
// be a redundant rewrite of the class's already-active value (controller
// dedup, §4.3), it is dropped and EvPut returns false.
func (p *SeqPtr) EvPut(e ev.Event) bool {
	if p.states.Redundant(e) {
		return false
	}
	n := &node{ev: e, delta: p.cur.delta}
	p.cur.delta = 0
	prev := p.cur.prev
	n.prev = prev
	n.next = p.cur
	if prev != nil {
		prev.next = n
	}
	p.cur.prev = n
	if p.track.head == p.cur {
		p.track.head = n
	}
	p.states.Observe(e, p.ticks)
	return true
}

// TicPut inserts n blank ticks before the cursor (§4.3), pushing the
// cursor's due time (and everything after it) later.
func (p *SeqPtr) TicPut(n int64) {
	if n <= 0 {
		return
	}
	p.cur.delta += n
}

// EvDel removes the event due at the cursor, merging its delta into the
// following node so total duration is preserved, and releases the
// deleted event's class from the StateList without emitting a
// compensating event — callers that need one (frame operations, §4.4)
// build it from the class's prior State before calling EvDel.
func (p *SeqPtr) EvDel() (ev.Event, bool) {
	if p.cur.isSentinel() {
		return ev.Event{}, false
	}
	removed := p.cur.ev
	next := p.cur.next
	next.delta += p.cur.delta
	prev := p.cur.prev
	next.prev = prev
	if prev != nil {
		prev.next = next
	} else {
		p.track.head = next
	}
	p.states.Release(ev.ClassOf(removed))
	p.cur = next
	return removed, true
}

// Clone duplicates the cursor (position, elapsed ticks and a deep copy of
// its StateList) so it can scan independently of the original — the
// "two SeqPtrs in lockstep" frame operations need exactly this (§4.4).
func (p *SeqPtr) Clone() *SeqPtr {
	return &SeqPtr{track: p.track, cur: p.cur, ticks: p.ticks, states: p.states.Clone()}
}

// Rewind resets the cursor to the start of its track with a fresh,
// empty StateList.
func (p *SeqPtr) Rewind() {
	p.cur = p.track.head
	p.ticks = 0
	p.states = NewStateList()
}

// Replay drains every remaining event from the cursor, calling fn(delta,
// event) for each, without mutating the StateList's semantics beyond the
// normal Observe bookkeeping. Used by the round-trip invariant test
// (§8 invariant 3: a fresh SeqPtr yields the same sequence as any other).
func (p *SeqPtr) Replay(fn func(delta int64, e ev.Event)) {
	for {
		left := p.TicsLeft()
		if left > 0 {
			p.TicSkip(left)
		}
		e, ok := p.Peek()
		if !ok {
			return
		}
		p.EvGet()
		fn(left, e)
	}
}
