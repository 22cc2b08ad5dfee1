// Package track implements the delta-time event list (§3.3), its active
// State/StateList bookkeeping (§3.4) and the SeqPtr cursor that is the
// only sanctioned way to read or mutate a Track (§3.5).
package track

import "github.com/ratchov/midish-sub000/pkg/ev"

type node struct {
	delta int64
	ev    ev.Event
	prev  *node
	next  *node
}

func (n *node) isSentinel() bool { return n.ev.Kind == ev.NULL }

// Track is an ordered sequence of (delta, event) pairs terminated by a
// NULL sentinel (§3.3). The zero value is not usable; construct with New.
type Track struct {
	head *node // first node; always non-nil
	tail *node // the NULL sentinel; always non-nil, has no successor
}

// New returns an empty Track: a single NULL sentinel with zero duration.
func New() *Track {
	sentinel := &node{ev: ev.New(ev.NULL, 0, 0, 0, 0)}
	return &Track{head: sentinel, tail: sentinel}
}

// Duration returns the sum of all deltas, the track's length in ticks
// (§8 invariant 1).
func (t *Track) Duration() int64 {
	var sum int64
	for n := t.head; n != nil; n = n.next {
		sum += n.delta
	}
	return sum
}

// Ptr returns a fresh SeqPtr positioned at the start of t with an empty
// StateList.
func (t *Track) Ptr() *SeqPtr {
	return &SeqPtr{track: t, cur: t.head, states: NewStateList()}
}

// Clone deep-copies t (used by frame operations that need an independent
// destination list, and by undo snapshots).
func (t *Track) Clone() *Track {
	return FromPairs(t.Events(), t.tail.delta)
}

// Equal reports whether t and o contain the same (delta, event) sequence,
// used by save/load round-trip tests (§8 law 7).
func (t *Track) Equal(o *Track) bool {
	a, b := t.head, o.head
	for {
		if a.delta != b.delta || a.ev != b.ev {
			return false
		}
		if a.isSentinel() != b.isSentinel() {
			return false
		}
		if a.isSentinel() {
			return true
		}
		a, b = a.next, b.next
	}
}

// Events drains a fresh copy of t's contents as a flat slice of
// (delta, event) pairs, for inspection in tests and the project writer.
// It does not consume any live SeqPtr.
func (t *Track) Events() []Pair {
	var out []Pair
	for n := t.head; n != nil && !n.isSentinel(); n = n.next {
		out = append(out, Pair{Delta: n.delta, Event: n.ev})
	}
	return out
}

// Pair is one (delta, event) record, the Track's element type for
// iteration and construction from outside the package.
type Pair struct {
	Delta int64
	Event ev.Event
}

// FromPairs builds a Track from a flat list of (delta, event) pairs plus a
// trailing delta for the sentinel, the inverse of Events()+tail duration.
// Used by the project reader and by tests constructing fixtures. Unlike
// SeqPtr.EvPut, it never drops a pair as redundant: a loaded or cloned
// track must reproduce its source exactly.
func FromPairs(pairs []Pair, tailDelta int64) *Track {
	t := New()
	for _, pr := range pairs {
		n := &node{ev: pr.Event, delta: pr.Delta}
		prev := t.tail.prev
		n.prev = prev
		n.next = t.tail
		if prev != nil {
			prev.next = n
		} else {
			t.head = n
		}
		t.tail.prev = n
	}
	t.tail.delta = tailDelta
	return t
}
