package frame

import (
	"github.com/ratchov/midish-sub000/pkg/ev"
	"github.com/ratchov/midish-sub000/pkg/track"
)

func roundToGrid(pos, quantum int64) int64 {
	if quantum <= 0 {
		return pos
	}
	q := pos % quantum
	if q*2 >= quantum {
		return pos - q + quantum
	}
	return pos - q
}

// Quantize rounds every matching note-on within [start, start+length) onto
// the quantum grid, scaled by rate/100 (0 = identity, 100 = exactly on
// grid), and shifts its matching note-off by the same offset so the note's
// duration is preserved (§4.4, §8 round-trip law 10). Any non-note event
// sharing the note-on's original tick moves with it.
func Quantize(t *track.Track, spec ev.EvSpec, start, length, quantum int64, rate int) *track.Track {
	return quantizeImpl(t, spec, start, length, quantum, rate, true)
}

// QuantizeFrame is Quantize's frame-only variant: it moves matching
// note-ons but leaves their note-offs in place, changing note duration.
func QuantizeFrame(t *track.Track, spec ev.EvSpec, start, length, quantum int64, rate int) *track.Track {
	return quantizeImpl(t, spec, start, length, quantum, rate, false)
}

func quantizeImpl(t *track.Track, spec ev.EvSpec, start, length, quantum int64, rate int, moveOff bool) *track.Track {
	abs := toAbsolute(t)
	end := start + length

	offFor := make(map[int]int) // NON index -> its matching NOFF index
	openIdx := map[ev.Class]int{}
	for i, a := range abs {
		switch a.ev.Kind {
		case ev.NON:
			openIdx[ev.ClassOf(a.ev)] = i
		case ev.NOFF:
			class := ev.ClassOf(a.ev)
			if onI, ok := openIdx[class]; ok {
				offFor[onI] = i
				delete(openIdx, class)
			}
		}
	}

	for i := range abs {
		a := &abs[i]
		if a.ev.Kind != ev.NON || a.tick < start || a.tick >= end || !spec.Match(a.ev) {
			continue
		}
		orig := a.tick
		rounded := roundToGrid(orig, quantum)
		offset := (rounded - orig) * int64(rate) / 100
		newTick := orig + offset
		if newTick < 0 {
			newTick = 0
		}
		a.tick = newTick

		for j := range abs {
			if j != i && abs[j].tick == orig && !isNoteKind(abs[j].ev.Kind) {
				abs[j].tick = newTick
			}
		}
		if moveOff {
			if offI, ok := offFor[i]; ok {
				shifted := abs[offI].tick + offset
				if shifted < newTick {
					shifted = newTick
				}
				abs[offI].tick = shifted
			}
		}
	}
	resort(abs)
	return fromAbsolute(abs, t.Duration())
}

// Rewrite re-serializes a track's events into canonical tick-tie order: at
// any shared tick, state-setting events (CTL, PC, ...) precede note-ons,
// and note-offs precede everything (§3.3's Ordered, §4.4).
func Rewrite(t *track.Track) *track.Track {
	abs := toAbsolute(t)
	resort(abs)
	return fromAbsolute(abs, t.Duration())
}

// Check repairs structural inconsistencies (§4.4): drops orphaned
// note-offs (no matching open note), synthesizes a note-off at the end of
// the track for any note-on still open, drops nested note-on/note-off
// pairs of the same class (keeping the outer note intact), and collapses
// multiple same-tick writes to the same controller down to the last one.
// It is idempotent: running it twice yields the same track as running it
// once (§8 invariant 2).
func Check(t *track.Track) *track.Track {
	abs := toAbsolute(t)

	type openNote struct {
		idx     int
		dropped bool
	}
	stacks := map[ev.Class][]openNote{}
	drop := make(map[int]bool)

	for i, a := range abs {
		class := ev.ClassOf(a.ev)
		switch a.ev.Kind {
		case ev.NON:
			s := stacks[class]
			nested := len(s) > 0
			if nested {
				drop[i] = true
			}
			stacks[class] = append(s, openNote{idx: i, dropped: nested})
		case ev.NOFF:
			s := stacks[class]
			if len(s) == 0 {
				drop[i] = true
				continue
			}
			top := s[len(s)-1]
			stacks[class] = s[:len(s)-1]
			if top.dropped {
				drop[i] = true
			}
		}
	}

	// collapse same-tick, same-class controller writes down to the last one
	lastCTL := map[int64]map[ev.Class]int{}
	for i, a := range abs {
		if a.ev.Kind != ev.CTL {
			continue
		}
		byClass, ok := lastCTL[a.tick]
		if !ok {
			byClass = map[ev.Class]int{}
			lastCTL[a.tick] = byClass
		}
		class := ev.ClassOf(a.ev)
		if prev, ok := byClass[class]; ok {
			drop[prev] = true
		}
		byClass[class] = i
	}

	var out []absEvent
	for i, a := range abs {
		if drop[i] {
			continue
		}
		out = append(out, a)
	}

	duration := t.Duration()
	for class, s := range stacks {
		for _, n := range s {
			if n.dropped {
				continue
			}
			out = append(out, absEvent{tick: duration, ev: ev.New(ev.NOFF, class.Dev, class.Ch, class.ID, 64)})
		}
	}

	resort(out)
	return fromAbsolute(out, duration)
}

// Ins shifts every event at or after tick start forward by length ticks,
// extending the track's duration by length. A note started inside the
// newly opened window is not duplicated: nothing occupies the window
// before the shift, so this holds trivially (§4.4).
func Ins(t *track.Track, start, length int64) *track.Track {
	abs := toAbsolute(t)
	for i := range abs {
		if abs[i].tick >= start {
			abs[i].tick += length
		}
	}
	return fromAbsolute(abs, t.Duration()+length)
}

// Cut removes the window [start, start+length) and shifts everything after
// it back by length. A note open before the window whose note-off falls
// inside it is terminated with a synthetic note-off at start, since its
// real note-off is being deleted along with the rest of the window
// (§4.4, §8 round-trip law 9 with Ins).
func Cut(t *track.Track, start, length int64) *track.Track {
	abs := toAbsolute(t)
	end := start + length

	openBeforeStart := map[ev.Class]bool{}
	for _, a := range abs {
		if a.tick >= start {
			break
		}
		class := ev.ClassOf(a.ev)
		switch a.ev.Kind {
		case ev.NON:
			openBeforeStart[class] = true
		case ev.NOFF:
			delete(openBeforeStart, class)
		}
	}
	terminate := map[ev.Class]bool{}
	for _, a := range abs {
		if a.tick < start || a.tick >= end {
			continue
		}
		if a.ev.Kind == ev.NOFF && openBeforeStart[ev.ClassOf(a.ev)] {
			terminate[ev.ClassOf(a.ev)] = true
		}
	}

	var out []absEvent
	for _, a := range abs {
		if a.tick >= start && a.tick < end {
			continue
		}
		tick := a.tick
		if tick >= end {
			tick -= length
		}
		out = append(out, absEvent{tick: tick, ev: a.ev})
	}
	for class := range terminate {
		out = append(out, absEvent{tick: start, ev: ev.New(ev.NOFF, class.Dev, class.Ch, class.ID, 64)})
	}
	resort(out)

	dur := t.Duration() - length
	if dur < 0 {
		dur = 0
	}
	return fromAbsolute(out, dur)
}

// Move extracts every event matching spec within [start, start+length) into
// a new destination track (positions relative to start), optionally
// deleting the originals from src (§4.4).
func Move(src *track.Track, spec ev.EvSpec, start, length int64, deleteFromSrc bool) (dest, newSrc *track.Track) {
	abs := toAbsolute(src)
	end := start + length

	var destAbs, keepAbs []absEvent
	for _, a := range abs {
		inWindow := a.tick >= start && a.tick < end
		if inWindow && spec.Match(a.ev) {
			destAbs = append(destAbs, absEvent{tick: a.tick - start, ev: a.ev})
			if deleteFromSrc {
				continue
			}
		}
		keepAbs = append(keepAbs, a)
	}
	return fromAbsolute(destAbs, length), fromAbsolute(keepAbs, src.Duration())
}

// Merge interleaves a and b event-by-event in tick order, using Ordered to
// break ties, and drops a duplicate controller write when both tracks
// carry the identical value for the same class at the same tick (§4.4).
func Merge(a, b *track.Track) *track.Track {
	merged := append(toAbsolute(a), toAbsolute(b)...)
	resort(merged)

	var out []absEvent
	seen := map[int64]map[ev.Class]ev.Event{}
	for _, e := range merged {
		if e.ev.Kind == ev.CTL {
			byClass, ok := seen[e.tick]
			if !ok {
				byClass = map[ev.Class]ev.Event{}
				seen[e.tick] = byClass
			}
			class := ev.ClassOf(e.ev)
			if prior, ok := byClass[class]; ok && prior == e.ev {
				continue
			}
			byClass[class] = e.ev
		}
		out = append(out, e)
	}

	dur := a.Duration()
	if b.Duration() > dur {
		dur = b.Duration()
	}
	return fromAbsolute(out, dur)
}
