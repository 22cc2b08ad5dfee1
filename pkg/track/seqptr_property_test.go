package track

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/ratchov/midish-sub000/pkg/ev"
)

// buildFromDeltas constructs a Track of note-on events spaced by the given
// deltas, mimicking a recorded performance (§8 invariant 1 fixture).
func buildFromDeltas(deltas []int64) *Track {
	t := New()
	p := t.Ptr()
	for i, d := range deltas {
		p.TicPut(d)
		p.EvPut(ev.New(ev.NON, 0, 0, 60+i%68, 100))
	}
	return t
}

// TestPropertyDurationEqualsSumOfDeltas is §8 invariant 1: a track's
// Duration always equals the sum of every delta it holds, including the
// trailing silence after the last event.
func TestPropertyDurationEqualsSumOfDeltas(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("Duration equals sum of deltas", prop.ForAll(
		func(deltas []int64, trailing int64) bool {
			tr := buildFromDeltas(deltas)
			p := tr.Ptr()
			p.TicPut(trailing)

			var want int64
			for _, d := range deltas {
				want += d
			}
			want += trailing
			return tr.Duration() == want
		},
		gen.SliceOfN(6, gen.Int64Range(0, 50)),
		gen.Int64Range(0, 50),
	))

	properties.TestingRun(t)
}

// TestPropertyTwoFreshCursorsReplayIdentically is §8 invariant 3: a fresh
// SeqPtr over a track yields the same (delta, event) sequence as any other
// fresh SeqPtr over the same track — replay is a pure function of the
// track's contents, not of cursor history.
func TestPropertyTwoFreshCursorsReplayIdentically(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("independent fresh cursors replay identically", prop.ForAll(
		func(deltas []int64) bool {
			tr := buildFromDeltas(deltas)

			type rec struct {
				delta int64
				note  int
			}
			collect := func() []rec {
				var out []rec
				tr.Ptr().Replay(func(d int64, e ev.Event) {
					out = append(out, rec{d, e.V0})
				})
				return out
			}

			a, b := collect(), collect()
			if len(a) != len(b) {
				return false
			}
			for i := range a {
				if a[i] != b[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.Int64Range(0, 30)),
	))

	properties.TestingRun(t)
}

// TestPropertyTicSkipNeverOvershootsADueEvent checks that TicSkip always
// stops at or before an event becomes due, never consuming ticks past it
// (§4.3's "stop early if an event becomes due").
func TestPropertyTicSkipNeverOvershootsADueEvent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("TicSkip stops at the next due event", prop.ForAll(
		func(gap, request int64) bool {
			tr := New()
			p := tr.Ptr()
			p.TicPut(gap)
			p.EvPut(ev.New(ev.NON, 0, 0, 60, 100))

			r := tr.Ptr()
			skipped := r.TicSkip(request)
			if request <= gap {
				return skipped == request
			}
			return skipped == gap && r.TicsLeft() == 0
		},
		gen.Int64Range(0, 40),
		gen.Int64Range(0, 80),
	))

	properties.TestingRun(t)
}

// TestPropertyEvDelPreservesDuration is §8 invariant 2-adjacent: deleting an
// event at the cursor never changes the track's total Duration, since the
// removed node's delta merges forward rather than disappearing.
func TestPropertyEvDelPreservesDuration(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("EvDel preserves total Duration", prop.ForAll(
		func(before, after int64) bool {
			tr := New()
			p := tr.Ptr()
			p.TicPut(before)
			p.EvPut(ev.New(ev.CTL, 0, 0, 7, 42))
			p.TicPut(after)
			p.EvPut(ev.New(ev.NON, 0, 0, 60, 100))

			want := tr.Duration()

			r := tr.Ptr()
			r.TicSkip(before)
			if _, ok := r.EvDel(); !ok {
				return false
			}
			return tr.Duration() == want
		},
		gen.Int64Range(0, 30),
		gen.Int64Range(0, 30),
	))

	properties.TestingRun(t)
}
