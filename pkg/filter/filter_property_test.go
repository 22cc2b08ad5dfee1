package filter

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/ratchov/midish-sub000/pkg/ev"
)

func chanSpec(ch int) ev.EvSpec {
	full := ev.Range{Lo: 0, Hi: 127}
	return ev.NewSpec(ev.NON, ev.Range{Lo: 0, Hi: 0}, ev.Range{Lo: ch, Hi: ch}, full, full)
}

// TestPropertyMapNewNeverLeavesOverlappingSources is §8 invariant 6: after
// any sequence of MapNew insertions, no two surviving rules share a source
// event.
func TestPropertyMapNewNeverLeavesOverlappingSources(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("no two map rules overlap after random inserts", prop.ForAll(
		func(chans []int) bool {
			f := New()
			for _, ch := range chans {
				f.MapNew(chanSpec(ch%16), []ev.EvSpec{chanSpec((ch + 1) % 16)})
			}
			rules := f.Maps()
			for i := range rules {
				for j := i + 1; j < len(rules); j++ {
					if rules[i].Src.Overlaps(rules[j].Src) {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(10, gen.IntRange(0, 15)),
	))

	properties.TestingRun(t)
}

// TestPropertyDoIsDeterministic is §8 invariant 4: filt_do depends only on
// the filter's current rules and the input event, never on prior calls.
func TestPropertyDoIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("Do is a pure function of (filter, event)", prop.ForAll(
		func(ch, note, vel, halftones int) bool {
			f := New()
			f.MapNew(chanSpec(ch), []ev.EvSpec{chanSpec((ch + 1) % 16)})
			f.AddTransp(TranspRule{Spec: ev.Any(), Halftones: halftones})

			in := ev.New(ev.NON, 0, ch, note, vel)
			a := f.Do(in)
			b := f.Do(in)
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
		gen.IntRange(0, 15),
		gen.IntRange(0, 127),
		gen.IntRange(1, 127),
		gen.IntRange(-12, 12),
	))

	properties.TestingRun(t)
}

// TestPropertyMapPreservesCardinality checks §3.6's invariant that a map
// rule's source and destination describe equally-sized event sets, so every
// source event has exactly one well-defined image and the mapping never
// collapses distinct inputs onto the same output by accident of rounding
// at the boundaries.
func TestPropertyMapPreservesCardinality(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("MapNew dst entries keep src's cardinality", prop.ForAll(
		func(lo, width int) bool {
			hi := lo + width
			src := ev.NewSpec(ev.CTL, ev.Range{Lo: 0, Hi: 0}, ev.Range{Lo: 0, Hi: 15}, ev.Range{Lo: lo, Hi: hi}, ev.Range{Lo: 0, Hi: 127})
			dst := ev.NewSpec(ev.CTL, ev.Range{Lo: 0, Hi: 0}, ev.Range{Lo: 0, Hi: 15}, ev.Range{Lo: lo, Hi: hi}, ev.Range{Lo: 0, Hi: 127})

			f := New()
			f.MapNew(src, []ev.EvSpec{dst})
			rules := f.Maps()
			for _, r := range rules {
				if !r.Src.Overlaps(src) {
					continue
				}
				for _, d := range r.Dst {
					if d.Cardinality() != r.Src.Cardinality() {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(0, 100),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
