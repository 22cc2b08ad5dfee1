package ev

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestPropertyAnyMatchesAllNoteOns checks that EVSPEC_ANY matches every
// well-formed note-on, independent of its parameters (§3.2).
func TestPropertyAnyMatchesAllNoteOns(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("EVSPEC_ANY matches any valid note-on", prop.ForAll(
		func(ch, note, vel int) bool {
			e := New(NON, 0, ch, note, vel)
			return Any().Match(e)
		},
		gen.IntRange(0, 15),
		gen.IntRange(0, 127),
		gen.IntRange(0, 127),
	))

	properties.TestingRun(t)
}

// TestPropertyEmptyMatchesNothing checks EVSPEC_EMPTY never matches.
func TestPropertyEmptyMatchesNothing(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("EVSPEC_EMPTY matches nothing", prop.ForAll(
		func(note, vel int) bool {
			e := New(NON, 0, 0, note, vel)
			return !Empty().Match(e)
		},
		gen.IntRange(0, 127),
		gen.IntRange(0, 127),
	))

	properties.TestingRun(t)
}

// TestPropertyMapValuePreservesOrderAndBounds checks that MapValue never
// escapes the destination range and preserves monotonic order, which the
// filter map rule (§4.5) relies on.
func TestPropertyMapValuePreservesOrderAndBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	src := Range{Lo: 0, Hi: 127}
	dst := Range{Lo: 0, Hi: 15}

	properties.Property("MapValue stays within destination bounds", prop.ForAll(
		func(v int) bool {
			mapped := MapValue(v, src, dst)
			return mapped >= dst.Lo && mapped <= dst.Hi
		},
		gen.IntRange(src.Lo, src.Hi),
	))

	properties.Property("MapValue is monotonically non-decreasing", prop.ForAll(
		func(a, b int) bool {
			if a > b {
				a, b = b, a
			}
			return MapValue(a, src, dst) <= MapValue(b, src, dst)
		},
		gen.IntRange(src.Lo, src.Hi),
		gen.IntRange(src.Lo, src.Hi),
	))

	properties.TestingRun(t)
}
