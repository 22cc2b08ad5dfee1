package frame

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/ratchov/midish-sub000/pkg/ev"
)

// TestPropertyInsThenCutRestoresTrack is §8 round-trip law 9, generalized
// across random start/length/event placements.
func TestPropertyInsThenCutRestoresTrack(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("Ins(start,len) then Cut(start,len) is the identity", prop.ForAll(
		func(tick, start, length int64) bool {
			tr := fromAbsolute([]absEvent{
				{tick: tick, ev: ev.New(ev.NOFF, 0, 0, 60, 64)},
			}, tick+1)

			roundTripped := Cut(Ins(tr, start, length), start, length)
			return roundTripped.Equal(tr)
		},
		gen.Int64Range(0, 100),
		gen.Int64Range(0, 100),
		gen.Int64Range(1, 50),
	))

	properties.TestingRun(t)
}

// TestPropertyQuantizeRateZeroIsIdentity and rate-100-lands-on-grid together
// cover §8 round-trip law 10.
func TestPropertyQuantizeRateZeroIsIdentity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("quantize(rate=0) changes nothing", prop.ForAll(
		func(tick, quantum int64) bool {
			tr := fromAbsolute([]absEvent{
				{tick: tick, ev: ev.New(ev.NON, 0, 0, 60, 100)},
			}, tick+100)
			out := Quantize(tr, ev.Any(), 0, tick+100, quantum, 0)
			return out.Equal(tr)
		},
		gen.Int64Range(0, 200),
		gen.Int64Range(1, 48),
	))

	properties.TestingRun(t)
}

func TestPropertyQuantizeRate100LandsOnGrid(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("quantize(rate=100) lands every note-on on the grid", prop.ForAll(
		func(tick, quantum int64) bool {
			tr := fromAbsolute([]absEvent{
				{tick: tick, ev: ev.New(ev.NON, 0, 0, 60, 100)},
			}, tick+200)
			out := Quantize(tr, ev.Any(), 0, tick+200, quantum, 100)
			abs := toAbsolute(out)
			return abs[0].tick%quantum == 0
		},
		gen.Int64Range(0, 200),
		gen.Int64Range(1, 48),
	))

	properties.TestingRun(t)
}

// TestPropertyCheckIsIdempotent is §8 invariant 2's idempotence clause.
func TestPropertyCheckIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("Check(Check(t)) == Check(t)", prop.ForAll(
		func(notes []int) bool {
			var abs []absEvent
			var tick int64
			for _, n := range notes {
				abs = append(abs, absEvent{tick: tick, ev: ev.New(ev.NON, 0, 0, n%128, 100)})
				tick += 5
				abs = append(abs, absEvent{tick: tick, ev: ev.New(ev.NOFF, 0, 0, n%128, 64)})
				tick += 5
			}
			tr := fromAbsolute(abs, tick)

			once := Check(tr)
			twice := Check(once)
			return once.Equal(twice)
		},
		gen.SliceOfN(8, gen.IntRange(0, 127)),
	))

	properties.TestingRun(t)
}
