package frame

import (
	"testing"

	"github.com/ratchov/midish-sub000/pkg/ev"
	"github.com/ratchov/midish-sub000/pkg/track"
)

func buildTrack(t *testing.T, abs []absEvent, duration int64) *track.Track {
	t.Helper()
	return fromAbsolute(abs, duration)
}

// S3 — Quantize: notes at ticks [10, 30] (quantum=24, rate=100), note-offs
// at [22, 45] -> notes at [0, 24], offs at [12, 39], durations preserved.
func TestScenarioS3Quantize(t *testing.T) {
	tr := buildTrack(t, []absEvent{
		{tick: 10, ev: ev.New(ev.NON, 0, 0, 60, 100)},
		{tick: 22, ev: ev.New(ev.NOFF, 0, 0, 60, 64)},
		{tick: 30, ev: ev.New(ev.NON, 0, 0, 62, 100)},
		{tick: 45, ev: ev.New(ev.NOFF, 0, 0, 62, 64)},
	}, 50)

	out := Quantize(tr, ev.Any(), 0, 50, 24, 100)
	abs := toAbsolute(out)

	want := []absEvent{
		{tick: 0, ev: ev.New(ev.NON, 0, 0, 60, 100)},
		{tick: 12, ev: ev.New(ev.NOFF, 0, 0, 60, 64)},
		{tick: 24, ev: ev.New(ev.NON, 0, 0, 62, 100)},
		{tick: 39, ev: ev.New(ev.NOFF, 0, 0, 62, 64)},
	}
	if len(abs) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(abs), len(want), abs)
	}
	for i := range want {
		if abs[i].tick != want[i].tick || abs[i].ev != want[i].ev {
			t.Errorf("event %d = %+v, want %+v", i, abs[i], want[i])
		}
	}
}

func TestQuantizeRateZeroIsIdentity(t *testing.T) {
	tr := buildTrack(t, []absEvent{
		{tick: 10, ev: ev.New(ev.NON, 0, 0, 60, 100)},
		{tick: 22, ev: ev.New(ev.NOFF, 0, 0, 60, 64)},
	}, 30)

	out := Quantize(tr, ev.Any(), 0, 30, 24, 0)
	if !out.Equal(tr) {
		t.Error("rate=0 quantize should be the identity")
	}
}

func TestQuantizeRate100LandsExactlyOnGrid(t *testing.T) {
	tr := buildTrack(t, []absEvent{
		{tick: 13, ev: ev.New(ev.NON, 0, 0, 60, 100)},
		{tick: 20, ev: ev.New(ev.NOFF, 0, 0, 60, 64)},
	}, 30)

	out := Quantize(tr, ev.Any(), 0, 30, 24, 100)
	abs := toAbsolute(out)
	if abs[0].tick%24 != 0 {
		t.Errorf("note-on tick %d not on 24-grid", abs[0].tick)
	}
}

// S5 — Track insert then cut: empty Track; insert noff 0 0 60 64 at tick 48;
// Ins(0, 24) shifts it to 72; Cut(0, 24) restores it to 48.
func TestScenarioS5InsThenCut(t *testing.T) {
	tr := buildTrack(t, []absEvent{
		{tick: 48, ev: ev.New(ev.NOFF, 0, 0, 60, 64)},
	}, 48)

	inserted := Ins(tr, 0, 24)
	abs := toAbsolute(inserted)
	if len(abs) != 1 || abs[0].tick != 72 {
		t.Fatalf("after Ins, event at %v, want tick 72", abs)
	}

	cut := Cut(inserted, 0, 24)
	abs = toAbsolute(cut)
	if len(abs) != 1 || abs[0].tick != 48 {
		t.Fatalf("after Cut, event at %v, want tick 48", abs)
	}
	if !cut.Equal(tr) {
		t.Error("Ins then Cut should restore the original track")
	}
}

func TestCutTerminatesNoteHeldAcrossWindow(t *testing.T) {
	tr := buildTrack(t, []absEvent{
		{tick: 0, ev: ev.New(ev.NON, 0, 0, 60, 100)},
		{tick: 30, ev: ev.New(ev.NOFF, 0, 0, 60, 64)},
	}, 40)

	out := Cut(tr, 10, 10) // window [10,20) contains no note boundary yet, off is at 30
	abs := toAbsolute(out)
	// note survives, off shifts back by 10 to tick 20
	if len(abs) != 2 || abs[1].tick != 20 {
		t.Fatalf("got %+v, want off shifted to tick 20", abs)
	}

	tr2 := buildTrack(t, []absEvent{
		{tick: 0, ev: ev.New(ev.NON, 0, 0, 60, 100)},
		{tick: 15, ev: ev.New(ev.NOFF, 0, 0, 60, 64)},
	}, 40)
	out2 := Cut(tr2, 10, 10) // off at 15 falls inside the removed window [10,20)
	abs2 := toAbsolute(out2)
	if len(abs2) != 2 {
		t.Fatalf("got %+v, want synthetic note-off inserted at cut point", abs2)
	}
	if abs2[1].ev.Kind != ev.NOFF || abs2[1].tick != 10 {
		t.Errorf("synthetic note-off = %+v, want NOFF at tick 10", abs2[1])
	}
}

func TestTransposeClipsToValidRange(t *testing.T) {
	tr := buildTrack(t, []absEvent{
		{tick: 0, ev: ev.New(ev.NON, 0, 0, 5, 100)},
	}, 10)

	out := Transpose(tr, ev.Any(), 0, 10, -20)
	abs := toAbsolute(out)
	if abs[0].ev.V0 != 0 {
		t.Errorf("transposed note = %d, want clipped to 0", abs[0].ev.V0)
	}
}

func TestCheckDropsOrphanedNoteOff(t *testing.T) {
	tr := buildTrack(t, []absEvent{
		{tick: 5, ev: ev.New(ev.NOFF, 0, 0, 60, 64)},
	}, 10)

	out := Check(tr)
	if len(out.Events()) != 0 {
		t.Errorf("orphaned note-off should be dropped: %v", out.Events())
	}
}

func TestCheckTerminatesOrphanedNoteOnAtEnd(t *testing.T) {
	tr := buildTrack(t, []absEvent{
		{tick: 5, ev: ev.New(ev.NON, 0, 0, 60, 100)},
	}, 20)

	out := Check(tr)
	abs := toAbsolute(out)
	if len(abs) != 2 {
		t.Fatalf("got %+v, want note-on plus synthetic note-off", abs)
	}
	if abs[1].ev.Kind != ev.NOFF || abs[1].tick != 20 {
		t.Errorf("synthetic note-off = %+v, want NOFF at tick 20 (track end)", abs[1])
	}
}

func TestCheckDropsNestedNoteOfSamePitch(t *testing.T) {
	tr := buildTrack(t, []absEvent{
		{tick: 0, ev: ev.New(ev.NON, 0, 0, 60, 100)},
		{tick: 5, ev: ev.New(ev.NON, 0, 0, 60, 90)},
		{tick: 10, ev: ev.New(ev.NOFF, 0, 0, 60, 64)},
		{tick: 20, ev: ev.New(ev.NOFF, 0, 0, 60, 64)},
	}, 30)

	out := Check(tr)
	abs := toAbsolute(out)
	if len(abs) != 2 {
		t.Fatalf("got %+v, want only the outer note-on/off pair", abs)
	}
	if abs[0].tick != 0 || abs[1].tick != 20 {
		t.Errorf("got %+v, want outer pair at ticks 0 and 20", abs)
	}
}

// §8 invariant 2 — track_check is idempotent.
func TestCheckIsIdempotent(t *testing.T) {
	tr := buildTrack(t, []absEvent{
		{tick: 0, ev: ev.New(ev.NON, 0, 0, 60, 100)},
		{tick: 5, ev: ev.New(ev.NOFF, 0, 0, 60, 64)},
		{tick: 5, ev: ev.New(ev.NOFF, 0, 0, 61, 64)}, // orphan
	}, 20)

	once := Check(tr)
	twice := Check(once)
	if !once.Equal(twice) {
		t.Error("Check is not idempotent")
	}
}

func TestCheckCollapsesRepeatedSameTickControllerWrites(t *testing.T) {
	tr := buildTrack(t, []absEvent{
		{tick: 5, ev: ev.New(ev.CTL, 0, 0, 7, 10)},
		{tick: 5, ev: ev.New(ev.CTL, 0, 0, 7, 90)},
	}, 10)

	out := Check(tr)
	abs := toAbsolute(out)
	if len(abs) != 1 || abs[0].ev.V1 != 90 {
		t.Errorf("got %+v, want only the last CC write (value 90) kept", abs)
	}
}
