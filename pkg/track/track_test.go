package track

import (
	"testing"

	"github.com/ratchov/midish-sub000/pkg/ev"
)

func TestDurationEqualsSumOfDeltas(t *testing.T) {
	tr := New()
	p := tr.Ptr()
	p.TicPut(10)
	p.EvPut(ev.New(ev.NON, 0, 0, 60, 100))
	p.TicPut(20)
	p.EvPut(ev.New(ev.NOFF, 0, 0, 60, 64))
	p.TicPut(5)

	if got := tr.Duration(); got != 35 {
		t.Errorf("Duration() = %d, want 35", got)
	}
}

func TestEvPutAtSameTickPreservesOrder(t *testing.T) {
	tr := New()
	p := tr.Ptr()
	p.TicPut(10)
	p.EvPut(ev.New(ev.CTL, 0, 0, 7, 100))
	p.EvPut(ev.New(ev.NON, 0, 0, 60, 100))

	pairs := tr.Events()
	if len(pairs) != 2 {
		t.Fatalf("want 2 events, got %d", len(pairs))
	}
	if pairs[0].Delta != 10 || pairs[1].Delta != 0 {
		t.Errorf("deltas = %d, %d; want 10, 0", pairs[0].Delta, pairs[1].Delta)
	}
	if pairs[0].Event.Kind != ev.CTL || pairs[1].Event.Kind != ev.NON {
		t.Errorf("unexpected event order: %v", pairs)
	}
}

func TestEvGetTicSkipRoundTrip(t *testing.T) {
	tr := New()
	p := tr.Ptr()
	p.TicPut(10)
	p.EvPut(ev.New(ev.NON, 0, 0, 60, 100))
	p.TicPut(20)
	p.EvPut(ev.New(ev.NOFF, 0, 0, 60, 64))

	r := tr.Ptr()
	skipped := r.TicSkip(10)
	if skipped != 10 {
		t.Fatalf("TicSkip = %d, want 10", skipped)
	}
	state, ok := r.EvGet()
	if !ok || state.Event.Kind != ev.NON {
		t.Fatalf("expected NON, got %v ok=%v", state, ok)
	}
	if r.TicSkip(20) != 20 {
		t.Fatal("expected to skip 20 ticks")
	}
	state, ok = r.EvGet()
	if !ok || state.Event.Kind != ev.NOFF {
		t.Fatalf("expected NOFF, got %v ok=%v", state, ok)
	}
}

func TestEvDelMergesDelta(t *testing.T) {
	tr := New()
	p := tr.Ptr()
	p.TicPut(10)
	p.EvPut(ev.New(ev.CTL, 0, 0, 7, 1))
	p.TicPut(5)
	p.EvPut(ev.New(ev.NON, 0, 0, 60, 100))

	r := tr.Ptr()
	r.TicSkip(10)
	removed, ok := r.EvDel()
	if !ok || removed.Kind != ev.CTL {
		t.Fatalf("expected to delete CTL, got %v ok=%v", removed, ok)
	}
	if got := tr.Duration(); got != 15 {
		t.Errorf("Duration() after delete = %d, want 15 (unchanged total)", got)
	}
	pairs := tr.Events()
	if len(pairs) != 1 || pairs[0].Delta != 15 {
		t.Fatalf("want single NON at delta 15, got %v", pairs)
	}
}

// S5 — insert then cut restores the original track (§8 round-trip law 9).
func TestInsertThenCutRestoresTrack(t *testing.T) {
	tr := New()
	p := tr.Ptr()
	p.TicPut(48)
	p.EvPut(ev.New(ev.NOFF, 0, 0, 60, 64))

	before := tr.Clone()

	// track_ins(0, 24): shift everything at/after tick 0 forward by 24.
	ins := tr.Ptr()
	ins.TicPut(24)
	if got := tr.Duration(); got != 72 {
		t.Fatalf("after insert, duration = %d, want 72", got)
	}

	// track_cut(0, 24): removing the 24 blank ticks we just inserted is the
	// same operation as skipping over them — TicSkip drains straight from
	// the node's delta.
	cut := tr.Ptr()
	if skipped := cut.TicSkip(24); skipped != 24 {
		t.Fatalf("TicSkip = %d, want 24", skipped)
	}

	if !tr.Equal(before) {
		t.Errorf("track after ins(24) + cut(24) does not match original")
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	tr := New()
	p := tr.Ptr()
	p.TicPut(3)
	p.EvPut(ev.New(ev.NON, 0, 0, 60, 100))
	p.TicPut(7)
	p.EvPut(ev.New(ev.NOFF, 0, 0, 60, 64))

	type rec struct {
		delta int64
		k     ev.Kind
	}
	var a, b []rec
	tr.Ptr().Replay(func(d int64, e ev.Event) { a = append(a, rec{d, e.Kind}) })
	tr.Ptr().Replay(func(d int64, e ev.Event) { b = append(b, rec{d, e.Kind}) })

	if len(a) != len(b) {
		t.Fatalf("replay length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("replay mismatch at %d: %v vs %v", i, a[i], b[i])
		}
	}
}
