package song

import (
	"testing"

	"github.com/ratchov/midish-sub000/pkg/ev"
	"github.com/ratchov/midish-sub000/pkg/filter"
	"github.com/ratchov/midish-sub000/pkg/track"
)

func filterThatTransposes(halftones int) (*filter.Filter, error) {
	f := filter.New()
	f.AddTransp(filter.TranspRule{Spec: ev.Any(), Halftones: halftones})
	return f, nil
}

func TestFeedInputOutsideRecModeIsRejected(t *testing.T) {
	s := New()
	s.GoIdle()
	if err := s.FeedInput(ev.New(ev.NON, 0, 0, 60, 100)); err == nil {
		t.Fatal("expected an error feeding input while not recording")
	}
}

func TestFeedInputDuringCountInIsDropped(t *testing.T) {
	s := New()
	s.GoIdle()
	_ = s.NewTrack("drums")
	if err := s.StartRecord("drums"); err != nil {
		t.Fatal(err)
	}
	if s.rec.countIn <= 0 {
		t.Fatal("expected a nonzero count-in by default")
	}
	if err := s.FeedInput(ev.New(ev.NON, 0, 0, 60, 100)); err != nil {
		t.Fatal(err)
	}
	if len(s.rec.scratch.Events()) != 0 {
		t.Fatal("expected the count-in input to be dropped, not captured")
	}
}

func TestFeedInputAfterCountInIsCaptured(t *testing.T) {
	s := New()
	s.GoIdle()
	_ = s.NewTrack("drums")
	_ = s.StartRecord("drums")
	for s.rec.countIn > 0 {
		s.tickRecording()
	}
	if err := s.FeedInput(ev.New(ev.NON, 0, 0, 60, 100)); err != nil {
		t.Fatal(err)
	}
	events := s.rec.scratch.Events()
	if len(events) != 1 || events[0].Event.Kind != ev.NON {
		t.Fatalf("got %+v", events)
	}
}

func TestStopMergesRecordedScratchIntoTargetTrack(t *testing.T) {
	s := New()
	s.GoIdle()
	_ = s.NewTrack("drums")
	existing := track.FromPairs([]track.Pair{
		{Delta: 10, Event: ev.New(ev.NON, 0, 0, 40, 90)},
		{Delta: 1, Event: ev.New(ev.NOFF, 0, 0, 40, 64)},
	}, 0)
	_ = s.ReplaceTrack("drums", existing)

	_ = s.StartRecord("drums")
	for s.rec.countIn > 0 {
		s.tickRecording()
	}
	_ = s.FeedInput(ev.New(ev.NON, 0, 0, 60, 100))
	_ = s.FeedInput(ev.New(ev.NOFF, 0, 0, 60, 64))

	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}

	tr, _ := s.Track("drums")
	events := tr.Events()
	if len(events) != 4 {
		t.Fatalf("got %d events after merge, want 4 (2 pre-existing + 2 recorded)", len(events))
	}
}

func TestUndoReversesARecordingSession(t *testing.T) {
	s := New()
	s.GoIdle()
	_ = s.NewTrack("drums")
	before := track.FromPairs([]track.Pair{
		{Delta: 10, Event: ev.New(ev.NON, 0, 0, 40, 90)},
		{Delta: 1, Event: ev.New(ev.NOFF, 0, 0, 40, 64)},
	}, 0)
	_ = s.ReplaceTrack("drums", before)

	_ = s.StartRecord("drums")
	for s.rec.countIn > 0 {
		s.tickRecording()
	}
	_ = s.FeedInput(ev.New(ev.NON, 0, 0, 60, 100))
	_ = s.FeedInput(ev.New(ev.NOFF, 0, 0, 60, 64))
	_ = s.Stop()

	afterTrack, _ := s.Track("drums")
	if len(afterTrack.Events()) != 4 {
		t.Fatalf("got %d events, want 4 before undo", len(afterTrack.Events()))
	}

	if !s.Undo() {
		t.Fatal("expected the recording session to be undoable")
	}
	restored, _ := s.Track("drums")
	if !restored.Equal(before) {
		t.Fatal("expected undo to restore the pre-recording track")
	}
}

func TestTrackFilterAppliesDuringRecording(t *testing.T) {
	s := New()
	s.GoIdle()
	_ = s.NewTrack("lead")
	f, _ := filterThatTransposes(12)
	_ = s.SetTrackFilter("lead", f)
	_ = s.StartRecord("lead")
	for s.rec.countIn > 0 {
		s.tickRecording()
	}
	_ = s.FeedInput(ev.New(ev.NON, 0, 0, 60, 100))
	events := s.rec.scratch.Events()
	if len(events) != 1 || events[0].Event.V0 != 72 {
		t.Fatalf("got %+v, want note transposed up an octave", events)
	}
}
