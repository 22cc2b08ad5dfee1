package project

import (
	"bytes"
	"testing"

	"github.com/ratchov/midish-sub000/pkg/ev"
	"github.com/ratchov/midish-sub000/pkg/song"
	"github.com/ratchov/midish-sub000/pkg/track"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	s := song.New()
	s.SetTicsPerUnit(480)
	if err := s.NewTrack("lead"); err != nil {
		t.Fatal(err)
	}
	pairs := []track.Pair{
		{Delta: 0, Event: ev.New(ev.NON, 0, 0, 60, 100)},
		{Delta: 4, Event: ev.New(ev.NOFF, 0, 0, 60, 64)},
	}
	if err := s.ReplaceTrack("lead", track.FromPairs(pairs, 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMuted("lead", true); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Save(&buf, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TicsPerUnit() != 480 {
		t.Errorf("TicsPerUnit = %d, want 480", loaded.TicsPerUnit())
	}
	names := loaded.TrackNames()
	if len(names) != 1 || names[0] != "lead" {
		t.Fatalf("TrackNames = %v, want [lead]", names)
	}
	if !loaded.Muted("lead") {
		t.Error("expected lead to reload muted")
	}
	tr, ok := loaded.Track("lead")
	if !ok {
		t.Fatal("lead not found after load")
	}
	got := tr.Events()
	if len(got) != len(pairs) {
		t.Fatalf("got %d events, want %d", len(got), len(pairs))
	}
	for i, p := range pairs {
		if got[i] != p {
			t.Errorf("event %d = %+v, want %+v", i, got[i], p)
		}
	}
}

func TestLoadRejectsMalformedTopLevel(t *testing.T) {
	_, err := Load(bytes.NewBufferString("not a project file\n"))
	if err == nil {
		t.Fatal("expected an error for a file that doesn't start with '{'")
	}
}

func TestSaveLoadEmptySong(t *testing.T) {
	s := song.New()
	var buf bytes.Buffer
	if err := Save(&buf, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.TrackNames()) != 0 {
		t.Errorf("expected no tracks, got %v", loaded.TrackNames())
	}
}
