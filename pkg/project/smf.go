package project

import (
	"io"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/ratchov/midish-sub000/pkg/errs"
	"github.com/ratchov/midish-sub000/pkg/ev"
	"github.com/ratchov/midish-sub000/pkg/song"
	"github.com/ratchov/midish-sub000/pkg/track"
)

// ImportSMF reads a Standard MIDI File (format 0 or 1, §6.4) and builds a
// fresh *song.Song from it: one track per SMF track (format 1) or one
// track per channel present in the single SMF track (format 0, merged by
// channel since this engine's Track is single-channel), plus a meta track
// carrying the original's tempo events (time signatures are not imported).
func ImportSMF(r io.Reader) (*song.Song, error) {
	data, err := smf.ReadFrom(r)
	if err != nil {
		return nil, errs.Parsef("project.import", "reading standard MIDI file: %v", err)
	}
	ppq, ok := data.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errs.Parsef("project.import", "only metric (ticks-per-quarter-note) time format is supported")
	}

	s := song.New()
	s.SetTicsPerUnit(int64(ppq))

	meta := importMetaTrack(data)
	s.Meta = meta

	byChan := map[int][]track.Pair{}
	chanOrder := []int{}
	var lastTick int64

	for ti, trk := range data.Tracks {
		lastTick = 0
		for _, te := range trk {
			abs := lastTick + int64(te.Delta)
			lastTick = abs
			if !te.Message.IsPlayable() {
				continue
			}
			e, ch, ok := decodeSMFMessage(te.Message)
			if !ok {
				continue
			}
			key := ch
			if len(data.Tracks) > 1 {
				key = ti // format 1: one Track struct per sequencer track already
			}
			if _, seen := byChan[key]; !seen {
				chanOrder = append(chanOrder, key)
			}
			byChan[key] = append(byChan[key], track.Pair{Delta: abs, Event: e})
		}
	}

	for i, key := range chanOrder {
		pairs := byChan[key]
		for j := len(pairs) - 1; j > 0; j-- {
			pairs[j].Delta -= pairs[j-1].Delta
		}
		name := trackNameFor(i)
		if err := s.NewTrack(name); err != nil {
			return nil, err
		}
		if err := s.ReplaceTrack(name, track.FromPairs(pairs, 0)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func trackNameFor(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	if i < len(letters) {
		return string(letters[i])
	}
	return "track" + string(rune('0'+i))
}

func importMetaTrack(data *smf.SMF) *track.Track {
	var pairs []track.Pair
	var lastTick int64
	for _, te := range data.Tracks[0] {
		lastTick += int64(te.Delta)
		if !te.Message.IsMeta() {
			continue
		}
		var bpm float64
		if te.Message.GetMetaTempo(&bpm) {
			usecPerBeat := int(60000000.0 / bpm)
			pairs = append(pairs, track.Pair{Delta: lastTick, Event: ev.New(ev.TEMPO, 0, 0, usecPerBeat, 0)})
		}
	}
	for j := len(pairs) - 1; j > 0; j-- {
		pairs[j].Delta -= pairs[j-1].Delta
	}
	return track.FromPairs(pairs, 0)
}

// decodeSMFMessage converts one playable smf.Message into an Event, per
// §4.1's codec mapping, reporting false for message kinds this engine
// doesn't model (aftertouch is kept as KAT; anything else is dropped).
func decodeSMFMessage(m smf.Message) (ev.Event, int, bool) {
	var ch, note, vel, cc, val, prog uint8
	var bend int16
	switch {
	case m.GetNoteOn(&ch, &note, &vel):
		if vel == 0 {
			return ev.New(ev.NOFF, 0, int(ch), int(note), 64), int(ch), true
		}
		return ev.New(ev.NON, 0, int(ch), int(note), int(vel)), int(ch), true
	case m.GetNoteOff(&ch, &note, &vel):
		return ev.New(ev.NOFF, 0, int(ch), int(note), int(vel)), int(ch), true
	case m.GetControlChange(&ch, &cc, &val):
		return ev.New(ev.CTL, 0, int(ch), int(cc), int(val)), int(ch), true
	case m.GetProgramChange(&ch, &prog):
		return ev.New(ev.PC, 0, int(ch), int(prog), ev.Undef), int(ch), true
	case m.GetPitchBend(&ch, &bend):
		return ev.New(ev.BEND, 0, int(ch), int(bend)+8192, ev.Undef), int(ch), true
	case m.GetPolyAfterTouch(&ch, &note, &vel):
		return ev.New(ev.KAT, 0, int(ch), int(note), int(vel)), int(ch), true
	}
	return ev.Event{}, 0, false
}

// ExportSMF writes s as a format-1 Standard MIDI File (§6.4): one SMF track
// per named track plus a leading conductor track carrying the meta track's
// tempo/time-signature events.
func ExportSMF(w io.Writer, s *song.Song) error {
	ppq := smf.MetricTicks(s.TicsPerUnit())
	sm := smf.New()
	sm.TimeFormat = ppq

	conductor := smf.Track{}
	for _, p := range s.Meta.Events() {
		switch p.Event.Kind {
		case ev.TEMPO:
			bpm := 60000000.0 / float64(p.Event.V0)
			conductor.Add(uint32(p.Delta), smf.MetaTempo(bpm))
		case ev.TIMESIG:
			// V1 is tics-per-beat, not the SMF denominator (a power-of-two
			// note value); passed through as-is for a best-effort export.
			conductor.Add(uint32(p.Delta), smf.MetaMeter(uint8(p.Event.V0), uint8(p.Event.V1)))
		}
	}
	conductor.Close(0)
	if err := sm.Add(conductor); err != nil {
		return errs.IOErr("project.export", err)
	}

	for _, name := range s.TrackNames() {
		tr, _ := s.Track(name)
		smfTrack := smf.Track{}
		for _, p := range tr.Events() {
			msg := encodeSMFMessage(p.Event)
			if msg == nil {
				continue
			}
			smfTrack.Add(uint32(p.Delta), msg)
		}
		smfTrack.Close(0)
		if err := sm.Add(smfTrack); err != nil {
			return errs.IOErr("project.export", err)
		}
	}

	if _, err := sm.WriteTo(w); err != nil {
		return errs.IOErr("project.export", err)
	}
	return nil
}

func encodeSMFMessage(e ev.Event) midi.Message {
	switch e.Kind {
	case ev.NON:
		return midi.NoteOn(uint8(e.Ch), uint8(e.V0), uint8(e.V1))
	case ev.NOFF:
		return midi.NoteOff(uint8(e.Ch), uint8(e.V0))
	case ev.CTL:
		return midi.ControlChange(uint8(e.Ch), uint8(e.V0), uint8(e.V1))
	case ev.PC:
		return midi.ProgramChange(uint8(e.Ch), uint8(e.V0))
	default:
		return nil
	}
}
