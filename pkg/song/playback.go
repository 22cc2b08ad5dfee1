package song

import (
	"github.com/ratchov/midish-sub000/pkg/ev"
	"github.com/ratchov/midish-sub000/pkg/mux"
	"github.com/ratchov/midish-sub000/pkg/track"
)

// Metronome configures the click emitted on beat/measure boundaries during
// PLAY and/or REC (§4.9).
type Metronome struct {
	Dev, Ch     int
	Hi, Lo      int // note numbers for measure-start and beat clicks
	Velocity    int
	EnabledPlay bool
	EnabledRec  bool
}

const defaultTicsPerBeat = 24 // used until the meta-track supplies a TIMESIG

// trackCursor is a track's live playback SeqPtr plus the namedTrack it was
// built from (§4.9's playback pipeline).
type trackCursor struct {
	nt  *namedTrack
	ptr *track.SeqPtr
}

// metroState is the live, per-playback-session metronome driver.
type metroState struct {
	cfg         Metronome
	ticsPerBeat int64
	beatsPerBar int64
}

func (s *Song) startPlayback() {
	s.metaPtr = s.Meta.Ptr()
	s.tickCount = 0
	s.metro = &metroState{cfg: s.metroCfg, ticsPerBeat: defaultTicsPerBeat, beatsPerBar: 4}
	s.playPtrs = map[string]*trackCursor{}
	for _, name := range s.order {
		h := s.byName[name]
		nt, _ := s.tracks.Get(h)
		s.playPtrs[name] = &trackCursor{nt: *nt, ptr: (*nt).track.Ptr()}
	}
}

func (s *Song) stopPlayback() {
	s.playPtrs = nil
	s.metaPtr = nil
	s.metro = nil
}

// AttachToMux registers one mux source per track (so each track's output
// is independently arbitrated by the mixout, per §4.7) plus one source for
// the metronome, and returns their SourceIDs keyed by track name, with the
// metronome's id keyed by "".
func (s *Song) AttachToMux(m *mux.Mux, resolveDev func(channelName string) (dev, ch int, ok bool)) map[string]mux.SourceID {
	ids := map[string]mux.SourceID{}
	for _, name := range s.order {
		name := name
		ids[name] = m.AddSource(func() []ev.Event { return s.tickTrack(name, resolveDev) })
	}
	ids[""] = m.AddSource(func() []ev.Event { return s.tickMetronome() })
	return ids
}

// tickTrack advances one tick's worth of due events for a track and
// routes them to the (dev,ch) its bound channel currently resolves to.
func (s *Song) tickTrack(name string, resolveDev func(string) (int, int, bool)) []ev.Event {
	if s.mode != ModePlay && s.mode != ModeRec {
		return nil
	}
	tc, ok := s.playPtrs[name]
	if !ok {
		return nil
	}
	if tc.nt.muted {
		tc.ptr.TicSkip(1)
		return nil
	}

	dev, ch := 0, 0
	if tc.nt.chan_ != "" {
		if d, c, ok := resolveDev(tc.nt.chan_); ok {
			dev, ch = d, c
		}
	}

	var out []ev.Event
	for {
		e, ok := tc.ptr.Peek()
		if !ok {
			break
		}
		tc.ptr.EvGet()
		routed := route(e, dev, ch)
		if tc.nt.filt != nil {
			out = append(out, tc.nt.filt.Do(routed)...)
		} else {
			out = append(out, routed)
		}
	}
	tc.ptr.TicSkip(1)

	var packed []ev.Event
	for _, e := range out {
		packed = append(packed, s.packOutput(e)...)
	}
	return packed
}

// route rewrites a stored event's device/channel to the live binding its
// track is currently routed to, leaving events whose kind carries neither
// (e.g. TEMPO, TIMESIG, SYSEX) untouched.
func route(e ev.Event, dev, ch int) ev.Event {
	d, ok := ev.Info(e.Kind)
	if !ok {
		return e
	}
	if d.HasDev {
		e.Dev = dev
	}
	if d.HasCh {
		e.Ch = ch
	}
	return e
}

// tickMetronome advances the meta-track one tick (tracking tempo/timesig)
// and fires a click on beat and measure boundaries when enabled for the
// current mode.
func (s *Song) tickMetronome() []ev.Event {
	if s.metaPtr == nil || s.metro == nil {
		return nil
	}
	for {
		_, ok := s.metaPtr.Peek()
		if !ok {
			break
		}
		s.metaPtr.EvGet()
	}
	s.metaPtr.TicSkip(1)
	s.tickCount++
	s.tickRecording()

	if beats, tics, ok := s.metaPtr.States().TimeSig(); ok && tics > 0 {
		s.metro.ticsPerBeat = int64(tics)
		s.metro.beatsPerBar = int64(beats)
	}

	ms := s.metro
	enabled := (s.mode == ModePlay && ms.cfg.EnabledPlay) || (s.mode == ModeRec && ms.cfg.EnabledRec)
	if !enabled || ms.ticsPerBeat <= 0 {
		return nil
	}
	if s.tickCount%ms.ticsPerBeat != 0 {
		return nil
	}
	bar := max64(ms.beatsPerBar, 1)
	beatIdx := (s.tickCount / ms.ticsPerBeat) % bar
	note := ms.cfg.Lo
	if beatIdx == 0 {
		note = ms.cfg.Hi
	}
	on := ev.New(ev.NON, ms.cfg.Dev, ms.cfg.Ch, note, ms.cfg.Velocity)
	off := ev.New(ev.NOFF, ms.cfg.Dev, ms.cfg.Ch, note, 64)
	return []ev.Event{on, off}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// SetMetronome replaces the metronome configuration, taking effect on the
// next StartPlay/StartRecord.
func (s *Song) SetMetronome(cfg Metronome) { s.metroCfg = cfg }
