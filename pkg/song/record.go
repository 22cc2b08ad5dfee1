package song

import (
	"github.com/ratchov/midish-sub000/pkg/errs"
	"github.com/ratchov/midish-sub000/pkg/ev"
	"github.com/ratchov/midish-sub000/pkg/filter"
	"github.com/ratchov/midish-sub000/pkg/frame"
	"github.com/ratchov/midish-sub000/pkg/track"
)

// recording is the live capture state for one REC session (§4.9): a
// count-in measured in tics, a scratch track input is appended to, and the
// name of the track that scratch will be merged into on Stop.
type recording struct {
	target      string
	scratch     *track.Track
	scratchPtr  *track.SeqPtr
	countIn    int64          // remaining tics before capture starts; the metronome still clicks during it
	inputFilt  *filter.Filter // global input filter, applied before the target track's filter (§4.2)
}

func (s *Song) startRecording(target string) {
	beats, tics, ok := s.Meta.Ptr().States().TimeSig()
	if !ok || tics <= 0 {
		beats, tics = 4, defaultTicsPerBeat
	}
	s.rec = &recording{
		target:    target,
		scratch:   track.New(),
		countIn:   int64(beats) * int64(tics),
		inputFilt: s.inputFilter,
	}
	s.rec.scratchPtr = s.rec.scratch.Ptr()
}

// FeedInput delivers one externally-received event into the active
// recording session: it runs through the global input filter, then the
// target track's filter (if any), and is appended to the scratch
// track at the current tick. Events arriving during the count-in are
// dropped (§4.9's "count-in: the metronome clicks but nothing is
// captured").
func (s *Song) FeedInput(e ev.Event) error {
	if s.mode != ModeRec || s.rec == nil {
		return errs.Modef("rec", "not recording")
	}
	if s.rec.countIn > 0 {
		return nil
	}
	events := []ev.Event{e}
	if s.rec.inputFilt != nil {
		events = s.rec.inputFilt.Do(e)
	}
	h, ok := s.byName[s.rec.target]
	if !ok {
		return errs.NotFoundf("rec", "target track %q vanished mid-recording", s.rec.target)
	}
	nts, _ := s.tracks.Get(h)
	chFilt := (*nts).filt
	for _, re := range events {
		if chFilt != nil {
			for _, fe := range chFilt.Do(re) {
				s.rec.scratchPtr.EvPut(fe)
			}
			continue
		}
		s.rec.scratchPtr.EvPut(re)
	}
	return nil
}

// tickRecording advances the count-in and the scratch cursor by one tick;
// called once per Tick alongside tickTrack/tickMetronome.
func (s *Song) tickRecording() {
	if s.rec == nil {
		return
	}
	if s.rec.countIn > 0 {
		s.rec.countIn--
		return
	}
	s.rec.scratchPtr.TicPut(1)
}

// finishRecording checks the scratch track for structural integrity
// (orphaned note-offs, unterminated notes), merges it into the target
// track under the undo log and discards the recording session (§4.9).
func (s *Song) finishRecording() {
	if s.rec == nil {
		return
	}
	checked := frame.Check(s.rec.scratch)
	h := s.byName[s.rec.target]
	nt, ok := s.tracks.Get(h)
	if ok {
		before := (*nt).track
		merged := frame.Merge(before, checked)
		target := s.rec.target
		s.undo.Do("rec "+target, func() {
			(*nt).track = merged
			s.undo.PushTrackDiff("rec "+target, before, merged, func(t *track.Track) {
				if h2, ok := s.byName[target]; ok {
					if n2, ok := s.tracks.Get(h2); ok {
						(*n2).track = t
					}
				}
			})
		})
	}
	s.rec = nil
}

// SetInputFilter replaces the global input filter applied to every
// recorded event before its target track's filter (§4.2).
func (s *Song) SetInputFilter(f *filter.Filter) { s.inputFilter = f }
