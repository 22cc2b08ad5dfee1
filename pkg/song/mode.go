package song

import "github.com/ratchov/midish-sub000/pkg/errs"

// Mode is the transport state (§4.9): OFF (no device opened, nothing can
// run), IDLE (devices are open, editing is allowed, nothing is playing),
// PLAY (tracks advance and emit, no recording) and REC (tracks advance and
// a target track captures input).
type Mode int

const (
	ModeOff Mode = iota
	ModeIdle
	ModePlay
	ModeRec
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeIdle:
		return "idle"
	case ModePlay:
		return "play"
	case ModeRec:
		return "rec"
	default:
		return "invalid"
	}
}

// Mode returns the song's current transport mode.
func (s *Song) Mode() Mode { return s.mode }

// TryMode is the state machine's single gate (§4.9's try_mode): it fails
// with errs.Mode unless the song's current mode is at most max, the
// precondition nearly every editing command shares ("stop playback/record
// before changing structure").
func (s *Song) TryMode(max Mode) error {
	if s.mode > max {
		return errs.Modef("song", "operation requires mode <= %s, song is in %s", max, s.mode)
	}
	return nil
}

// GoIdle transitions OFF->IDLE (devices opened) or PLAY/REC->IDLE (stop).
// Stopping playback drops the session's track cursors and metronome state.
func (s *Song) GoIdle() {
	if s.mode == ModePlay || s.mode == ModeRec {
		s.stopPlayback()
	}
	s.mode = ModeIdle
}

// GoOff transitions back to OFF (devices closed); only legal from IDLE.
func (s *Song) GoOff() error {
	if err := s.TryMode(ModeIdle); err != nil {
		return err
	}
	s.mode = ModeOff
	return nil
}

// StartPlay transitions IDLE->PLAY: every track's SeqPtr is rewound and
// playback begins from tick 0.
func (s *Song) StartPlay() error {
	if err := s.TryMode(ModeIdle); err != nil {
		return err
	}
	s.startPlayback()
	s.mode = ModePlay
	return nil
}

// StartRecord transitions IDLE->REC for the given target track, arming
// the count-in described in §4.9.
func (s *Song) StartRecord(trackName string) error {
	if err := s.TryMode(ModeIdle); err != nil {
		return err
	}
	if _, ok := s.byName[trackName]; !ok {
		return errs.NotFoundf("rec", "track %q not found", trackName)
	}
	s.startPlayback()
	s.startRecording(trackName)
	s.mode = ModeRec
	return nil
}

// Stop transitions PLAY or REC back to IDLE, merging any captured
// recording into its target track first.
func (s *Song) Stop() error {
	if s.mode != ModePlay && s.mode != ModeRec {
		return errs.Modef("song", "not running")
	}
	if s.mode == ModeRec {
		s.finishRecording()
	}
	s.GoIdle()
	return nil
}
