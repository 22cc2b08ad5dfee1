package dispatch

import "github.com/ratchov/midish-sub000/pkg/song"

// registerTransportOps wires the single-letter transport built-ins (§6.2,
// grounded in the original table: "i"=idle, "p"=play, "r"=rec, "s"=stop,
// "u"=undo, "ul"=undo-label). The original table's "g" (goto-a-position)
// has no counterpart here: this engine's SeqPtr model has no independent
// "current position" outside a running playback session to seek.
func registerTransportOps(t *Table) {
	t.Register("i", opIdle)
	t.Register("p", opPlay)
	t.Register("r", opRec)
	t.Register("s", opStop)
	t.Register("u", opUndo)
	t.Register("ul", opUndoLabel)
}

func opIdle(s *song.Song, a Args) (Value, error) {
	s.GoIdle()
	return Nil(), nil
}

func opPlay(s *song.Song, a Args) (Value, error) {
	if err := s.StartPlay(); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opRec(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("r", "trackname")
	if err != nil {
		return Nil(), err
	}
	if err := s.StartRecord(name); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opStop(s *song.Song, a Args) (Value, error) {
	if err := s.Stop(); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opUndo(s *song.Song, a Args) (Value, error) {
	if !s.Undo() {
		return Long(0), nil
	}
	return Long(1), nil
}

func opUndoLabel(s *song.Song, a Args) (Value, error) {
	label, ok := s.UndoLabel()
	if !ok {
		return Nil(), nil
	}
	return Str(label), nil
}
