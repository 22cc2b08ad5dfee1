package dispatch

import (
	"github.com/ratchov/midish-sub000/pkg/errs"
	"github.com/ratchov/midish-sub000/pkg/ev"
	"github.com/ratchov/midish-sub000/pkg/frame"
	"github.com/ratchov/midish-sub000/pkg/song"
	"github.com/ratchov/midish-sub000/pkg/track"
)

// registerTrackOps wires the "t*" built-ins (§6.2) onto pkg/song's track
// methods and pkg/frame's editing operations.
func registerTrackOps(t *Table) {
	t.Register("tnew", opTnew)
	t.Register("tdel", opTdel)
	t.Register("tren", opTren)
	t.Register("tlist", opTlist)
	t.Register("texists", opTexists)
	t.Register("mute", opMute)
	t.Register("unmute", opUnmute)
	t.Register("getmute", opGetmute)
	t.Register("tsetf", opTsetf)
	t.Register("tquanta", opTquanta)
	t.Register("ttransp", opTtransp)
	t.Register("tvcurve", opTvcurve)
	t.Register("tins", opTins)
	t.Register("tcut", opTcut)
	t.Register("setunit", opSetunit)
	t.Register("tevmap", opTevmap)
	t.Register("trewrite", opTrewrite)
	t.Register("tquantf", opTquantf)
	t.Register("tmove", opTmove)
}

func opTnew(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("tnew", "trackname")
	if err != nil {
		return Nil(), err
	}
	if err := s.NewTrack(name); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opTdel(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("tdel", "trackname")
	if err != nil {
		return Nil(), err
	}
	if err := s.DelTrack(name); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opTren(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("tren", "trackname")
	if err != nil {
		return Nil(), err
	}
	newName, err := a.Ref("tren", "newname")
	if err != nil {
		return Nil(), err
	}
	if err := s.RenameTrack(name, newName); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opTlist(s *song.Song, a Args) (Value, error) {
	names := s.TrackNames()
	vs := make([]Value, len(names))
	for i, n := range names {
		vs[i] = Ref(n)
	}
	return List(vs), nil
}

func opTexists(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("texists", "trackname")
	if err != nil {
		return Nil(), err
	}
	_, ok := s.Track(name)
	if ok {
		return Long(1), nil
	}
	return Long(0), nil
}

func opMute(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("mute", "trackname")
	if err != nil {
		return Nil(), err
	}
	if err := s.SetMuted(name, true); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opUnmute(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("unmute", "trackname")
	if err != nil {
		return Nil(), err
	}
	if err := s.SetMuted(name, false); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opGetmute(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("getmute", "trackname")
	if err != nil {
		return Nil(), err
	}
	if _, ok := s.Track(name); !ok {
		return Nil(), errs.NotFoundf("getmute", "track %q not found", name)
	}
	if s.Muted(name) {
		return Long(1), nil
	}
	return Long(0), nil
}

func opTsetf(s *song.Song, a Args) (Value, error) {
	trackName, err := a.Ref("tsetf", "trackname")
	if err != nil {
		return Nil(), err
	}
	filtName, err := a.Ref("tsetf", "filtname")
	if err != nil {
		return Nil(), err
	}
	f, ok := s.Filter(filtName)
	if !ok {
		return Nil(), errs.NotFoundf("tsetf", "filter %q not found", filtName)
	}
	if err := s.SetTrackFilter(trackName, f); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

// trackSpan resolves the (start, length) pair most t*-family editing ops
// take; length defaults to 0 and is passed through unchanged, so an
// omitted length selects an empty window rather than the rest of the track.
func trackSpan(proc string, a Args) (start, length int64, err error) {
	start, err = a.Long(proc, "start")
	if err != nil {
		return 0, 0, err
	}
	length, err = a.OptLong(proc, "length", 0)
	return start, length, err
}

func opTquanta(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("tquanta", "trackname")
	if err != nil {
		return Nil(), err
	}
	tr, ok := s.Track(name)
	if !ok {
		return Nil(), errs.NotFoundf("tquanta", "track %q not found", name)
	}
	start, length, err := trackSpan("tquanta", a)
	if err != nil {
		return Nil(), err
	}
	quantum, err := a.Long("tquanta", "quantum")
	if err != nil {
		return Nil(), err
	}
	rate, err := a.OptLong("tquanta", "rate", 100)
	if err != nil {
		return Nil(), err
	}
	out := frame.Quantize(tr, ev.Any(), start, length, quantum, int(rate))
	if err := s.ReplaceTrack(name, out); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opTtransp(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("ttransp", "trackname")
	if err != nil {
		return Nil(), err
	}
	tr, ok := s.Track(name)
	if !ok {
		return Nil(), errs.NotFoundf("ttransp", "track %q not found", name)
	}
	start, length, err := trackSpan("ttransp", a)
	if err != nil {
		return Nil(), err
	}
	halftones, err := a.Long("ttransp", "halftones")
	if err != nil {
		return Nil(), err
	}
	out := frame.Transpose(tr, ev.Any(), start, length, int(halftones))
	if err := s.ReplaceTrack(name, out); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opTvcurve(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("tvcurve", "trackname")
	if err != nil {
		return Nil(), err
	}
	tr, ok := s.Track(name)
	if !ok {
		return Nil(), errs.NotFoundf("tvcurve", "track %q not found", name)
	}
	start, length, err := trackSpan("tvcurve", a)
	if err != nil {
		return Nil(), err
	}
	weight, err := a.Long("tvcurve", "weight")
	if err != nil {
		return Nil(), err
	}
	out := frame.Vcurve(tr, ev.Any(), start, length, int(weight))
	if err := s.ReplaceTrack(name, out); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opTins(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("tins", "trackname")
	if err != nil {
		return Nil(), err
	}
	tr, ok := s.Track(name)
	if !ok {
		return Nil(), errs.NotFoundf("tins", "track %q not found", name)
	}
	start, length, err := trackSpan("tins", a)
	if err != nil {
		return Nil(), err
	}
	out := frame.Ins(tr, start, length)
	if err := s.ReplaceTrack(name, out); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opTcut(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("tcut", "trackname")
	if err != nil {
		return Nil(), err
	}
	tr, ok := s.Track(name)
	if !ok {
		return Nil(), errs.NotFoundf("tcut", "track %q not found", name)
	}
	start, length, err := trackSpan("tcut", a)
	if err != nil {
		return Nil(), err
	}
	out := frame.Cut(tr, start, length)
	if err := s.ReplaceTrack(name, out); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

// opSetunit implements the original's setunit: it rescales the meta-track
// and every track's event positions to a new tics-per-unit resolution
// (§4.4's scale), as a single undoable step.
func opSetunit(s *song.Song, a Args) (Value, error) {
	tpu, err := a.Long("setunit", "tics_per_unit")
	if err != nil {
		return Nil(), err
	}
	if err := s.Rescale(tpu); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

// opTevmap implements tevmap (§4.4): it remaps every note-on/off within
// [start, start+length) from one (dev,ch) to another, the frame-scoped
// counterpart of fmap's filter-wide remap.
func opTevmap(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("tevmap", "trackname")
	if err != nil {
		return Nil(), err
	}
	tr, ok := s.Track(name)
	if !ok {
		return Nil(), errs.NotFoundf("tevmap", "track %q not found", name)
	}
	start, length, err := trackSpan("tevmap", a)
	if err != nil {
		return Nil(), err
	}
	src, dst, err := fmapSpecs(a, "tevmap")
	if err != nil {
		return Nil(), err
	}
	out := frame.Evmap(tr, src, dst, start, length)
	out = frame.Evmap(out, ev.NewSpec(ev.NOFF, src.Dev, src.Ch, src.V0, src.V1), ev.NewSpec(ev.NOFF, dst.Dev, dst.Ch, dst.V0, dst.V1), start, length)
	if err := s.ReplaceTrack(name, out); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

// opTrewrite implements trewrite: it re-serializes a track into canonical
// tick-tie order (§4.4).
func opTrewrite(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("trewrite", "trackname")
	if err != nil {
		return Nil(), err
	}
	tr, ok := s.Track(name)
	if !ok {
		return Nil(), errs.NotFoundf("trewrite", "track %q not found", name)
	}
	out := frame.Rewrite(tr)
	if err := s.ReplaceTrack(name, out); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

// opTquantf implements tquantf, the original's frame-only quantize: it
// moves matching note-ons onto the grid but leaves their note-offs where
// they were, so the note's duration changes (§4.4).
func opTquantf(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("tquantf", "trackname")
	if err != nil {
		return Nil(), err
	}
	tr, ok := s.Track(name)
	if !ok {
		return Nil(), errs.NotFoundf("tquantf", "track %q not found", name)
	}
	start, length, err := trackSpan("tquantf", a)
	if err != nil {
		return Nil(), err
	}
	quantum, err := a.Long("tquantf", "quantum")
	if err != nil {
		return Nil(), err
	}
	rate, err := a.OptLong("tquantf", "rate", 100)
	if err != nil {
		return Nil(), err
	}
	out := frame.QuantizeFrame(tr, ev.Any(), start, length, quantum, int(rate))
	if err := s.ReplaceTrack(name, out); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

// opTmove carries events matching [start, start+length) from the source
// track into trackname, optionally deleting them from source (§4.4's
// track_move, simplified from the original's clipboard-mediated tcopy/
// tpaste pair into a direct track-to-track move).
func opTmove(s *song.Song, a Args) (Value, error) {
	srcName, err := a.Ref("tmove", "source")
	if err != nil {
		return Nil(), err
	}
	dstName, err := a.Ref("tmove", "trackname")
	if err != nil {
		return Nil(), err
	}
	srcTr, ok := s.Track(srcName)
	if !ok {
		return Nil(), errs.NotFoundf("tmove", "track %q not found", srcName)
	}
	if _, ok := s.Track(dstName); !ok {
		return Nil(), errs.NotFoundf("tmove", "track %q not found", dstName)
	}
	start, length, err := trackSpan("tmove", a)
	if err != nil {
		return Nil(), err
	}
	deleteFromSrc := a.OptBool("delete")

	dest, newSrc := frame.Move(srcTr, ev.Any(), start, length, deleteFromSrc)
	if err := s.ReplaceTrack(srcName, newSrc); err != nil {
		return Nil(), err
	}
	merged := frame.Merge(dest, mustTrack(s, dstName))
	if err := s.ReplaceTrack(dstName, merged); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func mustTrack(s *song.Song, name string) *track.Track {
	tr, _ := s.Track(name)
	return tr
}
