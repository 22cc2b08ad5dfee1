package dispatch

import (
	"github.com/ratchov/midish-sub000/pkg/ev"
	"github.com/ratchov/midish-sub000/pkg/filter"
	"github.com/ratchov/midish-sub000/pkg/song"
)

// registerChannelOps wires "dnew"/"ddel"-family channel-binding built-ins
// (§6.2, §3.8's Channel), the per-device XCTL grouping built-ins
// ("dixctl"/"doxctl", §4.2), and the filter table ("f*").
func registerChannelOps(t *Table) {
	t.Register("dnew", opDnew)
	t.Register("ddel", opDdel)
	t.Register("dlist", opDlist)
	t.Register("tsetchan", opTsetchan)
	t.Register("dixctl", opDixctl)
	t.Register("doxctl", opDoxctl)
}

// opDixctl enables coarse/fine 14-bit grouping on devnum's input for every
// coarse CC number whose bit is set in ctlset (bit N = CC N, N in [0,31]),
// grounded on the original's dixctl builtin. It applies to every channel's
// Converter on devnum, including ones created after this call.
func opDixctl(s *song.Song, a Args) (Value, error) {
	dev, err := a.Long("dixctl", "devnum")
	if err != nil {
		return Nil(), err
	}
	ctlset, err := a.Long("dixctl", "ctlset")
	if err != nil {
		return Nil(), err
	}
	if err := s.SetInputXCTL(int(dev), uint32(ctlset)); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

// opDoxctl configures which coarse CC numbers devnum's output is allowed
// to split into coarse+fine pairs; an XCTL event for a CC not in ctlset is
// still sent, but truncated to its coarse half only, grounded on the
// original's doxctl builtin.
func opDoxctl(s *song.Song, a Args) (Value, error) {
	dev, err := a.Long("doxctl", "devnum")
	if err != nil {
		return Nil(), err
	}
	ctlset, err := a.Long("doxctl", "ctlset")
	if err != nil {
		return Nil(), err
	}
	if err := s.SetOutputXCTL(int(dev), uint32(ctlset)); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opDnew(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("dnew", "channame")
	if err != nil {
		return Nil(), err
	}
	dev, err := a.Long("dnew", "dev")
	if err != nil {
		return Nil(), err
	}
	ch, err := a.Long("dnew", "ch")
	if err != nil {
		return Nil(), err
	}
	if err := s.NewChannel(name, int(dev), int(ch)); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opDdel(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("ddel", "channame")
	if err != nil {
		return Nil(), err
	}
	if err := s.DelChannel(name); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opDlist(s *song.Song, a Args) (Value, error) {
	names := s.ChannelNames()
	vs := make([]Value, len(names))
	for i, n := range names {
		vs[i] = Ref(n)
	}
	return List(vs), nil
}

func opTsetchan(s *song.Song, a Args) (Value, error) {
	trackName, err := a.Ref("tsetchan", "trackname")
	if err != nil {
		return Nil(), err
	}
	chanName, err := a.Ref("tsetchan", "channame")
	if err != nil {
		return Nil(), err
	}
	if err := s.BindChannel(trackName, chanName); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

// registerFilterOps wires the "f*" filter-editing built-ins.
func registerFilterOps(t *Table) {
	t.Register("fnew", opFnew)
	t.Register("fmap", opFmap)
	t.Register("funmap", opFunmap)
	t.Register("ftransp", opFtransp)
	t.Register("fvcurve", opFvcurve)
}

func opFnew(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("fnew", "filtname")
	if err != nil {
		return Nil(), err
	}
	if err := s.NewFilter(name); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

// opFmap implements filt_mapnew for the note-on dev/ch-remap shape S4
// exercises (§8): "map(NON {0 0} * * → NON {0 1} * *)". Note number and
// velocity pass through unchanged; only the device/channel are remapped.
// MapNew splits any existing rule that overlaps the new source so the
// no-overlap invariant (6) holds without rejecting the call.
func opFmap(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("fmap", "filtname")
	if err != nil {
		return Nil(), err
	}
	src, dst, err := fmapSpecs(a, "fmap")
	if err != nil {
		return Nil(), err
	}
	if err := s.EditFilter("fmap "+name, name, func(f *filter.Filter) {
		f.MapNew(src, []ev.EvSpec{dst})
	}); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

// opFunmap implements filt_mapdel: it removes src's overlap from every map
// rule (invariant 5 — a MapNew/MapDel pair on the same source restores the
// filter's prior structure).
func opFunmap(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("funmap", "filtname")
	if err != nil {
		return Nil(), err
	}
	src, _, err := fmapSpecs(a, "funmap")
	if err != nil {
		return Nil(), err
	}
	if err := s.EditFilter("funmap "+name, name, func(f *filter.Filter) {
		f.MapDel(src)
	}); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func fmapSpecs(a Args, proc string) (src, dst ev.EvSpec, err error) {
	srcDev, err := a.Long(proc, "srcdev")
	if err != nil {
		return ev.EvSpec{}, ev.EvSpec{}, err
	}
	srcCh, err := a.Long(proc, "srcch")
	if err != nil {
		return ev.EvSpec{}, ev.EvSpec{}, err
	}
	dstDev, err := a.Long(proc, "dstdev")
	if err != nil {
		return ev.EvSpec{}, ev.EvSpec{}, err
	}
	dstCh, err := a.Long(proc, "dstch")
	if err != nil {
		return ev.EvSpec{}, ev.EvSpec{}, err
	}
	full := ev.Range{Lo: 0, Hi: 127}
	one := func(n int64) ev.Range { return ev.Range{Lo: int(n), Hi: int(n)} }
	src = ev.NewSpec(ev.NON, one(srcDev), one(srcCh), full, full)
	dst = ev.NewSpec(ev.NON, one(dstDev), one(dstCh), full, full)
	return src, dst, nil
}

func opFtransp(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("ftransp", "filtname")
	if err != nil {
		return Nil(), err
	}
	halftones, err := a.Long("ftransp", "halftones")
	if err != nil {
		return Nil(), err
	}
	if err := s.EditFilter("ftransp "+name, name, func(f *filter.Filter) {
		f.AddTransp(filter.TranspRule{Spec: ev.Any(), Halftones: int(halftones)})
	}); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opFvcurve(s *song.Song, a Args) (Value, error) {
	name, err := a.Ref("fvcurve", "filtname")
	if err != nil {
		return Nil(), err
	}
	weight, err := a.Long("fvcurve", "weight")
	if err != nil {
		return Nil(), err
	}
	if err := s.EditFilter("fvcurve "+name, name, func(f *filter.Filter) {
		f.AddVcurve(filter.VcurveRule{Spec: ev.Any(), Weight: int(weight)})
	}); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}
