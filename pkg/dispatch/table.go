package dispatch

import (
	"sort"

	"github.com/ratchov/midish-sub000/pkg/errs"
	"github.com/ratchov/midish-sub000/pkg/song"
)

// Op is one named built-in: it receives the song under edit and the
// call's named arguments, and returns a value or an error (§6.2). Undo
// bracketing lives in the song methods an Op calls, not in Op itself, and
// only some of them journal: tnew, tdel, tren, setunit and the filter
// edits (fmap, funmap, ftransp, fvcurve) are undoable; edits that go
// through Song.ReplaceTrack (tquanta, ttransp, tvcurve, tins, tcut,
// tevmap, trewrite, tquantf, tmove), mute/unmute, tsetf, dnew, ddel,
// dixctl, doxctl and fnew are not recorded in the undo log.
type Op func(s *song.Song, args Args) (Value, error)

// Table is the built-in operation set, keyed by name (§6.2's "repository's
// built-in table").
type Table struct {
	ops map[string]Op
}

// NewTable returns a Table pre-populated with every built-in this package
// defines (tracks, channels, filters, transport, project and SMF I/O).
func NewTable() *Table {
	t := &Table{ops: map[string]Op{}}
	registerTrackOps(t)
	registerChannelOps(t)
	registerFilterOps(t)
	registerTransportOps(t)
	registerIOOps(t)
	return t
}

// Register adds or replaces a named operation.
func (t *Table) Register(name string, op Op) { t.ops[name] = op }

// Lookup returns the operation registered under name.
func (t *Table) Lookup(name string) (Op, bool) {
	op, ok := t.ops[name]
	return op, ok
}

// Names returns every registered operation name, sorted (used by "h" /
// "builtinlist"-style introspection).
func (t *Table) Names() []string {
	out := make([]string, 0, len(t.ops))
	for name := range t.ops {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Call looks up name and invokes it against s with args. errs.NotFound if
// the name isn't registered.
func (t *Table) Call(s *song.Song, name string, args Args) (Value, error) {
	op, ok := t.ops[name]
	if !ok {
		return Nil(), errs.NotFoundf(name, "no such operation %q", name)
	}
	return op(s, args)
}
