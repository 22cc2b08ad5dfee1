// Package undo implements the append-only reversible-edit journal (§4.10):
// records are grouped under a command label so a single user command's
// effects pop as a single unit, and a TRACK_DIFF record stores a
// run-length-compressed edit script rather than a full "before" copy.
package undo

// Kind tags a Record's payload shape, mirroring the journal's record
// taxonomy (§4.10's table). It exists for diagnostics and history display;
// the reversal itself is carried by the record's own closure rather than
// by a kind-specific interpreter, which is how a single Log can undo
// edits to tracks, filters, channels and scalars alike without coupling
// to any of their concrete types.
type Kind int

const (
	TrackDiff Kind = iota
	FiltSave
	Rename
	NewObj
	DelObj
	SetUint
	SetStr
)

func (k Kind) String() string {
	switch k {
	case TrackDiff:
		return "track_diff"
	case FiltSave:
		return "filt_save"
	case Rename:
		return "rename"
	case NewObj:
		return "new"
	case DelObj:
		return "del"
	case SetUint:
		return "setuint"
	case SetStr:
		return "setstr"
	default:
		return "unknown"
	}
}

// Record is one reversible edit. Applying Undo must exactly reverse
// whatever the caller did when it pushed the record.
type Record struct {
	Kind Kind
	Desc string
	undo func()
}

// NewRecord builds a Record whose reversal is undo. desc is a short,
// human-readable description for command history display.
func NewRecord(k Kind, desc string, undo func()) Record {
	return Record{Kind: k, Desc: desc, undo: undo}
}

// Group is the set of records pushed by one top-level command, reversed
// together by a single Pop (§4.10: "a single user command's effects pop
// as a unit"). An empty group is kept as a marker rather than discarded,
// so command history stays visible even for no-op edits.
type Group struct {
	Label   string
	Records []Record
}

// Log is the undo journal: an append-only stack of Groups.
type Log struct {
	groups []*Group
	cur    *Group
}

// New returns an empty Log.
func New() *Log { return &Log{} }

// Begin opens a new group labeled label. Any record pushed before the
// matching Commit belongs to this group. Nested Begin calls are flattened
// onto the outermost group, so a helper that brackets its own edits still
// joins its caller's group when called from within one.
func (l *Log) Begin(label string) {
	if l.cur != nil {
		return
	}
	l.cur = &Group{Label: label}
}

// Push adds r to the currently open group, opening an "anonymous" group
// implicitly if the caller pushed without calling Begin first.
func (l *Log) Push(r Record) {
	if l.cur == nil {
		l.cur = &Group{Label: "anonymous"}
	}
	l.cur.Records = append(l.cur.Records, r)
}

// Commit closes the current group and appends it to the log, even if it
// collected no records (§4.10's "empty markers").
func (l *Log) Commit() {
	if l.cur == nil {
		return
	}
	l.groups = append(l.groups, l.cur)
	l.cur = nil
}

// Discard closes the current group without appending it to the log, for
// a command that fails partway and wants its partial bracket dropped
// rather than recorded as an undoable (but inconsistent) step.
func (l *Log) Discard() {
	l.cur = nil
}

// Do runs fn bracketed by Begin(label)/Commit, the common case of "run one
// command's worth of pushes as a group."
func (l *Log) Do(label string, fn func()) {
	l.Begin(label)
	fn()
	l.Commit()
}

// Pop reverses the most recently committed group, in reverse record
// order within it (so a later edit that depends on an earlier one within
// the same command is undone first). It reports whether there was
// anything to pop.
func (l *Log) Pop() bool {
	if len(l.groups) == 0 {
		return false
	}
	g := l.groups[len(l.groups)-1]
	l.groups = l.groups[:len(l.groups)-1]
	for i := len(g.Records) - 1; i >= 0; i-- {
		g.Records[i].undo()
	}
	return true
}

// Len reports the number of committed groups available to Pop.
func (l *Log) Len() int { return len(l.groups) }

// Peek returns the label of the group Pop would next reverse.
func (l *Log) Peek() (string, bool) {
	if len(l.groups) == 0 {
		return "", false
	}
	return l.groups[len(l.groups)-1].Label, true
}
