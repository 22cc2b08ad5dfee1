// Package dispatch implements the command dispatcher contract (§6.2): a
// table of named operations, each taking typed, named arguments and
// returning a tagged value, built directly on top of pkg/song's methods.
package dispatch

import "fmt"

// Kind tags the shape of a Value, mirroring the scripting front-end's
// union (nil/long/string/ref/list/range).
type Kind int

const (
	KindNil Kind = iota
	KindLong
	KindString
	KindRef
	KindList
	KindRange
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindLong:
		return "long"
	case KindString:
		return "string"
	case KindRef:
		return "ref"
	case KindList:
		return "list"
	case KindRange:
		return "range"
	default:
		return "invalid"
	}
}

// Value is the tagged return/argument value every operation exchanges with
// its caller (§6.2). Only the field matching Kind is meaningful.
type Value struct {
	Kind  Kind
	Long  int64
	Str   string
	Ref   string
	List  []Value
	RLo   int64
	RHi   int64
}

// Nil is the empty value, returned by operations with no result (most
// mutating commands).
func Nil() Value { return Value{Kind: KindNil} }

// Long wraps a 64-bit integer result (tic counts, note numbers, channel
// numbers).
func Long(n int64) Value { return Value{Kind: KindLong, Long: n} }

// Str wraps a string result (names, filenames, help text).
func Str(s string) Value { return Value{Kind: KindString, Str: s} }

// Ref wraps a by-name reference to a track/channel/filter/sysex bank —
// distinct from Str so callers can tell "the name of a thing" from "a
// pointer to a named thing" (§6.2's typed argument shape).
func Ref(name string) Value { return Value{Kind: KindRef, Ref: name} }

// List wraps an ordered sequence of values (e.g. tlist/dlist).
func List(vs []Value) Value { return Value{Kind: KindList, List: vs} }

// Range wraps an inclusive [lo, hi] tic or index span (e.g. a selection
// bound).
func Range(lo, hi int64) Value { return Value{Kind: KindRange, RLo: lo, RHi: hi} }

func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindLong:
		return fmt.Sprintf("%d", v.Long)
	case KindString:
		return v.Str
	case KindRef:
		return v.Ref
	case KindList:
		return fmt.Sprintf("%v", v.List)
	case KindRange:
		return fmt.Sprintf("%d..%d", v.RLo, v.RHi)
	default:
		return "?"
	}
}
