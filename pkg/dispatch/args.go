package dispatch

import "github.com/ratchov/midish-sub000/pkg/errs"

// Args is the named-argument bag every Op receives (§6.2: "typed, named
// arguments"). Keys are the parameter names the built-in table documents
// for each operation (e.g. "trackname", "channame", "dev").
type Args map[string]Value

// Long looks up a required KindLong argument.
func (a Args) Long(proc, key string) (int64, error) {
	v, ok := a[key]
	if !ok {
		return 0, errs.BadArgf(proc, "missing argument %q", key)
	}
	if v.Kind != KindLong {
		return 0, errs.BadArgf(proc, "argument %q must be a number, got %s", key, v.Kind)
	}
	return v.Long, nil
}

// OptLong looks up an optional KindLong argument, returning def if absent.
func (a Args) OptLong(proc, key string, def int64) (int64, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	if v.Kind != KindLong {
		return 0, errs.BadArgf(proc, "argument %q must be a number, got %s", key, v.Kind)
	}
	return v.Long, nil
}

// Str looks up a required KindString argument.
func (a Args) Str(proc, key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", errs.BadArgf(proc, "missing argument %q", key)
	}
	if v.Kind != KindString {
		return "", errs.BadArgf(proc, "argument %q must be a string, got %s", key, v.Kind)
	}
	return v.Str, nil
}

// Ref looks up a required KindRef argument (the name of a track, channel,
// filter or sysex bank).
func (a Args) Ref(proc, key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", errs.BadArgf(proc, "missing argument %q", key)
	}
	if v.Kind != KindRef {
		return "", errs.BadArgf(proc, "argument %q must be a reference, got %s", key, v.Kind)
	}
	return v.Ref, nil
}

// OptRef looks up an optional KindRef argument, returning def if absent.
func (a Args) OptRef(proc, key, def string) (string, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	if v.Kind != KindRef {
		return "", errs.BadArgf(proc, "argument %q must be a reference, got %s", key, v.Kind)
	}
	return v.Ref, nil
}

// OptBool reads a presence-style flag argument: any KindLong != 0 is true.
func (a Args) OptBool(key string) bool {
	v, ok := a[key]
	return ok && v.Kind == KindLong && v.Long != 0
}
