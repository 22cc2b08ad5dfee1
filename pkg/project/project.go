// Package project implements the on-disk project format (§6.3): a
// plain-text, line-oriented, brace-delimited serialization of a Song. Save
// is a complete writer; Load parses back exactly the subset Save emits,
// enough to exercise round-trip law #7 for the state the core itself owns.
// Full grammar recovery (arbitrary whitespace/comments, line/column error
// reporting) is not implemented.
package project

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ratchov/midish-sub000/pkg/ev"
	"github.com/ratchov/midish-sub000/pkg/errs"
	"github.com/ratchov/midish-sub000/pkg/song"
	"github.com/ratchov/midish-sub000/pkg/track"
)

// FormatVersion is the project format version this writer emits and this
// reader accepts.
const FormatVersion = 1

// Save writes s to w in the on-disk project format.
func Save(w io.Writer, s *song.Song) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# midish-sub000 project\n")
	fmt.Fprintf(bw, "{\n\tformat %d\n", FormatVersion)
	fmt.Fprintf(bw, "\ttics_per_unit %d\n", s.TicsPerUnit())
	fmt.Fprintf(bw, "\ttempo_factor 256\n")

	fmt.Fprintf(bw, "\tmeta {\n")
	writeTrackBody(bw, s.Meta, "\t\t")
	fmt.Fprintf(bw, "\t}\n")

	for _, name := range s.TrackNames() {
		tr, _ := s.Track(name)
		fmt.Fprintf(bw, "\tsongtrk %s {\n", quote(name))
		if s.Muted(name) {
			fmt.Fprintf(bw, "\t\tmute\n")
		}
		writeTrackBody(bw, tr, "\t\t")
		fmt.Fprintf(bw, "\t}\n")
	}

	fmt.Fprintf(bw, "}\n")
	return bw.Flush()
}

func writeTrackBody(bw *bufio.Writer, tr *track.Track, indent string) {
	for _, p := range tr.Events() {
		fmt.Fprintf(bw, "%s%d %s\n", indent, p.Delta, encodeEvent(p.Event))
	}
}

// encodeEvent renders one event as "<keyword> [{dev ch}] v0 v1", omitting
// parameters the kind doesn't carry (§6.3's "events are keyword + args").
func encodeEvent(e ev.Event) string {
	d, ok := ev.Info(e.Kind)
	name := "null"
	if ok {
		name = d.Name
	}
	var b strings.Builder
	b.WriteString(name)
	if ok && d.HasDev {
		if d.HasCh {
			fmt.Fprintf(&b, " {%d %d}", e.Dev, e.Ch)
		} else {
			fmt.Fprintf(&b, " {%d}", e.Dev)
		}
	}
	if ok && d.NParams >= 1 {
		if e.V0 == ev.Undef {
			b.WriteString(" nil")
		} else {
			fmt.Fprintf(&b, " %d", e.V0)
		}
	}
	if ok && d.NParams >= 2 {
		if e.V1 == ev.Undef {
			b.WriteString(" nil")
		} else {
			fmt.Fprintf(&b, " %d", e.V1)
		}
	}
	return b.String()
}

func quote(s string) string { return `"` + s + `"` }

// Load parses a project file written by Save into a fresh *song.Song.
func Load(r io.Reader) (*song.Song, error) {
	sc := bufio.NewScanner(r)
	p := &parser{sc: sc, s: song.New()}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.s, nil
}

type parser struct {
	sc   *bufio.Scanner
	s    *song.Song
	line int
}

func (p *parser) nextLine() (string, bool) {
	for p.sc.Scan() {
		p.line++
		line := strings.TrimSpace(p.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, true
	}
	return "", false
}

func (p *parser) run() error {
	for {
		line, ok := p.nextLine()
		if !ok {
			return nil
		}
		if line == "{" {
			return p.block()
		}
		return errs.Parsef("project.load", "line %d: expected '{', got %q", p.line, line)
	}
}

func (p *parser) block() error {
	for {
		line, ok := p.nextLine()
		if !ok {
			return errs.Parsef("project.load", "unexpected EOF inside top-level block")
		}
		if line == "}" {
			return nil
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "format":
			// version accepted, not otherwise interpreted
		case "tics_per_unit":
			n, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return errs.Parsef("project.load", "line %d: bad tics_per_unit", p.line)
			}
			p.s.SetTicsPerUnit(n)
		case "tempo_factor":
			// accepted, not otherwise interpreted (playback speed multiplier)
		case "meta":
			tr, err := p.readTrackBody()
			if err != nil {
				return err
			}
			p.s.Meta = tr
		case "songtrk":
			name, err := unquote(fields[1])
			if err != nil {
				return err
			}
			if err := p.s.NewTrack(name); err != nil {
				return err
			}
			tr, muted, err := p.readSongtrkBody()
			if err != nil {
				return err
			}
			if err := p.s.ReplaceTrack(name, tr); err != nil {
				return err
			}
			if muted {
				p.s.SetMuted(name, true)
			}
		default:
			return errs.Parsef("project.load", "line %d: unknown form %q", p.line, fields[0])
		}
	}
}

// readTrackBody consumes a bare "{ <delta> <event> ... }" block, assuming
// the opening brace is the remainder of the current logical line already
// scanned as part of e.g. "meta {".
func (p *parser) readTrackBody() (*track.Track, error) {
	var pairs []track.Pair
	for {
		line, ok := p.nextLine()
		if !ok {
			return nil, errs.Parsef("project.load", "unexpected EOF inside track body")
		}
		if line == "}" {
			return track.FromPairs(pairs, 0), nil
		}
		pair, err := p.parseEventLine(line)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
}

func (p *parser) readSongtrkBody() (*track.Track, bool, error) {
	var pairs []track.Pair
	muted := false
	for {
		line, ok := p.nextLine()
		if !ok {
			return nil, false, errs.Parsef("project.load", "unexpected EOF inside songtrk body")
		}
		if line == "}" {
			return track.FromPairs(pairs, 0), muted, nil
		}
		if line == "mute" {
			muted = true
			continue
		}
		pair, err := p.parseEventLine(line)
		if err != nil {
			return nil, false, err
		}
		pairs = append(pairs, pair)
	}
}

func (p *parser) parseEventLine(line string) (track.Pair, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return track.Pair{}, errs.Parsef("project.load", "line %d: malformed event line %q", p.line, line)
	}
	delta, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return track.Pair{}, errs.Parsef("project.load", "line %d: bad delta", p.line)
	}
	e, err := p.parseEvent(fields[1:])
	if err != nil {
		return track.Pair{}, err
	}
	return track.Pair{Delta: delta, Event: e}, nil
}

func (p *parser) parseEvent(fields []string) (ev.Event, error) {
	if len(fields) == 0 {
		return ev.Event{}, errs.Parsef("project.load", "line %d: missing event keyword", p.line)
	}
	k, ok := ev.ByName(fields[0])
	if !ok {
		return ev.Event{}, errs.Parsef("project.load", "line %d: unknown event keyword %q", p.line, fields[0])
	}
	d, _ := ev.Info(k)
	rest := fields[1:]
	dev, ch := 0, 0
	if d.HasDev {
		if len(rest) == 0 || !strings.HasPrefix(rest[0], "{") {
			return ev.Event{}, errs.Parsef("project.load", "line %d: expected {dev ch}", p.line)
		}
		joined := strings.Join(rest, " ")
		start := strings.Index(joined, "{")
		end := strings.Index(joined, "}")
		if start < 0 || end < 0 || end < start {
			return ev.Event{}, errs.Parsef("project.load", "line %d: malformed {dev ch}", p.line)
		}
		inner := strings.Fields(joined[start+1 : end])
		dev, _ = strconv.Atoi(inner[0])
		if d.HasCh && len(inner) > 1 {
			ch, _ = strconv.Atoi(inner[1])
		}
		remainder := strings.Fields(joined[end+1:])
		rest = remainder
	}
	v0, v1 := ev.Undef, ev.Undef
	if d.NParams >= 1 && len(rest) > 0 {
		v0 = parseParam(rest[0])
		rest = rest[1:]
	}
	if d.NParams >= 2 && len(rest) > 0 {
		v1 = parseParam(rest[0])
	}
	return ev.New(k, dev, ch, v0, v1), nil
}

func parseParam(tok string) int {
	if tok == "nil" {
		return ev.Undef
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return ev.Undef
	}
	return n
}

func unquote(tok string) (string, error) {
	if len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' {
		return tok[1 : len(tok)-1], nil
	}
	return "", errs.Parsef("project.load", "expected a quoted name, got %q", tok)
}
