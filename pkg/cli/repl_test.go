package cli

import (
	"strings"
	"testing"

	"github.com/ratchov/midish-sub000/pkg/dispatch"
	"github.com/ratchov/midish-sub000/pkg/song"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{`tnew trackname=bass`, []string{"tnew", "trackname=bass"}},
		{`tnew trackname="lead guitar"`, []string{"tnew", `trackname=lead guitar`}},
		{"  tlist  ", []string{"tlist"}},
		{"", nil},
	}
	for _, c := range cases {
		got, err := tokenize(c.in)
		if err != nil {
			t.Fatalf("tokenize(%q): %v", c.in, err)
		}
		if len(got) != len(c.want) {
			t.Fatalf("tokenize(%q) = %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("tokenize(%q)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

func TestTokenizeUnterminatedQuote(t *testing.T) {
	if _, err := tokenize(`tnew trackname="bass`); err == nil {
		t.Fatal("expected an error for an unterminated quoted string")
	}
}

func TestParseArgsTokens(t *testing.T) {
	args, err := parseArgs([]string{"trackname=bass", "halftones=-2", "path=out.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if args["trackname"].Kind != dispatch.KindRef || args["trackname"].Ref != "bass" {
		t.Errorf("trackname = %v", args["trackname"])
	}
	if args["halftones"].Kind != dispatch.KindLong || args["halftones"].Long != -2 {
		t.Errorf("halftones = %v", args["halftones"])
	}
	if args["path"].Kind != dispatch.KindString || args["path"].Str != "out.txt" {
		t.Errorf("path = %v", args["path"])
	}
}

func TestParseArgsRejectsBareTokens(t *testing.T) {
	if _, err := parseArgs([]string{"bass"}); err == nil {
		t.Fatal("expected an error for a token without '='")
	}
}

func TestREPLRunsScriptToEOF(t *testing.T) {
	tbl := dispatch.NewTable()
	s := song.New()
	in := strings.NewReader("tnew trackname=bass\nmute trackname=bass\ntlist\n")
	var out, errOut strings.Builder

	r := NewREPL(tbl, s, in, &out, &errOut, false)
	code, err := r.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr=%q", code, errOut.String())
	}
	if !strings.Contains(out.String(), "bass") {
		t.Errorf("tlist output %q does not mention the new track", out.String())
	}
}

func TestREPLReportsFailureExitCode(t *testing.T) {
	tbl := dispatch.NewTable()
	s := song.New()
	in := strings.NewReader("tnew trackname=bass\ntnew trackname=bass\n")
	var out, errOut strings.Builder

	r := NewREPL(tbl, s, in, &out, &errOut, false)
	code, err := r.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if errOut.Len() == 0 {
		t.Error("expected an error message on the second tnew")
	}
}

func TestREPLInteractivePrintsLineNumberedPrompt(t *testing.T) {
	tbl := dispatch.NewTable()
	s := song.New()
	in := strings.NewReader("tlist\n")
	var out, errOut strings.Builder

	r := NewREPL(tbl, s, in, &out, &errOut, true)
	if _, err := r.Run(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "1> ") {
		t.Errorf("expected output to start with a %q prompt, got %q", "1> ", out.String())
	}
}

func TestREPLSkipsBlankAndCommentLines(t *testing.T) {
	tbl := dispatch.NewTable()
	s := song.New()
	in := strings.NewReader("\n# a comment\ntnew trackname=bass\n")
	var out, errOut strings.Builder

	r := NewREPL(tbl, s, in, &out, &errOut, false)
	code, err := r.Run()
	if err != nil || code != 0 {
		t.Fatalf("Run: code=%d err=%v stderr=%q", code, err, errOut.String())
	}
	if _, ok := s.Track("bass"); !ok {
		t.Error("expected tnew to have run despite preceding blank/comment lines")
	}
}
