package main

import (
	"io"
	"os"
	"strings"
	"testing"
)

// withCapturedStdout redirects os.Stdout for the duration of fn and returns
// everything written to it.
func withCapturedStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

// withStdin redirects os.Stdin to read from content for the duration of fn.
func withStdin(t *testing.T, content string, fn func()) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	orig := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = orig }()

	go func() {
		io.WriteString(w, content)
		w.Close()
	}()
	fn()
}

func TestRunHelp(t *testing.T) {
	out := withCapturedStdout(t, func() {
		code := run([]string{"--help"})
		if code != 0 {
			t.Errorf("run(--help) = %d, want 0", code)
		}
	})
	if !strings.Contains(out, "midiseq") {
		t.Errorf("help output %q does not mention the program name", out)
	}
}

func TestRunBatchScriptOnStdin(t *testing.T) {
	var out string
	withStdin(t, "tnew trackname=lead\ntlist\n", func() {
		out = withCapturedStdout(t, func() {
			code := run([]string{"-b"})
			if code != 0 {
				t.Errorf("run(-b) = %d, want 0", code)
			}
		})
	})
	if !strings.Contains(out, "lead") {
		t.Errorf("batch output %q does not mention the new track", out)
	}
}

func TestRunBatchReportsCommandFailure(t *testing.T) {
	withStdin(t, "tnew trackname=lead\ntnew trackname=lead\n", func() {
		withCapturedStdout(t, func() {
			code := run([]string{"-b"})
			if code != 1 {
				t.Errorf("run(-b) with a failing second command = %d, want 1", code)
			}
		})
	})
}

func TestRunRejectsMissingSoundFont(t *testing.T) {
	code := run([]string{"-b", "-soundfont", "/no/such/file.sf2"})
	if code != 1 {
		t.Errorf("run with a nonexistent -soundfont = %d, want 1", code)
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	code := run([]string{"--not-a-flag"})
	if code != 1 {
		t.Errorf("run with an unknown flag = %d, want 1", code)
	}
}

func TestRunWithScriptFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "startup-*.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("tnew trackname=bass\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	withStdin(t, "tlist\n", func() {
		out := withCapturedStdout(t, func() {
			code := run([]string{"-b", f.Name()})
			if code != 0 {
				t.Errorf("run(-b, scriptfile) = %d, want 0", code)
			}
		})
		if !strings.Contains(out, "bass") {
			t.Errorf("output %q does not mention the track the script file created", out)
		}
	})
}
