package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseArgsValid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Config
	}{
		{"no args", nil, Config{}},
		{"batch flag", []string{"-b"}, Config{Batch: true}},
		{"verbosity once", []string{"-v"}, Config{Verbosity: 1}},
		{"verbosity twice", []string{"-v", "-v"}, Config{Verbosity: 2}},
		{"script after flag", []string{"-b", "setup.txt"}, Config{Batch: true, ScriptFile: "setup.txt"}},
		{"script before flag", []string{"setup.txt", "-b"}, Config{Batch: true, ScriptFile: "setup.txt"}},
		{"script between verbosity flags", []string{"-v", "setup.txt", "-v"}, Config{Verbosity: 2, ScriptFile: "setup.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", "")
			got, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("ParseArgs(%v): unexpected error: %v", tt.args, err)
			}
			if got.Batch != tt.want.Batch || got.Verbosity != tt.want.Verbosity || got.ScriptFile != tt.want.ScriptFile {
				t.Errorf("ParseArgs(%v) = %+v, want %+v", tt.args, *got, tt.want)
			}
		})
	}
}

func TestParseArgsTooManyPositionalArgs(t *testing.T) {
	if _, err := ParseArgs([]string{"one.txt", "two.txt"}); err == nil {
		t.Fatal("expected an error for two positional arguments")
	}
}

func TestParseArgsUnknownFlag(t *testing.T) {
	if _, err := ParseArgs([]string{"--not-a-real-flag"}); err == nil {
		t.Fatal("expected an error for an unrecognized flag")
	}
}

func TestParseArgsResolvesRCFileUnlessBatch(t *testing.T) {
	dir := t.TempDir()
	rc := filepath.Join(dir, ".midishrc")
	if err := os.WriteFile(rc, []byte("# startup\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOME", dir)

	got, err := ParseArgs(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.RCFile != rc {
		t.Errorf("RCFile = %q, want %q", got.RCFile, rc)
	}

	gotBatch, err := ParseArgs([]string{"-b"})
	if err != nil {
		t.Fatal(err)
	}
	if gotBatch.RCFile != "" {
		t.Errorf("batch mode RCFile = %q, want empty", gotBatch.RCFile)
	}
}

func TestParseArgsMissingRCFileLeavesItEmpty(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	got, err := ParseArgs(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.RCFile != "" {
		t.Errorf("RCFile = %q, want empty when .midishrc doesn't exist", got.RCFile)
	}
}

func TestParseArgsNoRCFileWithoutHome(t *testing.T) {
	t.Setenv("HOME", "")
	got, err := ParseArgs(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.RCFile != "" {
		t.Errorf("RCFile = %q, want empty when HOME is unset", got.RCFile)
	}
}

func TestVerbosityToLogLevel(t *testing.T) {
	cases := map[int]string{0: "warn", -1: "warn", 1: "info", 2: "debug", 5: "debug"}
	for v, want := range cases {
		if got := VerbosityToLogLevel(v); got != want {
			t.Errorf("VerbosityToLogLevel(%d) = %q, want %q", v, got, want)
		}
	}
}
