// Package cli implements the command-line surface (§6.5): argument parsing
// for the midiseq process and the line-oriented interactive/batch prompt
// built on top of pkg/dispatch's operation table.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"flag"
)

// Config holds the settings parsed from argv and the environment (§6.5).
type Config struct {
	Batch      bool   // -b: run non-interactively, no startup rc file
	Verbosity  int    // -v, repeatable: raises the log level one step per occurrence
	ScriptFile string // optional positional argument: a script to run before the prompt
	RCFile     string // $HOME/.midishrc, resolved unless Batch; "" if HOME is unset
	ShowHelp   bool
	SoundFont  string // -soundfont path: render through an in-process synth instead of a null device
}

// countFlag implements flag.Value for a flag that may be repeated to raise
// a count each time it appears with no argument ("-v -v -v").
type countFlag int

func (c *countFlag) String() string   { return fmt.Sprintf("%d", int(*c)) }
func (c *countFlag) Set(string) error { *c++; return nil }
func (c *countFlag) IsBoolFlag() bool { return true }

// ParseArgs parses argv (excluding the program name) into a Config.
// Requirement §6.5: "-b" selects batch mode, "-v" raises verbosity,
// a non-flag argument names a script to run before entering the prompt.
func ParseArgs(args []string) (*Config, error) {
	reordered := reorderArgs(args)

	fs := flag.NewFlagSet("midiseq", flag.ContinueOnError)
	config := &Config{}

	var verbosity countFlag
	var batch bool
	var help bool
	var soundFont string
	fs.BoolVar(&batch, "b", false, "batch mode: no startup script, no interactive prompt")
	fs.Var(&verbosity, "v", "raise verbosity (repeatable)")
	fs.BoolVar(&help, "h", false, "show this help and exit")
	fs.BoolVar(&help, "help", false, "show this help and exit")
	fs.StringVar(&soundFont, "soundfont", "", "render output through an in-process SoundFont synth instead of a null device")

	if err := fs.Parse(reordered); err != nil {
		return nil, err
	}

	config.Batch = batch
	config.Verbosity = int(verbosity)
	config.ShowHelp = help
	config.SoundFont = soundFont

	if fs.NArg() > 1 {
		return nil, fmt.Errorf("too many arguments: expected at most one script file, got %d", fs.NArg())
	}
	if fs.NArg() == 1 {
		config.ScriptFile = fs.Arg(0)
	}

	if !config.Batch {
		if home := os.Getenv("HOME"); home != "" {
			rc := filepath.Join(home, ".midishrc")
			if _, err := os.Stat(rc); err == nil {
				config.RCFile = rc
			}
		}
	}

	return config, nil
}

// reorderArgs separates flags (and any value a non-boolean flag consumes)
// from positional arguments so they can appear in any order on the command
// line, since Go's flag package otherwise stops scanning flags at the
// first positional token.
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if isFlagLike(arg) {
			flags = append(flags, arg)
			if arg == "-b" || arg == "-v" || arg == "-h" || arg == "--help" {
				continue
			}
			if i+1 < len(args) && !isFlagLike(args[i+1]) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// VerbosityToLogLevel maps a -v count to a pkg/logger level name, clamping
// at "debug" (§6.5: "-v raises verbosity").
func VerbosityToLogLevel(v int) string {
	switch {
	case v <= 0:
		return "warn"
	case v == 1:
		return "info"
	default:
		return "debug"
	}
}

// PrintHelp writes the usage summary to w.
func PrintHelp(w *os.File) {
	fmt.Fprint(w, `midiseq - MIDI sequencer event-timing and routing engine

Usage:
  midiseq [-b] [-v ...] [-soundfont file] [script]

Arguments:
  script        a project script to run before entering the prompt (optional)

Options:
  -b            batch mode: skip the startup rc file and the interactive prompt;
                read commands from stdin to EOF and exit 1 if any command failed
  -v            raise verbosity one step; repeatable (-v -v for debug logging)
  -soundfont    path to a SoundFont (.sf2) file; if given, device 0 renders
                through an in-process synth instead of discarding output
  -h, --help    show this help and exit

Environment Variables:
  HOME          directory searched for the startup script .midishrc,
                run once before the prompt unless -b is given
`)
}

// isFlagLike reports whether s looks like a command-line flag rather than a
// positional token.
func isFlagLike(s string) bool {
	return strings.HasPrefix(s, "-")
}
