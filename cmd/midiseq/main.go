// Command midiseq is the sequencer's process entry point (§6.5): it parses
// argv, wires a Song to a Mux-driven tick loop, runs the startup script and
// any script named on the command line, then serves the interactive or
// batch command prompt on stdin until EOF.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/ratchov/midish-sub000/pkg/cli"
	"github.com/ratchov/midish-sub000/pkg/device"
	"github.com/ratchov/midish-sub000/pkg/dispatch"
	"github.com/ratchov/midish-sub000/pkg/logger"
	"github.com/ratchov/midish-sub000/pkg/mux"
	"github.com/ratchov/midish-sub000/pkg/song"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cfg, err := cli.ParseArgs(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if cfg.ShowHelp {
		cli.PrintHelp(os.Stdout)
		return 0
	}
	if err := logger.Init(cli.VerbosityToLogLevel(cfg.Verbosity)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	log := logger.For("main")

	s := song.New()
	tbl := dispatch.NewTable()
	m := mux.New()
	var mu sync.Mutex

	backend, err := openDefaultBackend(cfg, log)
	if err != nil {
		log.Error("opening default device", "err", err)
		return 1
	}
	defer backend.Delete()
	m.AddDevice(&mux.DeviceSlot{
		Backend:    backend,
		Parser:     device.NewParser(0),
		Serializer: device.NewSerializer(),
	})

	s.AttachToMux(m, func(channelName string) (dev, ch int, ok bool) {
		c, ok := s.Channel(channelName)
		if !ok {
			return 0, 0, false
		}
		return c.Dev, c.Ch, true
	})

	stopEngine := make(chan struct{})
	go runEngine(m, s, backend, &mu, stopEngine)
	defer close(stopEngine)

	interactive := !cfg.Batch && term.IsTerminal(int(os.Stdin.Fd()))

	if !cfg.Batch && cfg.RCFile != "" {
		if code := runScriptFile(tbl, s, &mu, cfg.RCFile, log); code != 0 {
			log.Warn("startup script reported errors", "file", cfg.RCFile)
		}
	}
	if cfg.ScriptFile != "" {
		if code := runScriptFile(tbl, s, &mu, cfg.ScriptFile, log); code != 0 {
			return code
		}
	}

	r := cli.NewREPL(tbl, s, os.Stdin, os.Stdout, os.Stderr, interactive)
	r.Mu = &mu
	code, err := r.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return code
}

// openDefaultBackend opens device 0 per §6.5/§6.1: a SoundFont synth when
// -soundfont names a file, otherwise a null backend that discards output,
// mirroring the original's own behavior when no MIDI device is configured.
func openDefaultBackend(cfg *cli.Config, log *slog.Logger) (device.Backend, error) {
	if cfg.SoundFont != "" {
		synth, err := device.NewSoftSynth(0, cfg.SoundFont, nil)
		if err != nil {
			return nil, err
		}
		if err := synth.Open(); err != nil {
			return nil, err
		}
		log.Info("rendering device 0 through an in-process soundfont synth", "soundfont", cfg.SoundFont)
		return synth, nil
	}
	null := device.NewNullBackend()
	if err := null.Open(); err != nil {
		return nil, err
	}
	log.Warn("no MIDI devices configured, using a null backend")
	return null, nil
}

func runScriptFile(tbl *dispatch.Table, s *song.Song, mu *sync.Mutex, path string, log *slog.Logger) int {
	f, err := os.Open(path)
	if err != nil {
		log.Error("opening script", "path", path, "err", err)
		return 1
	}
	defer f.Close()
	r := cli.NewREPL(tbl, s, f, os.Stdout, os.Stderr, false)
	r.Mu = mu
	code, err := r.Run()
	if err != nil {
		log.Error("reading script", "path", path, "err", err)
		return 1
	}
	return code
}

// runEngine drives the mux's tick loop at the clock's own pace (§4.8),
// synchronizing the clock's transport state to the song's mode so PLAY/REC
// broadcast a MIDI start the way an incoming external start would, and
// stopping it again when the song goes idle. Each iteration first drains
// whatever input bytes the device has ready (§4.8 step 1), decoding them
// through the (dev,ch) Converter and feeding the result to the active
// recording session, before advancing and emitting (steps 2-4). It holds
// mu for every touch of s and m so the REPL goroutine's command dispatch
// never races it.
func runEngine(m *mux.Mux, s *song.Song, out device.Backend, mu *sync.Mutex, stop <-chan struct{}) {
	clock := m.Clock()
	start := time.Now()
	inBuf := make([]byte, 256)
	onInput := func(dev int, msg device.Message) {
		for _, e := range s.ConverterFor(dev, msg.Event.Ch).Unpack(msg.Event) {
			s.FeedInput(e)
		}
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		mu.Lock()
		if n, err := out.Read(inBuf); err == nil && n > 0 {
			m.DrainInput(0, inBuf[:n], onInput)
		}
		running := s.Mode() == song.ModePlay || s.Mode() == song.ModeRec
		switch {
		case running && clock.State() == mux.Stop:
			clock.HandleIncomingStart()
		case !running && clock.State() != mux.Stop:
			clock.HandleIncomingStop()
		}
		deadline := clock.NextExpiry()
		mu.Unlock()

		if d := time.Until(start.Add(deadline)); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-timer.C:
			case <-stop:
				timer.Stop()
				return
			}
		}

		mu.Lock()
		tic := clock.HandleIncomingTic()
		var writes []mux.Write
		if tic {
			writes = m.Tick()
		}
		mu.Unlock()

		for _, w := range writes {
			if w.Dev == 0 {
				out.Write(w.Bytes)
			}
		}
	}
}
