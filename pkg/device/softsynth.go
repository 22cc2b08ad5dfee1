package device

import (
	"bytes"
	"os"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/ratchov/midish-sub000/pkg/errs"
	"github.com/ratchov/midish-sub000/pkg/ev"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

// SampleRate is the audio sample rate the soft-synth backend renders at.
const SampleRate = 44100

// SoftSynth is a Backend that renders its incoming voice events with an
// in-process SoundFont synthesizer instead of a physical MIDI port —
// standing in for a "sequencer-port API" backend per §6.1, with the whole
// wire-protocol round trip (Write feeds the same byte codec a real port
// would) kept intact so the core never has to special-case it.
type SoftSynth struct {
	dev    int
	synth  *meltysynth.Synthesizer
	ctx    *audio.Context
	player *audio.Player
	stream *synthStream
	parser *Parser

	mu   sync.Mutex
	open bool
}

// NewSoftSynth loads the SoundFont at path and returns a Backend for
// device index dev, rendering through ctx (an existing Ebitengine audio
// context may be shared across devices; pass nil to create one).
func NewSoftSynth(dev int, soundFontPath string, ctx *audio.Context) (*SoftSynth, error) {
	if soundFontPath == "" {
		return nil, errs.BadArgf("device.softsynth", "soundfont path is required")
	}
	data, err := os.ReadFile(soundFontPath)
	if err != nil {
		return nil, errs.IOErr("device.softsynth", err)
	}
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Protocolf("device.softsynth", "invalid soundfont: %v", err)
	}
	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	synth, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, errs.IOErr("device.softsynth", err)
	}
	if ctx == nil {
		ctx = audio.NewContext(SampleRate)
	}
	return &SoftSynth{
		dev:    dev,
		synth:  synth,
		ctx:    ctx,
		parser: NewParser(dev),
	}, nil
}

// synthStream renders continuously from the synthesizer, matching the
// io.Reader an Ebitengine audio.Player pulls from.
type synthStream struct {
	synth *meltysynth.Synthesizer
}

func (s *synthStream) Read(p []byte) (int, error) {
	samples := len(p) / 4
	if samples == 0 {
		return 0, nil
	}
	left := make([]float32, samples)
	right := make([]float32, samples)
	s.synth.Render(left, right)
	for i := 0; i < samples; i++ {
		l := clampSample(left[i])
		r := clampSample(right[i])
		p[i*4] = byte(l)
		p[i*4+1] = byte(l >> 8)
		p[i*4+2] = byte(r)
		p[i*4+3] = byte(r >> 8)
	}
	return samples * 4, nil
}

func clampSample(v float32) int16 {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}

func (b *SoftSynth) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		return nil
	}
	b.stream = &synthStream{synth: b.synth}
	player, err := b.ctx.NewPlayer(b.stream)
	if err != nil {
		return errs.IOErr("device.softsynth.open", err)
	}
	b.player = player
	b.player.Play()
	b.open = true
	return nil
}

func (b *SoftSynth) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return nil
	}
	b.synth.NoteOffAll(true)
	if b.player != nil {
		b.player.Close()
		b.player = nil
	}
	b.open = false
	return nil
}

// Read never has input: a soft synth produces audio, not MIDI bytes.
func (b *SoftSynth) Read(buf []byte) (int, error) { return 0, nil }

// Write decodes buf through the device's own running-status parser and
// applies each resulting voice event directly to the synthesizer.
func (b *SoftSynth) Write(buf []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return 0, errs.IOErr("device.softsynth.write", errClosed)
	}
	for _, by := range buf {
		for _, msg := range b.parser.Feed(by) {
			b.apply(msg.Event)
		}
	}
	return len(buf), nil
}

func (b *SoftSynth) apply(e ev.Event) {
	switch e.Kind {
	case ev.NON:
		b.synth.NoteOn(e.Ch, e.V0, e.V1)
	case ev.NOFF:
		b.synth.NoteOff(e.Ch, e.V0)
	case ev.KAT:
		b.synth.ProcessMidiMessage(e.Ch, 0xA0, e.V0, e.V1)
	case ev.CTL:
		b.synth.ProcessMidiMessage(e.Ch, 0xB0, e.V0, e.V1)
	case ev.PC:
		b.synth.ProcessMidiMessage(e.Ch, 0xC0, e.V0, 0)
	case ev.CAT:
		b.synth.ProcessMidiMessage(e.Ch, 0xD0, e.V0, 0)
	case ev.BEND:
		b.synth.ProcessMidiMessage(e.Ch, 0xE0, e.V0&0x7F, (e.V0>>7)&0x7F)
	}
}

func (b *SoftSynth) Nfds() int                            { return 0 }
func (b *SoftSynth) Pollfd(pfds []PollFd, events int) int { return 0 }
func (b *SoftSynth) Revents(pfds []PollFd) int            { return 0 }

func (b *SoftSynth) Delete() {
	b.Close()
	b.synth = nil
}
