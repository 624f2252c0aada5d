// Package polypot is an eight-voice polyphonic synthesizer driven by MIDI
// note events.
package polypot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"

	intaudio "github.com/cbegin/polypot-go/internal/audio"
	intdisp "github.com/cbegin/polypot-go/internal/dispatch"
	intfx "github.com/cbegin/polypot-go/internal/effects"
	"github.com/cbegin/polypot-go/internal/engine"
	"github.com/cbegin/polypot-go/internal/knobs"
	"github.com/cbegin/polypot-go/internal/midiin"
	"github.com/cbegin/polypot-go/internal/synth"
)

// Event is a note event accepted by Player.Dispatch.
type Event = intdisp.Event

// TimedEvent is a MIDI message scheduled for offline rendering.
type TimedEvent = midiin.TimedEvent

// VoiceInfo reports the state and note of one voice slot.
type VoiceInfo = engine.VoiceInfo

func NoteOn(note, velocity uint8) Event  { return intdisp.NoteOn(note, velocity) }
func NoteOff(note, velocity uint8) Event { return intdisp.NoteOff(note, velocity) }
func AllNotesOff() Event                 { return intdisp.AllNotesOff() }

// Voices is the fixed polyphony.
const Voices = synth.Capacity

// Channels is the number of interleaved output channels.
const Channels = intaudio.Channels

// baseGain leaves headroom for the full pool sounding at once.
const baseGain = 0.25

const DefaultBufferSize = 20 * time.Millisecond

type Backend string

const (
	BackendEbiten Backend = "ebiten"
	BackendOto    Backend = "oto"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendEbiten, BackendOto:
		return b, nil
	case "":
		return BackendEbiten, nil
	}
	return "", fmt.Errorf("unknown audio backend %q", s)
}

type Option func(*playerConfig)

type playerConfig struct {
	backend     Backend
	bufferSize  time.Duration
	effects     intfx.Effector
	effectsSpec string
	ranges      knobs.Ranges
	ccMap       knobs.CCMap
	knobs       []knobSetting
	logger      *slog.Logger
	sampleTap   func([]float32)
}

type knobSetting struct {
	knob knobs.Knob
	pos  float32
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		backend:    BackendEbiten,
		bufferSize: DefaultBufferSize,
		ranges:     knobs.DefaultRanges(),
		ccMap:      knobs.DefaultCCMap(),
		logger:     slog.Default(),
	}
}

func WithBackend(b Backend) Option {
	return func(cfg *playerConfig) {
		cfg.backend = b
	}
}

// WithBufferSize sets the audio driver buffer, which bounds the latency
// between a note event and its first sample.
func WithBufferSize(d time.Duration) Option {
	return func(cfg *playerConfig) {
		if d > 0 {
			cfg.bufferSize = d
		}
	}
}

// WithEffects runs the voice mix through fx. A nil effector plays the mix
// dry on both channels.
func WithEffects(fx intfx.Effector) Option {
	return func(cfg *playerConfig) {
		cfg.effects = fx
		cfg.effectsSpec = ""
	}
}

// WithEffectsSpec is WithEffects for a chain description such as
// "filter,reverb" or "default". Parse errors surface from NewPlayer.
func WithEffectsSpec(spec string) Option {
	return func(cfg *playerConfig) {
		cfg.effects = nil
		cfg.effectsSpec = spec
	}
}

func WithKnobRanges(r knobs.Ranges) Option {
	return func(cfg *playerConfig) {
		cfg.ranges = r
	}
}

// WithKnob sets the starting position of one knob, in [0, 1].
func WithKnob(k knobs.Knob, pos float32) Option {
	return func(cfg *playerConfig) {
		cfg.knobs = append(cfg.knobs, knobSetting{knob: k, pos: pos})
	}
}

// WithCCMap replaces the controller numbers that move the envelope knobs.
func WithCCMap(m knobs.CCMap) Option {
	return func(cfg *playerConfig) {
		cfg.ccMap = m
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cfg *playerConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

// Player owns the voice engine, the knob bank and one audio output.
// Dispatch, HandleMIDI and the knob setters are safe to call from any
// goroutine.
type Player struct {
	mu         sync.Mutex
	sampleRate int
	engine     *engine.Engine
	knobs      *knobs.Bank
	router     *midiin.Router
	backend    Backend
	bufferSize time.Duration
	out        intaudio.Backend
	volume     float64
	sampleTap  func([]float32)
	logger     *slog.Logger
}

// NewPlayer builds a player. No audio device is opened until Start.
func NewPlayer(sampleRate int, opts ...Option) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newPlayer(sampleRate, engine.DefaultQueueSize, cfg)
}

func newPlayer(sampleRate, queueSize int, cfg playerConfig) (*Player, error) {
	fx := cfg.effects
	if cfg.effectsSpec != "" {
		chain, err := intfx.Parse(cfg.effectsSpec, sampleRate)
		if err != nil {
			return nil, err
		}
		if chain != nil {
			fx = chain
		}
	}
	eng := engine.New(sampleRate, engine.Options{
		Channels:  intaudio.Channels,
		Effects:   fx,
		QueueSize: queueSize,
	})
	eng.SetMasterGain(baseGain)
	bank := knobs.NewBank(cfg.ranges)
	for _, ks := range cfg.knobs {
		bank.Set(ks.knob, ks.pos)
	}
	router := midiin.NewRouter(intdisp.New(eng, bank), bank, cfg.ccMap, cfg.logger)
	return &Player{
		sampleRate: sampleRate,
		engine:     eng,
		knobs:      bank,
		router:     router,
		backend:    cfg.backend,
		bufferSize: cfg.bufferSize,
		volume:     1,
		sampleTap:  cfg.sampleTap,
		logger:     cfg.logger,
	}, nil
}

// Start opens the audio backend and begins pulling samples. Calling it on a
// running player does nothing.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out != nil {
		return nil
	}
	var (
		out intaudio.Backend
		err error
	)
	switch p.backend {
	case BackendOto:
		out, err = intaudio.NewOtoPlayer(p.sampleRate, p, p.bufferSize)
	default:
		out, err = intaudio.NewPlayer(p.sampleRate, p, p.bufferSize)
	}
	if err != nil {
		return fmt.Errorf("start %s audio: %w", p.backend, err)
	}
	out.Play()
	p.out = out
	p.logger.Info("audio started", "backend", p.backend, "sample_rate", p.sampleRate, "buffer", p.bufferSize)
	return nil
}

// Process renders the next interleaved stereo buffer. The audio backend
// calls it from its reader goroutine; offline renders call it directly.
func (p *Player) Process(dst []float32) {
	p.engine.Process(dst)
	if p.sampleTap != nil {
		p.sampleTap(dst)
	}
}

func (p *Player) Dispatch(ev Event) {
	p.router.Dispatch(ev)
}

// HandleMIDI applies a raw MIDI message: mapped controllers move knobs,
// notes and all-notes-off go to the voices, anything else is ignored.
func (p *Player) HandleMIDI(msg midi.Message) {
	p.router.Handle(msg)
}

// Knobs returns the envelope parameter bank read at every note-on.
func (p *Player) Knobs() *knobs.Bank { return p.knobs }

func (p *Player) SampleRate() int { return p.sampleRate }

// ActiveVoices is the number of voices sounding at the end of the last
// rendered buffer.
func (p *Player) ActiveVoices() int { return p.engine.ActiveVoiceCount() }

// VoiceStates snapshots every voice slot as of the last rendered buffer.
func (p *Player) VoiceStates() [Voices]VoiceInfo { return p.engine.Voices() }

// DroppedEvents counts note events lost because the render side fell behind.
func (p *Player) DroppedEvents() uint64 { return p.engine.DroppedCommands() }

// SetMasterVolume sets runtime volume scalar. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	p.engine.SetMasterGain(baseGain * volume)
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out != nil {
		p.out.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out != nil {
		p.out.Play()
	}
}

// Close releases every voice and shuts the audio backend down.
func (p *Player) Close() error {
	p.engine.FreeAllVoices()
	p.mu.Lock()
	out := p.out
	p.out = nil
	p.mu.Unlock()
	if out == nil {
		return nil
	}
	out.Pause()
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s audio: %w", p.backend, err)
	}
	p.logger.Info("audio stopped", "backend", p.backend, "frames", p.engine.FramesRendered())
	return nil
}
