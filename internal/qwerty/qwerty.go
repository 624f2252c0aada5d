// Package qwerty plays the synth from a computer keyboard laid out as two
// piano octaves.
package qwerty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/eiannone/keyboard"
	"golang.org/x/term"

	"github.com/cbegin/polypot-go/internal/dispatch"
)

var (
	ErrNotTerminal = errors.New("stdin is not a terminal")
	// ErrQuit is returned by Run when the user presses Esc or Ctrl-C.
	ErrQuit = errors.New("keyboard quit")
)

const (
	lowerRow = "zsxdcvgbhnjm,"
	upperRow = "q2w3er5t6y7ui"

	DefaultBaseNote = 48
	DefaultVelocity = 100
	DefaultHold     = 400 * time.Millisecond
	maxOctaveShift  = 4
)

// Sink receives the note events produced by key presses. It is called from
// the key reader and from hold timers.
type Sink interface {
	Dispatch(ev dispatch.Event)
}

type Options struct {
	BaseNote int
	Velocity uint8
	Hold     time.Duration
	Logger   *slog.Logger
}

type timer interface {
	Reset(d time.Duration) bool
	Stop() bool
}

// Layout maps the two key rows to notes, lower row starting at the base
// note and upper row an octave above, shifted by whole octaves.
type Layout struct {
	base   int
	octave int
}

func NewLayout(base int) Layout {
	if base <= 0 {
		base = DefaultBaseNote
	}
	return Layout{base: base}
}

// NoteFor maps a key to a MIDI note at the current octave shift.
func (l *Layout) NoteFor(r rune) (uint8, bool) {
	idx := strings.IndexRune(lowerRow, r)
	if idx < 0 {
		if idx = strings.IndexRune(upperRow, r); idx < 0 {
			return 0, false
		}
		idx += 12
	}
	n := l.base + 12*l.octave + idx
	if n < 0 || n > 127 {
		return 0, false
	}
	return uint8(n), true
}

// Shift moves the layout by delta octaves and reports whether it moved.
func (l *Layout) Shift(delta int) bool {
	o := l.octave + delta
	if o < -maxOctaveShift || o > maxOctaveShift {
		return false
	}
	l.octave = o
	return true
}

func (l *Layout) Octave() int { return l.octave }

// Keyboard turns key presses into NoteOn events. A terminal reports no key
// release, so every note is released after the hold time unless the key is
// pressed again first.
type Keyboard struct {
	sink     Sink
	velocity uint8
	hold     time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	layout Layout
	held   map[uint8]timer

	afterFunc func(time.Duration, func()) timer
}

func New(sink Sink, opts Options) *Keyboard {
	if opts.Velocity == 0 {
		opts.Velocity = DefaultVelocity
	}
	if opts.Hold <= 0 {
		opts.Hold = DefaultHold
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Keyboard{
		sink:     sink,
		layout:   NewLayout(opts.BaseNote),
		velocity: opts.Velocity,
		hold:     opts.Hold,
		logger:   opts.Logger,
		held:     make(map[uint8]timer),
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
}

func (k *Keyboard) NoteFor(r rune) (uint8, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.layout.NoteFor(r)
}

func (k *Keyboard) Octave() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.layout.Octave()
}

// Press handles one key event and reports whether it asked to quit.
func (k *Keyboard) Press(r rune, key keyboard.Key) (quit bool) {
	switch {
	case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
		return true
	case key == keyboard.KeySpace || r == ' ':
		k.ReleaseAll()
		k.sink.Dispatch(dispatch.AllNotesOff())
		return false
	case r == '-':
		k.shift(-1)
		return false
	case r == '=':
		k.shift(1)
		return false
	}

	k.mu.Lock()
	note, ok := k.layout.NoteFor(r)
	if !ok {
		k.mu.Unlock()
		return false
	}
	if t, held := k.held[note]; held {
		t.Reset(k.hold)
		k.mu.Unlock()
		return false
	}
	k.held[note] = k.afterFunc(k.hold, func() { k.release(note) })
	k.mu.Unlock()

	k.sink.Dispatch(dispatch.NoteOn(note, k.velocity))
	return false
}

func (k *Keyboard) shift(delta int) {
	k.mu.Lock()
	moved := k.layout.Shift(delta)
	o := k.layout.Octave()
	k.mu.Unlock()
	if moved {
		k.logger.Info("octave", "shift", o)
	}
}

func (k *Keyboard) release(note uint8) {
	k.mu.Lock()
	if _, ok := k.held[note]; !ok {
		k.mu.Unlock()
		return
	}
	delete(k.held, note)
	k.mu.Unlock()
	k.sink.Dispatch(dispatch.NoteOff(note, 0))
}

// ReleaseAll stops every hold timer and sends NoteOff for the held notes.
func (k *Keyboard) ReleaseAll() {
	k.mu.Lock()
	notes := make([]uint8, 0, len(k.held))
	for n, t := range k.held {
		t.Stop()
		notes = append(notes, n)
	}
	clear(k.held)
	k.mu.Unlock()
	for _, n := range notes {
		k.sink.Dispatch(dispatch.NoteOff(n, 0))
	}
}

// Held returns the number of notes waiting for their hold to expire.
func (k *Keyboard) Held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.held)
}

// Run reads the terminal until ctx is done or the user quits. The terminal
// is restored and held notes are released before it returns.
func (k *Keyboard) Run(ctx context.Context) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ErrNotTerminal
	}
	keys, err := keyboard.GetKeys(16)
	if err != nil {
		return fmt.Errorf("open keyboard: %w", err)
	}
	defer func() {
		_ = keyboard.Close()
	}()
	defer k.ReleaseAll()

	k.logger.Info("keyboard ready", "lower", lowerRow, "upper", upperRow, "hold", k.hold)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-keys:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				return fmt.Errorf("read key: %w", ev.Err)
			}
			if k.Press(ev.Rune, ev.Key) {
				return ErrQuit
			}
		}
	}
}
