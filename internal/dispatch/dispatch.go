// Package dispatch turns decoded note events into voice pool calls.
package dispatch

import (
	"fmt"

	"github.com/cbegin/polypot-go/internal/synth"
)

// Kind identifies a decoded note event.
type Kind int

const (
	KindOther Kind = iota
	KindNoteOn
	KindNoteOff
	// KindAllNotesOff releases every voice (MIDI CC 120/123).
	KindAllNotesOff
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "note-on"
	case KindNoteOff:
		return "note-off"
	case KindAllNotesOff:
		return "all-notes-off"
	default:
		return "other"
	}
}

// Event is a channel-less note message. Velocity is 0-127.
type Event struct {
	Kind     Kind
	Note     uint8
	Velocity uint8
}

func (e Event) String() string {
	return fmt.Sprintf("%s note=%d vel=%d", e.Kind, e.Note, e.Velocity)
}

func NoteOn(note, velocity uint8) Event {
	return Event{Kind: KindNoteOn, Note: note, Velocity: velocity}
}

func NoteOff(note, velocity uint8) Event {
	return Event{Kind: KindNoteOff, Note: note, Velocity: velocity}
}

func AllNotesOff() Event { return Event{Kind: KindAllNotesOff} }

// Target receives voice allocation requests. *synth.Pool and *engine.Engine
// both satisfy it.
type Target interface {
	NoteOn(note, velocity float32, env synth.Envelope)
	NoteOff(note, velocity float32)
	FreeAllVoices()
}

// ParamSource supplies the envelope shape for the next note-on.
type ParamSource interface {
	Envelope() synth.Envelope
}

// Fixed is a ParamSource that always returns the same shape.
type Fixed synth.Envelope

func (f Fixed) Envelope() synth.Envelope { return synth.Envelope(f) }

type Dispatcher struct {
	target Target
	params ParamSource
}

func New(target Target, params ParamSource) *Dispatcher {
	if params == nil {
		params = Fixed(synth.DefaultEnvelope)
	}
	return &Dispatcher{target: target, params: params}
}

// Dispatch routes one event. A note-on with zero velocity is a note-off.
// The envelope shape is sampled once per note-on and passed by value, so
// later knob movement never reaches a sounding voice.
func (d *Dispatcher) Dispatch(ev Event) {
	switch ev.Kind {
	case KindNoteOn:
		if ev.Velocity == 0 {
			d.target.NoteOff(float32(ev.Note), 0)
			return
		}
		d.target.NoteOn(float32(ev.Note), float32(ev.Velocity), d.params.Envelope())
	case KindNoteOff:
		d.target.NoteOff(float32(ev.Note), float32(ev.Velocity))
	case KindAllNotesOff:
		d.target.FreeAllVoices()
	}
}
