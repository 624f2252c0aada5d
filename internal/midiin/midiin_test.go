package midiin

import (
	"bytes"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/polypot-go/internal/dispatch"
	"github.com/cbegin/polypot-go/internal/knobs"
	"github.com/cbegin/polypot-go/internal/synth"
)

func TestDecode(t *testing.T) {
	for _, tc := range []struct {
		name string
		msg  midi.Message
		want dispatch.Event
	}{
		{"note on", midi.NoteOn(0, 60, 100), dispatch.NoteOn(60, 100)},
		{"note on other channel", midi.NoteOn(9, 36, 127), dispatch.NoteOn(36, 127)},
		{"note on zero velocity", midi.NoteOn(0, 60, 0), dispatch.NoteOn(60, 0)},
		{"note off", midi.NoteOffVelocity(2, 61, 33), dispatch.NoteOff(61, 33)},
		{"all notes off", midi.ControlChange(0, 123, 0), dispatch.AllNotesOff()},
		{"all sound off", midi.ControlChange(5, 120, 0), dispatch.AllNotesOff()},
		{"other cc", midi.ControlChange(0, 7, 100), dispatch.Event{Kind: dispatch.KindOther}},
		{"program change", midi.ProgramChange(0, 5), dispatch.Event{Kind: dispatch.KindOther}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decode(tc.msg); got != tc.want {
				t.Fatalf("Decode = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRouterKnobsAndNotes(t *testing.T) {
	var p synth.Pool
	p.Init(48000)
	bank := knobs.NewBank(knobs.DefaultRanges())
	r := NewRouter(dispatch.New(&p, bank), bank, knobs.DefaultCCMap(), nil)

	r.Handle(midi.ControlChange(0, 73, 127)) // attack
	r.Handle(midi.ControlChange(0, 79, 0))   // sustain
	if v := bank.Value(knobs.Attack); v != 1 {
		t.Fatalf("attack knob = %f, want 1", v)
	}
	if p.ActiveVoiceCount() != 0 {
		t.Fatal("knob controllers must not start voices")
	}

	r.Handle(midi.NoteOn(0, 60, 100))
	v := p.Voice(0)
	if !v.Gate() || v.Note() != 60 {
		t.Fatalf("voice 0 gate=%v note=%v", v.Gate(), v.Note())
	}
	if env := v.Envelope(); env.Attack != 1 || env.Sustain != 0 {
		t.Fatalf("voice shape = %+v", env)
	}

	r.Handle(midi.NoteOn(0, 60, 0))
	if v.Gate() {
		t.Fatal("zero-velocity note-on should release the voice")
	}

	r.Handle(midi.NoteOn(0, 62, 100))
	r.Handle(midi.ControlChange(0, 123, 0))
	if p.Voice(1).Gate() {
		t.Fatal("all-notes-off should release every voice")
	}
}

func TestReadSMFOrdersEvents(t *testing.T) {
	s := smf.New()
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(960, midi.NoteOff(0, 60))
	tr.Add(0, midi.NoteOn(0, 64, 90))
	tr.Close(480)
	if err := s.Add(tr); err != nil {
		t.Fatalf("add track: %v", err)
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("write SMF: %v", err)
	}

	events, err := ReadSMF(&buf)
	if err != nil {
		t.Fatalf("ReadSMF: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].At != 0 {
		t.Fatalf("first event at %v, want 0", events[0].At)
	}
	for i := 1; i < len(events); i++ {
		if events[i].At < events[i-1].At {
			t.Fatalf("events out of order at %d", i)
		}
	}
	if events[1].At <= 0 || events[1].At > 2*time.Second {
		t.Fatalf("note-off at %v, want within the first beat", events[1].At)
	}
	if got := Decode(events[2].Message); got != dispatch.NoteOn(64, 90) {
		t.Fatalf("third event = %v", got)
	}
}
