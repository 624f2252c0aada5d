package dispatch

import (
	"testing"

	"github.com/cbegin/polypot-go/internal/synth"
)

type call struct {
	op       string
	note     float32
	velocity float32
	env      synth.Envelope
}

type recorder struct{ calls []call }

func (r *recorder) NoteOn(note, velocity float32, env synth.Envelope) {
	r.calls = append(r.calls, call{"on", note, velocity, env})
}

func (r *recorder) NoteOff(note, velocity float32) {
	r.calls = append(r.calls, call{op: "off", note: note, velocity: velocity})
}

func (r *recorder) FreeAllVoices() {
	r.calls = append(r.calls, call{op: "all"})
}

type mutableParams struct{ env synth.Envelope }

func (m *mutableParams) Envelope() synth.Envelope { return m.env }

func TestDispatchRouting(t *testing.T) {
	shape := synth.Envelope{Attack: 0.2, Decay: 0.1, Sustain: 0.6, Release: 0.4}
	for _, tc := range []struct {
		name string
		ev   Event
		want []call
	}{
		{"note-on", NoteOn(60, 100), []call{{"on", 60, 100, shape}}},
		{"note-on zero velocity", NoteOn(60, 0), []call{{op: "off", note: 60}}},
		{"note-off", NoteOff(62, 40), []call{{op: "off", note: 62, velocity: 40}}},
		{"all notes off", AllNotesOff(), []call{{op: "all"}}},
		{"other", Event{Kind: KindOther, Note: 1, Velocity: 2}, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := &recorder{}
			New(r, Fixed(shape)).Dispatch(tc.ev)
			if len(r.calls) != len(tc.want) {
				t.Fatalf("calls = %+v, want %+v", r.calls, tc.want)
			}
			for i := range tc.want {
				if r.calls[i] != tc.want[i] {
					t.Errorf("call %d = %+v, want %+v", i, r.calls[i], tc.want[i])
				}
			}
		})
	}
}

func TestZeroVelocityNoteOnReleasesVoice(t *testing.T) {
	var p synth.Pool
	p.Init(48000)
	d := New(&p, nil)
	d.Dispatch(NoteOn(64, 90))
	if !p.Voice(0).Gate() {
		t.Fatal("voice should be gated after note-on")
	}
	d.Dispatch(NoteOn(64, 0))
	if p.Voice(0).Gate() {
		t.Fatal("zero-velocity note-on should release the gate")
	}
	if !p.Voice(0).IsActive() {
		t.Fatal("released voice should still be ringing out")
	}

	var q synth.Pool
	q.Init(48000)
	e := New(&q, nil)
	e.Dispatch(NoteOn(64, 90))
	e.Dispatch(NoteOff(64, 0))
	if p.Voice(0).State() != q.Voice(0).State() {
		t.Fatalf("zero-velocity note-on state %v differs from note-off state %v", p.Voice(0).State(), q.Voice(0).State())
	}
}

func TestShapeSampledAtNoteOn(t *testing.T) {
	var p synth.Pool
	p.Init(48000)
	params := &mutableParams{env: synth.Envelope{Attack: 0.1, Decay: 0.1, Sustain: 0.5, Release: 0.1}}
	d := New(&p, params)
	d.Dispatch(NoteOn(60, 100))
	first := params.env
	params.env = synth.Envelope{Attack: 0.9, Decay: 0.9, Sustain: 0.9, Release: 0.9}
	d.Dispatch(NoteOn(67, 100))
	if got := p.Voice(0).Envelope(); got != first {
		t.Fatalf("knob change leaked into sounding voice: %+v", got)
	}
	if got := p.Voice(1).Envelope(); got != params.env {
		t.Fatalf("new voice shape = %+v, want %+v", got, params.env)
	}
}
