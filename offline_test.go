package polypot

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func TestRenderEventsIsSampleAccurate(t *testing.T) {
	const sr = 48000
	events := []TimedEvent{
		{At: 100 * time.Millisecond, Message: midi.NoteOn(0, 69, 127)},
		{At: 300 * time.Millisecond, Message: midi.NoteOn(0, 69, 0)},
	}
	out, err := RenderEvents(events, sr, 1, WithLogger(nil))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(out) != sr*Channels {
		t.Fatalf("len = %d, want %d", len(out), sr*Channels)
	}
	start := sr / 10
	if p := peak(out[:start*Channels]); p != 0 {
		t.Fatalf("sound before the first note: peak %f", p)
	}
	if p := peak(out[start*Channels : (start+480)*Channels]); p == 0 {
		t.Fatal("no sound in the first 10ms after note-on")
	}
	// default release is 0.2s, so the tail is silent well before the end
	if p := peak(out[(sr*9/10)*Channels:]); p != 0 {
		t.Fatalf("sound after release finished: peak %f", p)
	}
}

func TestRenderEventsDropsLateEvents(t *testing.T) {
	events := []TimedEvent{{At: 2 * time.Second, Message: midi.NoteOn(0, 60, 100)}}
	out, err := RenderEvents(events, 8000, 0.5)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if peak(out) != 0 {
		t.Fatal("an event past the end should not sound")
	}
}

func TestRenderSMF(t *testing.T) {
	s := smf.New()
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(0, midi.NoteOn(0, 64, 100))
	tr.Add(960, midi.NoteOff(0, 60))
	tr.Add(0, midi.NoteOff(0, 64))
	tr.Close(0)
	if err := s.Add(tr); err != nil {
		t.Fatalf("add track: %v", err)
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("write SMF: %v", err)
	}
	out, err := RenderSMF(&buf, 22050, 0.5)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(out) < 22050*Channels/2 {
		t.Fatalf("render too short: %d samples", len(out))
	}
	if peak(out) == 0 {
		t.Fatal("render is silent")
	}
	if peak(out[len(out)-64:]) != 0 {
		t.Fatal("tail should have decayed to silence")
	}
}

func TestRenderSMFRejectsGarbage(t *testing.T) {
	if _, err := RenderSMF(bytes.NewReader([]byte("not a midi file")), 48000, 1); err == nil {
		t.Fatal("expected an error for a non-SMF input")
	}
}

func TestEncodeWAVFloat32LEHeader(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1}
	wav := EncodeWAVFloat32LE(samples, 44100, 2)
	if len(wav) != 44+len(samples)*4 {
		t.Fatalf("len = %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatal("bad chunk ids")
	}
	le := binary.LittleEndian
	if got := le.Uint16(wav[20:]); got != 3 {
		t.Fatalf("format = %d, want IEEE float", got)
	}
	if got := le.Uint32(wav[24:]); got != 44100 {
		t.Fatalf("sample rate = %d", got)
	}
	if got := le.Uint16(wav[32:]); got != 8 {
		t.Fatalf("block align = %d, want 8", got)
	}
	if got := math.Float32frombits(le.Uint32(wav[48:])); got != 0.5 {
		t.Fatalf("second sample = %f, want 0.5", got)
	}
}
