package polypot

import (
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/polypot-go/internal/knobs"
	"github.com/cbegin/polypot-go/internal/synth"
)

func TestPlayerMasterVolumeRuntimeAPI(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if got := pl.MasterVolume(); got != 1 {
		t.Fatalf("default master volume = %v, want 1", got)
	}
	pl.SetMasterVolume(0.35)
	if got := pl.MasterVolume(); got != 0.35 {
		t.Fatalf("master volume = %v, want 0.35", got)
	}
	pl.SetMasterVolume(-2)
	if got := pl.MasterVolume(); got != 0 {
		t.Fatalf("master volume should clamp to 0, got %v", got)
	}
}

func TestNewPlayerRejectsBadConfig(t *testing.T) {
	if _, err := NewPlayer(0); err == nil {
		t.Fatal("zero sample rate should fail")
	}
	if _, err := NewPlayer(48000, WithEffectsSpec("flanger")); err == nil {
		t.Fatal("unknown effect should fail")
	}
	if _, err := NewPlayer(48000, WithEffectsSpec("none")); err != nil {
		t.Fatalf("none effects: %v", err)
	}
}

func TestParseBackend(t *testing.T) {
	for in, want := range map[string]Backend{"": BackendEbiten, "ebiten": BackendEbiten, " OTO ": BackendOto} {
		got, err := ParseBackend(in)
		if err != nil || got != want {
			t.Errorf("ParseBackend(%q) = %q, %v, want %q", in, got, err, want)
		}
	}
	if _, err := ParseBackend("alsa"); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestPlayerDispatchReachesVoices(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	defer pl.Close()

	buf := make([]float32, 256*Channels)
	pl.Dispatch(NoteOn(60, 100))
	pl.Dispatch(NoteOn(64, 100))
	pl.Process(buf)
	if got := pl.ActiveVoices(); got != 2 {
		t.Fatalf("active voices = %d, want 2", got)
	}
	if peak(buf) == 0 {
		t.Fatal("expected sound after note-on")
	}
	if vs := pl.VoiceStates(); vs[0].Note != 60 || vs[1].Note != 64 || vs[2].State != synth.Idle {
		t.Fatalf("voice states = %+v", vs)
	}
	for i := 0; i < len(buf); i += Channels {
		if buf[i] != buf[i+1] {
			t.Fatalf("dry output should be identical on both channels at frame %d", i/Channels)
		}
	}

	pl.Dispatch(AllNotesOff())
	for i := 0; i < 100 && pl.ActiveVoices() > 0; i++ {
		pl.Process(buf)
	}
	if pl.ActiveVoices() != 0 {
		t.Fatal("voices should fall silent after all-notes-off")
	}
}

func TestPlayerHandleMIDIMovesKnobs(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	pl.HandleMIDI(midi.ControlChange(0, 72, 127))
	if got := pl.Knobs().Value(knobs.Release); got != 1 {
		t.Fatalf("release knob = %f, want 1", got)
	}
	pl.HandleMIDI(midi.NoteOn(0, 60, 90))
	pl.Process(make([]float32, 64*Channels))
	if pl.ActiveVoices() != 1 {
		t.Fatalf("active voices = %d, want 1", pl.ActiveVoices())
	}
}

func TestSampleTapSeesEveryBuffer(t *testing.T) {
	var frames int
	pl, err := NewPlayer(48000, WithSampleTap(func(buf []float32) { frames += len(buf) / Channels }))
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	pl.Process(make([]float32, 100*Channels))
	pl.Process(make([]float32, 28*Channels))
	if frames != 128 {
		t.Fatalf("tapped %d frames, want 128", frames)
	}
}

func TestEffectsSpreadTheMix(t *testing.T) {
	pl, err := NewPlayer(48000, WithEffectsSpec("default"))
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	pl.Dispatch(NoteOn(57, 127))
	buf := make([]float32, 4096*Channels)
	for i := 0; i < 8; i++ {
		pl.Process(buf)
	}
	differ := false
	for i := 0; i < len(buf); i += Channels {
		if buf[i] != buf[i+1] {
			differ = true
			break
		}
	}
	if !differ {
		t.Fatal("reverb should decorrelate the channels")
	}
}

func peak(buf []float32) float32 {
	var m float32
	for _, s := range buf {
		if s < 0 {
			s = -s
		}
		if s > m {
			m = s
		}
	}
	return m
}

func TestWithKnobSetsStartingPosition(t *testing.T) {
	pl, err := NewPlayer(48000, WithKnob(knobs.Sustain, 0.25), WithKnob(knobs.Attack, 0))
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	env := pl.Knobs().Envelope()
	if env.Sustain != 0.25 || env.Attack != 0 {
		t.Fatalf("envelope = %+v", env)
	}
	if env.Release != 0.2 {
		t.Fatalf("untouched release = %f, want default 0.2", env.Release)
	}
}
