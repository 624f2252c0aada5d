package synth

import "github.com/cbegin/polypot-go/internal/dsp"

// Default timbre applied to every voice at Init.
const (
	defaultWaveform  = dsp.WavePolyBLEPSquare
	defaultAmplitude = 0.75
)

// DefaultEnvelope is the shape a voice carries before its first note.
var DefaultEnvelope = Envelope{
	Attack:  1.01,
	Decay:   0.005,
	Sustain: 0.5,
	Release: 0.2,
}

// Envelope is an ADSR shape: attack, decay and release in seconds, sustain
// as a level in [0, 1].
type Envelope struct {
	Attack  float32
	Decay   float32
	Sustain float32
	Release float32
}

// Oscillator is the periodic waveform a voice plays.
type Oscillator interface {
	SetFrequency(hz float32)
	ProcessSample() float32
}

// EnvelopeGenerator shapes a voice's amplitude from its gate.
type EnvelopeGenerator interface {
	SetSustainLevel(level float32)
	SetPhaseTime(p dsp.Phase, seconds float32)
	Retrigger(hard bool)
	ProcessSample(gate bool) float32
	IsRunning() bool
}

// State is the lifecycle position of a voice.
type State uint8

const (
	// Idle voices are silent and free for allocation.
	Idle State = iota
	// Sounding voices hold their gate: attack, decay, then sustain.
	Sounding
	// Releasing voices have been stopped and are decaying to silence.
	Releasing
)

func (s State) String() string {
	switch s {
	case Sounding:
		return "sounding"
	case Releasing:
		return "releasing"
	default:
		return "idle"
	}
}

// Voice is one note slot: an oscillator gated by an envelope generator.
// Only the envelope finishing returns a voice to Idle; Stop merely releases
// the gate.
type Voice struct {
	osc      Oscillator
	env      EnvelopeGenerator
	state    State
	note     float32
	velocity float32
	shape    Envelope
}

// Init builds the voice's oscillator and envelope for the sample rate and
// leaves it Idle. It allocates and must not be called from the render path.
func (v *Voice) Init(sampleRate float32) {
	osc := dsp.NewOscillator(sampleRate)
	osc.SetWaveform(defaultWaveform)
	osc.SetAmplitude(defaultAmplitude)
	v.attach(osc, dsp.NewADSR(sampleRate))
}

func (v *Voice) attach(osc Oscillator, env EnvelopeGenerator) {
	*v = Voice{osc: osc, env: env}
	v.configure(DefaultEnvelope)
}

func (v *Voice) configure(e Envelope) {
	v.shape = e
	v.env.SetSustainLevel(e.Sustain)
	v.env.SetPhaseTime(dsp.PhaseAttack, e.Attack)
	v.env.SetPhaseTime(dsp.PhaseDecay, e.Decay)
	v.env.SetPhaseTime(dsp.PhaseRelease, e.Release)
}

// Start plays note at velocity (0-127) with the given shape. Starting a voice
// that is already sounding or releasing restarts its envelope from zero.
func (v *Voice) Start(note, velocity float32, e Envelope) {
	v.velocity = velocity
	v.configure(e)
	v.note = note
	v.osc.SetFrequency(dsp.MidiToFreq(note))
	v.env.Retrigger(true)
	v.state = Sounding
}

// Stop releases the gate. The voice stays active until its release ends.
func (v *Voice) Stop() {
	if v.state == Sounding {
		v.state = Releasing
	}
}

// ProcessSample renders one sample. Idle voices return 0 and do not advance.
func (v *Voice) ProcessSample() float32 {
	if v.state == Idle {
		return 0
	}
	amp := v.env.ProcessSample(v.state == Sounding)
	sig := v.osc.ProcessSample() * (v.velocity / 127) * amp
	if !v.env.IsRunning() {
		v.state = Idle
	}
	return sig
}

func (v *Voice) IsActive() bool     { return v.state != Idle }
func (v *Voice) Gate() bool         { return v.state == Sounding }
func (v *Voice) State() State       { return v.state }
func (v *Voice) Note() float32      { return v.note }
func (v *Voice) Velocity() float32  { return v.velocity }
func (v *Voice) Envelope() Envelope { return v.shape }
