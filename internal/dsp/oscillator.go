package dsp

import "maze.io/x/math32"

// Waveform selects the shape produced by an Oscillator.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveTriangle
	WaveSaw
	WaveSquare
	WavePolyBLEPSaw
	WavePolyBLEPSquare
)

// Oscillator is a single-waveform phase accumulator. The waveform and
// amplitude are fixed at configuration time; only the frequency changes
// per note.
type Oscillator struct {
	sampleRate float32
	freq       float32
	amp        float32
	waveform   Waveform
	phase      float32 // [0, 1)
	phaseInc   float32
}

func NewOscillator(sampleRate float32) *Oscillator {
	o := &Oscillator{}
	o.Init(sampleRate)
	return o
}

// Init resets the oscillator to a 440 Hz sine at half amplitude.
func (o *Oscillator) Init(sampleRate float32) {
	*o = Oscillator{
		sampleRate: sampleRate,
		amp:        0.5,
		waveform:   WaveSine,
	}
	o.SetFrequency(440)
}

func (o *Oscillator) SetFrequency(hz float32) {
	o.freq = hz
	if o.sampleRate > 0 {
		o.phaseInc = hz / o.sampleRate
	}
}

func (o *Oscillator) Frequency() float32 { return o.freq }

func (o *Oscillator) SetAmplitude(amp float32) { o.amp = amp }

func (o *Oscillator) SetWaveform(w Waveform) {
	if w < WaveSine || w > WavePolyBLEPSquare {
		w = WaveSine
	}
	o.waveform = w
}

// Reset zeros the phase.
func (o *Oscillator) Reset() { o.phase = 0 }

// ProcessSample returns the current sample and advances the phase by one step.
func (o *Oscillator) ProcessSample() float32 {
	t := o.phase
	dt := o.phaseInc
	var out float32
	switch o.waveform {
	case WaveTriangle:
		out = 2*math32.Abs(2*t-1) - 1
	case WaveSaw:
		out = 2*t - 1
	case WaveSquare:
		if t < 0.5 {
			out = 1
		} else {
			out = -1
		}
	case WavePolyBLEPSaw:
		out = 2*t - 1 - polyBLEP(t, dt)
	case WavePolyBLEPSquare:
		if t < 0.5 {
			out = 1
		} else {
			out = -1
		}
		out += polyBLEP(t, dt)
		out -= polyBLEP(wrap(t+0.5), dt)
	default:
		out = math32.Sin(2 * math32.Pi * t)
	}
	o.phase = wrap(o.phase + dt)
	return out * o.amp
}

// polyBLEP returns the band-limited step correction for a discontinuity at
// phase 0, given the normalized phase t and per-sample increment dt.
func polyBLEP(t, dt float32) float32 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

func wrap(p float32) float32 {
	if p >= 1 || p < 0 {
		p -= math32.Floor(p)
	}
	return p
}

// MidiToFreq converts a (possibly fractional) MIDI note number to Hz using
// equal temperament with A4 = note 69 = 440 Hz.
func MidiToFreq(note float32) float32 {
	return 440 * math32.Pow(2, (note-69)/12)
}
