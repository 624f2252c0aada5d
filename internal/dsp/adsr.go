package dsp

// Phase names a timed segment of an ADSR envelope.
type Phase int

const (
	PhaseAttack Phase = iota
	PhaseDecay
	PhaseRelease
)

type envStage int

const (
	envIdle envStage = iota
	envAttack
	envDecay
	envSustain
	envRelease
)

// ADSR is a gate-driven linear envelope generator. A rising gate starts the
// attack, a falling gate starts the release from whatever level the
// envelope has reached. The release always ends at exactly zero, after which
// IsRunning reports false.
type ADSR struct {
	sampleRate  float32
	times       [3]float32
	sustain     float32
	stage       envStage
	level       float32
	releaseStep float32
	prevGate    bool
}

func NewADSR(sampleRate float32) *ADSR {
	a := &ADSR{}
	a.Init(sampleRate)
	return a
}

func (a *ADSR) Init(sampleRate float32) {
	*a = ADSR{
		sampleRate: sampleRate,
		times:      [3]float32{0.1, 0.1, 0.1},
		sustain:    0.7,
	}
}

// SetPhaseTime sets the duration of an attack, decay or release segment in
// seconds. Zero or negative makes the segment complete in one sample.
func (a *ADSR) SetPhaseTime(p Phase, seconds float32) {
	if p < PhaseAttack || p > PhaseRelease {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	a.times[p] = seconds
}

func (a *ADSR) SetSustainLevel(level float32) {
	a.sustain = clamp01(level)
}

// Retrigger restarts the attack without waiting for a gate edge. A hard
// retrigger also drops the level to zero.
func (a *ADSR) Retrigger(hard bool) {
	a.stage = envAttack
	if hard {
		a.level = 0
	}
	a.prevGate = true
}

// ProcessSample advances the envelope by one sample and returns its level.
func (a *ADSR) ProcessSample(gate bool) float32 {
	switch {
	case gate && !a.prevGate:
		a.stage = envAttack
	case !gate && a.prevGate && a.stage != envIdle:
		a.beginRelease()
	}
	a.prevGate = gate

	switch a.stage {
	case envAttack:
		a.level += a.step(a.times[PhaseAttack], 1)
		if a.level >= 1 {
			a.level = 1
			a.stage = envDecay
		}
	case envDecay:
		a.level -= a.step(a.times[PhaseDecay], 1-a.sustain)
		if a.level <= a.sustain {
			a.level = a.sustain
			a.stage = envSustain
		}
	case envSustain:
		a.level = a.sustain
	case envRelease:
		a.level -= a.releaseStep
		if a.level <= 0 {
			a.level = 0
			a.stage = envIdle
		}
	case envIdle:
		a.level = 0
	}
	return a.level
}

// IsRunning reports whether the envelope is anywhere but idle.
func (a *ADSR) IsRunning() bool { return a.stage != envIdle }

func (a *ADSR) Level() float32 { return a.level }

func (a *ADSR) beginRelease() {
	a.stage = envRelease
	a.releaseStep = a.step(a.times[PhaseRelease], a.level)
}

// step is the per-sample increment that covers span in the given time.
func (a *ADSR) step(seconds, span float32) float32 {
	n := seconds * a.sampleRate
	if n < 1 {
		return span
	}
	return span / n
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
