package effects

import "maze.io/x/math32"

type FilterParams struct {
	CutoffHz  float32
	Resonance float32 // 0..1
	Drive     float32 // 0..1
}

func DefaultFilterParams() FilterParams {
	return FilterParams{
		CutoffHz:  6000,
		Resonance: 0.6,
		Drive:     0.8,
	}
}

// Filter is a twice-oversampled Chamberlin state-variable filter with a
// cubic drive term on the band stage. It outputs the lowpass response.
type Filter struct {
	freq  float32
	damp  float32
	drive float32
	l, r  svfState
}

type svfState struct {
	low  float32
	band float32
}

func NewFilter(sampleRate int, p FilterParams) *Filter {
	f := &Filter{}
	nyquist := float32(sampleRate) / 2
	cutoff := clamp(p.CutoffHz, 10, nyquist*0.5)
	// Coefficient for two passes per sample.
	f.freq = 2 * math32.Sin(math32.Pi*cutoff/(float32(sampleRate)*2))
	res := clamp(p.Resonance, 0, 1)
	f.damp = clamp(2*(1-math32.Pow(res, 0.25)), 0.02, 2)
	f.drive = clamp(p.Drive, 0, 1) * 0.1
	return f
}

func (f *Filter) Process(l, r float32) (float32, float32) {
	return f.l.process(l, f.freq, f.damp, f.drive), f.r.process(r, f.freq, f.damp, f.drive)
}

func (f *Filter) Reset() {
	f.l = svfState{}
	f.r = svfState{}
}

func (s *svfState) process(in, freq, damp, drive float32) float32 {
	for i := 0; i < 2; i++ {
		high := in - s.low - damp*s.band
		s.band += freq*high - drive*s.band*s.band*s.band
		s.low += freq * s.band
	}
	return s.low
}
