package synth

// Capacity is the number of voices in a Pool.
const Capacity = 8

// Pool is a fixed set of voices with first-free allocation and no stealing.
// A Pool is not safe for concurrent use: one goroutine owns it, normally the
// audio render goroutine (see engine.Engine).
type Pool struct {
	voices [Capacity]Voice
}

// Init prepares every voice for the sample rate. Call once before rendering.
func (p *Pool) Init(sampleRate float32) {
	for i := range p.voices {
		p.voices[i].Init(sampleRate)
	}
}

// ProcessSample returns the unscaled sum of every voice's next sample.
func (p *Pool) ProcessSample() float32 {
	var sum float32
	for i := range p.voices {
		sum += p.voices[i].ProcessSample()
	}
	return sum
}

// NoteOn starts the lowest-indexed idle voice. With every voice busy the
// note is dropped.
func (p *Pool) NoteOn(note, velocity float32, e Envelope) {
	v := p.freeVoice()
	if v == nil {
		return
	}
	v.Start(note, velocity, e)
}

// NoteOff releases every active voice playing note. Release velocity is
// accepted for interface symmetry and ignored.
func (p *Pool) NoteOff(note, velocity float32) {
	for i := range p.voices {
		v := &p.voices[i]
		if v.IsActive() && v.note == note {
			v.Stop()
		}
	}
}

// FreeAllVoices releases every voice; tails still ring out.
func (p *Pool) FreeAllVoices() {
	for i := range p.voices {
		p.voices[i].Stop()
	}
}

// Voice returns the voice in slot i.
func (p *Pool) Voice(i int) *Voice { return &p.voices[i] }

func (p *Pool) ActiveVoiceCount() int {
	n := 0
	for i := range p.voices {
		if p.voices[i].IsActive() {
			n++
		}
	}
	return n
}

func (p *Pool) freeVoice() *Voice {
	for i := range p.voices {
		if !p.voices[i].IsActive() {
			return &p.voices[i]
		}
	}
	return nil
}
