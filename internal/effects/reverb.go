package effects

type ReverbParams struct {
	RoomSize float32 // 0..1, scales delay lengths
	Feedback float32 // 0..0.98, decay time
	DampHz   float32 // lowpass in the comb feedback path; 0 disables damping
	Send     float32 // level fed into the reverb; the dry signal passes untouched
}

func DefaultReverbParams() ReverbParams {
	return ReverbParams{
		RoomSize: 0.5,
		Feedback: 0.95,
		DampHz:   5000,
		Send:     0.45,
	}
}

// Reverb is a Schroeder reverb with damped comb filters, wired as a send:
// the output is the dry input plus the reverberated send.
type Reverb struct {
	left, right reverbChannel
	send        float32
}

type reverbChannel struct {
	combs   [4]combFilter
	allpass [2]allpassFilter
}

type combFilter struct {
	buf   []float32
	pos   int
	fb    float32
	damp  float32
	store float32
}

type allpassFilter struct {
	buf []float32
	pos int
	fb  float32
}

// stereoSpread offsets the right channel's delay lines.
const stereoSpread = 23

func NewReverb(sampleRate int, p ReverbParams) *Reverb {
	base := int(float32(sampleRate) * clamp(p.RoomSize, 0, 1) * 0.05)
	if base < 10 {
		base = 10
	}
	fb := clamp(p.Feedback, 0, 0.98)
	var damp float32
	if p.DampHz > 0 && p.DampHz < float32(sampleRate)/2 {
		// One-pole coefficient: fraction of the previous output kept.
		damp = 1 - clamp(2*3.14159265*p.DampHz/float32(sampleRate), 0, 1)
	}
	r := &Reverb{send: clamp(p.Send, 0, 1)}
	r.left.init(base, 0, fb, damp)
	r.right.init(base, stereoSpread, fb, damp)
	return r
}

func (c *reverbChannel) init(base, spread int, fb, damp float32) {
	combLens := [4]int{base, base * 1117 / 1000, base * 1271 / 1000, base * 1437 / 1000}
	for i := range c.combs {
		c.combs[i] = combFilter{
			buf:  make([]float32, combLens[i]+spread),
			fb:   fb,
			damp: damp,
		}
	}
	apLens := [2]int{base * 347 / 1000, base * 213 / 1000}
	for i := range c.allpass {
		c.allpass[i] = allpassFilter{
			buf: make([]float32, max(apLens[i]+spread, 1)),
			fb:  0.5,
		}
	}
}

func (r *Reverb) Process(l, rr float32) (float32, float32) {
	return l + r.left.process(l*r.send), rr + r.right.process(rr*r.send)
}

func (r *Reverb) Reset() {
	r.left.reset()
	r.right.reset()
}

func (c *reverbChannel) process(in float32) float32 {
	var out float32
	for i := range c.combs {
		out += c.combs[i].process(in)
	}
	out *= 0.25
	for i := range c.allpass {
		out = c.allpass[i].process(out)
	}
	return out
}

func (c *reverbChannel) reset() {
	for i := range c.combs {
		clear(c.combs[i].buf)
		c.combs[i].pos = 0
		c.combs[i].store = 0
	}
	for i := range c.allpass {
		clear(c.allpass[i].buf)
		c.allpass[i].pos = 0
	}
}

func (c *combFilter) process(in float32) float32 {
	out := c.buf[c.pos]
	c.store = out*(1-c.damp) + c.store*c.damp
	c.buf[c.pos] = in + c.store*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}
