package effects

import (
	"fmt"
	"strings"
)

// Effector processes one stereo frame.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c.effects {
		l, r = e.Process(l, r)
	}
	return l, r
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

func (c *Chain) Len() int { return len(c.effects) }

// Gain scales both channels.
type Gain float32

func (g Gain) Process(l, r float32) (float32, float32) {
	return l * float32(g), r * float32(g)
}

func (g Gain) Reset() {}

// Default is the post-voice chain: a driven lowpass, the dry signal halved,
// then a long reverb fed from a send.
func Default(sampleRate int) *Chain {
	return NewChain(
		NewFilter(sampleRate, DefaultFilterParams()),
		Gain(0.5),
		NewReverb(sampleRate, DefaultReverbParams()),
	)
}

// Parse builds a chain from a comma-separated list of effect names:
// "filter", "reverb", or "default" for the full post chain. An empty spec
// or "none" returns nil.
func Parse(spec string, sampleRate int) (*Chain, error) {
	spec = strings.TrimSpace(strings.ToLower(spec))
	if spec == "" || spec == "none" {
		return nil, nil
	}
	if spec == "default" {
		return Default(sampleRate), nil
	}
	chain := NewChain()
	for _, name := range strings.Split(spec, ",") {
		switch strings.TrimSpace(name) {
		case "filter", "svf", "lpf":
			chain.Add(NewFilter(sampleRate, DefaultFilterParams()))
		case "reverb", "verb":
			chain.Add(NewReverb(sampleRate, DefaultReverbParams()))
		case "":
		default:
			return nil, fmt.Errorf("unknown effect %q (expected filter|reverb|default|none)", name)
		}
	}
	if chain.Len() == 0 {
		return nil, nil
	}
	return chain, nil
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
