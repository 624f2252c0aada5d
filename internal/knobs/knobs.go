// Package knobs holds the four envelope-shape controls shared between the
// control goroutines that move them and the dispatcher that reads them.
package knobs

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/cbegin/polypot-go/internal/synth"
)

// Knob identifies one envelope control.
type Knob int

const (
	Attack Knob = iota
	Decay
	Sustain
	Release
	NumKnobs
)

var knobNames = [NumKnobs]string{"attack", "decay", "sustain", "release"}

func (k Knob) String() string {
	if k < 0 || k >= NumKnobs {
		return fmt.Sprintf("knob(%d)", int(k))
	}
	return knobNames[k]
}

// ParseKnob maps a knob name to its Knob.
func ParseKnob(name string) (Knob, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range knobNames {
		if n == name {
			return Knob(i), nil
		}
	}
	return 0, fmt.Errorf("unknown knob %q (expected attack|decay|sustain|release)", name)
}

// Range maps a normalized knob position onto [Min, Max].
type Range struct {
	Min float32
	Max float32
}

func (r Range) Map(v float32) float32 {
	return r.Min + (r.Max-r.Min)*v
}

// Position is the inverse of Map, clamped to [0, 1].
func (r Range) Position(v float32) float32 {
	if r.Max == r.Min {
		return 0
	}
	return clamp01((v - r.Min) / (r.Max - r.Min))
}

// Ranges holds one Range per knob.
type Ranges [NumKnobs]Range

// DefaultRanges passes the knob position straight through: 0-1 s for the
// timed segments and 0-1 for the sustain level.
func DefaultRanges() Ranges {
	return Ranges{
		Attack:  {0, 1},
		Decay:   {0, 1},
		Sustain: {0, 1},
		Release: {0, 1},
	}
}

// Bank stores normalized knob positions. Writes and reads are atomic, so any
// goroutine may move a knob while another builds an Envelope.
type Bank struct {
	values [NumKnobs]atomic.Uint32
	ranges Ranges
}

// NewBank returns a bank with the knobs at the positions closest to
// synth.DefaultEnvelope.
func NewBank(ranges Ranges) *Bank {
	b := &Bank{ranges: ranges}
	b.SetEnvelope(synth.DefaultEnvelope)
	return b
}

// SetEnvelope moves every knob to the position that maps to env.
func (b *Bank) SetEnvelope(env synth.Envelope) {
	b.Set(Attack, b.ranges[Attack].Position(env.Attack))
	b.Set(Decay, b.ranges[Decay].Position(env.Decay))
	b.Set(Sustain, b.ranges[Sustain].Position(env.Sustain))
	b.Set(Release, b.ranges[Release].Position(env.Release))
}

// Set moves k to v, clamped to [0, 1].
func (b *Bank) Set(k Knob, v float32) {
	if k < 0 || k >= NumKnobs {
		return
	}
	if v != v { // NaN
		v = 0
	}
	b.values[k].Store(math.Float32bits(clamp01(v)))
}

// SetCC moves k from a 7-bit controller value.
func (b *Bank) SetCC(k Knob, value uint8) {
	if value > 127 {
		value = 127
	}
	b.Set(k, float32(value)/127)
}

// Value returns the normalized position of k.
func (b *Bank) Value(k Knob) float32 {
	if k < 0 || k >= NumKnobs {
		return 0
	}
	return math.Float32frombits(b.values[k].Load())
}

// Envelope maps the current knob positions to an envelope shape.
func (b *Bank) Envelope() synth.Envelope {
	return synth.Envelope{
		Attack:  b.ranges[Attack].Map(b.Value(Attack)),
		Decay:   b.ranges[Decay].Map(b.Value(Decay)),
		Sustain: clamp01(b.ranges[Sustain].Map(b.Value(Sustain))),
		Release: b.ranges[Release].Map(b.Value(Release)),
	}
}

// CCMap assigns MIDI controller numbers to knobs.
type CCMap map[uint8]Knob

// DefaultCCMap uses the General MIDI sound controllers: 73 attack time,
// 75 decay time, 72 release time, and 79 (sound controller 10) for sustain.
func DefaultCCMap() CCMap {
	return CCMap{
		73: Attack,
		75: Decay,
		79: Sustain,
		72: Release,
	}
}

// Lookup reports which knob, if any, controller cc moves.
func (m CCMap) Lookup(cc uint8) (Knob, bool) {
	k, ok := m[cc]
	return k, ok
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
