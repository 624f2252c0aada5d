// Package engine drives a voice pool from the audio callback. Control
// goroutines post note commands; the render goroutine applies them at the
// start of each buffer and then pulls one pool sample per frame.
package engine

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/polypot-go/internal/effects"
	"github.com/cbegin/polypot-go/internal/synth"
)

const (
	DefaultChannels  = 2
	DefaultQueueSize = 256
)

type Options struct {
	// Channels is the number of interleaved output channels. The mono voice
	// mix is written to every one of them.
	Channels int
	// Effects, if set, turns the mono mix into a stereo pair; even channels
	// take the left output and odd channels the right.
	Effects effects.Effector
	// QueueSize bounds the number of note commands waiting for the next
	// buffer. Commands beyond it are dropped.
	QueueSize int
}

type Engine struct {
	sampleRate int
	channels   int
	pool       synth.Pool
	queue      *commandQueue
	fx         effects.Effector
	masterGain atomic.Uint64
	active     atomic.Int32
	frames     atomic.Uint64
	voices     [synth.Capacity]atomic.Uint32
}

// VoiceInfo is what a voice was doing at the end of the last rendered
// buffer.
type VoiceInfo struct {
	State synth.State
	Note  uint8
}

func New(sampleRate int, opts Options) *Engine {
	if opts.Channels <= 0 {
		opts.Channels = DefaultChannels
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	e := &Engine{
		sampleRate: sampleRate,
		channels:   opts.Channels,
		queue:      newCommandQueue(opts.QueueSize),
		fx:         opts.Effects,
	}
	e.pool.Init(float32(sampleRate))
	e.masterGain.Store(math.Float64bits(1))
	return e
}

// NoteOn queues a note-on for the next buffer.
func (e *Engine) NoteOn(note, velocity float32, env synth.Envelope) {
	e.queue.push(command{op: opNoteOn, note: note, velocity: velocity, env: env})
}

// NoteOff queues a note-off for the next buffer.
func (e *Engine) NoteOff(note, velocity float32) {
	e.queue.push(command{op: opNoteOff, note: note, velocity: velocity})
}

// FreeAllVoices queues a release of every voice.
func (e *Engine) FreeAllVoices() {
	e.queue.push(command{op: opFreeAll})
}

// Process fills dst with interleaved frames. It runs on the audio goroutine
// and neither allocates nor blocks.
func (e *Engine) Process(dst []float32) {
	e.queue.drainInto(&e.pool)
	gain := float32(e.MasterGain())
	ch := e.channels
	frames := len(dst) / ch
	for f := 0; f < frames; f++ {
		s := e.pool.ProcessSample()
		l, r := s, s
		if e.fx != nil {
			l, r = e.fx.Process(s, s)
		}
		l = clamp(l*gain, -1, 1)
		r = clamp(r*gain, -1, 1)
		out := dst[f*ch : f*ch+ch]
		for c := range out {
			if c%2 == 0 {
				out[c] = l
			} else {
				out[c] = r
			}
		}
	}
	clear(dst[frames*ch:])
	e.frames.Add(uint64(frames))
	e.active.Store(int32(e.pool.ActiveVoiceCount()))
	for i := range e.voices {
		v := e.pool.Voice(i)
		e.voices[i].Store(uint32(v.State())<<8 | uint32(uint8(v.Note())))
	}
}

// Voices snapshots every voice slot, in allocation order.
func (e *Engine) Voices() [synth.Capacity]VoiceInfo {
	var out [synth.Capacity]VoiceInfo
	for i := range e.voices {
		packed := e.voices[i].Load()
		out[i] = VoiceInfo{State: synth.State(packed >> 8), Note: uint8(packed)}
	}
	return out
}

func (e *Engine) SampleRate() int { return e.sampleRate }

func (e *Engine) Channels() int { return e.channels }

func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	e.masterGain.Store(math.Float64bits(gain))
}

func (e *Engine) MasterGain() float64 {
	return math.Float64frombits(e.masterGain.Load())
}

// ActiveVoiceCount is the number of sounding or releasing voices at the end
// of the last rendered buffer.
func (e *Engine) ActiveVoiceCount() int { return int(e.active.Load()) }

// DroppedCommands counts commands lost to a full queue.
func (e *Engine) DroppedCommands() uint64 { return e.queue.drops.Load() }

// PendingCommands is the number of commands waiting for the next buffer.
func (e *Engine) PendingCommands() int { return e.queue.len() }

// FramesRendered is the total number of frames produced so far.
func (e *Engine) FramesRendered() uint64 { return e.frames.Load() }

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
