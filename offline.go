package polypot

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"

	"github.com/cbegin/polypot-go/internal/midiin"
)

// RenderEvents plays events, which must be in time order, through a fresh
// player and returns seconds of interleaved stereo audio. Each event takes
// effect at the exact frame of its timestamp; events past the end are
// ignored.
func RenderEvents(events []TimedEvent, sampleRate int, seconds float64, opts ...Option) ([]float32, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	if seconds < 0 {
		seconds = 0
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	// Events sharing a frame all wait in the command ring at once.
	p, err := newPlayer(sampleRate, len(events)+1, cfg)
	if err != nil {
		return nil, err
	}

	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*Channels)
	pos := 0
	for _, ev := range events {
		at := frameAt(ev.At, sampleRate)
		if at >= frames {
			break
		}
		if at > pos {
			p.Process(out[pos*Channels : at*Channels])
			pos = at
		}
		p.HandleMIDI(ev.Message)
	}
	if pos < frames {
		p.Process(out[pos*Channels:])
	}
	return out, nil
}

// RenderSMF renders a Standard MIDI File until tail seconds after its last
// event.
func RenderSMF(r io.Reader, sampleRate int, tail float64, opts ...Option) ([]float32, error) {
	events, err := midiin.ReadSMF(r)
	if err != nil {
		return nil, err
	}
	var end time.Duration
	if len(events) > 0 {
		end = events[len(events)-1].At
	}
	return RenderEvents(events, sampleRate, end.Seconds()+tail, opts...)
}

func frameAt(at time.Duration, sampleRate int) int {
	if at <= 0 {
		return 0
	}
	return int(int64(at) * int64(sampleRate) / int64(time.Second))
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
