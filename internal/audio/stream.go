package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Channels is the number of interleaved channels every sink plays.
const Channels = 2

const bytesPerFrame = Channels * 4

// SampleSource fills dst with interleaved stereo float32 frames.
type SampleSource interface {
	Process(dst []float32)
}

// Backend is a running audio output.
type Backend interface {
	Play()
	Pause()
	Close() error
}

// StreamReader adapts a SampleSource to the little-endian float32 byte
// stream the drivers pull. It is read from a single driver goroutine and
// keeps its scratch buffer across calls.
type StreamReader struct {
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	need := frames * Channels
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, s := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return frames * bytesPerFrame, nil
}

func (r *StreamReader) Close() error { return nil }

// Player plays a SampleSource through ebiten's audio context.
type Player struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// NewPlayer opens an ebiten player. bufferSize trades latency for safety
// against underruns; zero keeps ebiten's default.
func NewPlayer(sampleRate int, source SampleSource, bufferSize time.Duration) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("create ebiten player: %w", err)
	}
	if bufferSize > 0 {
		pl.SetBufferSize(bufferSize)
	}
	return &Player{
		player: pl,
		reader: reader,
	}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }
func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// Position returns the current playback position (what the listener actually hears).
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

func (p *Player) Close() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.reader.Close()
}
