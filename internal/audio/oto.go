package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoPlayer plays a SampleSource straight through an oto context, without
// ebiten's mixing layer in between.
type OtoPlayer struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
}

func NewOtoPlayer(sampleRate int, source SampleSource, bufferSize time.Duration) (*OtoPlayer, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create oto context: %w", err)
	}
	<-ready
	return &OtoPlayer{
		ctx:    ctx,
		player: ctx.NewPlayer(NewStreamReader(source)),
	}, nil
}

func (op *OtoPlayer) Play() {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.player != nil {
		op.player.Play()
	}
}

func (op *OtoPlayer) Pause() {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.player != nil {
		op.player.Pause()
	}
}

func (op *OtoPlayer) Close() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.player == nil {
		return nil
	}
	err := op.player.Close()
	op.player = nil
	return err
}
