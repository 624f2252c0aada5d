package engine

import (
	"sync"
	"sync/atomic"

	"github.com/cbegin/polypot-go/internal/synth"
)

type opcode uint8

const (
	opNoteOn opcode = iota + 1
	opNoteOff
	opFreeAll
)

// command is one whole pool transition, applied atomically with respect to
// sample rendering.
type command struct {
	op       opcode
	note     float32
	velocity float32
	env      synth.Envelope
}

// commandQueue is a bounded ring carrying commands from control goroutines
// to the render goroutine. Producers serialize on mu; the consumer uses only
// the atomic indices and never blocks.
type commandQueue struct {
	mu    sync.Mutex
	buf   []command
	mask  uint64
	head  atomic.Uint64 // next slot to read, owned by the consumer
	tail  atomic.Uint64 // next slot to write, owned by producers
	drops atomic.Uint64
}

func newCommandQueue(size int) *commandQueue {
	n := 1
	for n < size {
		n <<= 1
	}
	return &commandQueue{
		buf:  make([]command, n),
		mask: uint64(n - 1),
	}
}

// push enqueues c, or drops and counts it when the ring is full.
func (q *commandQueue) push(c command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	tail := q.tail.Load()
	if tail-q.head.Load() >= uint64(len(q.buf)) {
		q.drops.Add(1)
		return false
	}
	q.buf[tail&q.mask] = c
	q.tail.Store(tail + 1)
	return true
}

// drainInto applies every queued command to p, oldest first.
func (q *commandQueue) drainInto(p *synth.Pool) int {
	head := q.head.Load()
	tail := q.tail.Load()
	for i := head; i < tail; i++ {
		c := &q.buf[i&q.mask]
		switch c.op {
		case opNoteOn:
			p.NoteOn(c.note, c.velocity, c.env)
		case opNoteOff:
			p.NoteOff(c.note, c.velocity)
		case opFreeAll:
			p.FreeAllVoices()
		}
	}
	q.head.Store(tail)
	return int(tail - head)
}

func (q *commandQueue) len() int {
	return int(q.tail.Load() - q.head.Load())
}
