// Package midiin decodes MIDI 1.0 messages into note events and feeds them,
// together with knob controller changes, to a dispatcher.
package midiin

import (
	"log/slog"
	"sync"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/polypot-go/internal/dispatch"
	"github.com/cbegin/polypot-go/internal/knobs"
)

// Channel mode controllers that silence every note.
const (
	ccAllSoundOff = 120
	ccAllNotesOff = 123
)

// Decode maps msg to a note event, ignoring its channel. A note-on with
// velocity 0 stays a note-on; the dispatcher owns that convention.
func Decode(msg midi.Message) dispatch.Event {
	var ch, key, vel, cc, val uint8
	switch {
	case msg.GetNoteOn(&ch, &key, &vel):
		return dispatch.NoteOn(key, vel)
	case msg.GetNoteOff(&ch, &key, &vel):
		return dispatch.NoteOff(key, vel)
	case msg.GetControlChange(&ch, &cc, &val):
		if cc == ccAllSoundOff || cc == ccAllNotesOff {
			return dispatch.AllNotesOff()
		}
	}
	return dispatch.Event{Kind: dispatch.KindOther}
}

// Router sends knob controllers to a knob bank and everything else through
// a dispatcher. Handle may be called from several listener goroutines.
type Router struct {
	mu     sync.Mutex
	disp   *dispatch.Dispatcher
	knobs  *knobs.Bank
	ccMap  knobs.CCMap
	logger *slog.Logger
}

func NewRouter(disp *dispatch.Dispatcher, bank *knobs.Bank, ccMap knobs.CCMap, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{disp: disp, knobs: bank, ccMap: ccMap, logger: logger}
}

func (r *Router) Handle(msg midi.Message) {
	var ch, cc, val uint8
	if r.knobs != nil && msg.GetControlChange(&ch, &cc, &val) {
		if k, ok := r.ccMap.Lookup(cc); ok {
			r.knobs.SetCC(k, val)
			r.logger.Debug("knob moved", "knob", k, "value", val)
			return
		}
	}
	ev := Decode(msg)
	if ev.Kind == dispatch.KindOther {
		r.logger.Debug("unhandled MIDI message", "msg", msg.String())
		return
	}
	r.logger.Debug("note event", "event", ev)
	r.Dispatch(ev)
}

// Dispatch sends ev through the dispatcher, serialized with Handle.
func (r *Router) Dispatch(ev dispatch.Event) {
	r.mu.Lock()
	r.disp.Dispatch(ev)
	r.mu.Unlock()
}
