package midiin

import (
	"fmt"
	"io"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// TimedEvent is a channel message at an absolute time from the start of a
// file.
type TimedEvent struct {
	At      time.Duration
	Message midi.Message
}

// ReadSMF reads every track of a Standard MIDI File and merges the channel
// messages into one time-ordered list. Meta and sysex events are skipped;
// tempo changes are already folded into the absolute times.
func ReadSMF(r io.Reader) ([]TimedEvent, error) {
	var events []TimedEvent
	rd := smf.ReadTracksFrom(r).Do(func(ev smf.TrackEvent) {
		msg := midi.Message(ev.Message)
		if len(msg) == 0 || msg[0] < 0x80 || msg[0] >= 0xF0 {
			return
		}
		events = append(events, TimedEvent{
			At:      time.Duration(ev.AbsMicroSeconds) * time.Microsecond,
			Message: msg,
		})
	})
	if err := rd.Error(); err != nil {
		return nil, fmt.Errorf("read SMF: %w", err)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At < events[j].At
	})
	return events, nil
}
