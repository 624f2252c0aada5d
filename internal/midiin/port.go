package midiin

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

var ErrPortNotFound = errors.New("MIDI input not found")

// Input is an open MIDI input port.
type Input struct {
	drv    *rtmididrv.Driver
	in     drivers.In
	stop   func()
	logger *slog.Logger
}

// ListPorts returns the names of the available MIDI inputs.
func ListPorts() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("open rtmidi driver: %w", err)
	}
	defer drv.Close()
	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list MIDI inputs: %w", err)
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}

// Open starts listening on the first input whose name contains name
// (case-insensitive) and passes every message to handle; an empty name picks
// the first input. When the listener
// fails, typically because the device was unplugged, onLost is called from a
// fresh goroutine so the caller can release hanging notes.
func Open(name string, handle func(midi.Message), onLost func(error), logger *slog.Logger) (*Input, error) {
	if logger == nil {
		logger = slog.Default()
	}
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("open rtmidi driver: %w", err)
	}
	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("list MIDI inputs: %w", err)
	}
	in := pickInput(ins, name)
	if in == nil {
		drv.Close()
		return nil, fmt.Errorf("%w: %q", ErrPortNotFound, name)
	}
	if err := in.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open MIDI input %q: %w", in.String(), err)
	}
	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		handle(msg)
	}, midi.HandleError(func(listenErr error) {
		logger.Warn("MIDI listener error, device likely disconnected", "device", in.String(), "err", listenErr)
		if onLost != nil {
			go onLost(listenErr)
		}
	}))
	if err != nil {
		_ = in.Close()
		drv.Close()
		return nil, fmt.Errorf("listen on MIDI input %q: %w", in.String(), err)
	}
	logger.Info("MIDI input connected", "device", in.String())
	return &Input{drv: drv, in: in, stop: stop, logger: logger}, nil
}

func (i *Input) Name() string { return i.in.String() }

func (i *Input) Close() error {
	i.stop()
	err := i.in.Close()
	i.drv.Close()
	i.logger.Info("MIDI input closed", "device", i.in.String())
	return err
}

func pickInput(ins []drivers.In, name string) drivers.In {
	if len(ins) == 0 {
		return nil
	}
	if name == "" {
		return ins[0]
	}
	want := strings.ToLower(name)
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), want) {
			return in
		}
	}
	return nil
}
