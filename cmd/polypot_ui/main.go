package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/cbegin/polypot-go"
	"github.com/cbegin/polypot-go/internal/midiin"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		fx         = flag.String("fx", "none", "effects: none|default|filter|reverb|filter,reverb")
		midiIn     = flag.String("midi-in", "", "MIDI input to open (name substring; empty = first, \"none\" = off)")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*sampleRate, *fx, *midiIn, logger); err != nil {
		logger.Error("polypot ui failed", "err", err)
		os.Exit(1)
	}
}

func run(sampleRate int, fx, midiIn string, logger *slog.Logger) error {
	tap := newScopeTap()
	// ebiten owns the audio context in a windowed app; oto would open a second device.
	pl, err := polypot.NewPlayer(sampleRate,
		polypot.WithBackend(polypot.BackendEbiten),
		polypot.WithEffectsSpec(fx),
		polypot.WithSampleTap(tap.Tap),
		polypot.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	if err := pl.Start(); err != nil {
		return err
	}
	defer pl.Close()

	if !strings.EqualFold(midiIn, "none") {
		in, err := midiin.Open(midiIn, pl.HandleMIDI, func(error) {
			pl.Dispatch(polypot.AllNotesOff())
		}, logger)
		switch {
		case err == nil:
			defer in.Close()
		case midiIn == "" && errors.Is(err, midiin.ErrPortNotFound):
			logger.Info("no MIDI input available")
		default:
			return err
		}
	}

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("polypot")
	if err := ebiten.RunGame(newGame(pl, tap)); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
