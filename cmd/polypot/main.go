package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cbegin/polypot-go"
	"github.com/cbegin/polypot-go/internal/knobs"
	"github.com/cbegin/polypot-go/internal/midiin"
	"github.com/cbegin/polypot-go/internal/qwerty"
)

const statsInterval = 5 * time.Second

var logger *slog.Logger

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

type config struct {
	sampleRate int
	backend    string
	buffer     time.Duration
	midiIn     string
	listPorts  bool
	keys       bool
	hold       time.Duration
	fx         string
	volume     float64
	knobs      map[knobs.Knob]float64
	file       string
	wav        string
	tail       float64
}

func main() {
	cfg := config{knobs: map[knobs.Knob]float64{}}
	flag.IntVar(&cfg.sampleRate, "sample-rate", 48000, "output sample rate")
	flag.StringVar(&cfg.backend, "backend", "ebiten", "audio backend: ebiten|oto")
	flag.DurationVar(&cfg.buffer, "buffer", polypot.DefaultBufferSize, "audio driver buffer")
	flag.StringVar(&cfg.midiIn, "midi-in", "", "MIDI input to open (name substring; empty = first, \"none\" = off)")
	flag.BoolVar(&cfg.listPorts, "list-ports", false, "list MIDI inputs and exit")
	flag.BoolVar(&cfg.keys, "keys", true, "play from the computer keyboard when stdin is a terminal")
	flag.DurationVar(&cfg.hold, "hold", qwerty.DefaultHold, "how long a computer key holds its note")
	flag.StringVar(&cfg.fx, "fx", "none", "effects: none|default|filter|reverb|filter,reverb")
	flag.Float64Var(&cfg.volume, "volume", 1.0, "master volume scalar")
	attack := flag.Float64("attack", -1, "initial attack knob position (0-1)")
	decay := flag.Float64("decay", -1, "initial decay knob position (0-1)")
	sustain := flag.Float64("sustain", -1, "initial sustain knob position (0-1)")
	release := flag.Float64("release", -1, "initial release knob position (0-1)")
	flag.StringVar(&cfg.file, "file", "", "render a Standard MIDI File offline instead of playing live")
	flag.StringVar(&cfg.wav, "wav", "", "output path for -file (default: input name with .wav)")
	flag.Float64Var(&cfg.tail, "tail", 1.0, "seconds rendered after the last event of -file")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	initLogger(*debug)
	for k, v := range map[knobs.Knob]*float64{
		knobs.Attack:  attack,
		knobs.Decay:   decay,
		knobs.Sustain: sustain,
		knobs.Release: release,
	} {
		if *v >= 0 {
			cfg.knobs[k] = *v
		}
	}

	if err := run(cfg); err != nil {
		logger.Error("polypot failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config) error {
	if cfg.listPorts {
		return listPorts()
	}
	opts, err := playerOptions(cfg)
	if err != nil {
		return err
	}
	if cfg.file != "" {
		return renderFile(cfg, opts)
	}
	return playLive(cfg, opts)
}

func playerOptions(cfg config) ([]polypot.Option, error) {
	backend, err := polypot.ParseBackend(cfg.backend)
	if err != nil {
		return nil, fmt.Errorf("invalid -backend: %w", err)
	}
	opts := []polypot.Option{
		polypot.WithBackend(backend),
		polypot.WithBufferSize(cfg.buffer),
		polypot.WithEffectsSpec(cfg.fx),
		polypot.WithLogger(logger),
	}
	for k, v := range cfg.knobs {
		if v > 1 {
			return nil, fmt.Errorf("invalid -%s %.3f (expected 0-1)", k, v)
		}
		opts = append(opts, polypot.WithKnob(k, float32(v)))
	}
	return opts, nil
}

func listPorts() error {
	ports, err := midiin.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("no MIDI inputs")
		return nil
	}
	for i, name := range ports {
		fmt.Printf("%d: %s\n", i, name)
	}
	return nil
}

func renderFile(cfg config, opts []polypot.Option) error {
	f, err := os.Open(cfg.file)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	samples, err := polypot.RenderSMF(f, cfg.sampleRate, cfg.tail, opts...)
	if err != nil {
		return fmt.Errorf("render %s: %w", cfg.file, err)
	}
	if cfg.volume != 1 {
		for i := range samples {
			samples[i] *= float32(cfg.volume)
		}
	}
	out := cfg.wav
	if out == "" {
		out = strings.TrimSuffix(cfg.file, filepath.Ext(cfg.file)) + ".wav"
	}
	if err := os.WriteFile(out, polypot.EncodeWAVFloat32LE(samples, cfg.sampleRate, polypot.Channels), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("rendered",
		"file", cfg.file,
		"wav", out,
		"seconds", float64(len(samples)/polypot.Channels)/float64(cfg.sampleRate),
		"took", time.Since(start).Round(time.Millisecond))
	return nil
}

var errQuit = errors.New("quit")

func playLive(cfg config, opts []polypot.Option) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pl, err := polypot.NewPlayer(cfg.sampleRate, opts...)
	if err != nil {
		return err
	}
	pl.SetMasterVolume(cfg.volume)
	if err := pl.Start(); err != nil {
		return err
	}
	defer func() {
		if err := pl.Close(); err != nil {
			logger.Warn("close player", "err", err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	if !strings.EqualFold(cfg.midiIn, "none") {
		in, err := midiin.Open(cfg.midiIn, pl.HandleMIDI, func(err error) {
			pl.Dispatch(polypot.AllNotesOff())
		}, logger)
		switch {
		case err == nil:
			defer in.Close()
		case cfg.midiIn == "" && errors.Is(err, midiin.ErrPortNotFound):
			logger.Info("no MIDI input available")
		default:
			return err
		}
	}

	if cfg.keys {
		kb := qwerty.New(pl, qwerty.Options{Hold: cfg.hold, Logger: logger})
		g.Go(func() error {
			err := kb.Run(ctx)
			switch {
			case errors.Is(err, qwerty.ErrQuit):
				return errQuit
			case errors.Is(err, qwerty.ErrNotTerminal):
				logger.Info("computer keyboard disabled", "reason", err)
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		t := time.NewTicker(statsInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				logger.Debug("voices", "active", pl.ActiveVoices(), "dropped", pl.DroppedEvents())
			}
		}
	})

	logger.Info("polypot running", "voices", polypot.Voices, "sample_rate", cfg.sampleRate, "fx", cfg.fx)
	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}
