package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/ambient"
	"github.com/dgnsrekt/narrator/internal/audio"
	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/internal/narration"
	"github.com/dgnsrekt/narrator/internal/observe"
	"github.com/dgnsrekt/narrator/internal/remote"
	"github.com/dgnsrekt/narrator/internal/speech"
	"github.com/dgnsrekt/narrator/internal/voice"
)

const (
	// engineSpeech speaks through the local espeak-ng synthesizer.
	engineSpeech = "speech"
	// engineRemote plays clips from a remote source through the audio device.
	engineRemote = "remote"
)

var errEngineUnavailable = errors.New("narration engine unavailable")

// validateEngine normalizes an engine name.
func validateEngine(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", engineSpeech, "espeak", "espeak-ng":
		return engineSpeech, nil
	case engineRemote, "hybrid":
		return engineRemote, nil
	default:
		return "", fmt.Errorf("unknown engine %q\n\nSupported engines:\n  - speech (espeak-ng, offline)\n  - remote (backend, gtts or openai clips)", name)
	}
}

// runtime is everything a narration run holds open.
type runtime struct {
	narrator *narration.Narrator
	catalog  *voice.Catalog
	ambient  *ambient.Coordinator
	device   *audio.Device
	store    *cache.Store
	closers  []func() error
}

// newRuntime builds the narrator for s. Background work (voice discovery,
// voices file watching) stops with ctx.
func newRuntime(ctx context.Context, s settings, extra ...narration.Option) (*runtime, error) {
	rt := &runtime{}
	metrics := observe.DefaultMetrics()

	catalog, err := loadCatalog(s.voicesFile)
	if err != nil {
		return nil, err
	}
	rt.catalog = catalog

	opts := []narration.Option{
		narration.WithMetrics(metrics),
		narration.WithSpeed(s.speed),
		narration.WithAnnounce(s.announce),
	}
	if s.markdown {
		opts = append(opts, narration.WithSegmenter(narration.NewSegmenter(narration.WithMarkdown())))
	}

	var speaker narration.Speaker
	switch s.engine {
	case engineRemote:
		sp, err := rt.remoteSpeaker(s, metrics)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		speaker = sp
		opts = append(opts, narration.WithLookahead(s.remote.Lookahead))
	default:
		synth := speech.New(s.speech, speech.WithLogger(log.Default().WithPrefix("speech")))
		if err := synth.Available(); err != nil {
			return nil, fmt.Errorf("%w: %w\n\nInstall espeak-ng, or narrate remote clips with --engine remote", errEngineUnavailable, err)
		}
		go func() {
			if err := synth.Discover(ctx, catalog); err != nil {
				log.Warn("voice discovery failed", "error", err)
			}
		}()
		speaker = synth
	}

	if s.ambientFile != "" {
		if coord, err := rt.startAmbient(ctx, s.ambientFile, s.ambientVolume); err != nil {
			log.Warn("ambient track disabled", "file", s.ambientFile, "error", err)
		} else {
			rt.ambient = coord
			opts = append(opts, narration.WithAmbient(coord))
		}
	}

	rt.narrator = narration.NewNarrator(speaker, catalog, append(opts, extra...)...)

	go func() {
		if err := catalog.Watch(ctx); err != nil {
			log.Warn("not watching voices file", "error", err)
		}
	}()
	return rt, nil
}

func loadCatalog(path string) (*voice.Catalog, error) {
	if path == "" {
		return voice.NewCatalog(), nil
	}
	c, err := voice.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load voices file: %w", err)
	}
	return c, nil
}

func (rt *runtime) openDevice() (*audio.Device, error) {
	if rt.device != nil {
		return rt.device, nil
	}
	d, err := audio.Open(audio.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("unable to open audio device: %w", err)
	}
	rt.device = d
	rt.closers = append(rt.closers, d.Close)
	return d, nil
}

func (rt *runtime) remoteSpeaker(s settings, metrics *observe.Metrics) (*remote.Speaker, error) {
	logger := log.Default().WithPrefix("remote")
	src, err := remote.NewSource(s.remote, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errEngineUnavailable, err)
	}
	if g, ok := src.(*remote.GTTSSource); ok {
		if err := g.Available(); err != nil {
			return nil, fmt.Errorf("%w: %w", errEngineUnavailable, err)
		}
	}

	device, err := rt.openDevice()
	if err != nil {
		return nil, err
	}

	store, err := cache.NewStore(s.cache, cache.WithLogger(log.Default().WithPrefix("cache")))
	if err != nil {
		return nil, err
	}
	rt.store = store
	rt.closers = append(rt.closers, store.Close)

	return remote.NewSpeaker(src, remote.DevicePlayer(device), device.Config(),
		remote.WithStore(store),
		remote.WithMetrics(metrics),
		remote.WithLogger(logger),
	), nil
}

// startAmbient decodes file and loops it under the narration.
func (rt *runtime) startAmbient(ctx context.Context, file string, volume float64) (*ambient.Coordinator, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	device, err := rt.openDevice()
	if err != nil {
		return nil, err
	}
	pcm, err := audio.Decode(ctx, data, audio.ParseFormat(filepath.Ext(file)), device.Config(), 1)
	if err != nil {
		return nil, fmt.Errorf("unable to decode ambient track: %w", err)
	}
	track, err := device.Loop(pcm, volume)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, track.Close)
	return ambient.New(track, ambient.WithLogger(log.Default().WithPrefix("ambient"))), nil
}

// Close stops narration and releases everything in reverse order of
// acquisition.
func (rt *runtime) Close() error {
	var errs []error
	if rt.narrator != nil {
		errs = append(errs, rt.narrator.Close())
	}
	for _, c := range slices.Backward(rt.closers) {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
