package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/dgnsrekt/narrator/internal/audio"
	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/internal/narration"
	"github.com/dgnsrekt/narrator/internal/observe"
)

// Player plays decoded PCM and reports completion through done.
type Player interface {
	PlayClip(pcm []byte, done func(error)) (narration.Handle, error)
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(pcm []byte, done func(error)) (narration.Handle, error)

func (f PlayerFunc) PlayClip(pcm []byte, done func(error)) (narration.Handle, error) {
	return f(pcm, done)
}

// DevicePlayer plays clips on an audio device.
func DevicePlayer(d *audio.Device) Player {
	return PlayerFunc(func(pcm []byte, done func(error)) (narration.Handle, error) {
		c, err := d.PlayClip(pcm, done)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// DecodeFunc turns an encoded clip into device PCM stretched by speed.
type DecodeFunc func(ctx context.Context, data []byte, format audio.Format, cfg audio.Config, speed float64) ([]byte, error)

const (
	// prefetchConcurrency bounds parallel lookahead fetches.
	prefetchConcurrency = 2

	fetchTimeout = time.Minute
)

// Speaker implements narration.Speaker and narration.Prefetcher on top of a
// Source.
type Speaker struct {
	source  Source
	player  Player
	store   *cache.Store
	cfg     audio.Config
	decode  DecodeFunc
	metrics *observe.Metrics
	logger  *log.Logger

	group singleflight.Group
}

var (
	_ narration.Speaker    = (*Speaker)(nil)
	_ narration.Prefetcher = (*Speaker)(nil)
)

// SpeakerOption configures a Speaker.
type SpeakerOption func(*Speaker)

// WithStore caches decoded clips.
func WithStore(s *cache.Store) SpeakerOption {
	return func(sp *Speaker) { sp.store = s }
}

// WithDecoder replaces audio.Decode.
func WithDecoder(fn DecodeFunc) SpeakerOption {
	return func(sp *Speaker) { sp.decode = fn }
}

// WithMetrics records cache hits and fetch latency.
func WithMetrics(m *observe.Metrics) SpeakerOption {
	return func(sp *Speaker) { sp.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) SpeakerOption {
	return func(sp *Speaker) { sp.logger = l }
}

// NewSpeaker returns a speaker fetching from source and playing on player in
// the format cfg describes.
func NewSpeaker(source Source, player Player, cfg audio.Config, opts ...SpeakerOption) *Speaker {
	sp := &Speaker{
		source: source,
		player: player,
		cfg:    cfg,
		decode: audio.Decode,
		logger: log.Default().WithPrefix("remote"),
	}
	for _, opt := range opts {
		opt(sp)
	}
	return sp
}

// Speak loads the clip for u, from cache or the source, and starts playing
// it. A cancelled ctx abandons the load promptly.
func (sp *Speaker) Speak(ctx context.Context, u narration.Utterance, done func(error)) (narration.Handle, error) {
	pcm, err := sp.load(ctx, u)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := sp.player.PlayClip(pcm, done)
	if err != nil {
		return nil, fmt.Errorf("play clip: %w", err)
	}
	return h, nil
}

// Prefetch loads the upcoming utterances into the cache.
func (sp *Speaker) Prefetch(ctx context.Context, next []narration.Utterance) error {
	if sp.store == nil {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)
	for _, u := range next {
		g.Go(func() error {
			_, err := sp.load(ctx, u)
			return err
		})
	}
	return g.Wait()
}

func (sp *Speaker) key(u narration.Utterance) string {
	return cache.GenerateKey(sp.source.Name(), u.Text, u.Tag, u.Voice, u.Rate)
}

func (sp *Speaker) load(ctx context.Context, u narration.Utterance) ([]byte, error) {
	key := sp.key(u)
	if sp.store != nil {
		if pcm, ok := sp.store.Get(key); ok {
			sp.metrics.ClipCacheHit(ctx)
			return pcm, nil
		}
	}

	// The fetch outlives a caller that gives up, so a clip another caller
	// joined still lands in the cache.
	fetchCtx := context.WithoutCancel(ctx)
	ch := sp.group.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(fetchCtx, fetchTimeout)
		defer cancel()
		return sp.fetch(ctx, key, u)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]byte), nil
	}
}

func (sp *Speaker) fetch(ctx context.Context, key string, u narration.Utterance) ([]byte, error) {
	start := time.Now()
	clip, err := sp.source.Fetch(ctx, u.Text, u.Tag, u.Voice)
	if err != nil {
		return nil, fmt.Errorf("fetch %s clip: %w", sp.source.Name(), err)
	}
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	pcm, err := sp.decode(ctx, clip.Data, clip.Format, sp.cfg, rate)
	if err != nil {
		return nil, fmt.Errorf("decode %s clip: %w", clip.Format, err)
	}
	sp.logger.Debug("clip ready", "step", u.Step, "source", sp.source.Name(), "bytes", len(pcm), "took", time.Since(start))

	if sp.store != nil {
		if err := sp.store.Put(key, pcm); err != nil && !errors.Is(err, cache.ErrItemTooLarge) {
			sp.logger.Warn("could not cache clip", "err", err)
		}
	}
	return pcm, nil
}
