package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// ErrClosed is returned after the device has been closed.
var ErrClosed = errors.New("audio device closed")

// Config describes the PCM format the device plays.
type Config struct {
	SampleRate int // 44100 or 48000 Hz only
	Channels   int // 1 = mono, 2 = stereo
	BitDepth   int // 16 bits per sample
	BufferSize int // bytes
}

// DefaultConfig returns the configuration narration clips are decoded to.
func DefaultConfig() Config {
	return Config{
		SampleRate: 44100,
		Channels:   1,
		BitDepth:   16,
		BufferSize: 4096,
	}
}

// Validate checks that oto can open the configuration.
func (c Config) Validate() error {
	if c.SampleRate != 44100 && c.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", c.Channels)
	}
	if c.BitDepth != 16 {
		return fmt.Errorf("bit depth must be 16, got %d", c.BitDepth)
	}
	if c.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}
	return nil
}

// frameSize is the byte length of one sample across all channels.
func (c Config) frameSize() int {
	return c.Channels * c.BitDepth / 8
}

// Duration returns how long pcm plays in this format.
func (c Config) Duration(pcm []byte) time.Duration {
	frames := len(pcm) / c.frameSize()
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// Device is the process-wide audio output. oto allows a single context per
// process, so narration clips and the ambient loop share one Device.
type Device struct {
	ctx    *oto.Context
	cfg    Config
	logger *log.Logger

	mu     sync.Mutex
	closed bool
	clips  map[*Clip]struct{}
	loops  []*LoopTrack
}

// Open initializes the audio output and waits until it is ready.
func Open(cfg Config) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(cfg.BufferSize) * time.Second / time.Duration(cfg.SampleRate*cfg.frameSize()),
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	return &Device{
		ctx:    ctx,
		cfg:    cfg,
		logger: log.Default().WithPrefix("audio"),
		clips:  make(map[*Clip]struct{}),
	}, nil
}

// Config returns the device format.
func (d *Device) Config() Config {
	return d.cfg
}

// PlayClip starts pcm and returns its handle. done runs once, from the
// clip's own goroutine, when playback reaches the end or fails. It is not
// called for a cancelled clip.
func (d *Device) PlayClip(pcm []byte, done func(error)) (*Clip, error) {
	if len(pcm) == 0 {
		return nil, errors.New("audio data is empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}

	// own the bytes for the lifetime of the player
	data := make([]byte, len(pcm)-len(pcm)%d.cfg.frameSize())
	copy(data, pcm)

	c := newClip(d.ctx.NewPlayer(bytes.NewReader(data)), d.cfg.Duration(data), done, clipPollInterval)
	c.onRelease = d.forget
	d.clips[c] = struct{}{}
	c.start()

	d.logger.Debug("clip started", "bytes", len(data), "duration", c.Duration())
	return c, nil
}

// Loop plays pcm repeatedly at volume until the track is closed.
func (d *Device) Loop(pcm []byte, volume float64) (*LoopTrack, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}

	r, err := newLoopReader(pcm, d.cfg.frameSize())
	if err != nil {
		return nil, err
	}
	t := newLoopTrack(d.ctx.NewPlayer(r), volume)
	d.loops = append(d.loops, t)
	return t, nil
}

func (d *Device) forget(c *Clip) {
	d.mu.Lock()
	delete(d.clips, c)
	d.mu.Unlock()
}

// Close stops every clip and loop. The oto context itself cannot be
// released in v3 and stays alive until process exit.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	clips := make([]*Clip, 0, len(d.clips))
	for c := range d.clips {
		clips = append(clips, c)
	}
	loops := d.loops
	d.loops = nil
	d.mu.Unlock()

	var errs []error
	for _, c := range clips {
		errs = append(errs, c.Cancel())
	}
	for _, t := range loops {
		errs = append(errs, t.Close())
	}
	return errors.Join(errs...)
}
