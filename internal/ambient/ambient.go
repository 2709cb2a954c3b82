// Package ambient lowers a background track while narration speaks and
// restores it afterwards.
package ambient

import (
	"sync"

	"github.com/charmbracelet/log"
)

// DuckRatio is the fraction of nominal volume kept while narration runs.
const DuckRatio = 0.2

// Track is a background track with independent volume and mute controls.
type Track interface {
	Volume() float64
	SetVolume(v float64)
	Muted() bool
	SetMuted(m bool)
}

// Coordinator ducks a Track around narration. It implements
// narration.Ambient. A Coordinator without a track does nothing.
type Coordinator struct {
	mu      sync.Mutex
	track   Track
	nominal float64
	ducked  bool
	logger  *log.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// New returns a Coordinator for track, taking its current volume as nominal.
func New(track Track, opts ...Option) *Coordinator {
	c := &Coordinator{track: track}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Default().WithPrefix("ambient")
	}
	if track != nil {
		c.nominal = track.Volume()
	}
	return c
}

// OnNarrationStart ducks the track. Repeated calls keep the first duck.
func (c *Coordinator) OnNarrationStart() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.track == nil || c.ducked {
		return
	}
	c.ducked = true
	c.track.SetVolume(c.nominal * DuckRatio)
	c.logger.Debug("ducked", "volume", c.nominal*DuckRatio)
}

// OnNarrationEnd restores nominal volume.
func (c *Coordinator) OnNarrationEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.track == nil || !c.ducked {
		return
	}
	c.ducked = false
	c.track.SetVolume(c.nominal)
	c.logger.Debug("restored", "volume", c.nominal)
}

// SetNominal changes the volume restored after narration. While ducked the
// track follows at DuckRatio of the new value.
func (c *Coordinator) SetNominal(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	c.nominal = v
	if c.track == nil {
		return
	}
	if c.ducked {
		c.track.SetVolume(v * DuckRatio)
		return
	}
	c.track.SetVolume(v)
}

// Nominal returns the volume restored after narration.
func (c *Coordinator) Nominal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nominal
}

// Ducked reports whether narration currently holds the track down.
func (c *Coordinator) Ducked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ducked
}

// Muted reports the user's mute toggle.
func (c *Coordinator) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.track != nil && c.track.Muted()
}

// ToggleMute flips the user's mute and returns the new value. Mute does not
// interact with ducking.
func (c *Coordinator) ToggleMute() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.track == nil {
		return false
	}
	m := !c.track.Muted()
	c.track.SetMuted(m)
	c.logger.Debug("mute", "muted", m)
	return m
}
