package audio

import (
	"sync"
	"time"
)

const clipPollInterval = 20 * time.Millisecond

// output is the part of *oto.Player a clip drives.
type output interface {
	Play()
	Pause()
	IsPlaying() bool
	SetVolume(volume float64)
	Err() error
	Close() error
}

// Clip is one narration clip on the device. It satisfies narration.Handle.
type Clip struct {
	out       output
	duration  time.Duration
	done      func(error)
	poll      time.Duration
	onRelease func(*Clip)

	mu       sync.Mutex
	paused   bool
	released bool
	stop     chan struct{}
}

func newClip(out output, duration time.Duration, done func(error), poll time.Duration) *Clip {
	return &Clip{
		out:      out,
		duration: duration,
		done:     done,
		poll:     poll,
		stop:     make(chan struct{}),
	}
}

func (c *Clip) start() {
	c.out.Play()
	go c.watch()
}

// watch polls the player until it drains or fails. oto has no completion
// callback.
func (c *Clip) watch() {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}

		finished, err := c.check()
		if !finished {
			continue
		}
		if c.onRelease != nil {
			c.onRelease(c)
		}
		if c.done != nil {
			c.done(err)
		}
		return
	}
}

func (c *Clip) check() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return false, nil
	}
	if err := c.out.Err(); err != nil {
		c.releaseLocked()
		return true, err
	}
	if c.paused || c.out.IsPlaying() {
		return false, nil
	}
	c.releaseLocked()
	return true, nil
}

func (c *Clip) releaseLocked() error {
	c.released = true
	close(c.stop)
	return c.out.Close()
}

// Pause suspends the clip in place.
func (c *Clip) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released || c.paused {
		return nil
	}
	c.out.Pause()
	c.paused = true
	return nil
}

// Resume continues a paused clip.
func (c *Clip) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released || !c.paused {
		return nil
	}
	c.paused = false
	c.out.Play()
	return nil
}

// Cancel stops the clip and closes its player. It is idempotent.
func (c *Clip) Cancel() error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return nil
	}
	c.out.Pause()
	err := c.releaseLocked()
	c.mu.Unlock()

	if c.onRelease != nil {
		c.onRelease(c)
	}
	return err
}

// SetVolume sets the clip volume (0.0 to 1.0).
func (c *Clip) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.released {
		c.out.SetVolume(clamp(v))
	}
}

// Duration is the clip length.
func (c *Clip) Duration() time.Duration {
	return c.duration
}

// Released reports whether the clip finished or was cancelled.
func (c *Clip) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
