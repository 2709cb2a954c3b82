// Package dictation collects recognized speech into a single query. It ends
// a capture after a quiet period, and translates ingredient words between
// the narration languages and English.
package dictation

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is how long dictation waits after the last result
// before it ends the capture.
const DefaultQuietPeriod = 2500 * time.Millisecond

// SilenceTimer runs fn once the quiet period passes without a Reset. A timer
// that fires after being reset or stopped is ignored.
type SilenceTimer struct {
	quiet time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// NewSilenceTimer returns an idle timer. A non-positive quiet period uses
// DefaultQuietPeriod.
func NewSilenceTimer(quiet time.Duration, fn func()) *SilenceTimer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &SilenceTimer{quiet: quiet, fn: fn}
}

// Reset starts the quiet period over. It also restarts a stopped timer.
func (t *SilenceTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	t.stopped = false
	gen := t.gen
	t.timer = time.AfterFunc(t.quiet, func() { t.fire(gen) })
}

// Stop cancels a pending firing.
func (t *SilenceTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Quiet returns the quiet period.
func (t *SilenceTimer) Quiet() time.Duration { return t.quiet }

func (t *SilenceTimer) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.timer = nil
	t.mu.Unlock()

	t.fn()
}
