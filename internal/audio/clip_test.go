package audio

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeOutput stands in for *oto.Player. It plays until drained by the test.
type fakeOutput struct {
	mu      sync.Mutex
	playing bool
	drained bool
	closed  bool
	volume  float64
	err     error
}

func (o *fakeOutput) Play() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.drained {
		o.playing = true
	}
}

func (o *fakeOutput) Pause() {
	o.mu.Lock()
	o.playing = false
	o.mu.Unlock()
}

func (o *fakeOutput) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.playing
}

func (o *fakeOutput) SetVolume(v float64) {
	o.mu.Lock()
	o.volume = v
	o.mu.Unlock()
}

func (o *fakeOutput) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	return nil
}

func (o *fakeOutput) drain() {
	o.mu.Lock()
	o.playing = false
	o.drained = true
	o.mu.Unlock()
}

func (o *fakeOutput) fail(err error) {
	o.mu.Lock()
	o.err = err
	o.mu.Unlock()
}

func (o *fakeOutput) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func startClip(out *fakeOutput) (*Clip, chan error) {
	done := make(chan error, 2)
	c := newClip(out, time.Second, func(err error) { done <- err }, time.Millisecond)
	c.start()
	return c, done
}

func TestClipNaturalCompletion(t *testing.T) {
	out := &fakeOutput{}
	c, done := startClip(out)

	out.drain()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("done(%v), want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("done not called after playback drained")
	}
	if !out.isClosed() || !c.Released() {
		t.Error("player not closed after completion")
	}
}

func TestClipReportsPlayerError(t *testing.T) {
	out := &fakeOutput{}
	_, done := startClip(out)

	boom := errors.New("device lost")
	out.fail(boom)
	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("done(%v), want %v", err, boom)
		}
	case <-time.After(time.Second):
		t.Fatal("done not called after player error")
	}
}

func TestClipPauseIsNotCompletion(t *testing.T) {
	out := &fakeOutput{}
	c, done := startClip(out)

	if err := c.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	select {
	case err := <-done:
		t.Fatalf("paused clip reported done(%v)", err)
	case <-time.After(30 * time.Millisecond):
	}

	if err := c.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if !out.IsPlaying() {
		t.Error("output not playing after Resume()")
	}
	_ = c.Cancel()
}

func TestClipCancel(t *testing.T) {
	out := &fakeOutput{}
	c, done := startClip(out)

	var released int
	c.onRelease = func(*Clip) { released++ }

	if err := c.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if err := c.Cancel(); err != nil {
		t.Fatalf("second Cancel() error = %v", err)
	}
	out.drain()

	select {
	case err := <-done:
		t.Fatalf("cancelled clip reported done(%v)", err)
	case <-time.After(30 * time.Millisecond):
	}
	if !out.isClosed() {
		t.Error("player not closed")
	}
	if released != 1 {
		t.Errorf("onRelease called %d times, want 1", released)
	}
	// no-ops once released
	if err := c.Pause(); err != nil {
		t.Errorf("Pause() after cancel error = %v", err)
	}
}

func TestClipVolumeClamped(t *testing.T) {
	out := &fakeOutput{}
	c, _ := startClip(out)
	defer c.Cancel()

	c.SetVolume(1.5)
	out.mu.Lock()
	v := out.volume
	out.mu.Unlock()
	if v != 1 {
		t.Errorf("volume = %v, want 1", v)
	}
}
