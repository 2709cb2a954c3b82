package audio

import (
	"errors"
	"sync"
)

// loopReader repeats its data forever.
type loopReader struct {
	data []byte
	pos  int
}

func newLoopReader(pcm []byte, frameSize int) (*loopReader, error) {
	n := len(pcm) - len(pcm)%frameSize
	if n == 0 {
		return nil, errors.New("loop needs at least one audio frame")
	}
	data := make([]byte, n)
	copy(data, pcm)
	return &loopReader{data: data}, nil
}

func (r *loopReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		c := copy(p[n:], r.data[r.pos:])
		n += c
		r.pos = (r.pos + c) % len(r.data)
	}
	return n, nil
}

type loopOutput interface {
	Play()
	SetVolume(volume float64)
	Close() error
}

// LoopTrack is a background track playing on repeat. It satisfies
// ambient.Track: volume and mute are independent, and a muted track
// remembers its volume.
type LoopTrack struct {
	out loopOutput

	mu     sync.Mutex
	volume float64
	muted  bool
	closed bool
}

func newLoopTrack(out loopOutput, volume float64) *LoopTrack {
	t := &LoopTrack{out: out, volume: clamp(volume)}
	t.applyLocked()
	out.Play()
	return t
}

func (t *LoopTrack) applyLocked() {
	if t.closed {
		return
	}
	if t.muted {
		t.out.SetVolume(0)
		return
	}
	t.out.SetVolume(t.volume)
}

// Volume returns the set volume, regardless of mute.
func (t *LoopTrack) Volume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

// SetVolume sets the volume (0.0 to 1.0).
func (t *LoopTrack) SetVolume(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = clamp(v)
	t.applyLocked()
}

// Muted reports the mute toggle.
func (t *LoopTrack) Muted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.muted
}

// SetMuted silences or restores the track.
func (t *LoopTrack) SetMuted(m bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.muted = m
	t.applyLocked()
}

// Close stops the loop.
func (t *LoopTrack) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.out.Close()
}
