package narration

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeSpeaker hands out handles that finish only when the test says so, and
// tracks how many are held at once.
type fakeSpeaker struct {
	mu        sync.Mutex
	active    int
	maxActive int
	spoken    []Utterance
	handles   []*fakeHandle
	failAt    map[int]error

	// blocking makes Speak wait for ctx; entered receives once Speak is waiting.
	blocking bool
	entered  chan struct{}
}

func newFakeSpeaker() *fakeSpeaker {
	return &fakeSpeaker{failAt: map[int]error{}, entered: make(chan struct{}, 1)}
}

func (f *fakeSpeaker) Speak(ctx context.Context, u Utterance, done func(error)) (Handle, error) {
	f.mu.Lock()
	blocking := f.blocking
	f.mu.Unlock()
	if blocking {
		f.entered <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failAt[u.Step]; ok {
		return nil, err
	}
	f.spoken = append(f.spoken, u)
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	h := &fakeHandle{speaker: f, utterance: u, done: done}
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *fakeSpeaker) release() {
	f.mu.Lock()
	f.active--
	f.mu.Unlock()
}

func (f *fakeSpeaker) last(t *testing.T) *fakeHandle {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.handles) == 0 {
		t.Fatal("no handle acquired")
	}
	return f.handles[len(f.handles)-1]
}

func (f *fakeSpeaker) spokenSteps() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, 0, len(f.spoken))
	for _, u := range f.spoken {
		out = append(out, u.Step)
	}
	return out
}

func (f *fakeSpeaker) stats() (active, maxActive int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, f.maxActive
}

type fakeHandle struct {
	speaker   *fakeSpeaker
	utterance Utterance
	done      func(error)

	mu       sync.Mutex
	released bool
	pauses   int
	resumes  int
}

func (h *fakeHandle) Pause() error {
	h.mu.Lock()
	h.pauses++
	h.mu.Unlock()
	return nil
}

func (h *fakeHandle) Resume() error {
	h.mu.Lock()
	h.resumes++
	h.mu.Unlock()
	return nil
}

func (h *fakeHandle) Cancel() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.released = true
	h.speaker.release()
	return nil
}

// Finish ends playback the way a speaker's own goroutine would.
func (h *fakeHandle) Finish(err error) {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	h.mu.Unlock()
	h.speaker.release()
	h.done(err)
}

type fakeAmbient struct {
	mu     sync.Mutex
	starts int
	ends   int
}

func (a *fakeAmbient) OnNarrationStart() {
	a.mu.Lock()
	a.starts++
	a.mu.Unlock()
}

func (a *fakeAmbient) OnNarrationEnd() {
	a.mu.Lock()
	a.ends++
	a.mu.Unlock()
}

func (a *fakeAmbient) counts() (starts, ends int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.starts, a.ends
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (l *eventLog) find(kind EventKind) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ev := range l.events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return Event{}, false
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 2s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
