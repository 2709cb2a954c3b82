package narration

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/lang"
	"github.com/dgnsrekt/narrator/internal/voice"
)

func TestNarratorReplacesSession(t *testing.T) {
	sp := newFakeSpeaker()
	n := NewNarrator(sp, nil, WithLogger(log.New(io.Discard)))
	defer n.Close()

	a, err := n.Start(context.Background(), Request{Content: threeSteps, Language: lang.English})
	if err != nil {
		t.Fatalf("Start(A) error = %v", err)
	}
	b, err := n.Start(context.Background(), Request{Content: "ஒன்று\nஇரண்டு", Language: lang.Tamil})
	if err != nil {
		t.Fatalf("Start(B) error = %v", err)
	}

	if got := a.State(); got != StateStopped {
		t.Errorf("A.State() = %v, want stopped", got)
	}
	if got := b.State(); got != StatePlaying {
		t.Errorf("B.State() = %v, want playing", got)
	}
	if n.Current() != b {
		t.Error("Current() is not the latest session")
	}
	active, max := sp.stats()
	if active != 1 || max != 1 {
		t.Errorf("active/max handles = %d/%d, want 1/1", active, max)
	}
}

func TestNarratorConcurrentStarts(t *testing.T) {
	sp := newFakeSpeaker()
	n := NewNarrator(sp, nil, WithLogger(log.New(io.Discard)))
	defer n.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// a start that loses the race is stopped before it plays
			_, _ = n.Start(context.Background(), Request{Content: threeSteps, Language: lang.English})
		}()
	}
	wg.Wait()

	if _, max := sp.stats(); max > 1 {
		t.Errorf("max concurrent handles = %d, want at most 1", max)
	}
}

func TestNarratorFollowsCatalog(t *testing.T) {
	sp := newFakeSpeaker()
	catalog := voice.NewCatalog(voice.Candidate{ID: "en-us", Tag: "en-US"})
	n := NewNarrator(sp, catalog, WithLogger(log.New(io.Discard)))
	defer n.Close()

	s, err := n.Start(context.Background(), Request{Content: threeSteps, Language: lang.English})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := s.Snapshot().Voice; got != "en-us" {
		t.Fatalf("Voice = %q, want en-us", got)
	}

	catalog.SetPlatform([]voice.Candidate{
		{ID: "en-us", Tag: "en-US"},
		{ID: "en-in", Tag: "en-IN"},
	})
	waitFor(t, func() bool { return s.Snapshot().Voice == "en-in" })
}

func TestNarratorStopWithoutSession(t *testing.T) {
	n := NewNarrator(newFakeSpeaker(), nil)
	if err := n.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if n.Current() != nil {
		t.Error("Current() != nil before any start")
	}
}

func TestTicketSuperseded(t *testing.T) {
	sp := newFakeSpeaker()
	n := NewNarrator(sp, nil, WithLogger(log.New(io.Discard)))
	defer n.Close()

	english := n.Reserve(context.Background())
	tamil := n.Reserve(context.Background())

	if english.Context().Err() == nil {
		t.Error("superseded ticket context not cancelled")
	}
	ta, err := tamil.Start(Request{Content: "ஒன்று\nஇரண்டு", Language: lang.Tamil})
	if err != nil {
		t.Fatalf("Start(ta) error = %v", err)
	}

	// the English content arrives late
	s, err := english.Start(Request{Content: threeSteps, Language: lang.English})
	if !errors.Is(err, ErrSuperseded) || s != nil {
		t.Fatalf("Start(en) = %v, %v, want ErrSuperseded", s, err)
	}
	if n.Current() != ta || ta.State() != StatePlaying {
		t.Errorf("current = %v in %v, want the Tamil session playing", n.Current(), ta.State())
	}
	sp.mu.Lock()
	defer sp.mu.Unlock()
	for _, u := range sp.spoken {
		if u.Tag != lang.Tamil.Tag() {
			t.Errorf("spoke %q as %s", u.Text, u.Tag)
		}
	}
}

func TestTicketSupersededAfterLoad(t *testing.T) {
	sp := newFakeSpeaker()
	n := NewNarrator(sp, nil, WithLogger(log.New(io.Discard)))
	defer n.Close()

	old := n.Reserve(context.Background())
	s, err := old.Load(Request{Content: threeSteps, Language: lang.English})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	n.Reserve(context.Background())

	if s.State() != StateStopped {
		t.Errorf("loaded session %v after Reserve, want stopped", s.State())
	}
	if err := s.Start(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Start() on superseded session = %v", err)
	}
	if got := sp.spokenSteps(); len(got) != 0 {
		t.Errorf("spoke %v", got)
	}
}

func TestStopSupersedesTicket(t *testing.T) {
	n := NewNarrator(newFakeSpeaker(), nil, WithLogger(log.New(io.Discard)))
	defer n.Close()

	tk := n.Reserve(context.Background())
	if err := n.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if _, err := tk.Start(Request{Content: threeSteps, Language: lang.English}); !errors.Is(err, ErrSuperseded) {
		t.Errorf("Start() after Stop = %v, want ErrSuperseded", err)
	}
	if n.Current() != nil {
		t.Error("Stop left a current session")
	}
}
