package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/narration"
	"github.com/dgnsrekt/narrator/ui"
)

// runPlain narrates without the tui, printing each step as it starts. It
// returns when the sequence finishes, fails or ctx is cancelled.
func runPlain(ctx context.Context, doc *document, w io.Writer) error {
	events := ui.NewEvents(0)
	rt, err := newRuntime(ctx, cfg, narration.WithListener(events.Publish))
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck

	text, err := doc.content(ctx, cfg.language)
	if err != nil {
		return err
	}
	s, err := rt.narrator.Start(ctx, narration.Request{
		Content:         text,
		Language:        cfg.language,
		VoicePreference: cfg.voice,
	})
	if err != nil {
		return fmt.Errorf("unable to start narration: %w", err)
	}
	return printSteps(ctx, s, events, w)
}

// printSteps follows s through events until it ends.
func printSteps(ctx context.Context, s *narration.Session, events <-chan narration.Event, w io.Writer) error {
	steps := s.Steps()
	if len(steps) == 0 {
		_, err := fmt.Fprintln(w, "Nothing to narrate.")
		return err
	}

	// events can be dropped under load, so the session state is polled too
	poll := time.NewTicker(250 * time.Millisecond)
	defer poll.Stop()

	printed := -1
	for {
		select {
		case <-ctx.Done():
			return s.Stop()
		case <-poll.C:
			if s.State() == narration.StateStopped {
				return outcome(s, events)
			}
		case ev := <-events:
			if ev.Snapshot.SessionID != s.ID() {
				continue
			}
			switch ev.Kind {
			case narration.EventStepStarted:
				i := ev.Snapshot.Index
				if i == printed || i < 0 || i >= len(steps) {
					continue
				}
				printed = i
				label := faint(fmt.Sprintf("%d/%d", ev.Snapshot.Current(), len(steps)))
				if _, err := fmt.Fprintf(w, "%s %s\n", label, steps[i].Text); err != nil {
					return err
				}
			case narration.EventPlaybackFailed:
				return ev.Err
			case narration.EventFinished:
				log.Debug("narration finished", "session", s.ID())
				return nil
			case narration.EventStateChanged:
				if ev.Snapshot.State == narration.StateStopped {
					return outcome(s, events)
				}
			}
		}
	}
}

// outcome waits briefly for the event explaining why s stopped. A failure
// is queued right after the state change that stops the session.
func outcome(s *narration.Session, events <-chan narration.Event) error {
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case <-deadline:
			return nil
		case ev := <-events:
			if ev.Snapshot.SessionID != s.ID() {
				continue
			}
			switch ev.Kind {
			case narration.EventPlaybackFailed:
				return ev.Err
			case narration.EventFinished:
				return nil
			}
		}
	}
}
