package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/lang"
	"github.com/dgnsrekt/narrator/internal/narration"
)

// ContentFunc returns the text to narrate in a language.
type ContentFunc func(ctx context.Context, l lang.Language) (string, error)

// StaticContent narrates the same text whatever the language.
func StaticContent(text string) ContentFunc {
	return func(context.Context, lang.Language) (string, error) { return text, nil }
}

// Events carries session events from narration listeners into the program.
type Events chan narration.Event

// NewEvents returns a buffered event channel.
func NewEvents(size int) Events {
	if size <= 0 {
		size = 64
	}
	return make(Events, size)
}

// Publish delivers ev without blocking the session. When the program falls
// behind, events are dropped; the view re-reads the session snapshot anyway.
func (e Events) Publish(ev narration.Event) {
	select {
	case e <- ev:
	default:
		log.Debug("ui event dropped", "kind", ev.Kind)
	}
}

type sessionLoadedMsg struct {
	gen     uint64 // ticket the load ran under
	session *narration.Session
	err     error
}

type controlDoneMsg struct {
	op  string
	err error
}

type (
	eventMsg                narration.Event
	statusMessageTimeoutMsg struct{}
)

// waitForEvent blocks on the next session event.
func waitForEvent(events Events) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

// startCmd loads content for l and starts a new session under t. A ticket
// superseded while the content loads never reaches the speaker.
func (m model) startCmd(t narration.Ticket, l lang.Language) tea.Cmd {
	content := m.content
	req := narration.Request{
		Language:        l,
		VoicePreference: m.cfg.Voice,
		StepByStep:      m.stepByStep,
	}
	return func() tea.Msg {
		text, err := content(t.Context(), l)
		if err != nil {
			return sessionLoadedMsg{gen: t.Gen(), err: err}
		}
		req.Content = text
		s, err := t.Start(req)
		return sessionLoadedMsg{gen: t.Gen(), session: s, err: err}
	}
}

// controlCmd runs a session operation off the update loop: playing a step
// may wait on a clip fetch.
func controlCmd(op string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return controlDoneMsg{op: op, err: fn()}
	}
}

func isInvalidTransition(err error) bool {
	return errors.Is(err, narration.ErrInvalidTransition)
}
