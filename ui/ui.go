// Package ui provides the terminal narration surface: the step list, the
// playback status bar and the keys that drive a narration session.
package ui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/dgnsrekt/narrator/internal/ambient"
	"github.com/dgnsrekt/narrator/internal/lang"
	"github.com/dgnsrekt/narrator/internal/narration"
)

const (
	headerHeight    = 2
	statusBarHeight = 1
	defaultWidth    = 80
	defaultHeight   = 24

	volumeStep = 0.05
)

// Deps are the collaborators the program drives.
type Deps struct {
	Narrator *narration.Narrator
	// Ambient may be nil when no ambient track is playing.
	Ambient *ambient.Coordinator
	Content ContentFunc
	// Events must be the channel the narrator's sessions publish to.
	Events Events
}

// NewProgram returns a new Tea program.
func NewProgram(ctx context.Context, cfg Config, deps Deps) *tea.Program {
	log.Debug("Starting narrator", "language", cfg.Language, "autoplay", cfg.Autoplay)

	var opts []tea.ProgramOption
	if cfg.EnableAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	opts = append(opts, tea.WithContext(ctx))
	return tea.NewProgram(newModel(ctx, cfg, deps), opts...)
}

type model struct {
	ctx      context.Context
	cfg      Config
	narrator *narration.Narrator
	ambient  *ambient.Coordinator
	content  ContentFunc
	events   Events

	keys keyMap
	help help.Model

	language   lang.Language
	session    *narration.Session
	steps      []narration.Step
	snap       narration.Snapshot
	loading    bool
	pending    narration.Ticket
	stepByStep bool

	statusMessage string
	statusIsError bool

	width  int
	height int
}

func newModel(ctx context.Context, cfg Config, deps Deps) model {
	if !cfg.Language.Valid() {
		cfg.Language = lang.English
	}
	if cfg.StatusTimeout <= 0 {
		cfg.StatusTimeout = 3 * time.Second
	}
	if deps.Content == nil {
		deps.Content = StaticContent("")
	}
	if deps.Events == nil {
		deps.Events = NewEvents(cfg.EventBuffer)
	}
	m := model{
		ctx:      ctx,
		cfg:      cfg,
		narrator: deps.Narrator,
		ambient:  deps.Ambient,
		content:  deps.Content,
		events:   deps.Events,
		keys:     newKeyMap(),
		help:     help.New(),
		language: cfg.Language,
		snap:     narration.Snapshot{Index: -1},
		width:    defaultWidth,
		height:   defaultHeight,

		stepByStep: cfg.StepByStep,
	}
	if cfg.Autoplay {
		m.reserve()
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForEvent(m.events)}
	if m.cfg.Autoplay {
		cmds = append(cmds, m.startCmd(m.pending, m.language))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionLoadedMsg:
		if msg.gen != m.pending.Gen() {
			// superseded by a later load, a language change or stop
			return m, nil
		}
		m.loading = false
		if msg.session != nil {
			m.session = msg.session
			m.steps = msg.session.Steps()
			m.snap = msg.session.Snapshot()
		}
		switch {
		case msg.err != nil:
			cmd := m.showError(msg.err)
			return m, cmd
		case len(m.steps) == 0:
			cmd := m.showStatus("Nothing to narrate")
			return m, cmd
		}
		return m, nil

	case eventMsg:
		cmds := []tea.Cmd{waitForEvent(m.events)}
		if m.session == nil || msg.Snapshot.SessionID != m.session.ID() {
			return m, tea.Batch(cmds...)
		}
		m.snap = msg.Snapshot
		switch msg.Kind {
		case narration.EventFinished:
			cmds = append(cmds, m.showStatus("Finished"))
		case narration.EventPlaybackFailed:
			cmds = append(cmds, m.showError(msg.Err))
		case narration.EventVoiceChanged:
			cmds = append(cmds, m.showStatus("Voice: "+m.voiceName()))
		}
		return m, tea.Batch(cmds...)

	case controlDoneMsg:
		if m.session != nil {
			m.snap = m.session.Snapshot()
		}
		if msg.err != nil && !isInvalidTransition(msg.err) {
			cmd := m.showError(fmt.Errorf("%s: %w", msg.op, msg.err))
			return m, cmd
		}
		return m, nil

	case statusMessageTimeoutMsg:
		m.statusMessage = ""
		m.statusIsError = false
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.narrator != nil {
			_ = m.narrator.Stop()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		s := m.session
		switch {
		case s == nil || s.State() == narration.StateStopped:
			if m.loading {
				return m, nil
			}
			m.reserve()
			load := m.startCmd(m.pending, m.language)
			return m, load
		case s.State() == narration.StateIdle:
			return m, controlCmd("start", s.Start)
		default:
			return m, controlCmd("pause", s.Toggle)
		}

	case key.Matches(msg, m.keys.Stop):
		if m.loading {
			_ = m.narrator.Stop()
			m.loading = false
			m.pending = narration.Ticket{}
			return m, nil
		}
		if m.session == nil {
			return m, nil
		}
		return m, controlCmd("stop", m.session.Stop)

	case key.Matches(msg, m.keys.Next):
		return m, m.skip(narration.Next)

	case key.Matches(msg, m.keys.Previous):
		return m, m.skip(narration.Previous)

	case key.Matches(msg, m.keys.AutoAdvance):
		m.stepByStep = !m.stepByStep
		if m.session != nil {
			m.session.SetAutoAdvance(!m.stepByStep)
		}
		if m.stepByStep {
			cmd := m.showStatus("One step at a time")
			return m, cmd
		}
		cmd := m.showStatus("Auto-advance on")
		return m, cmd

	case key.Matches(msg, m.keys.Language):
		// Reserving stops the old language now, and any load still running
		// for it is discarded.
		m.language = m.language.Next()
		m.session = nil
		m.steps = nil
		m.snap = narration.Snapshot{Index: -1}
		m.reserve()
		load := m.startCmd(m.pending, m.language)
		status := m.showStatus("Language: " + m.language.Name())
		return m, tea.Batch(load, status)

	case key.Matches(msg, m.keys.Mute):
		if m.ambient == nil {
			cmd := m.showStatus("No ambient track")
			return m, cmd
		}
		if m.ambient.ToggleMute() {
			cmd := m.showStatus("Ambient muted")
			return m, cmd
		}
		cmd := m.showStatus("Ambient unmuted")
		return m, cmd

	case key.Matches(msg, m.keys.VolumeUp, m.keys.VolumeDown):
		if m.ambient == nil {
			cmd := m.showStatus("No ambient track")
			return m, cmd
		}
		step := volumeStep
		if key.Matches(msg, m.keys.VolumeDown) {
			step = -step
		}
		m.ambient.SetNominal(m.ambient.Nominal() + step)
		cmd := m.showStatus(fmt.Sprintf("Ambient volume %d%%", volumePercent(m.ambient.Nominal())))
		return m, cmd

	case key.Matches(msg, m.keys.Copy):
		step, ok := m.currentStep()
		if !ok {
			return m, nil
		}
		if err := clipboard.WriteAll(step.Text); err != nil {
			cmd := m.showError(fmt.Errorf("copy: %w", err))
			return m, cmd
		}
		cmd := m.showStatus(fmt.Sprintf("Copied step %d", step.Index+1))
		return m, cmd
	}
	return m, nil
}

// reserve takes a fresh ticket for the next load, stopping the current
// session and superseding any load still in flight.
func (m *model) reserve() {
	m.pending = m.narrator.Reserve(m.ctx)
	m.loading = true
}

func volumePercent(v float64) int {
	return int(math.Round(v * 100))
}

func (m model) skip(d narration.Direction) tea.Cmd {
	s := m.session
	if s == nil {
		return nil
	}
	return controlCmd("skip "+d.String(), func() error { return s.Skip(d) })
}

// currentStep is the playing step, or the first one before playback.
func (m model) currentStep() (narration.Step, bool) {
	if len(m.steps) == 0 {
		return narration.Step{}, false
	}
	i := max(m.snap.Index, 0)
	if i >= len(m.steps) {
		i = len(m.steps) - 1
	}
	return m.steps[i], true
}

func (m *model) showStatus(s string) tea.Cmd {
	m.statusMessage = s
	m.statusIsError = false
	return tea.Tick(m.cfg.StatusTimeout, func(time.Time) tea.Msg { return statusMessageTimeoutMsg{} })
}

func (m *model) showError(err error) tea.Cmd {
	log.Warn("narration error", "error", err)
	cmd := m.showStatus(err.Error())
	m.statusIsError = true
	return cmd
}

func (m model) voiceName() string {
	if m.snap.Voice != "" {
		return m.snap.Voice
	}
	return "default voice"
}

// VIEW

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	helpView := m.help.View(m.keys)
	bodyHeight := m.height - headerHeight - statusBarHeight - lipgloss.Height(helpView) - 1
	b.WriteString(m.stepsView(max(bodyHeight, 1)))
	b.WriteString("\n")
	b.WriteString(m.statusBarView())
	b.WriteString("\n")
	b.WriteString(helpView)
	return b.String()
}

func (m model) headerView() string {
	logo := logoStyle.Render("Narrator")
	language := languageStyle.Render(m.language.Name())
	voice := voiceStyle.Render(m.voiceName())

	title := m.cfg.Title
	if title != "" {
		avail := m.width - lipgloss.Width(logo) - lipgloss.Width(language) - lipgloss.Width(voice) - 3
		title = " " + runewidth.Truncate(title, max(avail, 0), ellipsis)
	}
	return logo + language + voice + stepStyle.Render(title)
}

func (m model) textWidth() int {
	w := m.width
	if m.cfg.MaxWidth > 0 && int(m.cfg.MaxWidth) < w { //nolint:gosec
		w = int(m.cfg.MaxWidth) //nolint:gosec
	}
	// number column plus marker
	return max(w-8, 10)
}

func (m model) stepsView(height int) string {
	if len(m.steps) == 0 {
		if m.loading {
			return indent(stepStyle.Render("Loading "+m.language.Name()+ellipsis), 2)
		}
		return indent(stepStyle.Render("Nothing to narrate."), 2)
	}

	var lines []string
	currentLine := 0
	width := m.textWidth()
	for i, step := range m.steps {
		current := i == m.snap.Index
		if current {
			currentLine = len(lines)
		}
		wrapped := strings.Split(wordwrap.String(step.Text, width), "\n")
		for j, l := range wrapped {
			num := "    "
			if j == 0 {
				num = fmt.Sprintf("%3d.", i+1)
			}
			marker := " "
			style := stepStyle
			if current {
				marker = currentMarker
				style = currentStepStyle
			}
			lines = append(lines, " "+marker+" "+stepNumberStyle.Render(num)+" "+style.Render(l))
		}
	}

	// keep the current step in view, a little below the top
	start := 0
	if len(lines) > height {
		start = min(max(currentLine-height/3, 0), len(lines)-height)
	}
	end := min(start+height, len(lines))
	return strings.Join(lines[start:end], "\n")
}

func (m model) statusBarView() string {
	state := m.snap.State.String()
	if m.loading {
		state = "loading"
	}
	style, ok := stateStyles[state]
	if !ok {
		style = stateStyles["idle"]
	}
	stateLabel := style.Render(state)

	position := fmt.Sprintf(" Step %d/%d ", m.snap.Current(), len(m.steps))
	position = statusBarNoteStyle(position)

	var mode string
	if m.stepByStep {
		mode = statusBarNoteStyle(" one step ")
	}

	var muted string
	if m.ambient != nil {
		switch {
		case m.ambient.Muted():
			muted = mutedStyle(" muted ")
		case m.ambient.Ducked():
			muted = statusBarNoteStyle(fmt.Sprintf(" ♪ %d%% ↓ ", volumePercent(m.ambient.Nominal())))
		default:
			muted = statusBarNoteStyle(fmt.Sprintf(" ♪ %d%% ", volumePercent(m.ambient.Nominal())))
		}
	}

	note := m.statusMessage
	avail := max(0, m.width-
		ansi.PrintableRuneWidth(stateLabel)-
		ansi.PrintableRuneWidth(position)-
		ansi.PrintableRuneWidth(mode)-
		ansi.PrintableRuneWidth(muted))
	note = truncate.StringWithTail(" "+note+" ", uint(avail), ellipsis) //nolint:gosec

	padding := strings.Repeat(" ", max(0, avail-ansi.PrintableRuneWidth(note)))
	switch {
	case m.statusMessage != "" && m.statusIsError:
		note = statusBarErrorStyle(note + padding)
	case m.statusMessage != "":
		note = statusBarMessageStyle(note + padding)
	default:
		note = statusBarNoteStyle(note + padding)
	}

	return stateLabel + position + note + mode + muted
}
