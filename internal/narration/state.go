package narration

// State is the lifecycle state of a Session.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	// StateStopped is terminal.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// CanPause reports whether Pause applies.
func (s State) CanPause() bool {
	return s == StatePlaying
}

// CanResume reports whether Resume applies.
func (s State) CanResume() bool {
	return s == StatePaused
}

// Active reports whether the session holds the output.
func (s State) Active() bool {
	return s == StatePlaying || s == StatePaused
}

// Direction is the way Skip moves.
type Direction int

const (
	Next Direction = iota
	Previous
)

func (d Direction) String() string {
	if d == Previous {
		return "previous"
	}
	return "next"
}

func (d Direction) delta() int {
	if d == Previous {
		return -1
	}
	return 1
}

// EventKind classifies session events.
type EventKind int

const (
	// EventStateChanged fires on every state change.
	EventStateChanged EventKind = iota
	// EventStepStarted fires when a step's handle has been acquired.
	EventStepStarted
	// EventNothingToNarrate fires when Start finds no steps.
	EventNothingToNarrate
	// EventPlaybackFailed fires at most once per session.
	EventPlaybackFailed
	// EventFinished fires when the last step completes.
	EventFinished
	// EventVoiceChanged fires when the catalog re-resolves the voice.
	EventVoiceChanged
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state-changed"
	case EventStepStarted:
		return "step-started"
	case EventNothingToNarrate:
		return "nothing-to-narrate"
	case EventPlaybackFailed:
		return "playback-failed"
	case EventFinished:
		return "finished"
	case EventVoiceChanged:
		return "voice-changed"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent read of a session for display.
type Snapshot struct {
	SessionID string
	State     State
	Index     int // -1 before the first step
	Total     int
	Voice     string
	Language  string
}

// Current returns the 1-based position for display, 0 before the first step.
func (s Snapshot) Current() int {
	return s.Index + 1
}

// Event is delivered to listeners after the transition that produced it.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
	Err      error
}
