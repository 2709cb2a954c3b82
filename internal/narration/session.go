// Package narration turns a block of text into an ordered sequence of spoken
// steps and drives their playback one at a time.
//
// A Session owns a single playback attempt. Every transition runs under the
// session lock and is stamped with a generation number; completions carrying
// an older generation are dropped, which is what keeps a stopped or skipped
// step from advancing the sequence.
package narration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dgnsrekt/narrator/internal/lang"
	"github.com/dgnsrekt/narrator/internal/observe"
	"github.com/dgnsrekt/narrator/internal/voice"
)

// Speed multiplier bounds, applied on top of the language's own rate.
const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

// DefaultLookahead is how many upcoming steps are handed to a Prefetcher.
const DefaultLookahead = 2

// Request is the input to a session. It must not change once the session
// exists; a new request means a new session.
type Request struct {
	Content         string
	Language        lang.Language
	VoicePreference string
	// StepByStep turns auto-advance off: each step plays on its own and the
	// session stops when it ends.
	StepByStep bool
}

// Session is one playback of a step sequence.
type Session struct {
	id        string
	req       Request
	steps     []Step
	speaker   Speaker
	ambient   Ambient
	metrics   *observe.Metrics
	logger    *log.Logger
	segmenter *Segmenter
	speed     float64
	announce  bool
	lookahead int
	listeners []func(Event)

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	index       int
	autoAdvance bool
	generation  uint64
	handle      Handle
	voices      []voice.Candidate
	voice       voice.Candidate
	ducked      bool
	failed      bool
	endedPaused bool
	pending     []Event

	snap atomic.Pointer[Snapshot]
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithAmbient sets the collaborator told when narration takes and releases
// the output.
func WithAmbient(a Ambient) Option {
	return func(s *Session) { s.ambient = a }
}

// WithVoices sets the voices the session resolves against.
func WithVoices(v []voice.Candidate) Option {
	return func(s *Session) { s.voices = v }
}

// WithMetrics records session activity.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithSpeed multiplies the language's default speech rate.
func WithSpeed(speed float64) Option {
	return func(s *Session) { s.speed = speed }
}

// WithAnnounce speaks each step's label ("Step 2") before its text.
func WithAnnounce(on bool) Option {
	return func(s *Session) { s.announce = on }
}

// WithSegmenter replaces the default Segmenter.
func WithSegmenter(seg *Segmenter) Option {
	return func(s *Session) { s.segmenter = seg }
}

// WithListener registers fn for every session event. Listeners run on the
// goroutine that caused the event, after the session lock is released.
// A Narrator may still hold its own lock, so listeners must not call it.
func WithListener(fn func(Event)) Option {
	return func(s *Session) { s.listeners = append(s.listeners, fn) }
}

// WithLookahead sets how many upcoming steps are prefetched.
func WithLookahead(n int) Option {
	return func(s *Session) { s.lookahead = n }
}

// NewSession segments the request content and resolves a voice. The session
// starts Idle; call Start or Play to begin. Cancelling ctx stops any
// acquisition in progress.
func NewSession(ctx context.Context, req Request, speaker Speaker, opts ...Option) (*Session, error) {
	if speaker == nil {
		return nil, errors.New("narration: nil speaker")
	}
	if !req.Language.Valid() {
		return nil, fmt.Errorf("narration: %w: %q", lang.ErrUnsupported, req.Language)
	}

	s := &Session{
		id:          "sess_" + uuid.New().String()[:8],
		req:         req,
		speaker:     speaker,
		speed:       1.0,
		announce:    true,
		lookahead:   DefaultLookahead,
		index:       -1,
		state:       StateIdle,
		autoAdvance: !req.StepByStep,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.speed < MinSpeed || s.speed > MaxSpeed {
		return nil, fmt.Errorf("narration: %w: %.2f not in [%.1f, %.1f]", ErrInvalidSpeed, s.speed, MinSpeed, MaxSpeed)
	}
	if s.logger == nil {
		s.logger = log.Default().WithPrefix("narration")
	}
	if s.segmenter == nil {
		s.segmenter = NewSegmenter()
	}

	s.steps = s.segmenter.Segment(req.Content)
	for i := range s.steps {
		s.steps[i].SpokenPrefix = req.Language.StepLabel(i + 1)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.mu.Lock()
	s.resolveLocked()
	s.publishLocked()
	s.mu.Unlock()

	s.logger.Debug("session created", "session", s.id, "language", req.Language, "steps", len(s.steps), "voice", s.voice.ID)
	return s, nil
}

// Start plays from the first step. Content without
// steps leaves the session Idle and emits EventNothingToNarrate.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.unlockAndEmit()

	if s.state != StateIdle {
		return s.invalidLocked("start")
	}
	if len(s.steps) == 0 {
		s.logger.Info("session has no steps", "session", s.id, "reason", ErrInputEmpty)
		s.queueLocked(EventNothingToNarrate, nil)
		return nil
	}
	return s.playLocked(0)
}

// Play releases the current step, if any, and plays steps[index].
func (s *Session) Play(index int) error {
	s.mu.Lock()
	defer s.unlockAndEmit()

	if s.state == StateStopped {
		return s.invalidLocked("play")
	}
	return s.playLocked(index)
}

// Pause suspends the current step without releasing it.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.unlockAndEmit()

	if !s.state.CanPause() || s.handle == nil {
		return s.invalidLocked("pause")
	}
	if err := s.handle.Pause(); err != nil {
		s.logger.Warn("pause failed", "session", s.id, "step", s.index, "err", err)
		return NewNarrationError(CodeHandleControl, "pause", err)
	}
	s.setStateLocked(StatePaused)
	return nil
}

// Resume continues the paused step.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.unlockAndEmit()

	if !s.state.CanResume() {
		return s.invalidLocked("resume")
	}
	if s.endedPaused {
		// The step finished while paused: move on now.
		s.endedPaused = false
		s.setStateLocked(StatePlaying)
		s.advanceLocked()
		return nil
	}
	if s.handle == nil {
		return s.invalidLocked("resume")
	}
	if err := s.handle.Resume(); err != nil {
		s.logger.Warn("resume failed", "session", s.id, "step", s.index, "err", err)
		return NewNarrationError(CodeHandleControl, "resume", err)
	}
	s.setStateLocked(StatePlaying)
	return nil
}

// Toggle pauses a playing session and resumes a paused one.
func (s *Session) Toggle() error {
	if s.State() == StatePaused {
		return s.Resume()
	}
	return s.Pause()
}

// Stop releases the output and ends the session. It is idempotent.
func (s *Session) Stop() error {
	// Unblock a speaker still acquiring under the lock.
	s.cancel()

	s.mu.Lock()
	defer s.unlockAndEmit()

	if s.state == StateStopped {
		return nil
	}
	s.stopLocked()
	s.logger.Debug("session stopped", "session", s.id, "step", s.index)
	return nil
}

// Skip plays the neighbouring step. At either end of the sequence, or
// before the first step has played, it does nothing.
func (s *Session) Skip(d Direction) error {
	s.mu.Lock()
	defer s.unlockAndEmit()

	if s.state == StateStopped {
		return s.invalidLocked("skip " + d.String())
	}
	if s.index < 0 {
		return nil
	}
	target := s.index + d.delta()
	if target < 0 || target >= len(s.steps) {
		s.logger.Debug("skip at sequence bound", "session", s.id, "direction", d, "index", s.index)
		return nil
	}
	return s.playLocked(target)
}

// SetAutoAdvance controls whether a finished step is followed by the next.
// A stopped session keeps auto-advance off.
func (s *Session) SetAutoAdvance(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return
	}
	s.autoAdvance = on
	s.logger.Debug("auto-advance", "session", s.id, "on", on)
}

// SetVoices re-resolves the voice against a new catalog. The change applies
// from the next step.
func (s *Session) SetVoices(v []voice.Candidate) {
	s.mu.Lock()
	defer s.unlockAndEmit()

	prev := s.voice
	s.voices = v
	s.resolveLocked()
	if s.voice != prev {
		s.logger.Debug("voice re-resolved", "session", s.id, "from", prev.ID, "to", s.voice.ID)
		s.queueLocked(EventVoiceChanged, nil)
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Request returns the request the session was built from.
func (s *Session) Request() Request { return s.req }

// Steps returns a copy of the segmented steps.
func (s *Session) Steps() []Step {
	return append([]Step(nil), s.steps...)
}

// Snapshot returns the last published state. It never blocks, even while a
// step is being acquired.
func (s *Session) Snapshot() Snapshot {
	return *s.snap.Load()
}

// State is shorthand for Snapshot().State.
func (s *Session) State() State {
	return s.Snapshot().State
}

// Index is shorthand for Snapshot().Index.
func (s *Session) Index() int {
	return s.Snapshot().Index
}

// Voice returns the resolved voice; ok is false when the synthesizer
// default is in use.
func (s *Session) Voice() (voice.Candidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice, s.voice.ID != ""
}

func (s *Session) playLocked(index int) error {
	if index < 0 || index >= len(s.steps) {
		s.logger.Error("play index out of range", "session", s.id, "index", index, "steps", len(s.steps))
		return NewNarrationError(CodeIndexOutOfRange, fmt.Sprintf("index %d with %d steps", index, len(s.steps)), nil).
			WithContext("session", s.id)
	}

	s.releaseLocked()
	s.generation++
	gen := s.generation
	s.index = index
	s.endedPaused = false

	if !s.ducked {
		s.ducked = true
		if s.ambient != nil {
			s.ambient.OnNarrationStart()
		}
		s.metrics.SessionActive(context.Background(), 1)
	}

	u := s.utteranceLocked(index)
	h, err := s.speaker.Speak(s.ctx, u, func(err error) { s.onDone(gen, err) })
	if err != nil {
		if s.ctx.Err() != nil {
			s.stopLocked()
			return nil
		}
		return s.failLocked(CodeAcquisitionFailed, err)
	}

	s.handle = h
	s.setStateLocked(StatePlaying)
	s.queueLocked(EventStepStarted, nil)
	s.metrics.StepStarted(context.Background(), string(s.req.Language))
	s.logger.Debug("step started", "session", s.id, "step", index, "voice", u.Voice)
	s.prefetchLocked(index)
	return nil
}

// onDone is the single completion entry point for every handle.
func (s *Session) onDone(gen uint64, err error) {
	s.mu.Lock()
	defer s.unlockAndEmit()

	if gen != s.generation || !s.state.Active() {
		return
	}
	s.handle = nil

	if err != nil {
		_ = s.failLocked(CodePlaybackFailed, err)
		return
	}
	if s.state == StatePaused {
		s.endedPaused = true
		return
	}
	s.advanceLocked()
}

func (s *Session) advanceLocked() {
	if s.autoAdvance && s.index+1 < len(s.steps) {
		// failures are handled inside playLocked
		_ = s.playLocked(s.index + 1)
		return
	}
	s.logger.Info("narration finished", "session", s.id, "steps", len(s.steps))
	s.queueLocked(EventFinished, nil)
	s.stopLocked()
}

func (s *Session) stopLocked() {
	s.releaseLocked()
	s.autoAdvance = false
	s.generation++
	s.endedPaused = false
	s.setStateLocked(StateStopped)
	s.restoreLocked()
	s.cancel()
}

func (s *Session) failLocked(code ErrorCode, cause error) error {
	err := NewNarrationError(code, fmt.Sprintf("step %d", s.index+1), cause).
		WithContext("session", s.id).
		WithContext("step", s.index)

	s.logger.Error("narration failed", "session", s.id, "step", s.index, "err", cause)
	s.metrics.AcquisitionFailed(context.Background(), string(s.req.Language))
	s.stopLocked()

	if !s.failed {
		s.failed = true
		s.queueLocked(EventPlaybackFailed, err)
	}
	return err
}

func (s *Session) releaseLocked() {
	if s.handle == nil {
		return
	}
	if err := s.handle.Cancel(); err != nil {
		s.logger.Warn("releasing handle", "session", s.id, "step", s.index, "err", err)
	}
	s.handle = nil
}

func (s *Session) restoreLocked() {
	if !s.ducked {
		return
	}
	s.ducked = false
	if s.ambient != nil {
		s.ambient.OnNarrationEnd()
	}
	s.metrics.SessionActive(context.Background(), -1)
}

func (s *Session) invalidLocked(op string) error {
	s.logger.Warn("ignoring "+op, "session", s.id, "state", s.state)
	return NewNarrationError(CodeInvalidTransition, fmt.Sprintf("%s while %s", op, s.state), nil).
		WithContext("session", s.id)
}

func (s *Session) resolveLocked() {
	if c, ok := voice.Find(s.req.VoicePreference, s.voices); ok {
		s.voice = c
		return
	}
	if s.req.VoicePreference != "" {
		s.logger.Debug("preferred voice unavailable", "session", s.id, "voice", s.req.VoicePreference)
	}
	c, tier := voice.ResolveTier(s.req.Language, s.voices)
	if tier == voice.TierNone {
		s.logger.Debug("using synthesizer default", "session", s.id, "language", s.req.Language, "reason", ErrVoiceUnsupported)
	}
	s.voice = c
}

func (s *Session) utteranceLocked(i int) Utterance {
	st := s.steps[i]
	text := lang.Speakable(st.Text, s.req.Language)
	if s.announce {
		text = lang.Speakable(st.SpokenPrefix, s.req.Language) + ". " + text
	}
	return Utterance{
		Step:  i,
		Text:  text,
		Tag:   s.req.Language.Tag(),
		Voice: s.voice.ID,
		Rate:  s.req.Language.Rate() * s.speed,
	}
}

func (s *Session) prefetchLocked(index int) {
	p, ok := s.speaker.(Prefetcher)
	if !ok || s.lookahead <= 0 {
		return
	}
	var next []Utterance
	for i := index + 1; i < len(s.steps) && i <= index+s.lookahead; i++ {
		next = append(next, s.utteranceLocked(i))
	}
	if len(next) == 0 {
		return
	}
	ctx := s.ctx
	go func() {
		if err := p.Prefetch(ctx, next); err != nil && ctx.Err() == nil {
			s.logger.Debug("prefetch failed", "session", s.id, "err", err)
		}
	}()
}

func (s *Session) setStateLocked(st State) {
	if s.state == st {
		return
	}
	s.logger.Debug("state", "session", s.id, "from", s.state, "to", st)
	s.state = st
	s.queueLocked(EventStateChanged, nil)
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID: s.id,
		State:     s.state,
		Index:     s.index,
		Total:     len(s.steps),
		Voice:     s.voice.ID,
		Language:  string(s.req.Language),
	}
}

func (s *Session) publishLocked() {
	snap := s.snapshotLocked()
	s.snap.Store(&snap)
}

func (s *Session) queueLocked(kind EventKind, err error) {
	s.pending = append(s.pending, Event{Kind: kind, Snapshot: s.snapshotLocked(), Err: err})
}

// unlockAndEmit publishes the snapshot, releases the lock and then delivers
// queued events, so listeners may call back into the session.
func (s *Session) unlockAndEmit() {
	s.publishLocked()
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, ev := range events {
		for _, fn := range s.listeners {
			fn(ev)
		}
	}
}
