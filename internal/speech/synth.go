// Package speech speaks utterances through the local espeak-ng synthesizer.
//
// Each utterance runs in a fresh espeak-ng process fed on stdin. Pausing
// suspends the process with SIGSTOP where the platform supports it.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/lang"
	"github.com/dgnsrekt/narrator/internal/narration"
)

// DefaultBinary is looked up on PATH.
const DefaultBinary = "espeak-ng"

// DefaultWPM is espeak-ng's own default pace, the rate 1.0 maps to.
const DefaultWPM = 175

const (
	minWPM = 80
	maxWPM = 450

	// waitDelay bounds how long an exited process may hold its stderr pipe.
	waitDelay = time.Second
)

// ErrPauseUnsupported is returned by Pause on platforms without job control
// signals.
var ErrPauseUnsupported = errors.New("pause not supported on this platform")

// Config configures the synthesizer.
type Config struct {
	Binary string
	WPM    int
}

// Synthesizer implements narration.Speaker with espeak-ng.
type Synthesizer struct {
	binary string
	wpm    int
	logger *log.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Synthesizer) { s.logger = l }
}

// New returns a synthesizer. It does not check that the binary exists; see
// Available.
func New(cfg Config, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		binary: cfg.Binary,
		wpm:    cfg.WPM,
		logger: log.Default().WithPrefix("speech"),
	}
	if s.binary == "" {
		s.binary = DefaultBinary
	}
	if s.wpm <= 0 {
		s.wpm = DefaultWPM
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether the binary can be found.
func (s *Synthesizer) Available() error {
	if _, err := exec.LookPath(s.binary); err != nil {
		return fmt.Errorf("%s not found: %w", s.binary, err)
	}
	return nil
}

// Speak starts an espeak-ng process for u. done runs once the process exits
// on its own; a cancelled process never reports.
func (s *Synthesizer) Speak(ctx context.Context, u narration.Utterance, done func(error)) (narration.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(u.Text) == "" {
		return nil, errors.New("speech: empty utterance")
	}

	cmd := exec.Command(s.binary, s.args(u)...)
	cmd.Stdin = strings.NewReader(u.Text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", s.binary, err)
	}
	s.logger.Debug("espeak-ng started", "pid", cmd.Process.Pid, "step", u.Step, "voice", u.Voice, "tag", u.Tag)

	p := &process{cmd: cmd, exited: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		close(p.exited)

		p.mu.Lock()
		cancelled := p.cancelled
		p.mu.Unlock()
		if cancelled {
			return
		}
		if err != nil {
			err = fmt.Errorf("%s: %w: %s", s.binary, err, strings.TrimSpace(stderr.String()))
		}
		done(err)
	}()
	return p, nil
}

// args builds the command line. Text is passed on stdin.
func (s *Synthesizer) args(u narration.Utterance) []string {
	v := u.Voice
	if v == "" {
		v = lang.PrimarySubtag(u.Tag)
	}
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	wpm := min(max(int(float64(s.wpm)*rate+0.5), minWPM), maxWPM)

	args := []string{"-b", "1", "-s", strconv.Itoa(wpm)}
	if v != "" {
		args = append(args, "-v", v)
	}
	return args
}

// process is the handle for one espeak-ng run.
type process struct {
	cmd    *exec.Cmd
	exited chan struct{}

	mu        sync.Mutex
	paused    bool
	cancelled bool
}

func (p *process) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelled || p.paused || p.done() {
		return nil
	}
	if err := suspend(p.cmd.Process); err != nil {
		return fmt.Errorf("suspend espeak-ng: %w", err)
	}
	p.paused = true
	return nil
}

func (p *process) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelled || !p.paused {
		return nil
	}
	if err := resume(p.cmd.Process); err != nil {
		return fmt.Errorf("resume espeak-ng: %w", err)
	}
	p.paused = false
	return nil
}

func (p *process) done() bool {
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}

func (p *process) Cancel() error {
	p.mu.Lock()
	if p.cancelled {
		p.mu.Unlock()
		return nil
	}
	p.cancelled = true
	paused := p.paused
	p.mu.Unlock()

	if p.done() {
		return nil
	}
	if paused {
		// a stopped process cannot act on SIGKILL until continued on some
		// platforms
		_ = resume(p.cmd.Process)
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, errProcessDone) {
		return fmt.Errorf("kill espeak-ng: %w", err)
	}
	// the output is free only once the process is gone
	<-p.exited
	return nil
}
