package dictation

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Mode selects how many results a capture takes.
type Mode int

const (
	// Continuous accumulates results until the quiet period passes.
	Continuous Mode = iota
	// SingleShot ends the capture at the first result.
	SingleShot
)

func (m Mode) String() string {
	if m == SingleShot {
		return "single-shot"
	}
	return "continuous"
}

type listenConfig struct {
	mode   Mode
	quiet  time.Duration
	logger *log.Logger
}

// ListenOption configures Listen.
type ListenOption func(*listenConfig)

// WithMode sets the capture mode.
func WithMode(m Mode) ListenOption {
	return func(c *listenConfig) { c.mode = m }
}

// WithQuietPeriod sets how long a continuous capture waits after the last
// result.
func WithQuietPeriod(d time.Duration) ListenOption {
	return func(c *listenConfig) { c.quiet = d }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) ListenOption {
	return func(c *listenConfig) { c.logger = l }
}

// Listen reads final recognition results and returns the dictated text.
//
// The quiet period only starts with the first result, so a capture waits
// for the speaker to begin. It ends when the quiet period passes, when
// results is closed, or when ctx is done; in the last case the text so far
// is returned with ctx's error.
func Listen(ctx context.Context, results <-chan string, opts ...ListenOption) (string, error) {
	cfg := listenConfig{
		mode:   Continuous,
		quiet:  DefaultQuietPeriod,
		logger: log.Default().WithPrefix("dictation"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	quiet := make(chan struct{}, 1)
	timer := NewSilenceTimer(cfg.quiet, func() {
		select {
		case quiet <- struct{}{}:
		default:
		}
	})
	defer timer.Stop()

	var parts []string
	text := func() string { return strings.Join(parts, " ") }

	for {
		select {
		case <-ctx.Done():
			return text(), ctx.Err()
		case <-quiet:
			cfg.logger.Debug("capture ended by silence", "quiet", timer.Quiet(), "results", len(parts))
			return text(), nil
		case r, ok := <-results:
			if !ok {
				return text(), nil
			}
			r = strings.TrimSpace(r)
			if r == "" {
				continue
			}
			parts = append(parts, r)
			if cfg.mode == SingleShot {
				return text(), nil
			}
			timer.Reset()
		}
	}
}

// Lines turns each line of r into a recognition result, for recognizers
// that print their transcripts. The channel closes at EOF or when ctx is
// done.
func Lines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
