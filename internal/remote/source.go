// Package remote speaks utterances with clips fetched from a remote
// text-to-speech service and played on the local audio device.
//
// A Source turns text into an encoded clip. The Speaker caches decoded
// clips, deduplicates concurrent fetches of the same clip and prefetches
// upcoming steps so the next one is usually ready when it is needed.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/audio"
	"github.com/dgnsrekt/narrator/internal/observe"
)

// Source names.
const (
	SourceBackend = "backend"
	SourceGTTS    = "gtts"
	SourceOpenAI  = "openai"
)

// maxClipSize bounds a fetched clip.
const maxClipSize = 50 * 1024 * 1024

// ErrEmptyClip is returned when a source answers with no audio.
var ErrEmptyClip = errors.New("source returned an empty clip")

// Clip is an encoded audio clip.
type Clip struct {
	Data   []byte
	Format audio.Format
}

// Source fetches a clip for text in the language tag. voice is a
// source-specific voice name and may be empty.
type Source interface {
	Name() string
	Fetch(ctx context.Context, text, tag, voice string) (Clip, error)
}

// NewSource builds the source cfg names.
func NewSource(cfg Config, logger *log.Logger, metrics *observe.Metrics) (Source, error) {
	switch cfg.Source {
	case SourceBackend, "":
		return NewBackendSource(cfg.URL,
			WithRequestsPerMinute(cfg.RequestsPerMinute),
			WithTimeout(cfg.Timeout),
			WithBackendLogger(logger),
			WithBackendMetrics(metrics),
		), nil
	case SourceGTTS:
		return NewGTTSSource(cfg.GTTSBinary, cfg.RequestsPerMinute), nil
	case SourceOpenAI:
		return NewOpenAISource(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIVoice)
	default:
		return nil, fmt.Errorf("unknown remote source %q", cfg.Source)
	}
}
