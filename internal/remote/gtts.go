package remote

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dgnsrekt/narrator/internal/audio"
	"github.com/dgnsrekt/narrator/internal/lang"
)

// GTTSSource fetches MP3 clips from Google Translate through gtts-cli. It
// needs no API key but is rate limited to avoid being blocked.
type GTTSSource struct {
	binary  string
	limiter *rate.Limiter
}

// NewGTTSSource returns a gTTS source. requestsPerMinute defaults to 50.
func NewGTTSSource(binary string, requestsPerMinute int) *GTTSSource {
	if binary == "" {
		binary = "gtts-cli"
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 50
	}
	return &GTTSSource{
		binary:  binary,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

func (g *GTTSSource) Name() string { return SourceGTTS }

// Fetch runs gtts-cli. gTTS has one voice per language, so voice is ignored.
func (g *GTTSSource) Fetch(ctx context.Context, text, tag, _ string) (Clip, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return Clip{}, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.binary, g.args(text, tag)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Clip{}, fmt.Errorf("gTTS synthesis: %w", ctx.Err())
		}
		return Clip{}, fmt.Errorf("gtts-cli failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	data := stdout.Bytes()
	if len(data) == 0 {
		return Clip{}, fmt.Errorf("%w: gtts-cli stderr: %s", ErrEmptyClip, strings.TrimSpace(stderr.String()))
	}
	if len(data) > maxClipSize {
		return Clip{}, fmt.Errorf("gtts-cli MP3 output too large: %d bytes (max %d)", len(data), maxClipSize)
	}
	return Clip{Data: data, Format: audio.FormatMP3}, nil
}

func (g *GTTSSource) args(text, tag string) []string {
	return []string{text, "-l", lang.PrimarySubtag(tag), "-o", "-"}
}

// Available reports whether gtts-cli can be found.
func (g *GTTSSource) Available() error {
	if _, err := exec.LookPath(g.binary); err != nil {
		return fmt.Errorf("%s not found in PATH: %w\n\nInstall with: pip install gtts", g.binary, err)
	}
	return nil
}
