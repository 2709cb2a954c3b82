package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/narrator/internal/audio"
	"github.com/dgnsrekt/narrator/internal/lang"
	"github.com/dgnsrekt/narrator/internal/observe"
)

// BackendSource fetches clips from the product backend:
//
//	POST {url}/api/tts
//	{"text": "...", "lang": "ta"}
//
// The response body is the clip; its Content-Type names the format.
type BackendSource struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
	metrics *observe.Metrics
}

type ttsRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

// BackendOption configures a BackendSource.
type BackendOption func(*BackendSource)

// WithRequestsPerMinute limits outgoing requests. Zero or less removes the
// limit.
func WithRequestsPerMinute(n int) BackendOption {
	return func(b *BackendSource) {
		if n <= 0 {
			b.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		b.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) BackendOption {
	return func(b *BackendSource) {
		if d > 0 {
			b.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) BackendOption {
	return func(b *BackendSource) { b.client = c }
}

// WithBackendLogger sets the logger.
func WithBackendLogger(l *log.Logger) BackendOption {
	return func(b *BackendSource) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithBackendMetrics records fetch latency.
func WithBackendMetrics(m *observe.Metrics) BackendOption {
	return func(b *BackendSource) { b.metrics = m }
}

// NewBackendSource returns a source posting to baseURL.
func NewBackendSource(baseURL string, opts ...BackendOption) *BackendSource {
	b := &BackendSource{
		url:     strings.TrimRight(baseURL, "/") + "/api/tts",
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Minute/50), 1),
		logger:  log.Default().WithPrefix("remote"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *BackendSource) Name() string { return SourceBackend }

// Fetch posts text and returns the clip. The backend picks its own voice, so
// voice is ignored.
func (b *BackendSource) Fetch(ctx context.Context, text, tag, _ string) (clip Clip, err error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return Clip{}, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	ctx, span := observe.StartSpan(ctx, "remote.fetch")
	span.SetAttributes(
		attribute.String("source", SourceBackend),
		attribute.String("lang", tag),
		attribute.Int("text.length", len(text)),
	)
	start := time.Now()
	defer func() {
		b.metrics.ClipFetched(ctx, SourceBackend, time.Since(start).Seconds(), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(ttsRequest{Text: text, Lang: lang.PrimarySubtag(tag)})
	if err != nil {
		return Clip{}, fmt.Errorf("encode tts request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return Clip{}, fmt.Errorf("build tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/*")

	resp, err := b.client.Do(req)
	if err != nil {
		return Clip{}, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Clip{}, fmt.Errorf("tts request: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxClipSize+1))
	if err != nil {
		return Clip{}, fmt.Errorf("read tts response: %w", err)
	}
	if len(data) == 0 {
		return Clip{}, ErrEmptyClip
	}
	if len(data) > maxClipSize {
		return Clip{}, fmt.Errorf("tts response too large: more than %d bytes", maxClipSize)
	}

	format := audio.ParseFormat(resp.Header.Get("Content-Type"))
	b.logger.Debug("fetched clip", "lang", tag, "bytes", len(data), "format", format)
	return Clip{Data: data, Format: format}, nil
}
