package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/dgnsrekt/narrator/internal/audio"
)

// OpenAISource fetches WAV clips from the OpenAI speech endpoint.
type OpenAISource struct {
	client openai.Client
	model  string
	voice  string
}

// NewOpenAISource returns a source using apiKey. Extra request options, such
// as option.WithBaseURL, are passed to the client.
func NewOpenAISource(apiKey, model, voice string, opts ...option.RequestOption) (*OpenAISource, error) {
	if apiKey == "" {
		return nil, errors.New("openai speech: API key must not be empty")
	}
	if model == "" {
		model = string(openai.SpeechModelGPT4oMiniTTS)
	}
	if voice == "" {
		voice = string(openai.AudioSpeechNewParamsVoiceAlloy)
	}
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAISource{
		client: openai.NewClient(reqOpts...),
		model:  model,
		voice:  voice,
	}, nil
}

func (o *OpenAISource) Name() string { return SourceOpenAI }

// Fetch requests a WAV clip. The model infers the language from the text,
// so tag is unused. A non-empty voice overrides the configured one.
func (o *OpenAISource) Fetch(ctx context.Context, text, _, voice string) (Clip, error) {
	if voice == "" {
		voice = o.voice
	}
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(o.model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	})
	if err != nil {
		return Clip{}, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Clip{}, fmt.Errorf("openai speech: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxClipSize+1))
	if err != nil {
		return Clip{}, fmt.Errorf("read openai speech: %w", err)
	}
	if len(data) == 0 {
		return Clip{}, ErrEmptyClip
	}
	if len(data) > maxClipSize {
		return Clip{}, fmt.Errorf("openai speech too large: more than %d bytes", maxClipSize)
	}

	format := audio.FormatWAV
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "octet-stream") {
		format = audio.ParseFormat(ct)
	}
	return Clip{Data: data, Format: format}, nil
}
