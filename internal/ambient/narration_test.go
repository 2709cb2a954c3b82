package ambient_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/ambient"
	"github.com/dgnsrekt/narrator/internal/lang"
	"github.com/dgnsrekt/narrator/internal/narration"
)

type refusingSpeaker struct{}

func (refusingSpeaker) Speak(context.Context, narration.Utterance, func(error)) (narration.Handle, error) {
	return nil, errors.New("fetch failed")
}

type countingTrack struct {
	volume float64
	muted  bool
	sets   int
}

func (t *countingTrack) Volume() float64    { return t.volume }
func (t *countingTrack) SetVolume(v float64) { t.volume = v; t.sets++ }
func (t *countingTrack) Muted() bool         { return t.muted }
func (t *countingTrack) SetMuted(m bool)     { t.muted = m }

func TestRestoredOnceAfterAcquisitionFailure(t *testing.T) {
	track := &countingTrack{volume: 0.25}
	coord := ambient.New(track, ambient.WithLogger(log.New(io.Discard)))
	coord.ToggleMute()

	s, err := narration.NewSession(context.Background(),
		narration.Request{Content: "Step one\nStep two", Language: lang.English},
		refusingSpeaker{},
		narration.WithAmbient(coord),
		narration.WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	if err := s.Start(); !errors.Is(err, narration.ErrPlaybackAcquisition) {
		t.Fatalf("Start() error = %v, want ErrPlaybackAcquisition", err)
	}
	_ = s.Stop()

	if track.sets != 2 {
		t.Errorf("SetVolume calls = %d, want duck and restore only", track.sets)
	}
	if track.volume != 0.25 {
		t.Errorf("volume = %v, want 0.25", track.volume)
	}
	if !track.muted {
		t.Error("mute lost across failed narration")
	}
	if coord.Ducked() {
		t.Error("track still ducked")
	}
}
