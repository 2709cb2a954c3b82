package ambient

import (
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"
)

type fakeTrack struct {
	volume  float64
	muted   bool
	volumes []float64
}

func (t *fakeTrack) Volume() float64 { return t.volume }

func (t *fakeTrack) SetVolume(v float64) {
	t.volume = v
	t.volumes = append(t.volumes, v)
}

func (t *fakeTrack) Muted() bool { return t.muted }

func (t *fakeTrack) SetMuted(m bool) { t.muted = m }

func newCoordinator(track Track) *Coordinator {
	return New(track, WithLogger(log.New(io.Discard)))
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDuckAndRestore(t *testing.T) {
	track := &fakeTrack{volume: 0.5}
	c := newCoordinator(track)

	c.OnNarrationStart()
	if !almostEqual(track.volume, 0.1) {
		t.Errorf("ducked volume = %v, want 0.1", track.volume)
	}
	if !c.Ducked() {
		t.Error("Ducked() = false after start")
	}

	c.OnNarrationEnd()
	if !almostEqual(track.volume, 0.5) {
		t.Errorf("restored volume = %v, want 0.5", track.volume)
	}
}

func TestDuckIsIdempotent(t *testing.T) {
	track := &fakeTrack{volume: 1}
	c := newCoordinator(track)

	c.OnNarrationStart()
	c.OnNarrationStart()
	c.OnNarrationEnd()
	c.OnNarrationEnd()

	if len(track.volumes) != 2 {
		t.Fatalf("SetVolume called %d times, want 2: %v", len(track.volumes), track.volumes)
	}
	if !almostEqual(track.volume, 1) {
		t.Errorf("volume = %v, want 1", track.volume)
	}
}

func TestMuteSurvivesDuckCycle(t *testing.T) {
	tests := []struct {
		name      string
		muteAfter bool // mute while ducked instead of before
	}{
		{name: "muted before narration"},
		{name: "muted during narration", muteAfter: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := &fakeTrack{volume: 0.25}
			c := newCoordinator(track)

			if !tt.muteAfter {
				c.ToggleMute()
			}
			c.OnNarrationStart()
			if tt.muteAfter {
				c.ToggleMute()
			}
			c.OnNarrationEnd()

			if !c.Muted() {
				t.Error("mute cleared by duck/restore")
			}
			if !almostEqual(track.volume, 0.25) {
				t.Errorf("volume = %v, want 0.25", track.volume)
			}
		})
	}
}

func TestSetNominalWhileDucked(t *testing.T) {
	track := &fakeTrack{volume: 0.5}
	c := newCoordinator(track)

	c.OnNarrationStart()
	c.SetNominal(1)
	if !almostEqual(track.volume, 0.2) {
		t.Errorf("volume while ducked = %v, want 0.2", track.volume)
	}
	c.OnNarrationEnd()
	if !almostEqual(track.volume, 1) {
		t.Errorf("restored volume = %v, want 1", track.volume)
	}

	c.SetNominal(3)
	if got := c.Nominal(); got != 1 {
		t.Errorf("Nominal() = %v, want clamped 1", got)
	}
}

func TestNilTrack(t *testing.T) {
	c := newCoordinator(nil)
	c.OnNarrationStart()
	c.OnNarrationEnd()
	c.SetNominal(0.5)
	if c.ToggleMute() {
		t.Error("ToggleMute() = true without a track")
	}
	if c.Ducked() {
		t.Error("Ducked() = true without a track")
	}
}
