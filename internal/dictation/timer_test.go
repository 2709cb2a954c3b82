package dictation

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSilenceTimer_Fires(t *testing.T) {
	var fired atomic.Int32
	timer := NewSilenceTimer(20*time.Millisecond, func() { fired.Add(1) })
	timer.Reset()

	time.Sleep(100 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Errorf("fired %d times, want 1", n)
	}
}

func TestSilenceTimer_ResetPostpones(t *testing.T) {
	var fired atomic.Int32
	timer := NewSilenceTimer(60*time.Millisecond, func() { fired.Add(1) })
	timer.Reset()

	for i := 0; i < 5; i++ {
		time.Sleep(20 * time.Millisecond)
		timer.Reset()
	}
	if n := fired.Load(); n != 0 {
		t.Fatalf("fired during activity: %d", n)
	}

	time.Sleep(200 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Errorf("fired %d times after quiet, want 1", n)
	}
}

func TestSilenceTimer_Stop(t *testing.T) {
	var fired atomic.Int32
	timer := NewSilenceTimer(20*time.Millisecond, func() { fired.Add(1) })
	timer.Reset()
	timer.Stop()
	timer.Stop()

	time.Sleep(80 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("stopped timer fired %d times", n)
	}
}

func TestSilenceTimer_StaleFiringIgnored(t *testing.T) {
	var fired atomic.Int32
	timer := NewSilenceTimer(30*time.Millisecond, func() { fired.Add(1) })

	// superseded timers must not fire
	for i := 0; i < 200; i++ {
		timer.Reset()
	}
	time.Sleep(150 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Errorf("fired %d times, want 1", n)
	}
}

func TestSilenceTimer_Default(t *testing.T) {
	timer := NewSilenceTimer(0, func() {})
	if timer.Quiet() != DefaultQuietPeriod {
		t.Errorf("Quiet() = %v, want %v", timer.Quiet(), DefaultQuietPeriod)
	}
}
