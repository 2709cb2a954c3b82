//go:build unix

package speech

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/narration"
)

// fakeSynth writes a shell script standing in for espeak-ng.
func fakeSynth(t *testing.T, body string) *Synthesizer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "espeak-ng")
	script := "#!/bin/sh\ncat > /dev/null\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return New(Config{Binary: path}, WithLogger(log.New(io.Discard)))
}

func speak(t *testing.T, s *Synthesizer) (narration.Handle, chan error) {
	t.Helper()
	done := make(chan error, 1)
	h, err := s.Speak(context.Background(), narration.Utterance{Text: "Boil water", Tag: "en-IN", Rate: 1}, func(err error) {
		done <- err
	})
	if err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	return h, done
}

func TestProcess_Completes(t *testing.T) {
	_, done := speak(t, fakeSynth(t, "exit 0"))

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("done(%v), want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("completion never reported")
	}
}

func TestProcess_FailureReportsStderr(t *testing.T) {
	_, done := speak(t, fakeSynth(t, "echo 'no such voice' >&2\nexit 3"))

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "no such voice") {
			t.Errorf("done(%v), want stderr in error", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("failure never reported")
	}
}

func TestProcess_CancelSuppressesDone(t *testing.T) {
	h, done := speak(t, fakeSynth(t, "exec sleep 10"))

	if err := h.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if err := h.Cancel(); err != nil {
		t.Errorf("second Cancel() error = %v", err)
	}

	select {
	case err := <-done:
		t.Errorf("done(%v) after Cancel", err)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestProcess_CancelWaitsForExit(t *testing.T) {
	tests := []struct {
		name  string
		pause bool
	}{
		{"playing", false},
		{"paused", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := speak(t, fakeSynth(t, "exec sleep 10"))
			if tc.pause {
				if err := h.Pause(); err != nil {
					t.Fatalf("Pause() error = %v", err)
				}
			}

			if err := h.Cancel(); err != nil {
				t.Fatalf("Cancel() error = %v", err)
			}
			p := h.(*process)
			select {
			case <-p.exited:
			default:
				t.Fatal("Cancel() returned before espeak-ng exited")
			}
			if p.cmd.ProcessState == nil {
				t.Error("process not reaped")
			}
		})
	}
}

func TestProcess_PauseHoldsCompletion(t *testing.T) {
	h, done := speak(t, fakeSynth(t, "exec sleep 0.3"))

	if err := h.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	select {
	case <-done:
		t.Fatal("paused process completed")
	case <-time.After(800 * time.Millisecond):
	}

	if err := h.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("done(%v), want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("resumed process never completed")
	}
}
