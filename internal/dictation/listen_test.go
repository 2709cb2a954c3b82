package dictation

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func quietLogger() ListenOption { return WithLogger(log.New(io.Discard)) }

func TestListen_ContinuousEndsOnSilence(t *testing.T) {
	results := make(chan string)
	go func() {
		for _, r := range []string{"two tomatoes", "  ", "one onion", "rice"} {
			results <- r
			time.Sleep(10 * time.Millisecond)
		}
		// keep the channel open: only silence may end the capture
	}()

	start := time.Now()
	got, err := Listen(context.Background(), results, WithQuietPeriod(80*time.Millisecond), quietLogger())
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	if want := "two tomatoes one onion rice"; got != want {
		t.Errorf("Listen() = %q, want %q", got, want)
	}
	if time.Since(start) < 80*time.Millisecond {
		t.Error("capture ended before the quiet period")
	}
}

func TestListen_SingleShot(t *testing.T) {
	results := make(chan string, 3)
	results <- ""
	results <- "egg curry"
	results <- "never read"

	got, err := Listen(context.Background(), results, WithMode(SingleShot), quietLogger())
	if err != nil || got != "egg curry" {
		t.Errorf("Listen() = %q, %v", got, err)
	}
	if len(results) != 1 {
		t.Errorf("single-shot left %d results unread, want 1", len(results))
	}
}

func TestListen_ClosedResults(t *testing.T) {
	results := make(chan string, 2)
	results <- "masala"
	results <- "dosa"
	close(results)

	got, err := Listen(context.Background(), results, WithQuietPeriod(time.Hour), quietLogger())
	if err != nil || got != "masala dosa" {
		t.Errorf("Listen() = %q, %v", got, err)
	}
}

func TestListen_WaitsForFirstResult(t *testing.T) {
	results := make(chan string)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	got, err := Listen(ctx, results, WithQuietPeriod(10*time.Millisecond), quietLogger())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Listen() error = %v, want deadline exceeded", err)
	}
	if got != "" {
		t.Errorf("Listen() = %q, want empty", got)
	}
}

func TestListen_CancelKeepsText(t *testing.T) {
	results := make(chan string, 1)
	results <- "chicken"
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	got, err := Listen(ctx, results, WithQuietPeriod(time.Hour), quietLogger())
	if !errors.Is(err, context.Canceled) || got != "chicken" {
		t.Errorf("Listen() = %q, %v", got, err)
	}
}

func TestLines(t *testing.T) {
	var got []string
	for line := range Lines(context.Background(), strings.NewReader("two eggs\nsalt\n")) {
		got = append(got, line)
	}
	if strings.Join(got, "|") != "two eggs|salt" {
		t.Errorf("Lines() = %q", got)
	}
}

func TestMode_String(t *testing.T) {
	if Continuous.String() != "continuous" || SingleShot.String() != "single-shot" {
		t.Error("unexpected mode names")
	}
}
