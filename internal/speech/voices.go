package speech

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/dgnsrekt/narrator/internal/voice"
)

// Voices lists the voices espeak-ng reports.
func (s *Synthesizer) Voices(ctx context.Context) ([]voice.Candidate, error) {
	out, err := exec.CommandContext(ctx, s.binary, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("list %s voices: %w", s.binary, err)
	}
	return ParseVoices(bytes.NewReader(out))
}

// Discover lists voices and hands them to the catalog. Voice discovery is
// slow on some systems, so callers run it in the background and let the
// catalog notify the narrator when it lands.
func (s *Synthesizer) Discover(ctx context.Context, c *voice.Catalog) error {
	voices, err := s.Voices(ctx)
	if err != nil {
		return err
	}
	s.logger.Debug("discovered voices", "count", len(voices))
	c.SetPlatform(voices)
	return nil
}

// ParseVoices reads `espeak-ng --voices` output:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  ta              --/M      Tamil              dra/ta
//	 2  en-us           --/M      English_(America)  gmw/en-US            (en 10)
//
// The language column doubles as the voice ID, since espeak-ng accepts it
// for -v.
func ParseVoices(r io.Reader) ([]voice.Candidate, error) {
	var voices []voice.Candidate
	sc := bufio.NewScanner(r)
	header := true
	for sc.Scan() {
		line := sc.Text()
		if header {
			header = false
			if strings.HasPrefix(strings.TrimSpace(line), "Pty") {
				continue
			}
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		tag := fields[1]
		voices = append(voices, voice.Candidate{
			ID:   tag,
			Tag:  tag,
			Name: strings.ReplaceAll(fields[3], "_", " "),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read voices: %w", err)
	}
	return voices, nil
}
