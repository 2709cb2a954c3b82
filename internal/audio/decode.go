package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Format names an encoded clip format.
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
	// FormatPCM is raw s16le already in the device format.
	FormatPCM Format = "pcm"
)

// ParseFormat maps a MIME type or file extension to a Format. Unknown
// values return FormatMP3, which ffmpeg probes anyway.
func ParseFormat(s string) Format {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(s, "wav"):
		return FormatWAV
	case strings.Contains(s, "pcm"), strings.Contains(s, "l16"):
		return FormatPCM
	default:
		return FormatMP3
	}
}

// ErrNotWAV is returned by ParseWAV for data without a RIFF/WAVE header.
var ErrNotWAV = errors.New("not a RIFF/WAVE file")

const maxPCMSize = 20 * 1024 * 1024

// Decode turns an encoded clip into PCM for cfg, stretched by speed. WAV at
// normal speed is handled in-process; everything else goes through ffmpeg.
func Decode(ctx context.Context, data []byte, format Format, cfg Config, speed float64) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("clip is empty")
	}

	switch {
	case format == FormatPCM && speed == 1:
		return data, nil
	case format == FormatWAV && speed == 1:
		pcm, err := decodeWAV(data, cfg)
		if err == nil {
			return pcm, nil
		}
		if !errors.Is(err, errUnsupportedWAV) {
			return nil, err
		}
	}
	return transcode(ctx, data, format, cfg, speed)
}

// WAVInfo is the format metadata of a RIFF/WAVE file.
type WAVInfo struct {
	AudioFormat   int
	Channels      int
	SampleRate    int
	BitsPerSample int
	Data          []byte
}

// ParseWAV walks the RIFF chunks of wav and returns its format and samples.
func ParseWAV(wav []byte) (WAVInfo, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return WAVInfo{}, ErrNotWAV
	}

	var (
		info     WAVInfo
		foundFmt bool
	)
	offset := 12
	for offset+8 <= len(wav) {
		id := string(wav[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))
		body := wav[offset+8:]

		switch id {
		case "fmt ":
			if size < 16 || len(body) < 16 {
				return WAVInfo{}, errors.New("wav: short fmt chunk")
			}
			info.AudioFormat = int(binary.LittleEndian.Uint16(body[0:2]))
			info.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			foundFmt = true
		case "data":
			if !foundFmt {
				return WAVInfo{}, errors.New("wav: data chunk before fmt chunk")
			}
			// streamed WAVs often carry a bogus size
			if size > len(body) || size == 0 {
				size = len(body)
			}
			info.Data = body[:size]
			return info, nil
		}

		// chunks are word aligned
		offset += 8 + size + size%2
	}
	return WAVInfo{}, errors.New("wav: missing data chunk")
}

var errUnsupportedWAV = errors.New("wav needs transcoding")

func decodeWAV(data []byte, cfg Config) ([]byte, error) {
	info, err := ParseWAV(data)
	if err != nil {
		return nil, err
	}
	if info.AudioFormat != 1 || info.BitsPerSample != 16 || info.Channels < 1 || info.Channels > 2 {
		return nil, errUnsupportedWAV
	}

	pcm := info.Data[:len(info.Data)-len(info.Data)%(2*info.Channels)]
	if info.Channels == 2 && cfg.Channels == 1 {
		pcm = downmix(pcm)
	} else if info.Channels != cfg.Channels {
		return nil, errUnsupportedWAV
	}
	if cfg.Channels == 1 {
		pcm = resampleMono16(pcm, info.SampleRate, cfg.SampleRate)
	} else if info.SampleRate != cfg.SampleRate {
		return nil, errUnsupportedWAV
	}
	return pcm, nil
}

// downmix averages interleaved stereo s16le into mono.
func downmix(stereo []byte) []byte {
	mono := make([]byte, len(stereo)/2)
	for i := 0; i+3 < len(stereo); i += 4 {
		l := int32(int16(binary.LittleEndian.Uint16(stereo[i:])))
		r := int32(int16(binary.LittleEndian.Uint16(stereo[i+2:])))
		binary.LittleEndian.PutUint16(mono[i/2:], uint16(int16((l+r)/2)))
	}
	return mono
}

// resampleMono16 converts s16le mono between rates by linear interpolation.
func resampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate == dstRate || srcRate <= 0 || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	sample := func(i int) float64 {
		return float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	for i := 0; i < dstSamples; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		s0 := sample(idx)
		s1 := s0
		if idx+1 < srcSamples {
			s1 = sample(idx + 1)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s0*(1-frac)+s1*frac)))
	}
	return out
}

// transcode pipes data through ffmpeg into the device format, applying the
// atempo filter for non-unit speeds.
func transcode(ctx context.Context, data []byte, format Format, cfg Config, speed float64) ([]byte, error) {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if format == FormatPCM {
		args = append(args, "-f", "s16le", "-ar", fmt.Sprint(cfg.SampleRate), "-ac", fmt.Sprint(cfg.Channels))
	}
	args = append(args,
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", fmt.Sprint(cfg.SampleRate),
		"-ac", fmt.Sprint(cfg.Channels),
	)
	if speed != 1 {
		// atempo accepts 0.5 to 2.0
		s := speed
		if s < 0.5 {
			s = 0.5
		} else if s > 2.0 {
			s = 2.0
		}
		args = append(args, "-filter:a", fmt.Sprintf("atempo=%.2f", s))
	}
	args = append(args, "pipe:1")

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg conversion: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	pcm := stdout.Bytes()
	if len(pcm) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no PCM output, stderr: %s", strings.TrimSpace(stderr.String()))
	}
	if len(pcm) > maxPCMSize {
		return nil, fmt.Errorf("ffmpeg PCM output too large: %d bytes (max %d)", len(pcm), maxPCMSize)
	}
	return pcm, nil
}

// FFmpegAvailable reports whether ffmpeg is on PATH.
func FFmpegAvailable() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return nil
}
