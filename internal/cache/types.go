package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	// ErrItemTooLarge is returned when a clip exceeds a tier's capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCorrupted marks an on-disk entry that failed to decompress.
	ErrCorrupted = errors.New("cache data corrupted")
)

// Level identifies a cache tier.
type Level int

const (
	LevelMemory Level = iota
	LevelDisk
)

func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats describes one tier.
type Stats struct {
	Level     Level
	Capacity  int64
	Size      int64
	Items     int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate is hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// String renders the tier for `narrator cache stats`.
func (s Stats) String() string {
	return fmt.Sprintf("%-6s %4d clips  %8s of %-8s  hit rate %3.0f%%  evictions %d",
		s.Level, s.Items,
		humanize.IBytes(uint64(max(s.Size, 0))), humanize.IBytes(uint64(max(s.Capacity, 0))),
		s.HitRate()*100, s.Evictions)
}

// Config sizes the tiers.
type Config struct {
	MemoryCapacity   int64  // bytes
	DiskCapacity     int64  // bytes
	DiskPath         string // directory for clip files
	CompressionLevel int    // zstd level, 0 disables compression

	TTL             time.Duration // age after which clips expire
	CleanupInterval time.Duration // 0 disables the background sweep
}

// DefaultConfig stores clips under dir.
func DefaultConfig(dir string) Config {
	return Config{
		MemoryCapacity:   64 * 1024 * 1024,
		DiskCapacity:     512 * 1024 * 1024,
		DiskPath:         dir,
		CompressionLevel: 3,
		TTL:              7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// ParseSize reads a human size such as "512MB" or "1 GiB".
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil
}

// GenerateKey derives the clip key for an utterance. The same text spoken by
// a different source, language, voice or rate is a different clip.
func GenerateKey(source, text, tag, voice string, rate float64) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%.2f", source, strings.TrimSpace(text), strings.ToLower(tag), voice, rate)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}
