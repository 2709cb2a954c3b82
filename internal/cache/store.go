package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Store layers the memory LRU over the disk cache. Disk hits are promoted to
// memory; writes go to memory at once and to disk in the background.
type Store struct {
	memory *MemoryCache
	disk   *DiskCache
	cfg    Config
	logger *log.Logger

	writes    sync.WaitGroup
	stop      chan struct{}
	sweeper   sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore opens the tiers described by cfg. An empty DiskPath keeps clips
// in memory only.
func NewStore(cfg Config, opts ...Option) (*Store, error) {
	s := &Store{
		memory: NewMemoryCache(cfg.MemoryCapacity),
		cfg:    cfg,
		stop:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default().WithPrefix("cache")
	}

	if cfg.DiskPath != "" {
		disk, err := NewDiskCache(cfg.DiskPath, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		s.disk = disk
	}

	if cfg.CleanupInterval > 0 {
		s.sweeper.Add(1)
		go s.sweep(cfg.CleanupInterval)
	}
	return s, nil
}

// Get looks in memory, then on disk.
func (s *Store) Get(key string) ([]byte, bool) {
	if clip, ok := s.memory.Get(key); ok {
		return clip, true
	}
	if s.disk == nil {
		return nil, false
	}
	clip, ok := s.disk.Get(key)
	if !ok {
		return nil, false
	}
	if err := s.memory.Put(key, clip); err != nil && !errors.Is(err, ErrItemTooLarge) {
		s.logger.Debug("promotion failed", "key", key, "err", err)
	}
	return clip, true
}

// Put stores clip in memory and queues the disk write.
func (s *Store) Put(key string, clip []byte) error {
	if err := s.memory.Put(key, clip); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return fmt.Errorf("memory cache: %w", err)
	}
	if s.disk == nil {
		return nil
	}

	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		if err := s.disk.Put(key, clip); err != nil {
			s.logger.Warn("disk cache write failed", "key", key, "err", err)
		}
	}()
	return nil
}

// Flush waits for queued disk writes.
func (s *Store) Flush() {
	s.writes.Wait()
}

// Delete removes key from every tier.
func (s *Store) Delete(key string) {
	s.memory.Delete(key)
	if s.disk != nil {
		s.Flush()
		s.disk.Delete(key)
	}
}

// Clear empties every tier.
func (s *Store) Clear() error {
	s.memory.Clear()
	if s.disk == nil {
		return nil
	}
	s.Flush()
	return s.disk.Clear()
}

// Stats returns one entry per tier, memory first.
func (s *Store) Stats() []Stats {
	stats := []Stats{s.memory.Stats()}
	if s.disk != nil {
		stats = append(stats, s.disk.Stats())
	}
	return stats
}

// Cleanup expires clips older than the configured TTL.
func (s *Store) Cleanup() int {
	if s.cfg.TTL <= 0 {
		return 0
	}
	removed := s.memory.Prune(s.cfg.TTL)
	if s.disk != nil {
		removed += s.disk.RemoveOlderThan(time.Now().Add(-s.cfg.TTL))
	}
	if removed > 0 {
		s.logger.Debug("expired clips", "count", removed)
	}
	return removed
}

func (s *Store) sweep(every time.Duration) {
	defer s.sweeper.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stop:
			return
		}
	}
}

// Close stops the sweeper, waits for disk writes and saves the index.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		s.sweeper.Wait()
		s.Flush()
		if s.disk != nil {
			err = s.disk.Close()
		}
	})
	return err
}
