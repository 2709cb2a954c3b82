package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	indexFile = "index.gob"
	// clips below this size are stored raw
	compressThreshold = 1024
)

// DiskCache persists clips across runs, zstd-compressed when that helps.
type DiskCache struct {
	dir      string
	capacity int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu    sync.Mutex
	size  int64
	index map[string]*diskEntry

	hits, misses, evictions int64
}

// diskEntry is persisted in the index; fields are exported for gob.
type diskEntry struct {
	Key        string
	File       string
	Size       int64 // bytes on disk
	Compressed bool
	Stored     time.Time
	LastAccess time.Time
}

// NewDiskCache opens or creates a cache in dir. A compression level of 0
// stores clips raw. An unreadable index starts the cache empty.
func NewDiskCache(dir string, capacity int64, level int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
	}
	if level > 0 {
		var err error
		dc.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	// always able to read clips written with compression on
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	dc.decoder = dec

	if err := dc.loadIndex(); err != nil {
		dc.index = make(map[string]*diskEntry)
	}
	for key, e := range dc.index {
		if _, err := os.Stat(e.File); err != nil {
			delete(dc.index, key)
			continue
		}
		dc.size += e.Size
	}
	return dc, nil
}

// Get reads and decompresses the clip for key. Missing or corrupt files are
// dropped from the index and reported as misses.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	e, ok := dc.index[key]
	if !ok {
		dc.misses++
		return nil, false
	}
	data, err := dc.read(e)
	if err != nil {
		dc.drop(e)
		dc.misses++
		return nil, false
	}
	e.LastAccess = time.Now()
	dc.hits++
	return data, true
}

func (dc *DiskCache) read(e *diskEntry) ([]byte, error) {
	data, err := os.ReadFile(e.File)
	if err != nil {
		return nil, err
	}
	if !e.Compressed {
		return data, nil
	}
	out, err := dc.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return out, nil
}

// Put writes clip under key, evicting least recently read clips to fit.
func (dc *DiskCache) Put(key string, clip []byte) error {
	data, compressed := clip, false
	if dc.encoder != nil && len(clip) > compressThreshold {
		if z := dc.encoder.EncodeAll(clip, nil); len(z) < len(clip) {
			data, compressed = z, true
		}
	}
	n := int64(len(data))
	if n > dc.capacity {
		return ErrItemTooLarge
	}

	dc.mu.Lock()
	defer dc.mu.Unlock()

	if old, ok := dc.index[key]; ok {
		dc.drop(old)
	}
	dc.evictFor(n)

	file := filepath.Join(dc.dir, key+".clip")
	if err := writeAtomic(file, data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	now := time.Now()
	dc.index[key] = &diskEntry{
		Key:        key,
		File:       file,
		Size:       n,
		Compressed: compressed,
		Stored:     now,
		LastAccess: now,
	}
	dc.size += n
	return nil
}

// Contains reports presence without reading the file.
func (dc *DiskCache) Contains(key string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	_, ok := dc.index[key]
	return ok
}

// Delete removes key and its file.
func (dc *DiskCache) Delete(key string) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if e, ok := dc.index[key]; ok {
		dc.drop(e)
	}
}

// Clear removes every clip and saves an empty index.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	for _, e := range dc.index {
		dc.drop(e)
	}
	return dc.saveIndex()
}

// RemoveOlderThan drops clips stored before cutoff.
func (dc *DiskCache) RemoveOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	removed := 0
	for _, e := range dc.index {
		if e.Stored.Before(cutoff) {
			dc.drop(e)
			removed++
		}
	}
	return removed
}

// Stats reports the tier.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return Stats{
		Level:     LevelDisk,
		Capacity:  dc.capacity,
		Size:      dc.size,
		Items:     len(dc.index),
		Hits:      dc.hits,
		Misses:    dc.misses,
		Evictions: dc.evictions,
	}
}

// Close persists the index.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if dc.encoder != nil {
		dc.encoder.Close()
	}
	dc.decoder.Close()
	return dc.saveIndex()
}

func (dc *DiskCache) evictFor(n int64) {
	if dc.size+n <= dc.capacity {
		return
	}
	entries := make([]*diskEntry, 0, len(dc.index))
	for _, e := range dc.index {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccess.Before(entries[j].LastAccess)
	})
	for _, e := range entries {
		if dc.size+n <= dc.capacity {
			return
		}
		dc.drop(e)
		dc.evictions++
	}
}

func (dc *DiskCache) drop(e *diskEntry) {
	_ = os.Remove(e.File)
	delete(dc.index, e.Key)
	dc.size -= e.Size
}

func (dc *DiskCache) loadIndex() error {
	f, err := os.Open(filepath.Join(dc.dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(&dc.index)
}

func (dc *DiskCache) saveIndex() error {
	path := filepath.Join(dc.dir, indexFile)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(f).Encode(dc.index)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// writeAtomic writes through a temp file and rename.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
