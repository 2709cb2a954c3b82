package voice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Catalog is the set of voices currently known to be available. Platform
// voice lists often arrive after the first query, and the optional voices
// file can change on disk, so subscribers are told whenever the list changes
// and are expected to re-resolve.
type Catalog struct {
	path string

	mu       sync.RWMutex
	platform []Candidate
	file     []Candidate
	subs     map[int]func([]Candidate)
	nextSub  int

	logger *log.Logger
}

// File is the on-disk voices document.
//
//	voices:
//	  - id: ta-IN-PallaviNeural
//	    tag: ta-IN
//	    default: true
type File struct {
	Voices []Candidate `yaml:"voices"`
}

// NewCatalog returns a catalog seeded with platform voices.
func NewCatalog(platform ...Candidate) *Catalog {
	return &Catalog{
		platform: platform,
		subs:     make(map[int]func([]Candidate)),
		logger:   log.Default().WithPrefix("voice"),
	}
}

// LoadCatalog reads a voices file. A missing file yields an empty catalog
// that will pick the file up once Watch sees it created.
func LoadCatalog(path string) (*Catalog, error) {
	c := NewCatalog()
	c.path = path
	if err := c.reload(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return c, nil
}

// Voices returns file voices followed by platform voices. A file entry hides
// a platform voice with the same ID.
func (c *Catalog) Voices() []Candidate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mergedLocked()
}

func (c *Catalog) mergedLocked() []Candidate {
	out := make([]Candidate, 0, len(c.file)+len(c.platform))
	seen := make(map[string]bool, len(c.file))
	for _, v := range c.file {
		seen[v.ID] = true
		out = append(out, v)
	}
	for _, v := range c.platform {
		if !seen[v.ID] {
			out = append(out, v)
		}
	}
	return out
}

// SetPlatform replaces the platform voice list and notifies subscribers.
func (c *Catalog) SetPlatform(voices []Candidate) {
	c.mu.Lock()
	c.platform = append([]Candidate(nil), voices...)
	c.mu.Unlock()
	c.notify()
}

// Subscribe registers fn to run after every change. The returned func
// removes the subscription.
func (c *Catalog) Subscribe(fn func([]Candidate)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Catalog) notify() {
	c.mu.RLock()
	voices := c.mergedLocked()
	fns := make([]func([]Candidate), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	c.logger.Debug("voice catalog changed", "voices", len(voices))
	for _, fn := range fns {
		fn(voices)
	}
}

func (c *Catalog) reload() error {
	b, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read voices file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parse voices file %s: %w", c.path, err)
	}
	c.mu.Lock()
	c.file = f.Voices
	c.mu.Unlock()
	return nil
}

// Watch reloads the voices file whenever it is written or created and
// notifies subscribers. It blocks until ctx is done.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.path == "" {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	dir := filepath.Dir(c.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	c.logger.Info("fsnotify watching voices", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(c.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			c.logger.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			if err := c.reload(); err != nil {
				c.logger.Warn("could not reload voices", "error", err)
				continue
			}
			c.notify()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.logger.Debug("fsnotify error", "dir", dir, "error", err)
		}
	}
}

// Write saves voices as a voices file at path.
func Write(path string, voices []Candidate) error {
	b, err := yaml.Marshal(File{Voices: voices})
	if err != nil {
		return fmt.Errorf("encode voices: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create voices dir: %w", err)
	}
	return os.WriteFile(path, b, 0o644) //nolint:gosec
}
