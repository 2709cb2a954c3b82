package cache

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func testConfig(dir string) Config {
	return Config{
		MemoryCapacity:   1024,
		DiskCapacity:     64 * 1024,
		DiskPath:         dir,
		CompressionLevel: 3,
	}
}

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	s, err := NewStore(cfg, WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

// silence compresses well, which exercises the zstd path.
func silence(n int) []byte {
	return make([]byte, n)
}

func TestStore_PutGet(t *testing.T) {
	s := newTestStore(t, testConfig(t.TempDir()))
	defer s.Close()

	if err := s.Put("k", []byte("clip")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok := s.Get("k")
	if !ok || string(got) != "clip" {
		t.Errorf("Get() = %q, %v", got, ok)
	}

	s.Delete("k")
	if _, ok := s.Get("k"); ok {
		t.Error("Get() found a deleted key")
	}
}

func TestStore_PersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	clip := silence(8 * 1024)

	s := newTestStore(t, testConfig(dir))
	if err := s.Put("k", clip); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened := newTestStore(t, testConfig(dir))
	defer reopened.Close()

	got, ok := reopened.Get("k")
	if !ok {
		t.Fatal("clip lost across restart")
	}
	if !bytes.Equal(got, clip) {
		t.Error("clip changed across restart")
	}

	// the memory tier is too small for the clip, so the hit came from disk
	stats := reopened.Stats()
	if stats[1].Hits != 1 {
		t.Errorf("disk hits = %d, want 1", stats[1].Hits)
	}
}

func TestStore_CompressesOnDisk(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, testConfig(dir))
	defer s.Close()

	_ = s.Put("k", silence(16*1024))
	s.Flush()

	info, err := os.Stat(filepath.Join(dir, "k.clip"))
	if err != nil {
		t.Fatalf("clip file: %v", err)
	}
	if info.Size() >= 16*1024 {
		t.Errorf("clip stored with %d bytes, want compressed", info.Size())
	}
}

func TestStore_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, testConfig(dir))
	_ = s.Put("k", []byte("small clip"))
	_ = s.Close()

	reopened := newTestStore(t, testConfig(dir))
	defer reopened.Close()

	reopened.Get("k")
	reopened.Get("k")
	stats := reopened.Stats()
	if stats[0].Hits != 1 || stats[1].Hits != 1 {
		t.Errorf("memory/disk hits = %d/%d, want 1/1", stats[0].Hits, stats[1].Hits)
	}
}

func TestStore_Clear(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, testConfig(dir))
	defer s.Close()

	for _, k := range []string{"a", "b", "c"} {
		_ = s.Put(k, []byte("clip "+k))
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	for _, st := range s.Stats() {
		if st.Items != 0 || st.Size != 0 {
			t.Errorf("%s tier not empty: %+v", st.Level, st)
		}
	}
	files, _ := filepath.Glob(filepath.Join(dir, "*.clip"))
	if len(files) != 0 {
		t.Errorf("clip files left behind: %v", files)
	}
}

func TestStore_CleanupExpires(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.TTL = 10 * time.Millisecond
	s := newTestStore(t, cfg)
	defer s.Close()

	_ = s.Put("k", []byte("clip"))
	s.Flush()
	time.Sleep(20 * time.Millisecond)

	if n := s.Cleanup(); n != 2 {
		t.Errorf("Cleanup() = %d, want one clip per tier", n)
	}
	if _, ok := s.Get("k"); ok {
		t.Error("expired clip still served")
	}
}

func TestStore_MemoryOnly(t *testing.T) {
	s := newTestStore(t, Config{MemoryCapacity: 100})
	defer s.Close()

	_ = s.Put("k", []byte("clip"))
	if _, ok := s.Get("k"); !ok {
		t.Error("Get() missed in memory-only store")
	}
	if n := len(s.Stats()); n != 1 {
		t.Errorf("Stats() tiers = %d, want 1", n)
	}
}

func TestDiskCache_CorruptIndex(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, indexFile), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	dc, err := NewDiskCache(dir, 1024, 0)
	if err != nil {
		t.Fatalf("NewDiskCache() error = %v", err)
	}
	defer dc.Close()
	if s := dc.Stats(); s.Items != 0 {
		t.Errorf("Stats() = %+v, want empty", s)
	}
}

func TestDiskCache_Eviction(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 100, 0)
	if err != nil {
		t.Fatalf("NewDiskCache() error = %v", err)
	}
	defer dc.Close()

	_ = dc.Put("a", make([]byte, 40))
	time.Sleep(2 * time.Millisecond)
	_ = dc.Put("b", make([]byte, 40))
	time.Sleep(2 * time.Millisecond)
	dc.Get("a")
	_ = dc.Put("c", make([]byte, 40))

	if dc.Contains("b") {
		t.Error("least recently read clip survived")
	}
	if !dc.Contains("a") || !dc.Contains("c") {
		t.Error("wrong clip evicted")
	}
}

func TestGenerateKey(t *testing.T) {
	base := GenerateKey("backend", "Boil water", "ta-IN", "", 0.85)

	if got := GenerateKey("backend", "  Boil water ", "TA-in", "", 0.85); got != base {
		t.Error("key depends on surrounding space or tag case")
	}
	for name, other := range map[string]string{
		"source": GenerateKey("gtts", "Boil water", "ta-IN", "", 0.85),
		"text":   GenerateKey("backend", "Boil milk", "ta-IN", "", 0.85),
		"tag":    GenerateKey("backend", "Boil water", "hi-IN", "", 0.85),
		"voice":  GenerateKey("backend", "Boil water", "ta-IN", "alloy", 0.85),
		"rate":   GenerateKey("backend", "Boil water", "ta-IN", "", 1),
	} {
		if other == base {
			t.Errorf("key ignores %s", name)
		}
	}
	if len(base) != 32 {
		t.Errorf("len(key) = %d, want 32", len(base))
	}
}

func TestParseSize(t *testing.T) {
	n, err := ParseSize("512MB")
	if err != nil || n != 512*1000*1000 {
		t.Errorf("ParseSize(512MB) = %d, %v", n, err)
	}
	n, err = ParseSize("1 GiB")
	if err != nil || n != 1<<30 {
		t.Errorf("ParseSize(1 GiB) = %d, %v", n, err)
	}
	if _, err := ParseSize("lots"); err == nil {
		t.Error("ParseSize(lots) succeeded")
	}
}

func TestStatsString(t *testing.T) {
	s := Stats{Level: LevelDisk, Capacity: 1 << 20, Size: 512 * 1024, Items: 3, Hits: 3, Misses: 1}
	out := s.String()
	for _, want := range []string{"disk", "512 KiB", "1.0 MiB", "75%"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() = %q, missing %q", out, want)
		}
	}
}
