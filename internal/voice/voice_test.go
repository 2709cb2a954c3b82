package voice

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/narrator/internal/lang"
)

func TestResolveFallbackOrder(t *testing.T) {
	us := Candidate{ID: "us", Tag: "en-US"}
	in := Candidate{ID: "in", Tag: "en-IN"}
	gb := Candidate{ID: "gb", Tag: "en_GB"}
	ta := Candidate{ID: "ta", Tag: "ta-IN"}
	taLK := Candidate{ID: "ta-lk", Tag: "ta-LK"}
	fr := Candidate{ID: "fr", Tag: "fr-FR"}

	tests := []struct {
		name      string
		lang      lang.Language
		available []Candidate
		wantID    string
		wantTier  Tier
	}{
		{"english prefers en-IN over en-US", lang.English, []Candidate{us, in}, "in", TierExact},
		{"tamil exact", lang.Tamil, []Candidate{us, taLK, ta}, "ta", TierExact},
		{"tamil regional variant", lang.Tamil, []Candidate{us, taLK}, "ta-lk", TierPrimary},
		{"english regional variant before en-IN tier", lang.English, []Candidate{fr, gb}, "gb", TierPrimary},
		{"tamil falls back to english", lang.Tamil, []Candidate{fr, us, in}, "us", TierAnyEnglish},
		{"tamil with no matches", lang.Tamil, []Candidate{fr}, "", TierNone},
		{"empty catalog", lang.Hindi, nil, "", TierNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, tier := ResolveTier(tt.lang, tt.available)
			assert.Equal(t, tt.wantTier, tier)
			assert.Equal(t, tt.wantID, got.ID)

			_, ok := Resolve(tt.lang, tt.available)
			assert.Equal(t, tt.wantTier != TierNone, ok)
		})
	}
}

func TestResolvePrefersDefaultWithinTier(t *testing.T) {
	voices := []Candidate{
		{ID: "a", Tag: "ta-IN"},
		{ID: "b", Tag: "ta-IN", Default: true},
	}
	got, ok := Resolve(lang.Tamil, voices)
	require.True(t, ok)
	assert.Equal(t, "b", got.ID)
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	got, tier := ResolveTier(lang.Malayalam, []Candidate{{ID: "m", Tag: "ML_in"}})
	assert.Equal(t, TierExact, tier)
	assert.Equal(t, "m", got.ID)
}

func TestFind(t *testing.T) {
	voices := []Candidate{{ID: "x", Tag: "en-US"}}
	got, ok := Find("x", voices)
	assert.True(t, ok)
	assert.Equal(t, "en-US", got.Tag)

	_, ok = Find("", voices)
	assert.False(t, ok)
	_, ok = Find("y", voices)
	assert.False(t, ok)
}

func TestCatalogMergeAndSubscribe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voices.yml")
	require.NoError(t, Write(path, []Candidate{{ID: "shared", Tag: "ta-IN", Name: "file"}}))

	c, err := LoadCatalog(path)
	require.NoError(t, err)

	var got []Candidate
	unsubscribe := c.Subscribe(func(v []Candidate) { got = v })

	c.SetPlatform([]Candidate{
		{ID: "shared", Tag: "ta-IN", Name: "platform"},
		{ID: "en", Tag: "en-US"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "file", got[0].Name)
	assert.Equal(t, "en", got[1].ID)
	assert.Equal(t, got, c.Voices())

	unsubscribe()
	got = nil
	c.SetPlatform(nil)
	assert.Nil(t, got)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	c, err := LoadCatalog(filepath.Join(t.TempDir(), "none.yml"))
	require.NoError(t, err)
	assert.Empty(t, c.Voices())
}

func TestLoadCatalogInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voices.yml")
	require.NoError(t, os.WriteFile(path, []byte("voices: [::"), 0o644))
	_, err := LoadCatalog(path)
	assert.Error(t, err)
}

func TestCatalogWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voices.yml")
	c, err := LoadCatalog(path)
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		changed []Candidate
	)
	c.Subscribe(func(v []Candidate) {
		mu.Lock()
		changed = v
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, Write(path, []Candidate{{ID: "new", Tag: "hi-IN"}}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changed) == 1 && changed[0].ID == "new"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
