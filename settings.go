package main

import (
	"fmt"
	"path/filepath"
	"time"

	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/internal/dictation"
	"github.com/dgnsrekt/narrator/internal/lang"
	"github.com/dgnsrekt/narrator/internal/narration"
	"github.com/dgnsrekt/narrator/internal/remote"
	"github.com/dgnsrekt/narrator/internal/speech"
	"github.com/dgnsrekt/narrator/utils"
)

// settings is the resolved configuration of one run: flags over config file
// over environment over defaults.
type settings struct {
	language lang.Language
	voice    string
	engine   string
	announce bool
	speed    float64
	markdown bool

	speech speech.Config
	remote remote.Config
	cache  cache.Config

	ambientFile   string
	ambientVolume float64

	voicesFile string
	silence    time.Duration
}

func setDefaults() {
	viper.SetDefault("language", string(lang.English))
	viper.SetDefault("engine", engineSpeech)
	viper.SetDefault("announce", true)
	viper.SetDefault("speed", 1.0)
	viper.SetDefault("markdown", false)
	viper.SetDefault("width", 0)

	viper.SetDefault("speech.binary", speech.DefaultBinary)
	viper.SetDefault("speech.wpm", speech.DefaultWPM)

	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.max_size", "512MB")

	viper.SetDefault("ambient.file", "")
	viper.SetDefault("ambient.volume", 0.25)

	viper.SetDefault("voices.file", "")
	viper.SetDefault("dictation.silence", dictation.DefaultQuietPeriod)
}

func loadSettings() (settings, error) {
	var s settings

	l, err := lang.Parse(viper.GetString("language"))
	if err != nil {
		return s, err
	}
	s.language = l
	s.voice = viper.GetString("voice")

	if s.engine, err = validateEngine(viper.GetString("engine")); err != nil {
		return s, err
	}

	s.announce = viper.GetBool("announce") && !viper.GetBool("no_announce")
	s.speed = viper.GetFloat64("speed")
	if s.speed < narration.MinSpeed || s.speed > narration.MaxSpeed {
		return s, fmt.Errorf("%w: %.2f must be between %.1f and %.1f",
			narration.ErrInvalidSpeed, s.speed, narration.MinSpeed, narration.MaxSpeed)
	}
	s.markdown = viper.GetBool("markdown")

	s.speech = speech.Config{
		Binary: viper.GetString("speech.binary"),
		WPM:    viper.GetInt("speech.wpm"),
	}

	if s.remote, err = loadRemoteConfig(); err != nil {
		return s, err
	}
	if s.cache, err = loadCacheConfig(); err != nil {
		return s, err
	}

	s.ambientFile = utils.ExpandPath(viper.GetString("ambient.file"))
	s.ambientVolume = viper.GetFloat64("ambient.volume")
	if s.ambientVolume < 0 || s.ambientVolume > 1 {
		return s, fmt.Errorf("ambient volume must be between 0 and 1, got %.2f", s.ambientVolume)
	}

	s.voicesFile = utils.ExpandPath(viper.GetString("voices.file"))
	s.silence = viper.GetDuration("dictation.silence")
	if s.silence <= 0 {
		return s, fmt.Errorf("dictation silence must be positive, got %s", s.silence)
	}
	return s, nil
}

// loadRemoteConfig starts from the environment and applies what the config
// file sets.
func loadRemoteConfig() (remote.Config, error) {
	c, err := remote.LoadConfig()
	if err != nil {
		return c, fmt.Errorf("error parsing remote config: %w", err)
	}
	if viper.IsSet("remote.source") {
		c.Source = viper.GetString("remote.source")
	}
	if viper.IsSet("remote.url") {
		c.URL = viper.GetString("remote.url")
	}
	if viper.IsSet("remote.requests_per_minute") {
		c.RequestsPerMinute = viper.GetInt("remote.requests_per_minute")
	}
	if viper.IsSet("remote.timeout") {
		c.Timeout = viper.GetDuration("remote.timeout")
	}
	if viper.IsSet("remote.lookahead") {
		c.Lookahead = viper.GetInt("remote.lookahead")
	}
	if viper.IsSet("remote.openai.model") {
		c.OpenAIModel = viper.GetString("remote.openai.model")
	}
	if viper.IsSet("remote.openai.voice") {
		c.OpenAIVoice = viper.GetString("remote.openai.voice")
	}
	switch c.Source {
	case remote.SourceBackend, remote.SourceGTTS, remote.SourceOpenAI:
	default:
		return c, fmt.Errorf("unknown remote source %q: use %s, %s or %s",
			c.Source, remote.SourceBackend, remote.SourceGTTS, remote.SourceOpenAI)
	}
	return c, nil
}

func loadCacheConfig() (cache.Config, error) {
	dir := utils.ExpandPath(viper.GetString("cache.dir"))
	if dir == "" {
		d, err := gap.NewScope(gap.User, "narrator").CacheDir()
		if err != nil {
			return cache.Config{}, fmt.Errorf("unable to find cache directory: %w", err)
		}
		dir = filepath.Join(d, "clips")
	}
	c := cache.DefaultConfig(dir)

	size, err := cache.ParseSize(viper.GetString("cache.max_size"))
	if err != nil {
		return c, fmt.Errorf("cache max_size: %w", err)
	}
	c.DiskCapacity = size
	c.MemoryCapacity = min(c.MemoryCapacity, size)
	return c, nil
}
