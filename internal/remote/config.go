package remote

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config configures the remote speaker. It is read from the environment;
// the CLI overrides fields from its own flags and config file.
type Config struct {
	Source            string        `env:"NARRATOR_REMOTE_SOURCE" envDefault:"backend"`
	URL               string        `env:"NARRATOR_REMOTE_URL" envDefault:"http://localhost:5000"`
	RequestsPerMinute int           `env:"NARRATOR_REMOTE_REQUESTS_PER_MINUTE" envDefault:"50"`
	Timeout           time.Duration `env:"NARRATOR_REMOTE_TIMEOUT" envDefault:"30s"`
	Lookahead         int           `env:"NARRATOR_REMOTE_LOOKAHEAD" envDefault:"2"`

	GTTSBinary string `env:"NARRATOR_GTTS_BINARY" envDefault:"gtts-cli"`

	OpenAIKey   string `env:"OPENAI_API_KEY"`
	OpenAIModel string `env:"NARRATOR_OPENAI_MODEL" envDefault:"gpt-4o-mini-tts"`
	OpenAIVoice string `env:"NARRATOR_OPENAI_VOICE" envDefault:"alloy"`
}

// LoadConfig parses Config from the environment.
func LoadConfig() (Config, error) {
	return env.ParseAs[Config]()
}
