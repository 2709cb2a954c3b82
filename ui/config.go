package ui

import (
	"time"

	"github.com/dgnsrekt/narrator/internal/lang"
)

// Config contains TUI-specific configuration.
type Config struct {
	// Title shown in the header, usually the file name.
	Title    string
	Language lang.Language
	// Voice is the preferred voice ID; empty lets the resolver choose.
	Voice    string
	MaxWidth uint

	// Autoplay starts narrating as soon as the program starts.
	Autoplay   bool `env:"NARRATOR_AUTOPLAY"     envDefault:"true"`
	// StepByStep plays one step per key press instead of running through.
	StepByStep bool `env:"NARRATOR_STEP_BY_STEP" envDefault:"false"`

	// For debugging the UI
	EventBuffer     int           `env:"NARRATOR_UI_EVENT_BUFFER"   envDefault:"64"`
	StatusTimeout   time.Duration `env:"NARRATOR_UI_STATUS_TIMEOUT" envDefault:"3s"`
	EnableAltScreen bool          `env:"NARRATOR_ALT_SCREEN"        envDefault:"true"`
}
