package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# narration language: en, ta, hi or ml
language: "en"
# preferred voice id; empty lets the narrator pick one for the language
voice: ""
# narration engine: speech (espeak-ng, offline) or remote (audio clips)
engine: "speech"
# speak "Step 1." before each step
announce: true
# speed multiplier, 0.5 to 2.0
speed: 1.0
# strip markdown before splitting into steps (always on for .md files)
markdown: false
# word-wrap at width, 0 to detect
width: 0

speech:
  binary: "espeak-ng"
  # words per minute at speed 1.0
  wpm: 175

remote:
  # backend, gtts or openai
  source: "backend"
  url: "http://localhost:5000"
  requests_per_minute: 50
  timeout: "30s"
  # steps fetched ahead of the one playing
  lookahead: 2
  openai:
    # the key is read from OPENAI_API_KEY, or a .env file
    model: "gpt-4o-mini-tts"
    voice: "alloy"

cache:
  # defaults to the user cache directory
  dir: ""
  max_size: "512MB"

ambient:
  # audio file looped under the narration
  file: ""
  volume: 0.25

voices:
  # yaml voices file, reloaded when it changes
  file: ""

dictation:
  # quiet period that ends a continuous capture
  silence: "2.5s"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the narrator config file",
	Long:    paragraph(fmt.Sprintf("\n%s the narrator config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("narrator config\nnarrator config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Narrator", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
