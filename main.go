// Package main provides the entry point for the narrator CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/narrator/internal/narration"
	"github.com/dgnsrekt/narrator/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	plain      bool
	width      uint
	cfg        settings

	rootCmd = &cobra.Command{
		Use:   "narrator [FILE|-]",
		Short: "Read step-by-step instructions aloud",
		Long: paragraph(
			fmt.Sprintf("\nRead step-by-step instructions %s, one step at a time.", keyword("aloud")),
		),
		Example: paragraph("narrator recipe.md\nnarrator --lang ta recipe.md\ncat steps.txt | narrator -"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	s, err := loadSettings()
	if err != nil {
		return err
	}
	cfg = s

	width = viper.GetUint("width")
	plain = viper.GetBool("plain")

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	if !isTerminal {
		plain = true
	}

	// Detect terminal width
	if !cmd.Flags().Changed("width") {
		if isTerminal && width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}

			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// argSource resolves the positional argument to a document, reading stdin
// for "-" or when it is a pipe.
func argSource(args []string) (*document, error) {
	if len(args) == 1 && args[0] != "-" {
		return openDocument(args[0])
	}
	if len(args) == 0 {
		if yes, err := stdinIsPipe(); err != nil {
			return nil, err
		} else if !yes {
			return nil, errors.New("missing source: pass a file, or - to read stdin")
		}
	}
	return readDocument(os.Stdin)
}

func execute(_ *cobra.Command, args []string) error {
	doc, err := argSource(args)
	if err != nil {
		return err
	}
	cfg.markdown = cfg.markdown || doc.markdown

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if plain {
		return runPlain(ctx, doc, os.Stdout)
	}
	return runTUI(ctx, doc)
}

func runTUI(ctx context.Context, doc *document) error {
	// Read environment to get debugging stuff
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	uiCfg.Title = doc.title
	uiCfg.Language = cfg.language
	uiCfg.Voice = cfg.voice
	uiCfg.MaxWidth = width
	events := ui.NewEvents(uiCfg.EventBuffer)

	rt, err := newRuntime(ctx, cfg, narration.WithListener(events.Publish))
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck

	p := ui.NewProgram(ctx, uiCfg, ui.Deps{
		Narrator: rt.narrator,
		Ambient:  rt.ambient,
		Content:  doc.content,
		Events:   events,
	})
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	// API keys for the remote sources usually live in a .env file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Could not load .env", "err", err)
	}
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringP("lang", "l", "en", "narration language: en, ta, hi or ml")
	rootCmd.PersistentFlags().String("voice", "", "preferred voice id")
	rootCmd.PersistentFlags().StringP("engine", "e", engineSpeech, "narration engine: speech or remote")
	rootCmd.Flags().Float64("speed", 1.0, "narration speed, 0.5 to 2.0")
	rootCmd.Flags().Bool("no-announce", false, "do not speak the step number before each step")
	rootCmd.Flags().String("ambient", "", "audio file to loop quietly under the narration")
	rootCmd.Flags().BoolVar(&plain, "plain", false, "print steps as they are spoken instead of running the tui")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap at width (set to 0 to detect)")

	// Config bindings
	_ = viper.BindPFlag("language", rootCmd.PersistentFlags().Lookup("lang"))
	_ = viper.BindPFlag("voice", rootCmd.PersistentFlags().Lookup("voice"))
	_ = viper.BindPFlag("engine", rootCmd.PersistentFlags().Lookup("engine"))
	_ = viper.BindPFlag("speed", rootCmd.Flags().Lookup("speed"))
	_ = viper.BindPFlag("no_announce", rootCmd.Flags().Lookup("no-announce"))
	_ = viper.BindPFlag("ambient.file", rootCmd.Flags().Lookup("ambient"))
	_ = viper.BindPFlag("plain", rootCmd.Flags().Lookup("plain"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))

	setDefaults()

	rootCmd.AddCommand(configCmd, manCmd, stepsCmd, voicesCmd, listenCmd, cacheCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "narrator")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "narrator")}, dirs...)
	}

	if c := os.Getenv("NARRATOR_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("narrator")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("narrator")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "narrator.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
