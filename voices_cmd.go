package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/narrator/internal/lang"
	"github.com/dgnsrekt/narrator/internal/speech"
	"github.com/dgnsrekt/narrator/internal/voice"
	"github.com/dgnsrekt/narrator/utils"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the voices narration can use",
	Long: paragraph(fmt.Sprintf("\n%s installed synthesizer voices and those from the voices file, and show which one each language resolves to.",
		keyword("List"))),
	Example: paragraph("narrator voices\nnarrator voices --filter tamil\nnarrator voices --save ~/.config/narrator/voices.yml"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := loadCatalog(cfg.voicesFile)
		if err != nil {
			return err
		}
		synth := speech.New(cfg.speech)
		if err := synth.Available(); err == nil {
			if err := synth.Discover(cmd.Context(), catalog); err != nil {
				log.Warn("voice discovery failed", "error", err)
			}
		}
		voices := catalog.Voices()

		if save, _ := cmd.Flags().GetString("save"); save != "" {
			save = utils.ExpandPath(save)
			if err := voice.Write(save, voices); err != nil {
				return fmt.Errorf("unable to save voices: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d voices to %s\n", len(voices), save)
		}

		filter, _ := cmd.Flags().GetString("filter")
		w := cmd.OutOrStdout()
		printVoices(w, filterVoices(voices, filter))
		fmt.Fprintln(w)
		printResolution(w, voices)
		return nil
	},
}

type voiceList []voice.Candidate

func (v voiceList) String(i int) string { return v[i].String() }
func (v voiceList) Len() int            { return len(v) }

// filterVoices fuzzy-matches pattern against voice names and tags, best
// match first.
func filterVoices(voices []voice.Candidate, pattern string) []voice.Candidate {
	if strings.TrimSpace(pattern) == "" {
		return voices
	}
	matches := fuzzy.FindFrom(pattern, voiceList(voices))
	out := make([]voice.Candidate, 0, len(matches))
	for _, m := range matches {
		out = append(out, voices[m.Index])
	}
	return out
}

var (
	voiceIDStyle  = lipgloss.NewStyle().Width(24)
	voiceTagStyle = lipgloss.NewStyle().Width(10)
)

func printVoices(w io.Writer, voices []voice.Candidate) {
	if len(voices) == 0 {
		fmt.Fprintln(w, "No voices found.")
		return
	}
	for _, v := range voices {
		def := ""
		if v.Default {
			def = keyword(" default")
		}
		fmt.Fprintln(w, voiceIDStyle.Render(v.ID)+voiceTagStyle.Render(v.Tag)+faint(v.Name)+def)
	}
}

func printResolution(w io.Writer, voices []voice.Candidate) {
	for _, l := range lang.All {
		c, tier := voice.ResolveTier(l, voices)
		got := faint("platform default")
		if tier != voice.TierNone {
			got = c.ID + faint(" ("+tier.String()+")")
		}
		fmt.Fprintf(w, "%-10s %s\n", l.Name(), got)
	}
}

func init() {
	voicesCmd.Flags().StringP("filter", "f", "", "fuzzy filter on voice name and language")
	voicesCmd.Flags().String("save", "", "write the listed voices to a voices file")
}
