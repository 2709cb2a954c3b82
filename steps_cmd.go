package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/narrator/internal/lang"
	"github.com/dgnsrekt/narrator/internal/narration"
)

var stepsCmd = &cobra.Command{
	Use:     "steps [FILE|-]",
	Short:   "Show the steps a document is split into",
	Long:    paragraph(fmt.Sprintf("\n%s the steps the narrator would speak, without speaking them.", keyword("Print"))),
	Example: paragraph("narrator steps recipe.md\nnarrator steps --lang ta --speakable recipe.md"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := argSource(args)
		if err != nil {
			return err
		}
		text, err := doc.content(cmd.Context(), cfg.language)
		if err != nil {
			return err
		}
		speakable, _ := cmd.Flags().GetBool("speakable")

		var opts []narration.SegmentOption
		if cfg.markdown || doc.markdown {
			opts = append(opts, narration.WithMarkdown())
		}
		steps := narration.NewSegmenter(opts...).Segment(text)

		style := styles.AutoStyle
		if plain {
			style = styles.NoTTYStyle
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithColorProfile(lipgloss.ColorProfile()),
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(int(width)), //nolint:gosec
		)
		if err != nil {
			return fmt.Errorf("unable to create renderer: %w", err)
		}
		out, err := r.Render(stepsMarkdown(doc.title, cfg.language, steps, speakable))
		if err != nil {
			return fmt.Errorf("unable to render steps: %w", err)
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

// stepsMarkdown renders steps as a numbered markdown list. With speakable,
// each step shows the text as it is handed to the synthesizer.
func stepsMarkdown(title string, l lang.Language, steps []narration.Step, speakable bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "_%s · %d steps_\n\n", l.Name(), len(steps))
	if len(steps) == 0 {
		b.WriteString("Nothing to narrate.\n")
		return b.String()
	}
	for i, s := range steps {
		text := s.Text
		if speakable {
			text = lang.Speakable(l.StepLabel(i+1), l) + ". " + lang.Speakable(s.Text, l)
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, text)
	}
	return b.String()
}

func init() {
	stepsCmd.Flags().Bool("speakable", false, "show the text as spoken, with step labels")
}
