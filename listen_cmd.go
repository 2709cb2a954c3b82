package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/narrator/internal/dictation"
	"github.com/dgnsrekt/narrator/internal/lang"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Capture a dictated query",
	Long: paragraph(fmt.Sprintf("\n%s recognition results, one per line on stdin, until the speaker goes quiet. "+
		"The transcript is printed with ingredient words mapped to English keywords.", keyword("Read"))),
	Example: paragraph("my-recognizer | narrator listen\nmy-recognizer | narrator listen --lang ta --single"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		single, _ := cmd.Flags().GetBool("single")
		mode := dictation.Continuous
		if single {
			mode = dictation.SingleShot
		}
		return listen(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), mode)
	},
}

func listen(ctx context.Context, r io.Reader, w io.Writer, mode dictation.Mode) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	text, err := dictation.Listen(ctx, dictation.Lines(ctx, r),
		dictation.WithMode(mode),
		dictation.WithQuietPeriod(cfg.silence),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if text == "" {
		_, err := fmt.Fprintln(w, "Nothing heard.")
		return err
	}

	fmt.Fprintf(w, "%s %s\n", faint("heard:   "), text)
	fmt.Fprintf(w, "%s %s\n", faint("keywords:"), dictation.ToEnglishKeywords(text))
	if cfg.language == lang.Tamil {
		fmt.Fprintf(w, "%s %s\n", faint("tamil:   "), dictation.ToTamilPhonetic(text))
	}
	return nil
}

func init() {
	listenCmd.Flags().Bool("single", false, "stop after the first result")
	listenCmd.Flags().Duration("silence", dictation.DefaultQuietPeriod, "quiet period that ends a continuous capture")
	_ = viper.BindPFlag("dictation.silence", listenCmd.Flags().Lookup("silence"))
}
