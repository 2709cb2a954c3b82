package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/narrator/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the clip cache",
	Long:  paragraph(fmt.Sprintf("\n%s the cache of remote narration clips.", keyword("Manage"))),
	Args:  cobra.NoArgs,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show clip cache usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(func(s *cache.Store) error {
			fmt.Fprintln(cmd.OutOrStdout(), faint(cfg.cache.DiskPath))
			for _, st := range s.Stats() {
				fmt.Fprintln(cmd.OutOrStdout(), st.String())
			}
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached clip",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(func(s *cache.Store) error {
			if err := s.Clear(); err != nil {
				return fmt.Errorf("unable to clear cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		})
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired clips",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(func(s *cache.Store) error {
			n := s.Cleanup()
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired clips.\n", n)
			return nil
		})
	},
}

// withStore opens the clip cache without its background sweep.
func withStore(fn func(*cache.Store) error) error {
	c := cfg.cache
	c.CleanupInterval = 0
	s, err := cache.NewStore(c, cache.WithLogger(log.Default().WithPrefix("cache")))
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		_ = s.Close()
		return err
	}
	return s.Close()
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cachePruneCmd)
}
