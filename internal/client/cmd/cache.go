package cmd

import (
	"github.com/spf13/cobra"
)

func newCacheCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Inspect and reset the response cache"}
	cmd.AddCommand(&cobra.Command{Use: "clear", Short: "Drop every cached response", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		a.cache.Clear(cmd.Context())
		printf(cmd, "Cache cleared\n")
		return nil
	})})
	cmd.AddCommand(&cobra.Command{Use: "cleanup", Short: "Remove expired entries", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		n := a.cache.Cleanup(cmd.Context())
		printf(cmd, "Removed %d expired entries\n", n)
		return nil
	})})
	cmd.AddCommand(&cobra.Command{Use: "invalidate PATTERN", Short: "Drop entries whose key contains PATTERN", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		n := a.cache.InvalidatePattern(cmd.Context(), args[0])
		printf(cmd, "Invalidated %d entries\n", n)
		return nil
	})})
	return cmd
}
