package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/haivivi/langid/pkg/cli"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the feature cache",
	Long: `Manage the on-disk MFCC feature cache.

The cache is enabled per context:
  langid config set cache.enabled true
  langid config set cache.ttl 168h

Entries are keyed by the clip's content and the extraction settings, so
changing features.* never returns stale features.`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached feature matrix",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		c, err := getContext()
		if err != nil {
			return err
		}
		cache, err := openCache(c)
		if err != nil {
			return err
		}
		defer cache.Close()

		n, err := cache.Clear(ctx)
		if err != nil {
			return err
		}
		cli.PrintSuccess("Removed %d cached entries", n)
		return nil
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the cache directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContext()
		if err != nil {
			return err
		}
		dir, err := cacheDir(c)
		if err != nil {
			return err
		}
		return outputResult(map[string]any{"dir": dir, "enabled": c.Cache.Enabled})
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePathCmd)
}
