package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"slate/internal/diskcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Disk cache utilities",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheFlushCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))

	return cacheCmd
}

func (c *commandContext) diskCache() *diskcache.Cache {
	return diskcache.New(c.configValue(), c.logger())
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show disk cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := ctx.diskCache()
			out := cmd.OutOrStdout()
			if cache == nil {
				fmt.Fprintln(out, "Disk cache disabled")
				return nil
			}
			stats, err := cache.Stats()
			if err != nil {
				return fmt.Errorf("cache stats: %w", err)
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ENTRIES", "BYTES", "MAX", "FREE"},
				[][]string{{
					strconv.Itoa(stats.Entries),
					strconv.FormatInt(stats.TotalBytes, 10),
					strconv.FormatInt(stats.MaxBytes, 10),
					fmt.Sprintf("%.0f%%", stats.FreeRatio*100),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newCacheFlushCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Remove every disk cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := ctx.diskCache()
			if cache == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Disk cache disabled")
				return nil
			}
			if err := cache.Flush(); err != nil {
				return fmt.Errorf("flush cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Disk cache flushed")
			return nil
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Prune old cache entries to the configured budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := ctx.diskCache()
			if cache == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Disk cache disabled")
				return nil
			}
			if err := cache.Prune(); err != nil {
				return fmt.Errorf("prune cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Disk cache pruned")
			return nil
		},
	}
}
