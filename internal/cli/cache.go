package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/FransAris/visio-to-xml/internal/cache"
	"github.com/FransAris/visio-to-xml/internal/config"
)

// newCacheCmd creates the cache management command.
func newCacheCmd(root *rootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the recognition result cache",
	}

	cmd.AddCommand(newCacheInfoCmd(root))
	cmd.AddCommand(newCacheClearCmd(root))
	cmd.AddCommand(newCachePathCmd(root))

	return cmd
}

// openCache opens the cache at its configured location.
func openCache(root *rootOpts) (*cache.Cache, error) {
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return nil, err
	}
	return cache.New(cfg.Cache.Dir, cfg.Cache.TTL.Duration)
}

// newCacheInfoCmd creates the "cache info" subcommand.
func newCacheInfoCmd(root *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache location and usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache(root)
			if err != nil {
				return err
			}

			stats, err := c.Stats()
			if err != nil {
				return err
			}

			printKeyValue("Directory", c.Dir())
			printKeyValue("TTL", c.TTL().String())
			printKeyValue("Entries", strconv.Itoa(stats.Entries))
			printKeyValue("Size", formatBytes(stats.Bytes))
			if !stats.Oldest.IsZero() {
				printKeyValue("Oldest", fmt.Sprintf("%s ago", time.Since(stats.Oldest).Round(time.Minute)))
			}
			return nil
		},
	}
}

// newCacheClearCmd creates the "cache clear" subcommand.
func newCacheClearCmd(root *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached recognition results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache(root)
			if err != nil {
				return err
			}

			count, err := c.Clear()
			if err != nil {
				return err
			}
			if count == 0 {
				printInfo("Cache is empty")
				return nil
			}
			printSuccess("Cleared %d cached results", count)
			printDetail("Directory: %s", c.Dir())
			return nil
		},
	}
}

// newCachePathCmd creates the "cache path" subcommand.
func newCachePathCmd(root *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache(root)
			if err != nil {
				return err
			}
			fmt.Println(c.Dir())
			return nil
		},
	}
}
