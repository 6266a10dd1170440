package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowscope/pkg/cache"
	"github.com/matzehuels/flowscope/pkg/session"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the layout cache and saved sessions",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheSessionsCommand())

	return cmd
}

func layoutCacheDir() (string, error) {
	dir, err := cacheDir()
	if err != nil {
		return "", fmt.Errorf("get cache dir: %w", err)
	}
	return filepath.Join(dir, "layouts"), nil
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var sessions bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached layouts",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := layoutCacheDir()
			if err != nil {
				return err
			}
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
			} else {
				fc, err := cache.NewFileCache(dir)
				if err != nil {
					return err
				}
				if err := fc.Clear(); err != nil {
					return fmt.Errorf("clear cache: %w", err)
				}
				printSuccess("Cleared layout cache")
				printDetail("Directory: %s", dir)
			}
			if sessions {
				return c.clearSessions(cmd.Context())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sessions, "sessions", false, "also delete sessions saved in the file store")
	return cmd
}

func (c *CLI) clearSessions(ctx context.Context) error {
	store, err := c.fileStore()
	if err != nil {
		return err
	}
	ids, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := store.Delete(ctx, id); err != nil {
			return err
		}
	}
	printSuccess("Deleted %d saved sessions", len(ids))
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}

// cacheSessionsCommand lists sessions saved in the file store.
func (c *CLI) cacheSessionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List sessions saved by 'serve' with the file store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.fileStore()
			if err != nil {
				return err
			}
			ids, err := store.List(ctx)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				printInfo("No saved sessions")
				return nil
			}
			for _, id := range ids {
				rec, err := store.Load(ctx, id)
				if err != nil {
					continue
				}
				printKeyValue(id[:8], fmt.Sprintf("%s  updated %s", rec.Engine, rec.UpdatedAt.Format("2006-01-02 15:04")))
			}
			printDetail("Directory: %s", store.Path())
			return nil
		},
	}
}

func (c *CLI) fileStore() (*session.FileStore, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return session.NewFileStore(cfg.Store.Dir, cfg.Store.TTL.Duration)
}
