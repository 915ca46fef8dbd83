package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/giantswarm/azauth/internal/cli"
	"github.com/giantswarm/azauth/internal/formatting"
	"github.com/giantswarm/azauth/pkg/logging"
	"github.com/giantswarm/azauth/pkg/tokencache"
)

// Cache flags
var (
	cachePath      string
	cacheOutput    string
	cacheNoHeaders bool
	cacheYes       bool
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the token cache",
	Long: `Inspect and manage the token cache shared by every azauth process.

Examples:
  azauth cache list               # Show cached tokens
  azauth cache list -o json       # Machine readable listing
  azauth cache clear --yes        # Sign out everywhere
  azauth cache watch              # Report changes made by other processes`,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached tokens",
	Long:  `List cached tokens. Token values are never printed.`,
	Args:  cobra.NoArgs,
	RunE:  runCacheList,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached token",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

var cacheWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Report changes to the cache file",
	Long: `Report changes made to the cache file by other processes until interrupted.
Only file caches can be watched.`,
	Args: cobra.NoArgs,
	RunE: runCacheWatch,
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&cachePath, "cache-path", "", "Token cache file (env: AZAUTH_CACHE_PATH)")

	cacheListCmd.Flags().StringVarP(&cacheOutput, "output", "o", "table", "Output format: table, json or yaml")
	cacheListCmd.Flags().BoolVar(&cacheNoHeaders, "no-headers", false, "Omit the table header")

	cacheClearCmd.Flags().BoolVar(&cacheYes, "yes", false, "Confirm removing every cached token")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheWatchCmd)
}

// cacheSession opens the configured token cache.
func cacheSession(cmd *cobra.Command) (*cli.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cachePath != "" {
		cfg.Cache.Path = cachePath
		cfg.Cache.RedisURL = ""
	}
	return cli.NewSession(cfg, cli.SessionOptions{Output: cmd.ErrOrStderr()})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runCacheList(cmd *cobra.Command, args []string) error {
	format, err := formatting.ParseOutputFormat(cacheOutput)
	if err != nil {
		return err
	}
	session, err := cacheSession(cmd)
	if err != nil {
		return err
	}

	entries, err := session.LoadCache(commandContext(cmd))
	if err != nil {
		return err
	}

	return formatting.NewFormatter(formatting.Options{
		Format:    format,
		NoHeaders: cacheNoHeaders,
		Quiet:     globalFlags.Quiet,
		Output:    cmd.OutOrStdout(),
	}).FormatCacheEntries(formatting.NewCacheEntries(entries, time.Now()))
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	if !cacheYes {
		return errors.New("refusing to clear the token cache without --yes")
	}
	session, err := cacheSession(cmd)
	if err != nil {
		return err
	}

	n, err := session.ClearCache(commandContext(cmd))
	if err != nil {
		return err
	}
	if !globalFlags.Quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "%s Removed %d cached token(s)\n", text.FgGreen.Sprint("✓"), n)
	}
	return nil
}

func runCacheWatch(cmd *cobra.Command, args []string) error {
	session, err := cacheSession(cmd)
	if err != nil {
		return err
	}
	if session.CachePath == "" {
		return errors.New("only file caches can be watched, this cache is stored in redis")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	if !globalFlags.Quiet {
		fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", session.CachePath)
	}
	return tokencache.Watch(ctx, session.CachePath, tokencache.DefaultWatchDebounce, func(ev tokencache.ChangeEvent) {
		line := fmt.Sprintf("%s  %-6s", ev.Timestamp.Format(time.RFC3339), ev.Operation)
		if ev.Operation == tokencache.OperationWrite {
			entries, err := session.LoadCache(ctx)
			if err != nil {
				logging.Warn("CLI", "Failed to reload %s: %v", ev.Path, err)
			} else {
				line += fmt.Sprintf("  %d cached token(s)", len(entries))
			}
		}
		fmt.Fprintln(out, line)
	})
}
