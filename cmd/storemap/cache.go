package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/storemap/catalog"
)

// cacheCmd inspects and clears the local catalog cache.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the local catalog cache",
	Long: `Inspect or clear the local catalog cache.

Subcommands:
  show   - Print the cache timestamp, item and shelf counts
  clear  - Delete the cached catalog`,
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print what the cache holds",
	RunE:  runCacheShow,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the cached catalog",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheShowCmd, cacheClearCmd)
}

func runCacheShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	loc, _ := cfg.Location()

	items, err := a.cache.LoadItems(ctx)
	switch {
	case errors.Is(err, catalog.ErrCacheMiss):
		fmt.Fprintln(out, "Cache is empty.")
		return nil
	case err != nil:
		fmt.Fprintf(out, "Cache is unreadable: %v\n", err)
		return nil
	}

	shelves, err := a.cache.LoadShelves(ctx)
	if err != nil {
		shelves = catalog.ShelfMap{}
	}

	fmt.Fprintf(out, "Items:   %d\n", len(items))
	fmt.Fprintf(out, "Shelves: %d\n", len(shelves))
	if savedAt, err := a.cache.SavedAt(ctx); err == nil {
		fmt.Fprintf(out, "Saved:   %s\n", catalog.FormatCacheTime(savedAt, loc))
	}
	if used, err := a.db.Usage(ctx); err == nil {
		fmt.Fprintf(out, "Usage:   %d / %d bytes\n", used, cfg.CacheQuotaBytes)
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cache.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
	return nil
}
