package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warp/storemap/catalog"
	"github.com/warp/storemap/scan"
)

var (
	lookupCategory string
	lookupMode     string
	lookupForce    bool
	lookupScan     bool
)

// lookupCmd runs one search from the terminal.
var lookupCmd = &cobra.Command{
	Use:   "lookup [query]",
	Short: "Load the catalog and print matching products",
	Long: `Runs one reconciliation pass, then searches the loaded catalog.

With --scan, decoded QR strings are read from stdin one per line and
each is searched like typed text until EOF.

Examples:
  storemap lookup shampoo
  storemap lookup --category Drinks
  storemap lookup --mode brand acme
  storemap lookup --force toothpaste
  scanner-decoder | storemap lookup --scan`,
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().StringVar(&lookupCategory, "category", catalog.AllCategories, "category filter")
	lookupCmd.Flags().StringVar(&lookupMode, "mode", string(catalog.ModeAll), "search field (all, name, category, brand, keywords)")
	lookupCmd.Flags().BoolVar(&lookupForce, "force", false, "skip the cache and refetch")
	lookupCmd.Flags().BoolVar(&lookupScan, "scan", false, "read decoded QR strings from stdin")
}

func runLookup(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	loc, _ := cfg.Location()

	st := a.controller.Init(ctx, lookupForce)
	fmt.Fprintf(out, "[%s] %s\n", st.Kind, st.Message)

	mode := catalog.ParseMode(lookupMode)
	if !lookupScan {
		printResult(out, a.controller.Snapshot(), catalog.Query{
			Category: lookupCategory,
			Text:     strings.Join(args, " "),
			Mode:     mode,
		}, cfg.ListLimit)
		return nil
	}

	sub := scan.Subscribe(ctx, scan.Lines(ctx, cmd.InOrStdin()), func(ev scan.Event) {
		fmt.Fprintf(out, "\n> %s\n", ev.Text)
		printResult(out, a.controller.Snapshot(), ev.Query(lookupCategory, mode), cfg.ListLimit)
	}, logger)
	<-sub.Done()

	if snap := a.controller.Snapshot(); !snap.AsOf.IsZero() {
		fmt.Fprintf(out, "\nData as of %s (%s)\n", catalog.FormatCacheTime(snap.AsOf, loc), snap.Origin)
	}
	return nil
}

// printResult searches snap and writes one line per match.
func printResult(w io.Writer, snap catalog.Snapshot, q catalog.Query, limit int) {
	res := catalog.Search(snap.Items, q)
	fmt.Fprintln(w, res.Message)

	items := res.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	for _, d := range catalog.DisplayAll(items, snap.Shelves) {
		fmt.Fprintf(w, "  %-30s %-12s %s\n", d.DisplayLabel(), d.Area.String(), formatPosition(d.Position))
	}
	if rest := len(res.Items) - len(items); rest > 0 {
		fmt.Fprintf(w, "  … and %d more\n", rest)
	}
}

func formatPosition(p catalog.ResolvedPosition) string {
	switch {
	case !p.Plottable():
		return "(not on map)"
	case p.IsLine():
		return fmt.Sprintf("(%.2f, %.2f) - (%.2f, %.2f)",
			catalog.RoundPercent(p.Point.X), catalog.RoundPercent(p.Point.Y),
			catalog.RoundPercent(p.End.X), catalog.RoundPercent(p.End.Y))
	default:
		return fmt.Sprintf("(%.2f, %.2f)", catalog.RoundPercent(p.Point.X), catalog.RoundPercent(p.Point.Y))
	}
}

