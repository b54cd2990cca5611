package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-sync/internal/backfill"
	"github.com/sells-group/catalog-sync/internal/catalog"
	"github.com/sells-group/catalog-sync/internal/model"
)

var (
	backfillDryRun bool
	backfillLimit  int
	backfillPage   int
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Repair stored catalog data",
}

var backfillFacetsCmd = &cobra.Command{
	Use:   "facets",
	Short: "Fill missing facets by re-extracting them from stored product data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("backfill"); err != nil {
			return err
		}
		ctx := cmd.Context()

		pool, err := connectPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		ext, err := newExtractor(cfg)
		if err != nil {
			return err
		}

		store := catalog.NewPostgresStore(pool)
		b := backfill.NewFacetBackfill(store, catalog.NewWriter(store, nil), ext, backfillPage)
		res, err := b.Run(ctx, backfill.FacetOptions{DryRun: backfillDryRun, Limit: backfillLimit})
		if res != nil {
			formatFacetResult(cmd.OutOrStdout(), res, backfillDryRun)
		}
		return err
	},
}

func formatFacetResult(out io.Writer, res *backfill.FacetResult, dryRun bool) {
	verb := "updated"
	if dryRun {
		verb = "would update"
	}
	fmt.Fprintf(out, "Scanned %d products, %s %d\n", res.Scanned, verb, res.Changed)
	if len(res.Filled) == 0 {
		return
	}

	names := make([]model.FacetName, 0, len(res.Filled))
	for name := range res.Filled {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FACET\tFILLED")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%d\n", name, res.Filled[name])
	}
	if err := w.Flush(); err != nil {
		zap.L().Debug("flush tabwriter", zap.Error(err))
	}
	if res.Write.Failed > 0 {
		fmt.Fprintf(out, "%d updates failed\n", res.Write.Failed)
	}
}

func init() {
	backfillFacetsCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "report without writing")
	backfillFacetsCmd.Flags().IntVar(&backfillLimit, "limit", 0, "stop after this many products (0 = all)")
	backfillFacetsCmd.Flags().IntVar(&backfillPage, "page-size", 500, "products read per page")
	backfillCmd.AddCommand(backfillFacetsCmd)
	rootCmd.AddCommand(backfillCmd)
}
