package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-sync/internal/backfill"
	"github.com/sells-group/catalog-sync/internal/catalog"
	"github.com/sells-group/catalog-sync/internal/classify"
	"github.com/sells-group/catalog-sync/internal/model"
)

var (
	reclassifyApply       bool
	reclassifyRollback    string
	reclassifyListBatches bool
	reclassifyReportDir   string
	reclassifyBatchSize   int
)

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify",
	Short: "Re-run classification over the stored catalog",
	Long: `Diffs every active product's stored category against the current rules.
Without --apply the command only reports. Applied batches are backed up and
can be undone with --rollback.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("reclassify"); err != nil {
			return err
		}
		if reclassifyApply && reclassifyRollback != "" {
			return eris.New("--apply and --rollback are mutually exclusive")
		}
		ctx := cmd.Context()

		pool, err := connectPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		store := catalog.NewPostgresStore(pool)
		backups := catalog.NewPostgresBackupStore(pool)
		writer := catalog.NewWriter(store, backups)
		out := cmd.OutOrStdout()

		switch {
		case reclassifyListBatches:
			batches, err := backups.Batches(ctx, 50)
			if err != nil {
				return err
			}
			formatBatches(out, batches)
			return nil

		case reclassifyRollback != "":
			res, err := writer.Rollback(ctx, reclassifyRollback)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Rolled back %d of %d products in batch %s (%d failed)\n",
				res.Applied, res.Planned, reclassifyRollback, res.Failed)
			return nil
		}

		batchSize := reclassifyBatchSize
		if batchSize <= 0 {
			batchSize = cfg.Reclassify.BatchSize
		}
		reportDir := reclassifyReportDir
		if reportDir == "" {
			reportDir = cfg.Reclassify.ReportDir
		}

		r := backfill.NewReclassifier(store, writer, classify.New(), batchSize)
		res, err := r.Run(ctx, backfill.RunOptions{
			DryRun:    !reclassifyApply,
			BatchSize: batchSize,
			ReportDir: reportDir,
		})
		if res != nil && res.Analysis != nil {
			formatAnalysis(out, res.Analysis)
			if res.ReportPath != "" {
				fmt.Fprintf(out, "\nReport written to %s\n", res.ReportPath)
			}
		}
		if err != nil {
			return err
		}

		if res.Apply != nil && !res.Apply.DryRun {
			fmt.Fprintf(out, "Applied %d of %d changes (%d failed) in batches %s\n",
				res.Apply.Applied, res.Apply.Planned, res.Apply.Failed, strings.Join(res.Apply.BatchIDs, ", "))
			if counts, err := store.CountByCategory(ctx); err == nil {
				zap.L().Info("category counts after apply", zap.Any("counts", counts))
			}
		} else if res.Analysis.TotalChanges > 0 {
			fmt.Fprintln(out, "\nDry run: re-run with --apply to write these changes.")
		}
		return nil
	},
}

func formatAnalysis(out io.Writer, a *classify.Analysis) {
	fmt.Fprintf(out, "Scanned %d products, %d would change category\n", a.Scanned, a.TotalChanges)
	if a.TotalChanges == 0 {
		return
	}

	targets := make([]model.Category, 0, len(a.Summary))
	for cat := range a.Summary {
		targets = append(targets, cat)
	}
	sort.Slice(targets, func(i, j int) bool { return a.Summary[targets[i]].Total > a.Summary[targets[j]].Total })

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TO\tTOTAL\tFROM")
	for _, to := range targets {
		m := a.Summary[to]
		from := make([]string, 0, len(m.From))
		for cat, n := range m.From {
			from = append(from, fmt.Sprintf("%s (%d)", cat, n))
		}
		sort.Strings(from)
		fmt.Fprintf(w, "%s\t%d\t%s\n", to, m.Total, strings.Join(from, ", "))
	}
	if err := w.Flush(); err != nil {
		zap.L().Debug("flush tabwriter", zap.Error(err))
	}
}

func formatBatches(out io.Writer, batches []catalog.BatchInfo) {
	if len(batches) == 0 {
		fmt.Fprintln(out, "No reclassification batches recorded.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BATCH\tROWS\tCREATED")
	for _, b := range batches {
		fmt.Fprintf(w, "%s\t%d\t%s\n", b.BatchID, b.Rows, b.CreatedAt.Format(time.RFC3339))
	}
	if err := w.Flush(); err != nil {
		zap.L().Debug("flush tabwriter", zap.Error(err))
	}
}

func init() {
	reclassifyCmd.Flags().BoolVar(&reclassifyApply, "apply", false, "write the proposed changes")
	reclassifyCmd.Flags().StringVar(&reclassifyRollback, "rollback", "", "restore the categories saved for a batch ID")
	reclassifyCmd.Flags().BoolVar(&reclassifyListBatches, "list-batches", false, "list applied batches available for rollback")
	reclassifyCmd.Flags().StringVar(&reclassifyReportDir, "report-dir", "", "directory for the change report (default from config)")
	reclassifyCmd.Flags().IntVar(&reclassifyBatchSize, "batch-size", 0, "products per page and per applied batch (default from config)")
	rootCmd.AddCommand(reclassifyCmd)
}
