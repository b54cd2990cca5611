package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-sync/internal/catalogsync"
	"github.com/sells-group/catalog-sync/internal/db"
)

var (
	statusLimit int
	statusJSON  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the checkpointed sync state and recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("status"); err != nil {
			return err
		}
		ctx := cmd.Context()

		states, closeStates, err := openStatusStates(ctx)
		if err != nil {
			return err
		}
		defer closeStates()

		state, err := states.Load(ctx)
		if err != nil {
			return err
		}

		var entries []catalogsync.RunEntry
		if cfg.Store.DatabaseURL != "" {
			pool, err := connectPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			entries, err = catalogsync.NewSyncLog(pool).List(ctx, statusLimit)
			if err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if statusJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"state": state, "runs": entries})
		}
		formatState(out, state)
		if len(entries) > 0 {
			fmt.Fprintln(out)
			formatRunEntries(out, entries)
		}
		return nil
	},
}

// openStatusStates opens the state store read by status and serve. The
// postgres driver gets its own pool.
func openStatusStates(ctx context.Context) (catalogsync.StateStore, func(), error) {
	var pool db.Pool
	closePool := func() {}
	if cfg.Sync.StateDriver == "postgres" {
		p, err := connectPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		pool, closePool = p, p.Close
	}
	states, closeStates, err := newStateStore(ctx, cfg, pool)
	if err != nil {
		closePool()
		return nil, nil, err
	}
	return states, func() {
		closeStates()
		closePool()
	}, nil
}

func formatState(out io.Writer, state *catalogsync.SyncState) {
	if state == nil {
		fmt.Fprintln(out, "No sync in progress.")
		return
	}

	fmt.Fprintf(out, "Run %s in phase %s (started %s)\n",
		state.RunID, state.Phase, state.StartedAt.Format(time.RFC3339))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHASE\tPERCENT\tRESTARTS\tSTALLS\tLAST ACTIVITY\tERROR")
	for _, p := range catalogsync.Phases {
		if p == catalogsync.PhaseComplete {
			continue
		}
		pp := state.Of(p)
		last := "-"
		if !pp.LastActivity.IsZero() {
			last = pp.LastActivity.Format(time.RFC3339)
		}
		errMsg := "-"
		if pp.Error != "" {
			errMsg = truncate(pp.Error, 60)
		}
		fmt.Fprintf(w, "%s\t%.1f%%\t%d\t%d\t%s\t%s\n", p, pp.Percent, pp.Restarts, pp.Stalls, last, errMsg)
	}
	if err := w.Flush(); err != nil {
		zap.L().Debug("flush tabwriter", zap.Error(err))
	}
}

func formatRunEntries(out io.Writer, entries []catalogsync.RunEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTATUS\tSTARTED\tDURATION\tERROR")
	for _, e := range entries {
		duration := "-"
		if e.CompletedAt != nil {
			duration = e.CompletedAt.Sub(e.StartedAt).Round(time.Second).String()
		}
		errMsg := "-"
		if e.Error != "" {
			errMsg = truncate(e.Error, 60)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.RunID, e.Status, e.StartedAt.Format(time.RFC3339), duration, errMsg)
	}
	if err := w.Flush(); err != nil {
		zap.L().Debug("flush tabwriter", zap.Error(err))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of recent runs to list")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print JSON instead of tables")
	rootCmd.AddCommand(statusCmd)
}
