package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-sync/internal/catalogsync"
	"github.com/sells-group/catalog-sync/internal/metrics"
	"github.com/sells-group/catalog-sync/pkg/searchindex"
)

var (
	syncEvery       time.Duration
	syncMetricsAddr string
	syncFromDir     string
	syncDryRun      bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch, load, and publish the distributor catalog",
	Long: `Runs the fetch, transform-load, and index-publish phases. An interrupted
run resumes from its checkpointed phase. With --every the sync repeats on
an interval until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !syncDryRun {
			if err := cfg.Validate("sync"); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initSyncEnv(ctx, cfg, envOptions{DryRun: syncDryRun, FromDir: syncFromDir})
		if err != nil {
			return err
		}
		defer env.Close()

		reg := metrics.NewRegistry()
		orch, err := buildOrchestrator(cfg, env, reg)
		if err != nil {
			return err
		}

		if syncMetricsAddr != "" {
			startServer(ctx, syncMetricsAddr, newRouter(routerConfig{
				Live:           orch.State,
				States:         env.States,
				Metrics:        reg,
				AllowedOrigins: cfg.Server.AllowedOrigins,
			}))
		}

		runOnce := func(ctx context.Context) error {
			summary, err := orch.Run(ctx)
			if summary != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				enc.Encode(summary) //nolint:errcheck
			}
			if idx, ok := env.Index.(*dryRunIndex); ok {
				zap.L().Info("dry run complete", zap.Int64("objects_not_published", idx.objects.Load()))
			}
			return err
		}

		if syncEvery > 0 {
			return catalogsync.RunEvery(ctx, syncEvery, runOnce)
		}
		return runOnce(ctx)
	},
}

// dryRunIndex counts the objects a publish would send.
type dryRunIndex struct {
	objects atomic.Int64
}

func (d *dryRunIndex) Clear(context.Context, string) (*searchindex.TaskResponse, error) {
	return &searchindex.TaskResponse{}, nil
}

func (d *dryRunIndex) BatchUpsert(_ context.Context, _ string, objects []searchindex.Object) (*searchindex.TaskResponse, error) {
	d.objects.Add(int64(len(objects)))
	return &searchindex.TaskResponse{}, nil
}

func (d *dryRunIndex) BatchDelete(context.Context, string, []string) (*searchindex.TaskResponse, error) {
	return &searchindex.TaskResponse{}, nil
}

func (d *dryRunIndex) ConfigureFacets(context.Context, string, []string) (*searchindex.TaskResponse, error) {
	return &searchindex.TaskResponse{}, nil
}

func (d *dryRunIndex) Query(context.Context, string, searchindex.QueryRequest) (*searchindex.QueryResponse, error) {
	return &searchindex.QueryResponse{}, nil
}

func init() {
	syncCmd.Flags().DurationVar(&syncEvery, "every", 0, "repeat the sync on this interval (0 runs once)")
	syncCmd.Flags().StringVar(&syncMetricsAddr, "metrics-addr", "", "serve health, status, and metrics on this address during the sync")
	syncCmd.Flags().StringVar(&syncFromDir, "from-dir", "", "read feed files from a local directory instead of FTP")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "load into memory and skip the database and search index")
	rootCmd.AddCommand(syncCmd)
}
