package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-sync/internal/catalog"
)

var migrateDryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply catalog schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		ctx := cmd.Context()

		pool, err := connectPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		pending, err := catalog.PendingMigrations(ctx, pool)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(pending) == 0 {
			fmt.Fprintln(out, "Schema is up to date.")
			return nil
		}
		for _, name := range pending {
			fmt.Fprintf(out, "pending: %s\n", name)
		}
		if migrateDryRun {
			return nil
		}

		if err := catalog.Migrate(ctx, pool); err != nil {
			return err
		}
		zap.L().Info("migrations applied", zap.Int("count", len(pending)))
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "list pending migrations without applying them")
	rootCmd.AddCommand(migrateCmd)
}
