package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/memory"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func migrateCmd(a *app) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Prepare the configured store",
		Long: `Apply pending SQLite migrations or create MongoDB indexes, depending on DATA_BACKEND.
With --seed, categories listed in SEED_DIR/seed_categories.txt are added when missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			// Opening a store applies migrations and indexes.
			res, err := cli.OpenStore(ctx, a.logger, a.cfg)
			if err != nil {
				return err
			}
			defer res.Cleanup()

			if a.cfg.DataBackend == "sqlite" {
				version, dirty, err := storage.MigrationVersion(a.cfg.SQLiteDBPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "schema version %d (dirty: %t)\n", version, dirty)
			}

			if !seed {
				return nil
			}
			added, err := services.NewCategoryService(res.Store, nil).Seed(ctx, memory.SeedCategories(a.cfg.SeedDir))
			if err != nil {
				return fmt.Errorf("seed categories: %w", err)
			}
			fmt.Fprintf(out, "seeded %d categories\n", added)
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "add missing seed categories")
	return cmd
}
