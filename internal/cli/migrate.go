package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"expenses/internal/config"
	"expenses/internal/log"
	"expenses/internal/storage"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the expenses table if it does not exist, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, ctx, stop, err := opts.bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()
			return runMigrate(ctx, cfg, logger)
		},
	}
}

// runMigrate opens the configured database, which applies pending
// migrations, and closes it again.
func runMigrate(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	var (
		repo *storage.SQLRepository
		err  error
	)
	switch cfg.DataBackend {
	case config.BackendSQLite:
		repo, err = storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	case config.BackendPostgres:
		repo, err = storage.NewPostgresRepository(cfg.DatabaseURL)
	default:
		logger.Info("Nothing to migrate", "backend", cfg.DataBackend)
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", cfg.DataBackend, err)
	}
	defer repo.Close()

	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("migrate %s: %w", cfg.DataBackend, err)
	}
	logger.Info("Schema is up to date", "backend", cfg.DataBackend)
	return nil
}
