package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"expenses/internal/backend"
	"expenses/internal/config"
	"expenses/internal/log"
	"expenses/internal/services"
	"expenses/internal/sheets"
	"expenses/internal/sheets/google"
	"expenses/internal/worker"
)

func newMirrorCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mirror",
		Short: "Mirror the expenses table into Google Sheets",
		Long: "Consumes expense events and rewrites the configured Google Sheets tab " +
			"after every change. A periodic full resync heals missed events.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, ctx, stop, err := opts.bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			if err := cfg.ValidateMirror(); err != nil {
				return err
			}

			mirror, err := google.New(ctx, google.Config{
				SpreadsheetID:   cfg.GoogleSpreadsheetID,
				SheetName:       cfg.GoogleSheetName,
				CredentialsJSON: cfg.GoogleServiceAccountJSON,
				CredentialsFile: cfg.GoogleServiceAccountFile,
			})
			if err != nil {
				return fmt.Errorf("google sheets: %w", err)
			}
			return runMirror(ctx, cfg, logger, mirror)
		},
	}
}

func runMirror(ctx context.Context, cfg *config.Config, logger *log.Logger, mirror sheets.Mirror) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}

	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	processor := services.NewSyncProcessor(res.Store, mirror, services.SyncProcessorConfig{
		Interval: cfg.MirrorInterval,
	})

	var consumer worker.EventConsumer
	if res.Events != nil {
		consumer = res.Events
	}

	logger.WithComponent(log.ComponentWorker).Info("Starting sheet mirror",
		log.FieldOperation, log.OpStartup,
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName,
		"interval", cfg.MirrorInterval.String())

	if err := worker.NewSyncWorker(consumer, processor).Run(ctx); err != nil {
		return fmt.Errorf("sheet mirror: %w", err)
	}
	logger.WithComponent(log.ComponentWorker).Info("Sheet mirror stopped")
	return nil
}
