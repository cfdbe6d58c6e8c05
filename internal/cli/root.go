package cli

import (
	"context"

	"github.com/spf13/cobra"

	"expenses/internal/buildinfo"
	"expenses/internal/config"
	"expenses/internal/log"
)

type rootOptions struct {
	configPath string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "expenses",
		Short:   "Expense tracking JSON API",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"path to a YAML config file (default $"+config.ConfigFileEnv+")")

	rootCmd.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newMirrorCommand(opts),
	)

	return rootCmd
}

// bootstrap is the common prologue of every subcommand.
func (o *rootOptions) bootstrap(ctx context.Context) (*config.Config, *log.Logger, context.Context, context.CancelFunc, error) {
	cfg, err := LoadAndValidateConfig(o.configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	logger, err := SetupLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	ctx, stop := GracefulShutdown(ctx, logger)
	return cfg, logger, ctx, stop, nil
}
