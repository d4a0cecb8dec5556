package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"acmsync/internal/config"
	"acmsync/internal/logging"
	"acmsync/internal/server"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "acmd",
		Short:         "ACM checkout server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(configFlag)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger, nil)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and print the schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := bootstrap(configFlag)
			if err != nil {
				return err
			}
			store, err := server.Open(cfg)
			if err != nil {
				return fmt.Errorf("open checkout store: %w", err)
			}
			defer store.Close()
			version, err := store.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema at %s\n", store.Driver(), version)
			return nil
		},
	})

	return rootCmd
}

func bootstrap(configPath string) (*config.Config, *slog.Logger, error) {
	cfg, _, _, err := config.Load(strings.TrimSpace(configPath))
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.NewFromConfig(cfg, "acmd")
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// serve runs the daemon until ctx is cancelled. started, when non-nil,
// receives the listen address once the API is accepting connections.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, started chan<- string) error {
	store, err := server.Open(cfg)
	if err != nil {
		return fmt.Errorf("open checkout store: %w", err)
	}

	d, err := server.NewDaemon(cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	if started != nil {
		started <- d.Addr()
	}

	<-ctx.Done()
	logger.Info("acmd shutting down")
	return nil
}
