package cli

import (
	"fmt"

	clts "botdash/clients"
	"botdash/config"
	"botdash/internal/app"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		listenAddr string
		initialTab string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the live dashboard server",
		Long: `Start the pollers and serve the dashboard page, its JSON API and the
websocket state feed until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Bootstrap(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if listenAddr != "" {
				cfg.Dashboard.ListenAddr = listenAddr
				cfg.Dashboard.Enabled = true
			}
			if initialTab != "" {
				cfg.Dashboard.InitialTab = initialTab
			}

			logger, sync, err := NewLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer sync()

			logger.Info("starting botdash",
				zap.String("commit", app.BuildCommit),
				zap.String("listen", cfg.Dashboard.ListenAddr),
			)

			liveConfig := config.NewLiveConfig(cfg)
			liveConfig.AddObserver(config.ObserverFunc(func(c *config.Config) {
				logger.Info("settings applied",
					zap.Uint64("revision", liveConfig.Revision()),
					zap.String("initialTab", c.Dashboard.InitialTab),
				)
			}))

			logger.Info("instantiating clients")
			clients := clts.NewClients(logger, cfg)
			defer clients.Close()

			runner := app.NewRunner(clients, liveConfig)
			if err := runner.Run(cmd.Context()); err != nil {
				return fmt.Errorf("runner failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "dashboard listen address (overrides config)")
	cmd.Flags().StringVar(&initialTab, "tab", "", "tab whose pollers start first: dashboard, logs, config, guilds, reaction_roles, all")
	return cmd
}
