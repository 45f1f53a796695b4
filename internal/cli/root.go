// Package cli implements the botdash command line: the dashboard server and
// one-shot commands that talk to the bot API directly.
package cli

import (
	"context"
	"fmt"

	clts "botdash/clients"
	"botdash/clients/botapi"
	"botdash/config"
	"botdash/internal/app"
	"botdash/internal/output"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
	outputFmt  string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "botdash",
		Short: "Botdash, admin dashboard for a Discord bot",
		Long: `Botdash serves a live admin dashboard for a Discord bot's REST API:
status, command usage, logs, configuration, guilds and reaction roles,
plus control actions and announcements. The same operations are available
as one-shot commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config overlay (default: $"+config.ConfigFileEnv+")")
	rootCmd.PersistentFlags().StringVarP(&opts.outputFmt, "output", "o", "text", "output format: text, json")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newStatusCmd(opts),
		newConfigCmd(opts),
		newGuildsCmd(opts),
		newLogsCmd(opts),
		newControlCmd(opts),
		newAnnounceCmd(opts),
		newRolesCmd(opts),
		newSimulateLogCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command with ctx and args and returns its error.
func Execute(ctx context.Context, args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// session is the state shared by the one-shot commands.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	clients *clts.Clients
	dash    *app.Dashboard
	out     output.Renderer
	sync    func()
}

func (o *rootOptions) open(cmd *cobra.Command) (*session, error) {
	out, err := output.New(o.outputFmt, cmd.OutOrStdout())
	if err != nil {
		return nil, err
	}
	cfg, err := config.Bootstrap(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, sync, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	clients := clts.NewClients(logger, cfg)
	return &session{
		cfg:     cfg,
		logger:  logger,
		clients: clients,
		dash:    app.NewDashboard(logger, clients.BotAPI, clients.Notifier, cfg, nil, nil),
		out:     out,
		sync:    sync,
	}, nil
}

func (s *session) Close() {
	s.dash.Close()
	_ = s.clients.Close()
	s.sync()
}

// result renders a successful action or returns the action's error.
func (s *session) result(label string, res *botapi.ActionResult, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %s", label, botapi.Message(err))
	}
	msg := ""
	if res != nil {
		msg = res.Text()
	}
	return s.out.Result(label, msg)
}
