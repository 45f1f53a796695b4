package cli

import (
	"github.com/spf13/cobra"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var withStats bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show bot status and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			s.dash.Status.Refresh(ctx)
			if err := s.out.Status(s.dash.Status.View()); err != nil {
				return err
			}
			if !withStats {
				return nil
			}
			s.dash.Stats.Refresh(ctx)
			return s.out.Stats(s.dash.Stats.View())
		},
	}

	cmd.Flags().BoolVar(&withStats, "stats", false, "also show command usage")
	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the bot's configuration values",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			s.dash.Config.Refresh(cmd.Context())
			return s.out.Config(s.dash.Config.View())
		},
	}
}

func newGuildsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "guilds",
		Short: "List the guilds the bot is a member of",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			s.dash.Guilds.Refresh(cmd.Context())
			return s.out.Guilds(s.dash.Guilds.View())
		},
	}
}
