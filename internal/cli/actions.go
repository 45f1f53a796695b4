package cli

import (
	"fmt"
	"strings"

	"botdash/clients/botapi"
	"botdash/internal/app"

	"github.com/spf13/cobra"
)

func controlActionNames() string {
	names := make([]string, len(botapi.ControlActions))
	for i, a := range botapi.ControlActions {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

func newControlCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "control ACTION",
		Short:     "Send a control action to the bot (" + controlActionNames() + ")",
		Args:      cobra.ExactArgs(1),
		ValidArgs: strings.Split(controlActionNames(), ", "),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := botapi.ParseControlAction(args[0])
			if err != nil {
				return err
			}

			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.dash.Control.Dispatch(cmd.Context(), action)
			return s.result(action.Label(), res, err)
		},
	}
}

func newAnnounceCmd(opts *rootOptions) *cobra.Command {
	var channelID, message string

	cmd := &cobra.Command{
		Use:   "announce",
		Short: "Post an announcement to a channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" && len(args) > 0 {
				message = strings.Join(args, " ")
			}

			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.dash.Announcer.Send(cmd.Context(), channelID, message)
			return s.result("announcement", res, err)
		},
	}

	cmd.Flags().StringVar(&channelID, "channel", "", "target channel id")
	cmd.Flags().StringVarP(&message, "message", "m", "", "announcement text (or pass it as arguments)")
	_ = cmd.MarkFlagRequired("channel")
	return cmd
}

func newRolesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Manage reaction roles",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List reaction-role rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			s.dash.ReactionRoles.Refresh(cmd.Context())
			return s.out.ReactionRoles(s.dash.ReactionRoles.View())
		},
	}

	var form struct {
		guild, channel, message, emoji, role string
	}
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a reaction-role rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.dash.ReactionRoles.Add(cmd.Context(), app.ReactionRoleForm{
				GuildID:   form.guild,
				ChannelID: form.channel,
				MessageID: form.message,
				Emoji:     form.emoji,
				RoleID:    form.role,
			})
			return s.result("add reaction role", res, err)
		},
	}
	add.Flags().StringVar(&form.guild, "guild", "", "guild id")
	add.Flags().StringVar(&form.channel, "channel", "", "channel id")
	add.Flags().StringVar(&form.message, "message", "", "message id")
	add.Flags().StringVar(&form.emoji, "emoji", "", "reaction emoji")
	add.Flags().StringVar(&form.role, "role", "", "role id")

	var (
		removeMessage, removeEmoji string
		yes                        bool
	)
	remove := &cobra.Command{
		Use:   "remove",
		Short: "Remove a reaction-role rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to remove the rule for %s on message %s without --yes", removeEmoji, removeMessage)
			}

			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.dash.ReactionRoles.Remove(cmd.Context(), removeMessage, removeEmoji, yes)
			return s.result("remove reaction role", res, err)
		},
	}
	remove.Flags().StringVar(&removeMessage, "message", "", "message id")
	remove.Flags().StringVar(&removeEmoji, "emoji", "", "reaction emoji")
	remove.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the removal")

	cmd.AddCommand(list, add, remove)
	return cmd
}
