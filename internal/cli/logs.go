package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"botdash/internal/logs"

	"github.com/spf13/cobra"
)

func newLogsCmd(opts *rootOptions) *cobra.Command {
	var (
		level    string
		text     string
		follow   bool
		interval time.Duration
		download string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the bot's recent logs",
		Long: `Fetch the bot's logs, filter them by level and text, and print them.
With --follow the logs are polled until interrupted and only new lines are
printed. With --download the unfiltered held entries are written to a file.`,
		Example: `  botdash logs --level ERROR
  botdash logs -f --filter music
  botdash logs --download .`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			viewer := s.dash.Logs
			viewer.SetFilter(logs.Filter{Level: level, Text: text})
			viewer.Refresh(ctx)

			if download != "" {
				name, content := viewer.Download()
				path := download
				if info, err := os.Stat(download); err == nil && info.IsDir() {
					path = filepath.Join(download, name)
				}
				if err := os.WriteFile(path, content, 0o644); err != nil {
					return fmt.Errorf("write logs: %w", err)
				}
				return s.out.Result("download", path)
			}

			printed := make(map[logs.Entry]struct{})
			lastErr := ""
			emit := func() error {
				view := viewer.View()
				if view.Error != "" && view.Error != lastErr {
					fmt.Fprintln(cmd.ErrOrStderr(), view.Error)
				}
				lastErr = view.Error
				for _, line := range view.Lines {
					if _, seen := printed[line.Entry]; seen {
						continue
					}
					printed[line.Entry] = struct{}{}
					if err := s.out.Log(line.Entry); err != nil {
						return err
					}
				}
				return nil
			}

			if err := emit(); err != nil {
				return err
			}
			if !follow {
				return nil
			}

			if interval <= 0 {
				interval = s.cfg.Poll.Logs
			}
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					viewer.Refresh(ctx)
					if err := emit(); err != nil {
						return err
					}
				}
			}
		},
	}

	cmd.Flags().StringVarP(&level, "level", "l", logs.LevelAll, "show only this level (INFO, WARN, ERROR, ...) or all")
	cmd.Flags().StringVar(&text, "filter", "", "case-insensitive text filter")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep polling and print new lines")
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval with --follow (default: poll.logs)")
	cmd.Flags().StringVar(&download, "download", "", "write held entries to this file or directory")
	return cmd
}

func newSimulateLogCmd(opts *rootOptions) *cobra.Command {
	var level string

	cmd := &cobra.Command{
		Use:   "simulate-log MESSAGE",
		Short: "Ask the bot to emit a test log line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.dash.Logs.SimulateLog(cmd.Context(), level, args[0])
			return s.result("simulate-log", res, err)
		},
	}

	cmd.Flags().StringVarP(&level, "level", "l", logs.LevelInfo, "level of the simulated line")
	return cmd
}
