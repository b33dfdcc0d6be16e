package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/tlaplus/tlabridge/internal/projectconfig"
	"github.com/tlaplus/tlabridge/internal/session"
)

func newSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "View and manage session logs",
		Long: `View and manage session event logs.

Session logs are NDJSON files written by serve and export when session.log is
enabled in ` + projectconfig.FileName + `. They record every pipeline: the steps
that ran, their command lines, exit statuses and cleanup.`,
	}

	cmd.AddCommand(newSessionListCommand())
	cmd.AddCommand(newSessionViewCommand())

	return cmd
}

func newSessionListCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded session logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				cfg, err := projectconfig.Load(".")
				if err != nil {
					return err
				}
				dir = cfg.Resolve(cfg.Session.Dir)
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return err
			}

			files, err := session.ListSessions(absDir)
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintln(out, "No session logs found.")
				return nil
			}

			width := runewidth.StringWidth("File")
			for _, f := range files {
				width = max(width, runewidth.StringWidth(f.Name))
			}
			fmt.Fprintf(out, "%s  %-8s %s\n", runewidth.FillRight("File", width), "Events", "Modified")
			fmt.Fprintln(out, strings.Repeat("─", width+29))
			for _, f := range files {
				fmt.Fprintf(out, "%s  %-8d %s\n",
					runewidth.FillRight(f.Name, width), f.NumEvents, f.ModTime.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory to search for session logs (default: session.dir from the configuration)")

	return cmd
}

func newSessionViewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <session-file>",
		Short: "View a session timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := session.ReadEvents(args[0])
			if err != nil {
				return fmt.Errorf("reading session: %w", err)
			}

			session.RenderTimeline(cmd.OutOrStdout(), events)
			return nil
		},
	}

	return cmd
}
