package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tlaplus/tlabridge/internal/projectconfig"
	"github.com/tlaplus/tlabridge/internal/session"
	"gopkg.in/yaml.v3"
)

// loadProjectConfig reads the configuration file at path, or searches for
// one upwards from dir when path is empty.
func loadProjectConfig(path, dir string) (*projectconfig.ProjectConfig, error) {
	if path != "" {
		return projectconfig.LoadFile(path)
	}
	return projectconfig.Load(dir)
}

// openEventLog returns the session event log for one serve session or
// export, or a no-op logger when logging is off.
func openEventLog(cfg *projectconfig.ProjectConfig) (session.Logger, error) {
	if !cfg.SessionLogEnabled() {
		return session.NopLogger{}, nil
	}
	logger, err := session.NewJSONLogger(session.DefaultLogPath(cfg.Resolve(cfg.Session.Dir)))
	if err != nil {
		return nil, err
	}
	return logger, nil
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the project configuration",
	}

	cmd.AddCommand(newConfigValidateCommand())
	cmd.AddCommand(newConfigShowCommand())

	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a " + projectconfig.FileName + " file",
		Long: `Validate a configuration file against the configuration schema.

Without an argument the file is searched for upwards from the current
directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				path, err = projectconfig.Find(wd)
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("no %s found in %s or its parents", projectconfig.FileName, wd)
				}
				if err != nil {
					return err
				}
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			if problems := projectconfig.Validate(data); len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintf(cmd.OutOrStdout(), "  ✗ %s\n", p)
				}
				return fmt.Errorf("%s: %d problem(s) found", path, len(problems))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid\n", path)
			return nil
		},
	}
}

func newConfigShowCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the configuration in effect, defaults included",
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			cfg, err := projectconfig.Load(absDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cfg.Path != "" {
				fmt.Fprintf(out, "# %s\n", cfg.Path)
			} else {
				fmt.Fprintln(out, "# defaults (no configuration file found)")
			}
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encoding configuration: %w", err)
			}
			return enc.Close()
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to start the configuration search from")

	return cmd
}
