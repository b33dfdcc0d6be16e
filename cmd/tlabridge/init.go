package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tlaplus/tlabridge/internal/projectconfig"
	"github.com/tlaplus/tlabridge/internal/wizard"
)

func newInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a " + projectconfig.FileName + " interactively",
		Long: `Create a ` + projectconfig.FileName + ` configuration file.

Asks for the Java executable, the location of tla2tools.jar, tla2tex options
and the PDF converter. An existing file is left alone unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return err
			}

			answers, err := wizard.RunInitWizard(cmd.InOrStdin(), cmd.OutOrStdout(), wizard.Answers{})
			if err != nil {
				return err
			}

			path, err := wizard.WriteConfig(absDir, answers.Config(), force)
			if errors.Is(err, wizard.ErrConfigExists) {
				return fmt.Errorf("%s already exists, use --force to replace it", path)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Created %s\n", path)
			if answers.PDFCommand == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "  PDF export is disabled until pdf.convert_command is set.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing configuration file")

	return cmd
}
