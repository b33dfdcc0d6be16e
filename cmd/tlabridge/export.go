package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tlaplus/tlabridge/internal/export"
	"github.com/tlaplus/tlabridge/internal/host"
	"github.com/tlaplus/tlabridge/internal/projectconfig"
	"github.com/tlaplus/tlabridge/internal/toolchain"
)

type exportOptions struct {
	configPath string
	java       string
	tla2tools  string
	pdfCommand string
}

func newExportCommand() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a TLA+ module to LaTeX or PDF",
		Long: `Export a TLA+ module to LaTeX or PDF.

The tool locations come from ` + projectconfig.FileName + `, searched for upwards
from the module's directory, and can be overridden with flags. Tool output
is printed as it arrives.`,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the configuration file")
	cmd.PersistentFlags().StringVar(&opts.java, "java", "", "Java executable")
	cmd.PersistentFlags().StringVar(&opts.tla2tools, "tla2tools", "", "Path to tla2tools.jar")
	cmd.PersistentFlags().StringVar(&opts.pdfCommand, "pdf-command", "", "LaTeX to PDF converter")

	cmd.AddCommand(newExportFormatCommand(&opts, export.FormatTex, "tex", "Generate Module.tex and Module.dvi"))
	cmd.AddCommand(newExportFormatCommand(&opts, export.FormatPDF, "pdf", "Generate Module.pdf"))

	return cmd
}

func newExportFormatCommand(opts *exportOptions, format export.Format, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <module.tla>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			console := host.NewConsole(cmd.OutOrStdout(), cmd.ErrOrStderr())
			return runExport(cmd.Context(), *opts, format, path, console, slog.Default())
		},
	}
}

func runExport(ctx context.Context, opts exportOptions, format export.Format, path string, console *host.Console, logger *slog.Logger) error {
	cfg, err := loadProjectConfig(opts.configPath, filepath.Dir(path))
	if err != nil {
		return err
	}
	if opts.tla2tools != "" {
		if opts.tla2tools, err = filepath.Abs(opts.tla2tools); err != nil {
			return err
		}
	}
	store := projectconfig.NewStore(cfg, cfg.Path, logger)
	if err := store.ApplySettings(map[string]any{
		"tlaplus.java.path":          opts.java,
		"tlaplus.tla2tools.path":     opts.tla2tools,
		"tlaplus.pdf.convertCommand": opts.pdfCommand,
	}); err != nil {
		return err
	}

	events, err := openEventLog(cfg)
	if err != nil {
		return err
	}
	defer events.Close() //nolint:errcheck

	exporter := export.New(export.Options{
		Orchestrator: toolchain.New(toolchain.Options{
			Sinks:  toolchain.NewSinks(console.Sink),
			Events: events,
			Logger: logger,
		}),
		Notifier: console,
		Tools:    store.Tools,
		Logger:   logger,
	})

	doc := &export.Document{Path: path}
	var res export.Result
	if format == export.FormatPDF {
		res, err = exporter.ExportPdf(ctx, doc)
	} else {
		res, err = exporter.ExportTex(ctx, doc)
	}
	if err != nil {
		return err
	}
	if !res.OK() {
		return &ExportFailedError{Message: fmt.Sprintf("export to %s failed", format)}
	}
	return nil
}
