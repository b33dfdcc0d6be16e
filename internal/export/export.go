// Package export turns a TLA+ module into a LaTeX document with tla2tex and,
// optionally, into a PDF with a user-configured converter.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/tlaplus/tlabridge/internal/process"
	"github.com/tlaplus/tlabridge/internal/toolchain"
)

// LanguageID is the editor language identifier of TLA+ documents.
const LanguageID = "tlaplus"

// Sink kinds, shown to the user as output channel names.
const (
	SinkTex = "TLA+ to LaTeX"
	SinkPDF = "LaTeX to PDF"
)

// Format is a target document format.
type Format string

const (
	FormatTex Format = "LaTeX"
	FormatPDF Format = "PDF"
)

// Document is the document the user asked to export.
type Document struct {
	Path       string `json:"path"`
	LanguageID string `json:"languageId,omitempty"`
}

// IsTLA reports whether d is a TLA+ module. Documents without a language
// identifier are judged by their file extension.
func (d Document) IsTLA() bool {
	if d.LanguageID != "" {
		return d.LanguageID == LanguageID
	}
	return strings.EqualFold(filepath.Ext(d.Path), ".tla")
}

// Notifier shows non-blocking messages to the user.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// Tools is the tool configuration an export runs with.
type Tools struct {
	Java           string
	Tla2Tools      string
	Tla2TexOptions []string
	PDFCommand     string

	// Env is added to the environment of every tool.
	Env []string
}

// Result is the result of one export request.
type Result struct {
	Format Format

	// Rejection is the warning shown when the request was refused before
	// any tool was started.
	Rejection string

	Outcome toolchain.Outcome

	// Message is the final notification shown to the user.
	Message string
}

// Rejected reports whether the request was refused before running tools.
func (r Result) Rejected() bool {
	return r.Rejection != ""
}

// OK reports whether the export produced its document.
func (r Result) OK() bool {
	return !r.Rejected() && r.Outcome.Success
}

// Options configures an Exporter.
type Options struct {
	Orchestrator *toolchain.Orchestrator
	Notifier     Notifier

	// Tools returns the current tool configuration. It is called once per
	// request.
	Tools  func() Tools
	Logger *slog.Logger
}

// Exporter runs export requests.
type Exporter struct {
	orch     *toolchain.Orchestrator
	notifier Notifier
	tools    func() Tools
	logger   *slog.Logger
}

// New creates an Exporter.
func New(opts Options) *Exporter {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Orchestrator == nil {
		opts.Orchestrator = toolchain.New(toolchain.Options{Logger: opts.Logger})
	}
	if opts.Tools == nil {
		opts.Tools = func() Tools { return Tools{} }
	}
	return &Exporter{
		orch:     opts.Orchestrator,
		notifier: opts.Notifier,
		tools:    opts.Tools,
		logger:   opts.Logger,
	}
}

// ExportTex generates Module.tex and Module.dvi next to the module. A nil
// doc means no document is open. Tool failures are reported through the
// Notifier and the returned Result; the error is only set when ctx was
// cancelled.
func (e *Exporter) ExportTex(ctx context.Context, doc *Document) (Result, error) {
	res := Result{Format: FormatTex}
	tools := e.tools()
	if !e.accept(&res, doc, tools) {
		return res, nil
	}

	return e.run(ctx, res, []toolchain.Step{texStep(doc.Path, tools)}, func() string {
		name := filepath.Base(doc.Path)
		return fmt.Sprintf("%s and %s generated.",
			toolchain.ReplaceExtension(name, ".tex"), toolchain.ReplaceExtension(name, ".dvi"))
	})
}

// ExportPdf generates Module.tex and then converts it to Module.pdf. The
// conversion runs only if the LaTeX step succeeded.
func (e *Exporter) ExportPdf(ctx context.Context, doc *Document) (Result, error) {
	res := Result{Format: FormatPDF}
	tools := e.tools()
	if !e.accept(&res, doc, tools) {
		return res, nil
	}
	pdfCommand := strings.TrimSpace(tools.PDFCommand)
	if pdfCommand == "" {
		e.reject(&res, pdfCommandMissing)
		return res, nil
	}

	steps := []toolchain.Step{
		texStep(doc.Path, tools),
		pdfStep(doc.Path, pdfCommand, tools.Env),
	}
	return e.run(ctx, res, steps, func() string {
		return fmt.Sprintf("%s generated.", toolchain.ReplaceExtension(filepath.Base(doc.Path), ".pdf"))
	})
}

// Check returns the warning a request for format would be refused with, or
// "" if it would run. It shows nothing to the user.
func (e *Exporter) Check(format Format, doc *Document) string {
	tools := e.tools()
	if msg := rejection(format, doc, tools); msg != "" {
		return msg
	}
	if format == FormatPDF && strings.TrimSpace(tools.PDFCommand) == "" {
		return pdfCommandMissing
	}
	return ""
}

const pdfCommandMissing = "PDF generation command not specified. Check the extension settings."

func rejection(format Format, doc *Document, tools Tools) string {
	switch {
	case doc == nil || doc.Path == "":
		return fmt.Sprintf("No editor is active, cannot export a TLA+ module to %s.", format)
	case !doc.IsTLA():
		return fmt.Sprintf("File in the active editor is not a TLA+ file, it cannot be exported to %s.", format)
	case strings.TrimSpace(tools.Tla2Tools) == "":
		return "tla2tools.jar location not specified. Check the extension settings."
	}
	return ""
}

func (e *Exporter) accept(res *Result, doc *Document, tools Tools) bool {
	if msg := rejection(res.Format, doc, tools); msg != "" {
		e.reject(res, msg)
		return false
	}
	return true
}

func (e *Exporter) reject(res *Result, msg string) {
	res.Rejection = msg
	res.Outcome = toolchain.Outcome{FailedStep: -1}
	res.Message = msg
	e.logger.Debug("export rejected", "format", res.Format, "reason", msg)
	if e.notifier != nil {
		e.notifier.Warn(msg)
	}
}

func (e *Exporter) run(ctx context.Context, res Result, steps []toolchain.Step, success func() string) (Result, error) {
	outcome, err := e.orch.RunPipeline(ctx, steps)
	res.Outcome = outcome
	if err != nil {
		return res, fmt.Errorf("exporting to %s: %w", res.Format, err)
	}

	if outcome.Success {
		res.Message = success()
		e.notify(Notifier.Info, res.Message)
		return res, nil
	}

	what := "LaTeX"
	if steps[outcome.FailedStep].Sink == SinkPDF {
		what = "PDF"
	}
	res.Message = fmt.Sprintf("Error generating %s: exit code %d", what, outcome.ExitStatus)
	e.notify(Notifier.Error, res.Message)
	return res, nil
}

func (e *Exporter) notify(show func(Notifier, string), msg string) {
	if e.notifier != nil {
		show(e.notifier, msg)
	}
}

func texStep(tlaPath string, tools Tools) toolchain.Step {
	java := strings.TrimSpace(tools.Java)
	if java == "" {
		java = "java"
	}
	args := []string{"-cp", tools.Tla2Tools, "tla2tex.TLA"}
	args = append(args, tools.Tla2TexOptions...)
	args = append(args, filepath.Base(tlaPath))

	return toolchain.Step{
		Name:    "tla2tex",
		Spec:    process.NewSpec(java, args, filepath.Dir(tlaPath), tools.Env),
		Sink:    SinkTex,
		Cleanup: tempFiles(tlaPath),
	}
}

func pdfStep(tlaPath, command string, env []string) toolchain.Step {
	var args []string
	if strings.HasSuffix(command, "pdflatex") || strings.HasSuffix(command, "pdflatex.exe") {
		args = append(args, "-interaction", "nonstopmode")
	}
	args = append(args, toolchain.ReplaceExtension(filepath.Base(tlaPath), ".tex"))

	return toolchain.Step{
		Name:    "pdf",
		Spec:    process.NewSpec(command, args, filepath.Dir(tlaPath), env),
		Sink:    SinkPDF,
		Cleanup: tempFiles(tlaPath),
	}
}

func tempFiles(tlaPath string) []string {
	return []string{
		toolchain.ReplaceExtension(tlaPath, ".log"),
		toolchain.ReplaceExtension(tlaPath, ".aux"),
	}
}
