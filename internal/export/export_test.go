package export

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tlaplus/tlabridge/internal/process"
	"github.com/tlaplus/tlabridge/internal/toolchain"
	"go.uber.org/mock/gomock"
)

type note struct {
	level string
	msg   string
}

type recordingNotifier struct {
	notes []note
}

func (n *recordingNotifier) Info(msg string)  { n.notes = append(n.notes, note{"info", msg}) }
func (n *recordingNotifier) Warn(msg string)  { n.notes = append(n.notes, note{"warn", msg}) }
func (n *recordingNotifier) Error(msg string) { n.notes = append(n.notes, note{"error", msg}) }

type countingSink struct {
	mu      sync.Mutex
	reveals int
}

func (s *countingSink) Bind(string)   {}
func (s *countingSink) Append(string) {}
func (s *countingSink) Reveal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reveals++
}

const fakeTla2Tex = `for last; do :; done
base="${last%.tla}"
touch "$base.tex" "$base.dvi" "$base.log" "$base.aux"
echo "$@" > tex-args.txt
exit ${FAKE_TEX_STATUS:-0}
`

const fakeConverter = `for last; do :; done
base="${last%.tex}"
[ -f "$last" ] || exit 9
touch "$base.pdf" "$base.log" "$base.aux"
echo "$@" > pdf-args.txt
exit ${FAKE_PDF_STATUS:-0}
`

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

type fixture struct {
	dir      string
	module   string
	tools    Tools
	notifier *recordingNotifier
	sinks    map[string]*countingSink
	exporter *Exporter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	bin := t.TempDir()
	module := filepath.Join(dir, "Spec.tla")
	require.NoError(t, os.WriteFile(module, []byte("---- MODULE Spec ----\n====\n"), 0644))

	f := &fixture{
		dir:    dir,
		module: module,
		tools: Tools{
			Java:       writeScript(t, bin, "java", fakeTla2Tex),
			Tla2Tools:  "/opt/tla2tools.jar",
			PDFCommand: writeScript(t, bin, "pdflatex", fakeConverter),
		},
		notifier: &recordingNotifier{},
		sinks:    make(map[string]*countingSink),
	}
	sinks := toolchain.NewSinks(func(kind string) process.Sink {
		s := &countingSink{}
		f.sinks[kind] = s
		return s
	})
	f.exporter = New(Options{
		Orchestrator: toolchain.New(toolchain.Options{Sinks: sinks}),
		Notifier:     f.notifier,
		Tools:        func() Tools { return f.tools },
	})
	return f
}

func (f *fixture) doc() *Document {
	return &Document{Path: f.module, LanguageID: LanguageID}
}

func (f *fixture) path(ext string) string {
	return toolchain.ReplaceExtension(f.module, ext)
}

func TestExportTex_Success(t *testing.T) {
	f := newFixture(t)

	res, err := f.exporter.ExportTex(context.Background(), f.doc())
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.Equal(t, []note{{"info", "Spec.tex and Spec.dvi generated."}}, f.notifier.notes)
	assert.FileExists(t, f.path(".tex"))
	assert.FileExists(t, f.path(".dvi"))
	assert.NoFileExists(t, f.path(".log"))
	assert.NoFileExists(t, f.path(".aux"))
	assert.NoFileExists(t, f.path(".pdf"))

	args, err := os.ReadFile(filepath.Join(f.dir, "tex-args.txt"))
	require.NoError(t, err)
	assert.Equal(t, "-cp /opt/tla2tools.jar tla2tex.TLA Spec.tla\n", string(args))
}

func TestExportTex_PassesOptions(t *testing.T) {
	f := newFixture(t)
	f.tools.Tla2TexOptions = []string{"-shade", "-ptSize", "12"}

	res, err := f.exporter.ExportTex(context.Background(), f.doc())
	require.NoError(t, err)
	require.True(t, res.OK())

	args, err := os.ReadFile(filepath.Join(f.dir, "tex-args.txt"))
	require.NoError(t, err)
	assert.Equal(t, "-cp /opt/tla2tools.jar tla2tex.TLA -shade -ptSize 12 Spec.tla\n", string(args))
}

func TestExportTex_Failure(t *testing.T) {
	f := newFixture(t)
	f.tools.Env = []string{"FAKE_TEX_STATUS=1"}

	res, err := f.exporter.ExportTex(context.Background(), f.doc())
	require.NoError(t, err)

	assert.False(t, res.OK())
	assert.False(t, res.Rejected())
	assert.Equal(t, 1, res.Outcome.ExitStatus)
	assert.Equal(t, []note{{"error", "Error generating LaTeX: exit code 1"}}, f.notifier.notes)
	assert.Equal(t, 1, f.sinks[SinkTex].reveals)
	assert.NoFileExists(t, f.path(".log"))
	assert.NoFileExists(t, f.path(".aux"))
}

func TestExportPdf_Success(t *testing.T) {
	f := newFixture(t)

	res, err := f.exporter.ExportPdf(context.Background(), f.doc())
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.Equal(t, []note{{"info", "Spec.pdf generated."}}, f.notifier.notes)
	assert.FileExists(t, f.path(".pdf"))
	assert.NoFileExists(t, f.path(".log"))
	assert.NoFileExists(t, f.path(".aux"))
	require.Len(t, res.Outcome.Steps, 2)

	args, err := os.ReadFile(filepath.Join(f.dir, "pdf-args.txt"))
	require.NoError(t, err)
	assert.Equal(t, "-interaction nonstopmode Spec.tex\n", string(args))
}

func TestExportPdf_OtherConverterGetsNoFlags(t *testing.T) {
	f := newFixture(t)
	f.tools.PDFCommand = writeScript(t, t.TempDir(), "xelatex", fakeConverter)

	res, err := f.exporter.ExportPdf(context.Background(), f.doc())
	require.NoError(t, err)
	require.True(t, res.OK())

	args, err := os.ReadFile(filepath.Join(f.dir, "pdf-args.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Spec.tex\n", string(args))
}

func TestExportPdf_TexFailureSkipsConversion(t *testing.T) {
	f := newFixture(t)
	f.tools.Env = []string{"FAKE_TEX_STATUS=1"}

	res, err := f.exporter.ExportPdf(context.Background(), f.doc())
	require.NoError(t, err)

	assert.False(t, res.OK())
	assert.Equal(t, 0, res.Outcome.FailedStep)
	assert.Len(t, res.Outcome.Steps, 1)
	assert.NoFileExists(t, f.path(".pdf"))
	assert.NoFileExists(t, filepath.Join(f.dir, "pdf-args.txt"))
	assert.Equal(t, []note{{"error", "Error generating LaTeX: exit code 1"}}, f.notifier.notes)
	assert.NotContains(t, f.sinks, SinkPDF)
}

func TestExportPdf_ConversionFailure(t *testing.T) {
	f := newFixture(t)
	f.tools.Env = []string{"FAKE_PDF_STATUS=2"}

	res, err := f.exporter.ExportPdf(context.Background(), f.doc())
	require.NoError(t, err)

	assert.False(t, res.OK())
	assert.Equal(t, 1, res.Outcome.FailedStep)
	assert.Equal(t, []note{{"error", "Error generating PDF: exit code 2"}}, f.notifier.notes)
	assert.Equal(t, 1, f.sinks[SinkPDF].reveals)
	assert.Zero(t, f.sinks[SinkTex].reveals)
	assert.NoFileExists(t, f.path(".log"))
	assert.NoFileExists(t, f.path(".aux"))
}

func TestExportPdf_MissingConverter(t *testing.T) {
	f := newFixture(t)
	f.tools.PDFCommand = "/nonexistent/pdflatex"

	res, err := f.exporter.ExportPdf(context.Background(), f.doc())
	require.NoError(t, err)

	assert.False(t, res.OK())
	assert.Equal(t, process.StatusStartFailed, res.Outcome.ExitStatus)
	assert.Equal(t, []note{{"error", "Error generating PDF: exit code -2"}}, f.notifier.notes)
}

func TestExport_RejectedBeforeSpawn(t *testing.T) {
	tests := []struct {
		name   string
		pdf    bool
		doc    *Document
		tools  Tools
		expect string
	}{
		{
			name:   "no document",
			expect: "No editor is active, cannot export a TLA+ module to LaTeX.",
			tools:  Tools{Tla2Tools: "t.jar"},
		},
		{
			name:   "no document pdf",
			pdf:    true,
			expect: "No editor is active, cannot export a TLA+ module to PDF.",
			tools:  Tools{Tla2Tools: "t.jar", PDFCommand: "pdflatex"},
		},
		{
			name:   "not a TLA+ document",
			doc:    &Document{Path: "/m/notes.md", LanguageID: "markdown"},
			tools:  Tools{Tla2Tools: "t.jar"},
			expect: "File in the active editor is not a TLA+ file, it cannot be exported to LaTeX.",
		},
		{
			name:   "tla2tools missing",
			doc:    &Document{Path: "/m/Spec.tla", LanguageID: LanguageID},
			expect: "tla2tools.jar location not specified. Check the extension settings.",
		},
		{
			name:   "pdf command empty",
			pdf:    true,
			doc:    &Document{Path: "/m/Spec.tla", LanguageID: LanguageID},
			tools:  Tools{Tla2Tools: "t.jar", PDFCommand: "   "},
			expect: "PDF generation command not specified. Check the extension settings.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			spawner := process.NewMockSpawner(ctrl)
			notifier := &recordingNotifier{}
			e := New(Options{
				Orchestrator: toolchain.New(toolchain.Options{Spawner: spawner}),
				Notifier:     notifier,
				Tools:        func() Tools { return tt.tools },
			})

			var res Result
			var err error
			if tt.pdf {
				res, err = e.ExportPdf(context.Background(), tt.doc)
			} else {
				res, err = e.ExportTex(context.Background(), tt.doc)
			}

			require.NoError(t, err)
			assert.True(t, res.Rejected())
			assert.False(t, res.OK())
			assert.Equal(t, tt.expect, res.Rejection)
			assert.Equal(t, []note{{"warn", tt.expect}}, notifier.notes)
		})
	}
}

func TestDocument_IsTLA(t *testing.T) {
	tests := []struct {
		doc  Document
		want bool
	}{
		{Document{Path: "/m/Spec.tla", LanguageID: "tlaplus"}, true},
		{Document{Path: "/m/Spec.txt", LanguageID: "tlaplus"}, true},
		{Document{Path: "/m/Spec.tla", LanguageID: "plaintext"}, false},
		{Document{Path: "/m/Spec.tla"}, true},
		{Document{Path: "/m/Spec.TLA"}, true},
		{Document{Path: "/m/MC.cfg"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.doc.Path+"/"+tt.doc.LanguageID, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.doc.IsTLA())
		})
	}
}

func TestExporter_Check(t *testing.T) {
	tools := Tools{Tla2Tools: "t.jar"}
	e := New(Options{Tools: func() Tools { return tools }})
	doc := &Document{Path: "/m/Spec.tla"}

	assert.Empty(t, e.Check(FormatTex, doc))
	assert.Equal(t, "PDF generation command not specified. Check the extension settings.", e.Check(FormatPDF, doc))
	assert.Equal(t, "No editor is active, cannot export a TLA+ module to LaTeX.", e.Check(FormatTex, nil))

	tools.PDFCommand = "pdflatex"
	assert.Empty(t, e.Check(FormatPDF, doc))
}
