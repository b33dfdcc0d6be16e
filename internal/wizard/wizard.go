// Package wizard implements the interactive form behind `tlabridge init`.
package wizard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/tlaplus/tlabridge/internal/projectconfig"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Answers holds all fields collected during the interactive wizard.
type Answers struct {
	Java           string
	Tla2Tools      string
	Tla2TexOptions []string
	PDFCommand     string
}

// ErrConfigExists is returned by WriteConfig when the file is already there
// and overwriting was not requested.
var ErrConfigExists = errors.New("configuration file already exists")

const configHeader = "# tlabridge project configuration\n"

// RunInitWizard runs an interactive huh form to collect the tool locations.
// Fields are pre-populated from defaults.
func RunInitWizard(in io.Reader, out io.Writer, defaults Answers) (*Answers, error) {
	var (
		java       = defaults.Java
		tla2tools  = defaults.Tla2Tools
		optionsRaw = strings.Join(defaults.Tla2TexOptions, " ")
		pdfCommand = defaults.PDFCommand
	)
	if java == "" {
		java = projectconfig.DefaultJava
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Java executable").
				Description("Command or path used to run the TLA+ tools").
				Placeholder(projectconfig.DefaultJava).
				Value(&java),
			huh.NewInput().
				Title("tla2tools.jar").
				Description("Path to tla2tools.jar, relative to the project directory").
				Placeholder("tools/tla2tools.jar").
				Value(&tla2tools).
				Validate(validateJar),
			huh.NewInput().
				Title("tla2tex options").
				Description("Extra flags passed to tla2tex.TLA, space-separated").
				Placeholder("-shade -number").
				Value(&optionsRaw),
			huh.NewInput().
				Title("PDF command").
				Description("LaTeX to PDF converter; leave empty to disable PDF export").
				Placeholder("pdflatex").
				Value(&pdfCommand),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	java = strings.TrimSpace(java)
	if java == "" {
		java = projectconfig.DefaultJava
	}
	return &Answers{
		Java:           java,
		Tla2Tools:      strings.TrimSpace(tla2tools),
		Tla2TexOptions: strings.Fields(optionsRaw),
		PDFCommand:     strings.TrimSpace(pdfCommand),
	}, nil
}

func validateJar(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("tla2tools.jar location is required")
	}
	if !strings.EqualFold(filepath.Ext(s), ".jar") {
		return fmt.Errorf("%s is not a .jar file", s)
	}
	return nil
}

// Config converts the answers into a project configuration. Defaults that
// the user did not change are left out so the file stays minimal.
func (a *Answers) Config() *projectconfig.ProjectConfig {
	cfg := &projectconfig.ProjectConfig{}
	if a.Java != "" && a.Java != projectconfig.DefaultJava {
		cfg.Tools.Java = a.Java
	}
	cfg.Tools.Tla2Tools = a.Tla2Tools
	cfg.Tools.Tla2TexOptions = a.Tla2TexOptions
	cfg.PDF.ConvertCommand = a.PDFCommand
	return cfg
}

// GenerateConfigYAML renders cfg as the contents of .tlabridge.yaml.
func GenerateConfigYAML(cfg *projectconfig.ProjectConfig) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to render configuration: %w", err)
	}
	if errs := projectconfig.Validate(data); len(errs) > 0 {
		return nil, &projectconfig.ValidationError{Problems: errs}
	}
	return append([]byte(configHeader), data...), nil
}

// WriteConfig writes cfg to .tlabridge.yaml in dir and returns the file's
// path. An existing file is only replaced when overwrite is set.
func WriteConfig(dir string, cfg *projectconfig.ProjectConfig, overwrite bool) (string, error) {
	path := filepath.Join(dir, projectconfig.FileName)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("%s: %w", path, ErrConfigExists)
		}
	}

	data, err := GenerateConfigYAML(cfg)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
