// Package projectconfig provides the ProjectConfig struct and loader for
// .tlabridge.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the project configuration file.
const FileName = ".tlabridge.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultJava       = "java"
	DefaultViewTitle  = "TLA+ model checking"
	DefaultSessionDir = ".tlabridge/sessions"
)

// maxSearchDepth bounds the upward search for the configuration file.
const maxSearchDepth = 10

// ToolsConfig holds the location of the TLA+ tools.
type ToolsConfig struct {
	Java           string   `yaml:"java,omitempty"`
	Tla2Tools      string   `yaml:"tla2tools,omitempty"`
	Tla2TexOptions []string `yaml:"tla2tex_options,omitempty"`
	EnvFile        string   `yaml:"env_file,omitempty"`
}

// PDFConfig holds the LaTeX to PDF converter settings.
type PDFConfig struct {
	ConvertCommand string `yaml:"convert_command,omitempty"`
}

// ViewConfig holds result panel settings.
type ViewConfig struct {
	Title string `yaml:"title,omitempty"`
}

// SessionConfig holds tool run logging settings.
type SessionConfig struct {
	Log *bool  `yaml:"log,omitempty"`
	Dir string `yaml:"dir,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .tlabridge.yaml.
type ProjectConfig struct {
	Tools   ToolsConfig   `yaml:"tools,omitempty"`
	PDF     PDFConfig     `yaml:"pdf,omitempty"`
	View    ViewConfig    `yaml:"view,omitempty"`
	Session SessionConfig `yaml:"session,omitempty"`

	// Path is the file the configuration was read from, or empty when only
	// defaults apply.
	Path string `yaml:"-"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Tools: ToolsConfig{
			Java: DefaultJava,
		},
		View: ViewConfig{
			Title: DefaultViewTitle,
		},
		Session: SessionConfig{
			Log: boolPtr(false),
			Dir: DefaultSessionDir,
		},
	}
}

// Clone returns a deep copy of c.
func (c *ProjectConfig) Clone() *ProjectConfig {
	out := *c
	out.Tools.Tla2TexOptions = slices.Clone(c.Tools.Tla2TexOptions)
	if c.Session.Log != nil {
		out.Session.Log = boolPtr(*c.Session.Log)
	}
	return &out
}

// SessionLogEnabled reports whether tool runs are logged.
func (c *ProjectConfig) SessionLogEnabled() bool {
	return c.Session.Log != nil && *c.Session.Log
}

// BaseDir is the directory relative paths in the configuration resolve
// against.
func (c *ProjectConfig) BaseDir() string {
	if c.Path == "" {
		return "."
	}
	return filepath.Dir(c.Path)
}

// Resolve makes path absolute relative to BaseDir. Empty paths stay empty.
func (c *ProjectConfig) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.BaseDir(), path)
}

// Load finds .tlabridge.yaml by walking up from startDir (max 10 levels),
// validates and unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	path, err := Find(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}
	return LoadFile(path)
}

// LoadFile reads the configuration at path.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse validates data against the configuration schema and merges it onto
// the defaults.
func Parse(data []byte) (*ProjectConfig, error) {
	if errs := Validate(data); len(errs) > 0 {
		return nil, &ValidationError{Problems: errs}
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}

	cfg := New()
	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// Find walks up from dir looking for .tlabridge.yaml (max 10 levels) and
// returns its path. Returns os.ErrNotExist if no config file is found.
func Find(dir string) (string, error) {
	// Convert to absolute path so filepath.Dir(".") walks correctly.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < maxSearchDepth; i++ {
		p := filepath.Join(dir, FileName)
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Tools
	if src.Tools.Java != "" {
		dst.Tools.Java = src.Tools.Java
	}
	if src.Tools.Tla2Tools != "" {
		dst.Tools.Tla2Tools = src.Tools.Tla2Tools
	}
	if src.Tools.Tla2TexOptions != nil {
		dst.Tools.Tla2TexOptions = slices.Clone(src.Tools.Tla2TexOptions)
	}
	if src.Tools.EnvFile != "" {
		dst.Tools.EnvFile = src.Tools.EnvFile
	}

	// PDF
	if src.PDF.ConvertCommand != "" {
		dst.PDF.ConvertCommand = src.PDF.ConvertCommand
	}

	// View
	if src.View.Title != "" {
		dst.View.Title = src.View.Title
	}

	// Session
	if src.Session.Log != nil {
		dst.Session.Log = boolPtr(*src.Session.Log)
	}
	if src.Session.Dir != "" {
		dst.Session.Dir = src.Session.Dir
	}
}

func boolPtr(b bool) *bool {
	return &b
}
