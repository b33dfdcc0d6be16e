package projectconfig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tlaplus/tlabridge/internal/export"
)

// reloadDelay lets editors finish writing the file before it is re-read.
const reloadDelay = 100 * time.Millisecond

// Store holds the configuration in effect: the file's values with the
// editor settings on top. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	path     string
	file     *ProjectConfig
	settings Settings
	logger   *slog.Logger
}

// NewStore creates a store around cfg. path is the configuration file to
// reload from and watch; when cfg came from a file it should be cfg.Path.
func NewStore(cfg *ProjectConfig, path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = New()
	}
	return &Store{path: path, file: cfg.Clone(), logger: logger}
}

// Path returns the configuration file the store follows.
func (s *Store) Path() string {
	return s.path
}

// Config returns a copy of the configuration in effect.
func (s *Store) Config() *ProjectConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.file.Clone()
	s.settings.apply(cfg)
	return cfg
}

// ApplySettings replaces the editor settings.
func (s *Store) ApplySettings(raw map[string]any) error {
	settings, err := DecodeSettings(raw)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.logger.Debug("editor settings applied", "settings", settings)
	return nil
}

// Reload re-reads the configuration file. A missing file resets the store
// to defaults; an invalid file leaves the current configuration in place
// and returns the error.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	cfg, err := LoadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = New(), nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.file = cfg
	s.mu.Unlock()
	s.logger.Info("configuration reloaded", "path", s.path)
	return nil
}

// Tools returns the export tool configuration in effect. Relative paths
// resolve against the configuration file's directory. A broken env file is
// logged and ignored.
func (s *Store) Tools() export.Tools {
	cfg := s.Config()
	tools := export.Tools{
		Java:           cfg.Tools.Java,
		Tla2Tools:      cfg.Resolve(cfg.Tools.Tla2Tools),
		Tla2TexOptions: cfg.Tools.Tla2TexOptions,
		PDFCommand:     cfg.PDF.ConvertCommand,
	}
	if cfg.Tools.EnvFile != "" {
		env, err := LoadEnvFile(cfg.Resolve(cfg.Tools.EnvFile))
		if err != nil {
			s.logger.Warn("ignoring env file", "path", cfg.Tools.EnvFile, "error", err)
		}
		tools.Env = env
	}
	return tools
}

// Watch reloads the configuration whenever its file is written, created,
// renamed or removed, until ctx is done. Reload failures are logged and the
// previous configuration stays in effect.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	// Watch the directory so the file can be created or replaced.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching config directory %q: %w", dir, err)
	}
	s.logger.Debug("watching configuration", "path", s.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(reloadDelay):
			}
			if err := s.Reload(); err != nil {
				s.logger.Warn("keeping previous configuration", "path", s.path, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("config watcher error", "error", err)
		}
	}
}
