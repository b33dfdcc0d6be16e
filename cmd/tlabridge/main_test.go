package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportFailedError(t *testing.T) {
	err := &ExportFailedError{Message: "export to PDF failed"}
	assert.Equal(t, "export to PDF failed", err.Error())
}

func TestErrorTypeDetection(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantExport bool
	}{
		{"ExportFailedError", &ExportFailedError{Message: "failed"}, true},
		{"wrapped ExportFailedError", fmt.Errorf("context: %w", &ExportFailedError{Message: "failed"}), true},
		{"joined ExportFailedError", errors.Join(&ExportFailedError{Message: "failed"}, errors.New("more")), true},
		{"regular error", errors.New("config error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var exportErr *ExportFailedError
			assert.Equal(t, tt.wantExport, errors.As(tt.err, &exportErr))
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "export", "init", "session", "config"} {
		assert.Contains(t, names, want)
	}
}

// writeScript writes an executable shell script named name into dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

// writeModule creates Spec.tla in a fresh directory and returns its path.
func writeModule(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Spec.tla")
	require.NoError(t, os.WriteFile(path, []byte("---- MODULE Spec ----\n====\n"), 0o644))
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
