package toolchain

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Remover deletes intermediate artifacts. A missing file is not an error.
type Remover interface {
	RemoveIfExists(ctx context.Context, path string) error
}

// FileRemover removes files from the local filesystem. Removal is retried
// for a short while since some tools release their files a moment after
// they exit.
type FileRemover struct {
	// MaxElapsed bounds the retries. Zero means 500ms.
	MaxElapsed time.Duration
}

func (r FileRemover) RemoveIfExists(ctx context.Context, path string) error {
	maxElapsed := r.MaxElapsed
	if maxElapsed == 0 {
		maxElapsed = 500 * time.Millisecond
	}
	back := backoff.NewExponentialBackOff()
	back.InitialInterval = 20 * time.Millisecond
	back.MaxElapsedTime = maxElapsed

	return backoff.Retry(func() error {
		err := os.Remove(path)
		switch {
		case err == nil, errors.Is(err, fs.ErrNotExist):
			return nil
		case errors.Is(err, fs.ErrPermission):
			return backoff.Permanent(err)
		default:
			return err
		}
	}, backoff.WithContext(back, ctx))
}

// ReplaceExtension swaps the extension of path's base name for ext, which
// must include the leading dot. A path without an extension gets ext
// appended. Case is preserved.
func ReplaceExtension(path, ext string) string {
	base := filepath.Base(path)
	old := filepath.Ext(base)
	if old == "" || old == base {
		return path + ext
	}
	return strings.TrimSuffix(path, old) + ext
}
