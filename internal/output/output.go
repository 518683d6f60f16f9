// Package output writes generated files so readers never observe a partial
// document.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	appLog "astrosched/internal/log"
)

// WriteFunc streams file content into w.
type WriteFunc func(w io.Writer) error

// WriteFile creates the parent directory if needed and replaces path with
// whatever write produces. The old file stays in place if write fails.
func WriteFile(path string, perm os.FileMode, write WriteFunc) error {
	if path == "" {
		return errors.New("output path is empty")
	}
	if write == nil {
		return errors.New("output writer is nil")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(perm))
	if err != nil {
		return fmt.Errorf("create pending file %s: %w", path, err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			appLog.Debug("cleanup pending file", "path", path, "err", err)
		}
	}()

	if err := write(pending); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}

// WriteBytes is WriteFile for content already in memory.
func WriteBytes(path string, perm os.FileMode, data []byte) error {
	return WriteFile(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
