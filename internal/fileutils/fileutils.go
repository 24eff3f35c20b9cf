// Package fileutils provides utility functions for handling files and payloads.
package fileutils

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ubuntu/decorate"
)

// AtomicWrite replaces the content of path with data, creating the file with perm and any missing parent.
// Readers see either the previous content or the new one. Not atomic on Windows.
func AtomicWrite(path string, data []byte, perm fs.FileMode) (err error) {
	defer decorate.OnError(&err, "could not write %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = tmp.Close()
		if rmErr := os.Remove(tmp.Name()); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			slog.Warn("Failed to remove temporary file", "file", tmp.Name(), "error", rmErr)
		}
	}()

	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("set mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
