// Package fileutil holds file helpers shared by the pipeline and the CLI.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// renameFile is swapped in tests to simulate a crash between the temp write
// and the rename.
var renameFile = os.Rename

// TempPattern returns the os.CreateTemp pattern used for target. The leading
// dot keeps temp files out of export discovery.
func TempPattern(target string) string {
	return "." + filepath.Base(target) + ".tmp-*"
}

// WriteFileAtomic streams content produced by write into a temp file next to
// path, fsyncs it, and renames it over path. On any failure the temp file is
// removed and an existing file at path is left untouched.
func WriteFileAtomic(path string, mode os.FileMode, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, TempPattern(path))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err = write(tmp); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Chmod(mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = renameFile(tmpPath, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	syncDir(dir)
	return nil
}

// syncDir flushes the directory entry after a rename. Some platforms and
// file systems reject fsync on directories, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// SHA256File returns the hex-encoded SHA256 digest and size of the file at path.
func SHA256File(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	hasher := sha256.New()
	n, err := io.Copy(hasher, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}

// RemoveStaleTemps deletes leftover temp files for target, such as those a
// killed process leaves behind. It returns the paths removed.
func RemoveStaleTemps(target string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(target), TempPattern(target)))
	if err != nil {
		return nil, err
	}
	var removed []string
	var errs []error
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, match)
	}
	return removed, errors.Join(errs...)
}
