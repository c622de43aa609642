package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"replay/internal/export"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckInputDir verifies that the export folder is readable and reports how
// many files match the discovery options. An empty folder still passes.
func CheckInputDir(name, path string, opts export.DiscoverOptions) Result {
	result := checkDirectory(name, path, unix.R_OK|unix.X_OK, "readable")
	if !result.Passed {
		return result
	}
	count, err := export.CountMatches(path, opts)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: list files: %v)", path, err)}
	}
	if count == 0 {
		// Not fatal here: the pipeline reports an empty folder as no valid input.
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (no export files match %q)", path, patternOrDefault(opts.Pattern))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d export file(s))", path, count)}
}

// CheckOutputParent verifies that the clean dataset can be created at path:
// path must not be a directory and its nearest existing ancestor must be
// writable.
func CheckOutputParent(name, path string) Result {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	parent, err := nearestExisting(filepath.Dir(path))
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	result := checkDirectory(name, parent, unix.W_OK|unix.X_OK, "writable")
	if !result.Passed {
		return result
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (writable)", path)}
}

// CheckWritableOrCreatable passes when path is a writable directory or can be
// created under a writable ancestor.
func CheckWritableOrCreatable(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "(error: not configured)"}
	}
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	parent, err := nearestExisting(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	result := checkDirectory(name, parent, unix.W_OK|unix.X_OK, "writable")
	if !result.Passed {
		return result
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// nearestExisting walks up from path until it finds something that exists.
func nearestExisting(path string) (string, error) {
	current := filepath.Clean(path)
	for {
		info, err := os.Stat(current)
		if err == nil {
			if !info.IsDir() {
				return "", fmt.Errorf("%s is not a directory", current)
			}
			return current, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing ancestor for %s", path)
		}
		current = parent
	}
}

func patternOrDefault(pattern string) string {
	if pattern == "" {
		return "*.json"
	}
	return pattern
}
