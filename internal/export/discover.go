package export

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// DiscoverOptions controls which files Discover yields.
type DiscoverOptions struct {
	// Pattern is matched case-insensitively against base names. Empty means "*.json".
	Pattern string
	// Recursive descends into subdirectories; hidden directories are always skipped.
	Recursive bool
	// Exclude lists absolute paths never to yield, such as the output file.
	Exclude []string
}

// Discover returns a lazy sequence of export file paths under dir in lexical
// order. Iteration restarts from scratch every time the sequence is ranged
// over. A failure stops the sequence after yielding ("", err).
func Discover(dir string, opts DiscoverOptions) iter.Seq2[string, error] {
	pattern := strings.ToLower(strings.TrimSpace(opts.Pattern))
	if pattern == "" {
		pattern = "*.json"
	}
	excluded := make(map[string]struct{}, len(opts.Exclude))
	for _, path := range opts.Exclude {
		if abs, err := filepath.Abs(path); err == nil {
			excluded[abs] = struct{}{}
		}
	}

	return func(yield func(string, error) bool) {
		root, err := filepath.Abs(dir)
		if err != nil {
			yield("", fmt.Errorf("resolve input dir %q: %w", dir, err))
			return
		}
		info, err := os.Stat(root)
		if err != nil {
			yield("", fmt.Errorf("input dir: %w", err))
			return
		}
		if !info.IsDir() {
			yield("", fmt.Errorf("input dir %s: %w", root, ErrNotDirectory))
			return
		}

		stopped := false
		walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == root {
				return nil
			}
			name := entry.Name()
			if entry.IsDir() {
				if !opts.Recursive || strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(name, ".") || !entry.Type().IsRegular() {
				return nil
			}
			if matched, _ := filepath.Match(pattern, strings.ToLower(name)); !matched {
				return nil
			}
			if _, skip := excluded[path]; skip {
				return nil
			}
			if !yield(path, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
		if walkErr != nil && !stopped && !errors.Is(walkErr, filepath.SkipAll) {
			yield("", fmt.Errorf("walk input dir %s: %w", root, walkErr))
		}
	}
}

// CountMatches drains Discover and returns the number of matching files.
func CountMatches(dir string, opts DiscoverOptions) (int, error) {
	count := 0
	for _, err := range Discover(dir, opts) {
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
