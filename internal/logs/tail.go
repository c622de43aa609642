package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// ErrNoLog reports that a run never produced a log file, or that retention
// already removed it.
var ErrNoLog = errors.New("run log not found")

const (
	maxLineBytes = 1024 * 1024
	pollInterval = 250 * time.Millisecond
)

// Options controls how much of a run log is returned.
type Options struct {
	// Lines is the number of trailing lines to return; 0 returns the whole file.
	Lines int
	// Follow waits up to Wait for lines appended after the initial read.
	Follow bool
	Wait   time.Duration
}

// Chunk is a batch of log lines plus the byte offset just past them.
type Chunk struct {
	Lines  []string
	Offset int64
}

// Read returns the trailing lines of the log at path. In follow mode an
// empty initial read polls until new lines arrive, Wait elapses, or ctx ends.
func Read(ctx context.Context, path string, opts Options) (Chunk, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Chunk{}, fmt.Errorf("%w: %s", ErrNoLog, path)
		}
		return Chunk{}, fmt.Errorf("stat run log: %w", err)
	}
	if info.IsDir() {
		return Chunk{}, fmt.Errorf("run log %q is a directory", path)
	}

	chunk, err := readTail(path, opts.Lines)
	if err != nil {
		return chunk, err
	}
	if opts.Follow && opts.Wait > 0 && len(chunk.Lines) == 0 {
		return Follow(ctx, path, chunk.Offset, opts.Wait)
	}
	return chunk, nil
}

// Follow returns lines appended after offset, polling for at most wait.
func Follow(ctx context.Context, path string, offset int64, wait time.Duration) (Chunk, error) {
	deadline := time.Now().Add(max(wait, 0))
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		chunk, err := readFrom(path, offset)
		if err != nil || len(chunk.Lines) > 0 || !time.Now().Before(deadline) {
			return chunk, err
		}
		select {
		case <-ctx.Done():
			return Chunk{Offset: offset}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func readTail(path string, limit int) (Chunk, error) {
	file, err := os.Open(path)
	if err != nil {
		return Chunk{}, fmt.Errorf("open run log: %w", err)
	}
	defer file.Close()

	scanner := newScanner(file)
	var lines []string
	if limit <= 0 {
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
	} else {
		ring := make([]string, limit)
		count := 0
		for scanner.Scan() {
			ring[count%limit] = scanner.Text()
			count++
		}
		if count <= limit {
			lines = ring[:count]
		} else {
			start := count % limit
			lines = append(append(lines, ring[start:]...), ring[:start]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return Chunk{}, fmt.Errorf("read run log: %w", err)
	}

	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return Chunk{}, fmt.Errorf("run log offset: %w", err)
	}
	return Chunk{Lines: lines, Offset: offset}, nil
}

func readFrom(path string, offset int64) (Chunk, error) {
	file, err := os.Open(path)
	if err != nil {
		return Chunk{Offset: offset}, fmt.Errorf("open run log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Chunk{Offset: offset}, fmt.Errorf("stat run log: %w", err)
	}
	// Truncated or rotated underneath us: start over.
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Chunk{Offset: offset}, fmt.Errorf("seek run log: %w", err)
	}

	scanner := newScanner(file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return Chunk{Offset: offset}, fmt.Errorf("read run log: %w", err)
	}
	next, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return Chunk{Offset: offset}, fmt.Errorf("run log offset: %w", err)
	}
	return Chunk{Lines: lines, Offset: next}, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}
