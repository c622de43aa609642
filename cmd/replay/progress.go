package main

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// parseProgress renders a files-parsed bar on a terminal. On other writers
// every method is a no-op.
type parseProgress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newParseProgress(w io.Writer, total int, enabled bool) *parseProgress {
	p := &parseProgress{}
	if !enabled || total <= 1 || !isTerminal(w) {
		return p
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("parsing exports"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return p
}

// fileParsed matches pipeline.Options.OnFileParsed.
func (p *parseProgress) fileParsed(string, int, error) {
	if p.bar == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Add(1)
}

func (p *parseProgress) finish() {
	if p.bar == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Finish()
}
