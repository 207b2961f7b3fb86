package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/the-spice-must-recur/internal/model"
	"github.com/Veraticus/the-spice-must-recur/internal/service"
)

// ProgressReporter draws a progress bar while the engine processes due rules.
// It is safe for concurrent use by engine workers.
type ProgressReporter struct {
	writer      io.Writer
	progressBar *progressbar.ProgressBar
	failed      []string
	total       int
	done        int
	mu          sync.Mutex
}

var _ service.ProgressObserver = (*ProgressReporter)(nil)

// NewProgressReporter creates a reporter writing to writer, or stderr when nil.
func NewProgressReporter(writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = os.Stderr
	}
	return &ProgressReporter{writer: writer}
}

// Start initializes the progress bar for total rules.
func (p *ProgressReporter) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.done = 0
	p.failed = nil
	p.progressBar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Processing recurrences...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(p.writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

// RuleDone advances the bar by one rule.
func (p *ProgressReporter) RuleDone(rule model.RecurrenceRule, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if err != nil {
		p.failed = append(p.failed, rule.ID)
	}
	if p.progressBar != nil {
		if addErr := p.progressBar.Add(1); addErr != nil {
			slog.Warn("Failed to update progress bar", "error", addErr)
		}
	}
}

// Finish completes the bar.
func (p *ProgressReporter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.progressBar != nil {
		if err := p.progressBar.Finish(); err != nil {
			slog.Warn("Failed to finish progress bar", "error", err)
		}
	}
}

// Counts returns how many rules were reported done and how many of them failed.
func (p *ProgressReporter) Counts() (done, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, len(p.failed)
}
