package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"shopscraper/pkg/models"
)

// ProgressDisplay prints one line per finished category and a running bar.
// It satisfies the orchestrator's Observer.
type ProgressDisplay struct {
	mu        sync.Mutex
	total     int
	finished  int
	products  int
	failed    int
	aborted   int
	startTime time.Time
	isDebug   bool
}

// NewProgressDisplay creates a new progress display
func NewProgressDisplay(debug bool) *ProgressDisplay {
	return &ProgressDisplay{isDebug: debug, startTime: time.Now()}
}

// RunStarted records the number of categories the run will attempt
func (p *ProgressDisplay) RunStarted(categories, workers int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = categories
	p.startTime = time.Now()
	printf("%s %d categories with %d workers\n", Magenta("→"), categories, workers)
}

// CategoryFinished prints the outcome of one category
func (p *ProgressDisplay) CategoryFinished(result models.CategoryResult, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.finished++
	p.products += len(result.Records)
	p.failed += result.Failed

	switch {
	case err != nil || result.Status == models.StatusAborted:
		p.aborted++
		reason := "aborted"
		if err != nil {
			reason = err.Error()
			if !p.isDebug && len(reason) > 80 {
				reason = reason[:77] + "..."
			}
		}
		printf("%s %s %s\n", Red("✗"), result.Key, Dim(reason))
	case result.Status == models.StatusCompletedEmpty:
		printf("%s %s %s\n", Yellow("○"), result.Key, Dim("no products"))
	default:
		line := fmt.Sprintf("%s %s • %d products", Green("✓"), result.Key, len(result.Records))
		if result.Failed > 0 {
			line += " • " + Red(fmt.Sprintf("%d failed", result.Failed))
		}
		if result.Duplicates > 0 {
			line += " • " + Dim(fmt.Sprintf("%d duplicates", result.Duplicates))
		}
		if p.isDebug {
			line += " • " + Dim(formatDuration(result.Duration))
		}
		printf("%s\n", line)
	}

	printf("%s\n", p.progressLine())
}

// progressLine renders the bar for finished categories
func (p *ProgressDisplay) progressLine() string {
	const barWidth = 20
	progress := 0.0
	if p.total > 0 {
		progress = float64(p.finished) / float64(p.total)
	}
	filled := int(progress * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("  [%s] %d/%d • %d products • %s",
		bar, p.finished, p.total, p.products, formatDuration(time.Since(p.startTime)))
	if p.failed > 0 {
		line += fmt.Sprintf(" • %d failed items", p.failed)
	}
	if p.aborted > 0 {
		line += " • " + Red(fmt.Sprintf("%d aborted", p.aborted))
	}
	return Dim(line)
}

// Counts returns finished, aborted and product totals seen so far
func (p *ProgressDisplay) Counts() (finished, aborted, products int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finished, p.aborted, p.products
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
