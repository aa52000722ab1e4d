package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Unit selects how progress amounts are printed.
type Unit int

const (
	// UnitCount prints plain counts, e.g. "12/40".
	UnitCount Unit = iota
	// UnitBytes prints human readable sizes, e.g. "1.5 MB/3.0 MB".
	UnitBytes
)

// ProgressBar displays a progress bar, used while verifying the images of a
// recorded session.
type ProgressBar struct {
	w       io.Writer
	title   string
	unit    Unit
	total   int64
	current int64
	width   int
	mu      sync.Mutex
}

// NewProgressBar creates a progress bar that counts items.
func NewProgressBar(w io.Writer, title string) *ProgressBar {
	return &ProgressBar{
		w:     w,
		title: title,
		unit:  UnitCount,
		width: 40,
	}
}

// SetUnit switches between counts and byte sizes.
func (p *ProgressBar) SetUnit(u Unit) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unit = u
}

// SetTotal sets the total amount.
func (p *ProgressBar) SetTotal(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
}

// Update sets the progress.
func (p *ProgressBar) Update(current, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = current
	p.total = total
	p.render()
}

// Increment adds to current progress.
func (p *ProgressBar) Increment(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += n
	p.render()
}

// Finish completes the progress bar.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = p.total
	p.render()
	fmt.Fprintln(p.w)
}

func (p *ProgressBar) render() {
	if p.total <= 0 {
		fmt.Fprintf(p.w, "\r%s %s", p.title, p.amount(p.current))
		return
	}

	percent := float64(p.current) / float64(p.total)
	if percent > 1 {
		percent = 1
	}

	filled := int(float64(p.width) * percent)
	empty := p.width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	fmt.Fprintf(p.w, "\r%s [%s] %3.0f%% (%s/%s)",
		p.title,
		bar,
		percent*100,
		p.amount(p.current),
		p.amount(p.total),
	)
}

func (p *ProgressBar) amount(n int64) string {
	if p.unit == UnitBytes {
		return formatBytes(n)
	}
	return fmt.Sprintf("%d", n)
}

// formatBytes formats bytes to human readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
