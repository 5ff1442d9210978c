// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ProgressBar implements a progress bar which is redrawn on each
// increment. It is safe for concurrent use.
type ProgressBar struct {
	mu sync.Mutex
	w  io.Writer

	// width determines the number of characters wide that the
	// progress bar should be
	width int

	// maxProgress determines the number of times Increment() should
	// be called before the progress bar reaches 100%
	maxProgress     int
	currentProgress int

	start  time.Time
	closed bool
}

// New returns a new progress bar that writes to w, is width characters
// wide and reaches 100% capacity after max Increment() calls
func New(w io.Writer, width, max int) *ProgressBar {
	if max <= 0 {
		max = 1
	}
	return &ProgressBar{
		w:           w,
		width:       width,
		maxProgress: max,
		start:       time.Now(),
	}
}

// Increment increments the internal progress counter and redraws the
// bar. Increments beyond the maximum are ignored.
func (p *ProgressBar) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.currentProgress >= p.maxProgress {
		return
	}
	p.currentProgress++
	fmt.Fprintf(p.w, "\r\033[K%v", p.bar())
}

// Close closes the progress bar so that it will no longer display to
// the screen
func (p *ProgressBar) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("close: close on closed progress bar")
	}
	p.closed = true
	fmt.Fprintln(p.w) // Jump to next line after printed pbar
	return nil
}

func (p *ProgressBar) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bar()
}

func (p *ProgressBar) bar() string {
	fraction := float64(p.currentProgress) / float64(p.maxProgress)
	filled := int(fraction * float64(p.width))

	var bar strings.Builder
	bar.WriteString("|")
	bar.WriteString(strings.Repeat("█", filled))
	bar.WriteString(strings.Repeat(" ", p.width-filled))
	fmt.Fprintf(&bar, "| [%.2f%% | elapsed: %v]", fraction*100,
		time.Since(p.start).Round(time.Second))
	return bar.String()
}
