// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"strings"
	"time"
)

// Bar implements progress bar functionality that must be manually
// managed. That is, the Display function must be called whenever an
// updated progress bar should be printed to the screen.
type Bar struct {
	width           float64
	maxProgress     float64
	currentProgress float64
	bar             strings.Builder
	startTime       time.Time
}

// New returns a new Bar that is width characters wide and reaches 100%
// capacity after max Increment calls
func New(width, max int) *Bar {
	return &Bar{
		width:       float64(width),
		maxProgress: float64(max),
		startTime:   time.Now(),
	}
}

// Increment increments the internal progress counter. Each time an
// iteration is performed, Increment should be called.
func (p *Bar) Increment(n int) {
	p.currentProgress += float64(n)
	if p.currentProgress > p.maxProgress {
		p.currentProgress = p.maxProgress
	}
}

// Display displays the progress bar on the screen, overwriting the
// previously displayed bar
func (p *Bar) Display() {
	p.bar.Reset()
	p.bar.WriteString("|")

	currentProg := p.currentProgress / p.maxProgress * p.width
	for i := 0.0; i < currentProg; i++ {
		p.bar.WriteString("█")
	}
	for i := currentProg; i < p.width; i++ {
		p.bar.WriteString(" ")
	}
	p.bar.WriteString(fmt.Sprintf("| [%.2f%% | elapsed: %v]",
		p.currentProgress/p.maxProgress*100,
		time.Since(p.startTime).Truncate(time.Second)))

	fmt.Printf("\n\033[1A\033[K%v", p.bar.String())
}
