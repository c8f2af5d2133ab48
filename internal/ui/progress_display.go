package ui

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

const (
	progressDescriptionConstant = "Analyzing packages"
	progressBarWidthConstant    = 40
)

// ProgressDisplay renders scan progress as a terminal bar that is cleared when the scan ends.
// It is safe for concurrent use.
type ProgressDisplay struct {
	mutex     sync.Mutex
	writer    io.Writer
	bar       *progressbar.ProgressBar
	displayed int64
	finished  bool
}

// NewProgressDisplay creates a display writing to writer. Nothing is drawn before Start.
func NewProgressDisplay(writer io.Writer) *ProgressDisplay {
	return &ProgressDisplay{writer: writer}
}

// Start draws an empty bar for total packages.
func (display *ProgressDisplay) Start(total int) {
	display.mutex.Lock()
	defer display.mutex.Unlock()
	if display.bar != nil || display.finished {
		return
	}
	display.bar = progressbar.NewOptions64(
		int64(total),
		progressbar.OptionSetWriter(display.writer),
		progressbar.OptionSetDescription(progressDescriptionConstant),
		progressbar.OptionSetWidth(progressBarWidthConstant),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

// ProgressAdvanced moves the bar to the completed count. Counts may arrive out
// of order from concurrent workers; the bar never moves backwards.
func (display *ProgressDisplay) ProgressAdvanced(completed int64, total int64) {
	display.mutex.Lock()
	defer display.mutex.Unlock()
	if display.bar == nil || display.finished || completed <= display.displayed {
		return
	}
	display.displayed = completed
	_ = display.bar.Set64(completed)
}

// Displayed returns the count currently shown.
func (display *ProgressDisplay) Displayed() int64 {
	display.mutex.Lock()
	defer display.mutex.Unlock()
	return display.displayed
}

// Finish clears the bar. Further progress is ignored.
func (display *ProgressDisplay) Finish() {
	display.mutex.Lock()
	defer display.mutex.Unlock()
	if display.finished {
		return
	}
	display.finished = true
	if display.bar != nil {
		_ = display.bar.Finish()
	}
}
