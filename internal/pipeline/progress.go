package pipeline

import "sync/atomic"

// ProgressObserver receives the counter state after every increment.
type ProgressObserver interface {
	ProgressAdvanced(completed int64, total int64)
}

// ProgressCounter counts packages whose processing finished. Workers only
// increment it; readers only observe it.
type ProgressCounter struct {
	total     int64
	completed atomic.Int64
	observer  ProgressObserver
}

// NewProgressCounter creates a counter for total packages. The observer may be nil.
func NewProgressCounter(total int, observer ProgressObserver) *ProgressCounter {
	return &ProgressCounter{total: int64(total), observer: observer}
}

// Increment records one finished package.
func (counter *ProgressCounter) Increment() {
	completed := counter.completed.Add(1)
	if counter.observer != nil {
		counter.observer.ProgressAdvanced(completed, counter.total)
	}
}

// Completed returns the number of finished packages.
func (counter *ProgressCounter) Completed() int64 {
	return counter.completed.Load()
}

// Total returns the number of packages in the scan.
func (counter *ProgressCounter) Total() int64 {
	return counter.total
}
