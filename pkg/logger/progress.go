package logger

import (
	"sync"
	"time"
)

// ProgressFunc receives (processed, total) after each completed item.
type ProgressFunc func(processed, total int)

// ProgressTracker tracks progress of long-running batch operations such as
// the advisor batch run, logging at intervals and notifying an optional
// callback after every item.
type ProgressTracker struct {
	logger      Logger
	operation   string
	total       int
	processed   int
	callback    ProgressFunc
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
	mutex       sync.Mutex
}

// NewProgressTracker creates a tracker for an operation over total items.
func NewProgressTracker(operation string, total int, callback ProgressFunc) *ProgressTracker {
	log := GetGlobalLogger().WithComponent("progress").WithField("operation", operation)
	log.WithField("total", total).Info("Starting operation")

	return &ProgressTracker{
		logger:      log,
		operation:   operation,
		total:       total,
		callback:    callback,
		startTime:   time.Now(),
		lastLogTime: time.Now(),
		logInterval: 5 * time.Second,
	}
}

// Increment records one completed item and reports progress.
func (p *ProgressTracker) Increment() {
	p.mutex.Lock()
	p.processed++
	processed, total := p.processed, p.total

	now := time.Now()
	if now.Sub(p.lastLogTime) >= p.logInterval || processed == total {
		p.logger.WithFields(Fields{
			"processed": processed,
			"total":     total,
			"elapsed":   now.Sub(p.startTime).Round(time.Millisecond).String(),
		}).Info("Operation progress")
		p.lastLogTime = now
	}
	p.mutex.Unlock()

	if p.callback != nil {
		p.callback(processed, total)
	}
}

// Processed returns the number of completed items.
func (p *ProgressTracker) Processed() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.processed
}

// Done logs the completion of the operation.
func (p *ProgressTracker) Done() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.logger.WithFields(Fields{
		"processed": p.processed,
		"total":     p.total,
		"duration":  time.Since(p.startTime).Round(time.Millisecond).String(),
	}).Info("Operation completed")
}
