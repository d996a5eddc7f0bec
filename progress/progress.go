// Package progress - Per-image tile progress reporting.
package progress

import (
	"log"
	"sync"
	"time"
)

// defaultReportInterval throttles log output for large tile grids.
const defaultReportInterval = 2 * time.Second

// Tracker counts completed tiles for one image and periodically reports the
// completion ratio and processing rate. It is safe for concurrent use by the
// viewport workers.
type Tracker struct {
	mu         sync.Mutex
	label      string
	total      int
	done       int
	started    time.Time
	interval   time.Duration
	lastReport time.Time
}

// NewTracker starts tracking a run of total tiles labeled by the image name.
func NewTracker(label string, total int) *Tracker {
	now := time.Now()
	return &Tracker{
		label:      label,
		total:      total,
		started:    now,
		interval:   defaultReportInterval,
		lastReport: now,
	}
}

// Increment records one completed tile, logging at most once per interval.
func (t *Tracker) Increment() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.done++
	now := time.Now()
	if now.Sub(t.lastReport) < t.interval && t.done < t.total {
		return
	}
	t.lastReport = now
	elapsed := now.Sub(t.started).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(t.done) / elapsed
	}
	log.Printf("%s: %d/%d tiles (%.1f tiles/s)", t.label, t.done, t.total, rate)
}

// Finish logs the total elapsed time for the image.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	log.Printf("%s: %d tiles in %.1fs", t.label, t.done, time.Since(t.started).Seconds())
}
