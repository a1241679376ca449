// Package progress maintains smoothed throughput rates and time estimates
// for a run: one track for the current learned model (lines/sec) and one
// for the whole run (work items/sec, a work item being one line under one
// analyzer).
package progress

import (
	"sync"
	"time"
)

const (
	// DefaultAlpha is the EMA smoothing factor.
	DefaultAlpha = 0.3
	// DefaultUpdateInterval bounds how often the smoothed rate is
	// recomputed. Sub-millisecond lines would otherwise make the instant
	// rate pure noise.
	DefaultUpdateInterval = 250 * time.Millisecond
)

// Snapshot is a read-only view of both progress tracks.
type Snapshot struct {
	TotalItems     int
	CompletedItems int
	OverallRate    float64
	OverallElapsed time.Duration
	// OverallRemaining is meaningful only when OverallKnown.
	OverallRemaining time.Duration
	OverallKnown     bool

	ModelTotalLines     int
	ModelProcessedLines int
	ModelRate           float64
	ModelElapsed        time.Duration
	ModelRemaining      time.Duration
	ModelKnown          bool
}

type track struct {
	start    time.Time
	total    int
	done     int
	rate     float64
	lastTick time.Time
	lastDone int
}

func (t *track) begin(now time.Time, total int) {
	*t = track{start: now, total: total, lastTick: now}
}

// advance records one completed unit and recomputes the smoothed rate at a
// bounded cadence: rate = rate==0 ? instant : alpha*instant + (1-alpha)*rate.
func (t *track) advance(now time.Time, alpha float64, interval time.Duration) {
	t.done++
	elapsed := now.Sub(t.lastTick)
	if elapsed < interval {
		return
	}
	instant := float64(t.done-t.lastDone) / elapsed.Seconds()
	t.rate = smooth(t.rate, instant, alpha)
	t.lastTick = now
	t.lastDone = t.done
}

func (t *track) remaining() (time.Duration, bool) {
	if t.rate <= 0 {
		return 0, false
	}
	left := float64(t.total-t.done) / t.rate
	if left < 0 {
		left = 0
	}
	return time.Duration(left * float64(time.Second)), true
}

// smooth applies the EMA recurrence; a zero previous rate is seeded with
// the instant rate directly.
func smooth(prev, instant, alpha float64) float64 {
	if prev == 0 {
		return instant
	}
	return alpha*instant + (1-alpha)*prev
}

// Estimator tracks run and model progress. Safe for concurrent use; the
// orchestrator writes, observers read snapshots.
type Estimator struct {
	mu       sync.Mutex
	now      func() time.Time
	alpha    float64
	interval time.Duration

	overall     track
	model       track
	modelActive bool
}

func New() *Estimator {
	return &Estimator{now: time.Now, alpha: DefaultAlpha, interval: DefaultUpdateInterval}
}

// StartRun resets both tracks for a new run of totalItems work items.
func (e *Estimator) StartRun(totalItems int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	e.overall.begin(now, totalItems)
	e.model = track{}
	e.modelActive = false
}

// StartModel begins the current-model track for totalLines lines.
func (e *Estimator) StartModel(totalLines int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model.begin(e.now(), totalLines)
	e.modelActive = true
}

// EndModel closes the current-model track.
func (e *Estimator) EndModel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.modelActive = false
}

// ItemDone records one completed work item on the overall track.
func (e *Estimator) ItemDone() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overall.advance(e.now(), e.alpha, e.interval)
}

// LineDone records one processed line under the current model. It also
// counts as a completed work item.
func (e *Estimator) LineDone() {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	e.overall.advance(now, e.alpha, e.interval)
	if e.modelActive {
		e.model.advance(now, e.alpha, e.interval)
	}
}

// Snapshot returns the current view of both tracks.
func (e *Estimator) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	s := Snapshot{
		TotalItems:     e.overall.total,
		CompletedItems: e.overall.done,
		OverallRate:    e.overall.rate,
	}
	if !e.overall.start.IsZero() {
		s.OverallElapsed = now.Sub(e.overall.start)
	}
	s.OverallRemaining, s.OverallKnown = e.overall.remaining()
	if e.modelActive {
		s.ModelTotalLines = e.model.total
		s.ModelProcessedLines = e.model.done
		s.ModelRate = e.model.rate
		s.ModelElapsed = now.Sub(e.model.start)
		s.ModelRemaining, s.ModelKnown = e.model.remaining()
	}
	return s
}
