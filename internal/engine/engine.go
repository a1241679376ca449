package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"classd/internal/events"
	"classd/internal/host"
	"classd/internal/progress"
	"classd/internal/session"
)

func newProgress() *progress.Estimator { return progress.New() }

// Engine is the streaming orchestrator. It owns the run state machine and
// the result matrix for the duration of a run.
type Engine struct {
	mu              sync.RWMutex
	state           RunState
	runID           string
	lastErr         string
	currentAnalyzer string
	keep            bool
	matrix          *Matrix
	runsTotal       uint64
	startTime       time.Time

	hosts     *host.Controller
	sessions  *session.Manager
	progress  *progress.Estimator
	publisher events.Publisher
	log       zerolog.Logger
}

// State returns the current run state.
func (e *Engine) State() RunState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Ready reports whether the engine can accept a run.
func (e *Engine) Ready() bool {
	return !e.State().running()
}

// RunID returns the identifier of the active (or last) run.
func (e *Engine) RunID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.runID
}

// HostLive reports whether an inference host is currently alive.
func (e *Engine) HostLive() bool {
	return e.hosts.Live() != nil
}

func (e *Engine) setState(s RunState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) setCurrentAnalyzer(id string) {
	e.mu.Lock()
	e.currentAnalyzer = id
	e.mu.Unlock()
}

func (e *Engine) publish(name, analyzerID string, fields map[string]any) {
	e.publisher.Publish(events.Event{Name: name, AnalyzerID: analyzerID, Fields: fields})
}
