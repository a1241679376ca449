package engine

import (
	"time"

	"classd/pkg/types"
)

// Progress projects the estimator and run state into the API shape.
func (e *Engine) Progress() types.ProgressResponse {
	e.mu.RLock()
	state := e.state
	runID := e.runID
	current := e.currentAnalyzer
	e.mu.RUnlock()

	snap := e.progress.Snapshot()
	resp := types.ProgressResponse{
		State:          string(state),
		RunID:          runID,
		TotalItems:     snap.TotalItems,
		CompletedItems: snap.CompletedItems,
		OverallRate:    snap.OverallRate,
		EtaKnown:       snap.OverallKnown,
	}
	if snap.OverallKnown {
		resp.OverallEtaSeconds = snap.OverallRemaining.Seconds()
	}
	if state == StateRunningRuleBased || state == StateRunningLearned {
		resp.CurrentAnalyzer = current
	}
	if snap.ModelTotalLines > 0 {
		resp.CurrentModelLines = snap.ModelProcessedLines
		resp.CurrentModelTotal = snap.ModelTotalLines
		resp.CurrentModelRate = snap.ModelRate
	}
	return resp
}

// Status reports process-level counters alongside the run state.
func (e *Engine) Status() types.StatusResponse {
	e.mu.RLock()
	defer e.mu.RUnlock()
	now := time.Now()
	return types.StatusResponse{
		State:           string(e.state),
		RunID:           e.runID,
		HostLive:        e.hosts.Live() != nil,
		RunsTotal:       e.runsTotal,
		HostSpawnsTotal: e.hosts.SpawnsTotal(),
		UptimeSeconds:   int64(now.Sub(e.startTime).Seconds()),
		ServerTimeUnix:  now.Unix(),
		LastError:       e.lastErr,
	}
}

// Result returns a deep-copy snapshot of the result matrix. The second
// return is false before any run has started.
func (e *Engine) Result() (types.MatrixSnapshot, bool) {
	e.mu.RLock()
	m := e.matrix
	e.mu.RUnlock()
	if m == nil {
		return types.MatrixSnapshot{}, false
	}
	return m.Snapshot(), true
}
