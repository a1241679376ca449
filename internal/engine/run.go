package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"classd/internal/rules"
	"classd/internal/session"
	"classd/pkg/types"
)

// Run executes one batch synchronously and returns its run id. Validation
// failures (empty input, concurrent run) are returned before any host is
// spawned; per-model and per-line failures are recorded in the matrix and
// never abort the run.
func (e *Engine) Run(ctx context.Context, req RunRequest) (string, error) {
	runID, err := e.begin(req)
	if err != nil {
		return "", err
	}
	e.execute(ctx, req)
	return runID, nil
}

// Start is Run's asynchronous form: validation happens synchronously, the
// run itself proceeds on a goroutine. Observers follow it via Progress and
// Result.
func (e *Engine) Start(ctx context.Context, req RunRequest) (string, error) {
	runID, err := e.begin(req)
	if err != nil {
		return "", err
	}
	go e.execute(ctx, req)
	return runID, nil
}

// begin validates the request and transitions Idle -> ValidatingInput,
// claiming the single run slot. Only one run may be active; a second
// attempt fails with AlreadyRunning rather than queuing.
func (e *Engine) begin(req RunRequest) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.running() {
		return "", ErrAlreadyRunning()
	}
	if len(req.Lines) == 0 || len(req.Analyzers) == 0 {
		// Fatal input validation: Complete is reachable from any state.
		e.state = StateComplete
		e.lastErr = ErrEmptyInput().Error()
		return "", ErrEmptyInput()
	}
	e.state = StateValidatingInput
	e.runID = uuid.NewString()
	e.lastErr = ""
	e.currentAnalyzer = ""
	e.keep = req.KeepAssetsLoaded
	e.matrix = NewMatrix(req.Lines, req.Analyzers)
	e.runsTotal++
	runsStarted.Inc()
	e.progress.StartRun(len(req.Lines) * len(req.Analyzers))
	return e.runID, nil
}

func (e *Engine) execute(ctx context.Context, req RunRequest) {
	e.publish("run_start", "", map[string]any{
		"run":       e.RunID(),
		"lines":     len(req.Lines),
		"analyzers": len(req.Analyzers),
	})

	e.setState(StateRunningRuleBased)
	for col, a := range req.Analyzers {
		if a.Kind != types.KindRuleBased {
			continue
		}
		e.runRuleBasedColumn(col, a, req.Lines)
	}

	e.setState(StateRunningLearned)
	for col, a := range req.Analyzers {
		if a.Kind != types.KindLearned {
			continue
		}
		e.runLearnedColumn(ctx, col, a, req.Lines)
	}

	e.setCurrentAnalyzer("")
	if n := e.matrix.PendingCount(); n > 0 {
		// Should be unreachable; a pending cell here is an orchestration bug.
		e.log.Error().Int("pending", n).Msg("run finished with pending cells")
	}
	e.setState(StateComplete)
	e.publish("run_done", "", map[string]any{"run": e.RunID()})
}

// runRuleBasedColumn fills one column synchronously with no host involved.
func (e *Engine) runRuleBasedColumn(col int, a types.Analyzer, lines []string) {
	e.setCurrentAnalyzer(a.ID)
	e.publish("column_start", a.ID, nil)
	scorer, ok := rules.ByID(a.ID)
	if !ok {
		msg := "rule-based scorer not registered: " + a.ID
		e.matrix.FailColumn(col, types.ErrKindLoadFailure, msg)
		for range lines {
			cellsFilled.WithLabelValues("error").Inc()
			e.progress.ItemDone()
		}
		e.publish("column_done", a.ID, map[string]any{"failed": true})
		return
	}
	for i, line := range lines {
		p, err := scorer.Score(line)
		if err != nil {
			e.matrix.SetError(i, col, types.ErrKindInferenceFailure, err.Error())
			cellsFilled.WithLabelValues("error").Inc()
		} else {
			e.matrix.SetSentiment(i, col, p)
			cellsFilled.WithLabelValues("complete").Inc()
		}
		e.progress.ItemDone()
	}
	e.publish("column_done", a.ID, nil)
}

// runLearnedColumn fills one learned-model column. Host acquisition
// happens only here, and release is guaranteed by defers around the loop
// body rather than repeated per failure branch: dispose the session, then
// terminate the host (unless assets are kept loaded), on every exit path
// including panics.
func (e *Engine) runLearnedColumn(ctx context.Context, col int, a types.Analyzer, lines []string) {
	e.setCurrentAnalyzer(a.ID)
	e.publish("column_start", a.ID, nil)
	e.progress.StartModel(len(lines))
	defer e.progress.EndModel()
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("panic during %s: %v", a.ID, r)
			e.log.Error().Str("analyzer", a.ID).Msg(msg)
			for n := e.matrix.FailColumn(col, types.ErrKindInferenceFailure, msg); n > 0; n-- {
				e.progress.LineDone()
			}
		}
		e.publish("column_done", a.ID, nil)
	}()

	// Reuse a live host when one exists (left alive by keep-assets-loaded),
	// otherwise spawn a fresh one.
	h := e.hosts.Live()
	if h == nil {
		var err error
		h, err = e.hosts.Spawn(ctx)
		if err != nil {
			e.failColumn(col, a, types.ErrKindLoadFailure, err)
			return
		}
	}
	defer func() {
		if !e.keep {
			_ = e.hosts.Terminate(h)
		}
	}()

	sess, err := e.sessions.Load(ctx, h, a)
	if err != nil {
		kind := session.Kind(err)
		if kind == "" {
			kind = types.ErrKindLoadFailure
		}
		e.failColumn(col, a, kind, err)
		return
	}
	defer e.sessions.Dispose(sess)

	for i, line := range lines {
		out, err := e.sessions.Infer(ctx, sess, line)
		if err != nil {
			kind := session.Kind(err)
			if kind == "" {
				kind = types.ErrKindInferenceFailure
			}
			e.matrix.SetError(i, col, kind, err.Error())
			cellsFilled.WithLabelValues("error").Inc()
		} else {
			e.matrix.SetOutput(i, col, out)
			cellsFilled.WithLabelValues("complete").Inc()
		}
		e.progress.LineDone()
	}
}

// failColumn marks a whole column failed (model-level failure) and
// accounts its lines as completed work so the overall estimate stays
// honest.
func (e *Engine) failColumn(col int, a types.Analyzer, kind string, err error) {
	e.log.Warn().Str("analyzer", a.ID).Str("kind", kind).Err(err).Msg("model column failed")
	e.mu.Lock()
	e.lastErr = err.Error()
	e.mu.Unlock()
	e.publish("model_failed", a.ID, map[string]any{"kind": kind, "error": err.Error()})
	modelFailures.WithLabelValues(kind).Inc()
	for n := e.matrix.FailColumn(col, kind, err.Error()); n > 0; n-- {
		cellsFilled.WithLabelValues("error").Inc()
		e.progress.LineDone()
	}
}
