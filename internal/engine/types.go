package engine

import "classd/pkg/types"

// RunState is the orchestrator's run state machine:
// Idle -> ValidatingInput -> RunningRuleBased -> RunningLearned -> Complete.
// Complete is reachable from any state on fatal input validation failure;
// no state is skipped on normal completion.
type RunState string

const (
	StateIdle             RunState = "idle"
	StateValidatingInput  RunState = "validating"
	StateRunningRuleBased RunState = "running_rule_based"
	StateRunningLearned   RunState = "running_learned"
	StateComplete         RunState = "complete"
)

// running reports whether the state denotes an in-flight run.
func (s RunState) running() bool {
	switch s {
	case StateValidatingInput, StateRunningRuleBased, StateRunningLearned:
		return true
	default:
		return false
	}
}

// RunRequest is one batch to analyze. Lines arrive pre-split, trimmed and
// non-empty; Analyzers is the resolved selection in run order.
type RunRequest struct {
	Lines     []string
	Analyzers []types.Analyzer
	// KeepAssetsLoaded skips host termination between learned models and
	// after the run, trading memory for faster repeat runs.
	KeepAssetsLoaded bool
}
