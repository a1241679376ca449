// Package engine drives one analysis run: it sequences the rule-based
// scorers and the learned models over the input lines, owns the result
// matrix, and guarantees the inference host is reclaimed on every exit
// path. It is structured into small files by concern:
//
//   - engine.go: core Engine type and simple getters.
//   - config.go: Config and the constructor.
//   - types.go: run state machine values and the run request.
//   - errors.go: run-level error types and helpers (IsAlreadyRunning, IsEmptyInput).
//   - matrix.go: the lines x analyzers result matrix and its cells.
//   - run.go: the orchestration loop (validate, rule-based, learned, cleanup).
//   - status.go: progress/status/result projections for observers.
//
// Exactly one run is active at a time; within a run exactly one column is
// being filled, and within a learned column exactly one line is in flight.
// Concurrency is deliberately avoided: the binding resource is the host's
// memory, which is exclusive and cannot shrink, so fanning out across
// models would only accelerate exhaustion.
//
// External packages should treat this package as the orchestration layer
// and use public methods only (Run/Start, Result, Progress, Status).
package engine
