package types

// CellStatus is the lifecycle state of one result cell.
type CellStatus string

const (
	CellPending  CellStatus = "pending"
	CellComplete CellStatus = "complete"
	CellError    CellStatus = "error"
)

// Error kind strings carried on error cells and in error responses.
const (
	ErrKindLoadFailure      = "load_failure"
	ErrKindFormatMismatch   = "format_mismatch"
	ErrKindParseFailure     = "parse_failure"
	ErrKindInferenceFailure = "inference_failure"
	ErrKindAlreadyRunning   = "already_running"
	ErrKindEmptyInput       = "empty_input"
)

// Cell is one (line, analyzer) outcome. Exactly one of Sentiment or
// Classification is set when Status is complete; Raw keeps the model's
// untransformed output for diagnostic display.
type Cell struct {
	// Cell lifecycle status.
	// example: complete
	Status CellStatus `json:"status" example:"complete"`
	// Normalized sentiment payload, when the column task is sentiment.
	Sentiment *SentimentPayload `json:"sentiment,omitempty"`
	// Normalized classification payload, when the column task is classification.
	Classification *ClassificationPayload `json:"classification,omitempty"`
	// Raw label/score pairs as returned by the runtime.
	Raw []LabelScore `json:"raw,omitempty"`
	// Error kind, set only when Status is error.
	// example: inference_failure
	ErrKind string `json:"err_kind,omitempty" example:"inference_failure"`
	// Human-readable error message, set only when Status is error.
	Error string `json:"error,omitempty"`
}

// MatrixSnapshot is a read-only copy of the result matrix: one row per
// input line, one column per selected analyzer, in selection order.
type MatrixSnapshot struct {
	// Input lines in submission order.
	Lines []string `json:"lines"`
	// Column descriptors; Task reflects any post-inference correction.
	Columns []Analyzer `json:"columns"`
	// Cells indexed [line][column].
	Cells [][]Cell `json:"cells"`
}

// AnalyzeRequest submits one batch for analysis.
type AnalyzeRequest struct {
	// Trimmed, non-empty input lines.
	Lines []string `json:"lines"`
	// Selected analyzer ids, run in this order. Empty selects the whole catalog.
	Analyzers []string `json:"analyzers,omitempty"`
	// When true, the inference host is kept alive between learned models
	// and after the run, trading memory for faster repeat runs.
	// example: false
	KeepAssetsLoaded bool `json:"keep_assets_loaded,omitempty" example:"false"`
}

// AnalyzeAccepted acknowledges an accepted run.
type AnalyzeAccepted struct {
	// Identifier of the accepted run.
	// example: 6fa0d8e4-54b2-4b14-9c0e-2f8f8f1f2a3b
	RunID string `json:"run_id" example:"6fa0d8e4-54b2-4b14-9c0e-2f8f8f1f2a3b"`
}

// ProgressResponse is returned by GET /progress.
type ProgressResponse struct {
	// Engine run state: idle, validating, running_rule_based, running_learned, complete.
	// example: running_learned
	State string `json:"state" example:"running_learned"`
	// Identifier of the active (or last) run.
	RunID string `json:"run_id,omitempty"`
	// Total work items for the run (lines x analyzers).
	// example: 100
	TotalItems int `json:"total_items" example:"100"`
	// Completed work items so far. Never decreases within a run.
	// example: 42
	CompletedItems int `json:"completed_items" example:"42"`
	// Smoothed overall rate in work items per second.
	// example: 3.5
	OverallRate float64 `json:"overall_rate" example:"3.5"`
	// Estimated seconds remaining overall; meaningful only when EtaKnown.
	// example: 16
	OverallEtaSeconds float64 `json:"overall_eta_seconds" example:"16"`
	// False while the smoothed rate is still zero.
	// example: true
	EtaKnown bool `json:"eta_known" example:"true"`
	// Analyzer currently being run, if any.
	CurrentAnalyzer string `json:"current_analyzer,omitempty"`
	// Lines processed under the current learned model.
	CurrentModelLines int `json:"current_model_lines,omitempty"`
	// Total lines for the current learned model.
	CurrentModelTotal int `json:"current_model_total,omitempty"`
	// Smoothed current-model rate in lines per second.
	CurrentModelRate float64 `json:"current_model_rate,omitempty"`
}

// AnalyzerInfo pairs a catalog entry with advisory cache information.
type AnalyzerInfo struct {
	Analyzer
	// Whether all required assets are already in the local content store.
	// Advisory only: loading may still succeed (or fail) regardless.
	// example: true
	Cached bool `json:"cached"`
}

// AnalyzersResponse wraps GET /analyzers.
type AnalyzersResponse struct {
	Analyzers []AnalyzerInfo `json:"analyzers"`
	// Estimated bytes to download for the uncached learned models.
	// example: 134217728
	EstDownloadBytes int64 `json:"est_download_bytes"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Engine run state.
	// example: idle
	State string `json:"state" example:"idle"`
	// Identifier of the active (or last) run, if any.
	RunID string `json:"run_id,omitempty"`
	// Whether an inference host is currently alive.
	// example: false
	HostLive bool `json:"host_live" example:"false"`
	// Total runs started since process start.
	// example: 7
	RunsTotal uint64 `json:"runs_total" example:"7"`
	// Total host spawns since process start.
	// example: 12
	HostSpawnsTotal uint64 `json:"host_spawns_total" example:"12"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Last run-level error observed, if any.
	LastError string `json:"last_error,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Machine-readable error kind, when one applies.
	// example: already_running
	Kind string `json:"kind,omitempty" example:"already_running"`
}
