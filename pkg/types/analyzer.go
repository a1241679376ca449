package types

// AnalyzerKind distinguishes cheap rule-based scorers from learned models
// that need an inference host.
type AnalyzerKind string

const (
	KindRuleBased AnalyzerKind = "rule-based"
	KindLearned   AnalyzerKind = "learned"
)

// Task is the declared output shape of an analyzer. A learned model's
// declared task is advisory: the true shape is only known after its first
// successful output, and the result column is corrected then.
type Task string

const (
	TaskSentiment      Task = "sentiment"
	TaskClassification Task = "classification"
)

// Analyzer describes one selectable analyzer. Provided by the catalog;
// the engine only reads it.
type Analyzer struct {
	// Stable identifier for the analyzer.
	// example: sst2-distilled
	ID string `json:"id" yaml:"id" toml:"id" example:"sst2-distilled"`
	// Human-friendly name.
	// example: SST-2 distilled sentiment
	DisplayName string `json:"display_name" yaml:"display_name" toml:"display_name" example:"SST-2 distilled sentiment"`
	// Kind of analyzer: rule-based or learned.
	// example: learned
	Kind AnalyzerKind `json:"kind" yaml:"kind" toml:"kind" example:"learned"`
	// Declared output task: sentiment or classification.
	// example: sentiment
	Task Task `json:"task" yaml:"task" toml:"task" example:"sentiment"`
	// Opaque identifier used to locate model assets (learned models only).
	// example: Xenova/distilbert-base-uncased-finetuned-sst-2-english
	RemoteID string `json:"remote_id,omitempty" yaml:"remote_id" toml:"remote_id" example:"Xenova/distilbert-base-uncased-finetuned-sst-2-english"`
	// Approximate total asset size in bytes, for download estimates.
	// example: 67108864
	ApproxAssetBytes int64 `json:"approx_asset_bytes,omitempty" yaml:"approx_asset_bytes" toml:"approx_asset_bytes" example:"67108864"`
}

// LabelScore is one entry of a model's raw native output: a label with its
// probability/score, untransformed. Kept on every cell for diagnostics.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// SentimentLabel buckets a scalar sentiment score.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// SentimentPayload is the normalized scalar sentiment result.
type SentimentPayload struct {
	// Score in [-1, +1]: negative emotion to positive emotion.
	// example: 0.73
	Score float64 `json:"score" example:"0.73"`
	// Thresholded label for the score.
	// example: positive
	Label SentimentLabel `json:"label" example:"positive"`
}

// ClassificationPayload is the normalized label-distribution result.
type ClassificationPayload struct {
	// Highest-scoring label.
	// example: joy
	TopLabel string `json:"top_label" example:"joy"`
	// Score of the top label.
	// example: 0.91
	Confidence float64 `json:"confidence" example:"0.91"`
	// Full distribution over all returned labels.
	Distribution map[string]float64 `json:"distribution"`
}
