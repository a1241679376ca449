// Package host owns the isolated execution context that embeds the
// inference runtime. The runtime's memory can only grow while the context
// is alive; destroying the context is the only reclamation mechanism, so
// the controller enforces that at most one context is live and that
// termination is always safe to call.
package host

import "context"

// Runtime creates isolated execution contexts. The default implementation
// spawns a worker subprocess; a CGO llama.cpp runtime is available behind
// the 'llama' build tag.
type Runtime interface {
	Start(ctx context.Context) (Worker, error)
}

// LlamaBuilt reports whether the in-process llama.cpp runtime was compiled
// in. Callers use it to auto-select a runtime.
func LlamaBuilt() bool { return llamaBuilt }

// Worker is the contract to one live execution context.
type Worker interface {
	// Load fetches and parses the model's assets and holds the model
	// resident. A format-unsupported error (see IsFormatUnsupported)
	// means the runtime cannot execute the asset; anything else means
	// the asset could not be fetched or read.
	Load(ctx context.Context, remoteID string) error
	// Classify runs one line through the loaded model and returns the
	// raw label/score pairs, untransformed.
	Classify(ctx context.Context, text string) ([]LabelScore, error)
	// Unload is best-effort native cleanup of the loaded model.
	Unload(ctx context.Context) error
	// Kill destroys the execution context unconditionally, releasing all
	// memory it held including loaded weights.
	Kill() error
}

// LabelScore mirrors the wire shape of one raw output entry.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// hostLiveError signals Spawn was called while a context is live. The
// orchestrator's sequencing makes this a caller error, never expected.
type hostLiveError struct{}

func (hostLiveError) Error() string { return "a runtime host is already live" }

// ErrHostLive constructs the error returned by Spawn when a host exists.
func ErrHostLive() error { return hostLiveError{} }

// IsHostLive reports whether err indicates a second concurrent host.
func IsHostLive(err error) bool {
	_, ok := err.(hostLiveError)
	return ok
}

// formatUnsupportedError signals the runtime cannot execute a model asset
// (version/opset incompatibility), as opposed to a fetch/read failure.
type formatUnsupportedError struct{ msg string }

func (e formatUnsupportedError) Error() string { return e.msg }

// ErrFormatUnsupported constructs a format-unsupported error.
func ErrFormatUnsupported(msg string) error { return formatUnsupportedError{msg: msg} }

// IsFormatUnsupported reports whether err indicates an unexecutable asset.
func IsFormatUnsupported(err error) bool {
	_, ok := err.(formatUnsupportedError)
	return ok
}
