//go:build !llama

package host

import (
	"context"
	"errors"
)

// This file provides a no-CGO stub for the in-process llama runtime. It is
// compiled when the 'llama' build tag is NOT set, keeping default builds
// and CI CGO-free. The real runtime lives in runtime_llama.go.

var llamaBuilt = false

// LlamaConfig configures the in-process llama.cpp runtime.
type LlamaConfig struct {
	ModelStoreDir string
	CtxSize       int
	Threads       int
}

type llamaRuntime struct{}

// NewLlamaRuntime returns a runtime that refuses to start without the
// 'llama' build tag. No mocked behavior in production binaries.
func NewLlamaRuntime(cfg LlamaConfig) Runtime {
	return &llamaRuntime{}
}

func (r *llamaRuntime) Start(ctx context.Context) (Worker, error) {
	return nil, errors.New("llama support not built (missing 'llama' build tag)")
}
