//go:build llama

package host

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"classd/internal/common/fsutil"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// LlamaConfig configures the in-process llama.cpp runtime.
type LlamaConfig struct {
	// ModelStoreDir holds *.gguf classifier files keyed by remote id.
	ModelStoreDir string
	CtxSize       int
	Threads       int
}

// llamaRuntime hosts models in-process via CGO. Unlike the subprocess
// runtime the "execution context" is the loaded model itself; Kill frees
// its weights.
type llamaRuntime struct {
	cfg LlamaConfig
}

// NewLlamaRuntime builds the in-process runtime (requires the 'llama'
// build tag).
func NewLlamaRuntime(cfg LlamaConfig) Runtime {
	return &llamaRuntime{cfg: cfg}
}

func (r *llamaRuntime) Start(ctx context.Context) (Worker, error) {
	return &llamaWorker{cfg: r.cfg}, nil
}

type llamaWorker struct {
	cfg   LlamaConfig
	model *llama.LLama
}

func (w *llamaWorker) Load(ctx context.Context, remoteID string) error {
	path, err := w.resolve(remoteID)
	if err != nil {
		return err
	}
	m, err := llama.New(path, llama.SetContext(max(512, w.cfg.CtxSize)))
	if err != nil {
		// llama.cpp rejects files it cannot execute; treat as a format
		// problem rather than a fetch problem since the file exists.
		return ErrFormatUnsupported(fmt.Sprintf("llama cannot load %s: %v", remoteID, err))
	}
	w.model = m
	return nil
}

func (w *llamaWorker) Classify(ctx context.Context, text string) ([]LabelScore, error) {
	if w.model == nil {
		return nil, errors.New("no model loaded")
	}
	prompt := "Classify the sentiment of the following text as POSITIVE or NEGATIVE.\nText: " +
		strings.ReplaceAll(text, "\n", " ") + "\nAnswer:"
	out, err := w.model.Predict(prompt,
		llama.SetTokens(4),
		llama.SetThreads(max(1, w.cfg.Threads)),
		llama.SetTemperature(0),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	answer := strings.ToLower(strings.TrimSpace(out))
	switch {
	case strings.HasPrefix(answer, "positive"):
		return []LabelScore{{Label: "POSITIVE", Score: 1}, {Label: "NEGATIVE", Score: 0}}, nil
	case strings.HasPrefix(answer, "negative"):
		return []LabelScore{{Label: "NEGATIVE", Score: 1}, {Label: "POSITIVE", Score: 0}}, nil
	default:
		return []LabelScore{{Label: answer, Score: 1}}, nil
	}
}

func (w *llamaWorker) Unload(ctx context.Context) error {
	// Kill frees the weights; nothing lighter is available.
	return nil
}

func (w *llamaWorker) Kill() error {
	if w.model != nil {
		w.model.Free()
		w.model = nil
	}
	return nil
}

func (w *llamaWorker) resolve(remoteID string) (string, error) {
	flat := strings.ReplaceAll(remoteID, "/", "--")
	p := fsutil.FirstExisting(
		filepath.Join(w.cfg.ModelStoreDir, filepath.FromSlash(remoteID)+".gguf"),
		filepath.Join(w.cfg.ModelStoreDir, filepath.FromSlash(remoteID), "model.gguf"),
		filepath.Join(w.cfg.ModelStoreDir, flat+".gguf"),
	)
	if p == "" {
		return "", fmt.Errorf("no gguf asset for %s in %s", remoteID, w.cfg.ModelStoreDir)
	}
	return p, nil
}
