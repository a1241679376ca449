package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"classd/internal/common/fsutil"
	"classd/pkg/types"
)

// ScanGGUF scans a directory for *.gguf files and returns one learned
// sentiment analyzer per file, RemoteID set to the filename. Used with
// runtimes that execute gguf weights in-process instead of spawning a
// worker.
func ScanGGUF(dir string) ([]types.Analyzer, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []types.Analyzer
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		out = append(out, types.Analyzer{
			ID:          id,
			DisplayName: id,
			Kind:        types.KindLearned,
			Task:        types.TaskSentiment,
			RemoteID:    name,
		})
	}
	return out, nil
}
