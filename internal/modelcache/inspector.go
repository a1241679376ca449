// Package modelcache answers whether a learned model's assets are already
// in the local content store. The check is advisory only: it never
// downloads, and loading must succeed (or fail) regardless of its answer.
package modelcache

import (
	"path/filepath"
	"strings"

	"classd/internal/common/fsutil"
	"classd/pkg/types"
)

// Weights file names probed inside a model directory. Models are not
// uniformly laid out; quantized exports and flat layouts both occur.
var weightsNames = []string{
	"onnx/model.onnx",
	"onnx/model_quantized.onnx",
	"model.onnx",
	"model_quantized.onnx",
	"model.safetensors",
}

// configName is required alongside the weights.
const configName = "config.json"

// Inspector inspects the on-disk model content store.
type Inspector struct {
	root string
}

// New builds an Inspector rooted at dir ('~' is expanded).
func New(dir string) (*Inspector, error) {
	root, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	return &Inspector{root: root}, nil
}

// IsCached reports whether both a configuration asset and a weights asset
// exist for the remote identifier, under any known layout.
func (i *Inspector) IsCached(remoteID string) bool {
	if strings.TrimSpace(remoteID) == "" {
		return false
	}
	for _, dir := range i.modelDirs(remoteID) {
		if !fsutil.FileExists(filepath.Join(dir, configName)) {
			continue
		}
		var weights []string
		for _, w := range weightsNames {
			weights = append(weights, filepath.Join(dir, w))
		}
		if fsutil.FirstExisting(weights...) != "" {
			return true
		}
	}
	return false
}

// EstimateDownloadBytes sums the advisory asset sizes of the learned,
// not-yet-cached analyzers in the selection.
func (i *Inspector) EstimateDownloadBytes(analyzers []types.Analyzer) int64 {
	var total int64
	for _, a := range analyzers {
		if a.Kind != types.KindLearned {
			continue
		}
		if i.IsCached(a.RemoteID) {
			continue
		}
		total += a.ApproxAssetBytes
	}
	return total
}

// modelDirs returns the candidate directories for one logical model:
// the plain "<root>/<org>/<name>" layout and the flattened hub layout
// "<root>/models--<org>--<name>".
func (i *Inspector) modelDirs(remoteID string) []string {
	plain := filepath.Join(i.root, filepath.FromSlash(remoteID))
	hub := filepath.Join(i.root, "models--"+strings.ReplaceAll(remoteID, "/", "--"))
	return []string{plain, hub}
}
