// Package catalog assembles the list of selectable analyzers: the built-in
// rule-based scorers plus learned-model descriptors read from a catalog
// file. The engine treats descriptors as immutable input.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"classd/internal/common/fsutil"
	"classd/internal/rules"
	"classd/pkg/types"
)

// catalogFile is the on-disk shape of a learned-model catalog.
type catalogFile struct {
	Models []types.Analyzer `json:"models" yaml:"models" toml:"models"`
}

// Builtins returns descriptors for the built-in rule-based analyzers.
func Builtins() []types.Analyzer {
	scorers := rules.Builtins()
	out := make([]types.Analyzer, 0, len(scorers))
	for _, s := range scorers {
		out = append(out, s.Descriptor())
	}
	return out
}

// Load returns the full catalog: built-ins followed by the learned models
// from path. An empty path yields built-ins only.
func Load(path string) ([]types.Analyzer, error) {
	all := Builtins()
	if path == "" {
		return all, nil
	}
	learned, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return append(all, learned...), nil
}

// LoadFile reads learned-model descriptors from a catalog file
// (.yaml/.yml, .json or .toml by extension) and validates them.
func LoadFile(path string) ([]types.Analyzer, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var cf catalogFile
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cf); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cf); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cf); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog extension: %s", ext)
	}
	seen := map[string]bool{}
	for i := range cf.Models {
		m := &cf.Models[i]
		if m.Kind == "" {
			m.Kind = types.KindLearned
		}
		if m.Task == "" {
			m.Task = types.TaskSentiment
		}
		if err := validate(*m); err != nil {
			return nil, err
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("catalog: duplicate analyzer id %q", m.ID)
		}
		seen[m.ID] = true
		if m.DisplayName == "" {
			m.DisplayName = m.ID
		}
	}
	return cf.Models, nil
}

// Select resolves ids against the catalog, preserving selection order.
// An empty selection means the whole catalog.
func Select(all []types.Analyzer, ids []string) ([]types.Analyzer, error) {
	if len(ids) == 0 {
		out := make([]types.Analyzer, len(all))
		copy(out, all)
		return out, nil
	}
	byID := make(map[string]types.Analyzer, len(all))
	for _, a := range all {
		byID[a.ID] = a
	}
	out := make([]types.Analyzer, 0, len(ids))
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			return nil, ErrAnalyzerNotFound(id)
		}
		out = append(out, a)
	}
	return out, nil
}

func validate(a types.Analyzer) error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("catalog: analyzer with empty id")
	}
	switch a.Kind {
	case types.KindRuleBased, types.KindLearned:
	default:
		return fmt.Errorf("catalog: analyzer %q has unknown kind %q", a.ID, a.Kind)
	}
	switch a.Task {
	case types.TaskSentiment, types.TaskClassification:
	default:
		return fmt.Errorf("catalog: analyzer %q has unknown task %q", a.ID, a.Task)
	}
	if a.Kind == types.KindLearned && strings.TrimSpace(a.RemoteID) == "" {
		return fmt.Errorf("catalog: learned analyzer %q has no remote id", a.ID)
	}
	return nil
}

// analyzerNotFoundError reports a selection id missing from the catalog.
type analyzerNotFoundError struct{ id string }

func (e analyzerNotFoundError) Error() string { return "analyzer not found: " + e.id }

func ErrAnalyzerNotFound(id string) error { return analyzerNotFoundError{id: id} }

// IsAnalyzerNotFound reports whether the error indicates a missing analyzer id.
func IsAnalyzerNotFound(err error) bool {
	_, ok := err.(analyzerNotFoundError)
	return ok
}
