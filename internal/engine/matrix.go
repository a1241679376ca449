package engine

import (
	"sync"

	"classd/internal/session"
	"classd/pkg/types"
)

// Matrix is the lines x analyzers result grid for one run. The engine is
// its only writer; each cell mutation is a single replace under the lock,
// so observers may snapshot between writes at any time. Cells are created
// Pending before analysis begins, mutated in place exactly once, and never
// deleted during a run.
type Matrix struct {
	mu      sync.RWMutex
	lines   []string
	columns []types.Analyzer
	cells   [][]types.Cell
	// taskObserved marks columns whose task was fixed by a first real
	// output; a column is corrected at most once.
	taskObserved []bool
}

// NewMatrix builds a matrix with every cell Pending. The column list is
// fixed for the whole run.
func NewMatrix(lines []string, columns []types.Analyzer) *Matrix {
	m := &Matrix{
		lines:        append([]string(nil), lines...),
		columns:      append([]types.Analyzer(nil), columns...),
		cells:        make([][]types.Cell, len(lines)),
		taskObserved: make([]bool, len(columns)),
	}
	for i := range m.cells {
		row := make([]types.Cell, len(columns))
		for j := range row {
			row[j] = types.Cell{Status: types.CellPending}
		}
		m.cells[i] = row
	}
	return m
}

// Dims returns (lines, columns).
func (m *Matrix) Dims() (int, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lines), len(m.columns)
}

// SetSentiment completes a rule-based cell with a sentiment payload.
func (m *Matrix) SetSentiment(line, col int, p types.SentimentPayload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pp := p
	m.cells[line][col] = types.Cell{Status: types.CellComplete, Sentiment: &pp}
}

// SetOutput completes a learned cell from a normalized output. The first
// real output observed for a column fixes the column's task; a column
// initially declared sentiment becomes classification (or vice versa) if
// its true shape disagrees.
func (m *Matrix) SetOutput(line, col int, out session.Output) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.taskObserved[col] {
		m.taskObserved[col] = true
		if m.columns[col].Task != out.Task {
			m.columns[col].Task = out.Task
		}
	}
	cell := types.Cell{Status: types.CellComplete, Raw: append([]types.LabelScore(nil), out.Raw...)}
	if out.Sentiment != nil {
		p := *out.Sentiment
		cell.Sentiment = &p
	}
	if out.Classification != nil {
		p := *out.Classification
		p.Distribution = copyDist(out.Classification.Distribution)
		cell.Classification = &p
	}
	m.cells[line][col] = cell
}

// SetError marks one cell as failed with an error kind and message.
func (m *Matrix) SetError(line, col int, kind, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells[line][col] = types.Cell{Status: types.CellError, ErrKind: kind, Error: msg}
}

// FailColumn marks every still-Pending cell of a column as failed and
// returns how many cells it marked. Used when a model's load fails: the
// whole column becomes Error and the run continues with the next model.
func (m *Matrix) FailColumn(col int, kind, msg string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.cells {
		if m.cells[i][col].Status == types.CellPending {
			m.cells[i][col] = types.Cell{Status: types.CellError, ErrKind: kind, Error: msg}
			n++
		}
	}
	return n
}

// PendingCount returns the number of cells still Pending.
func (m *Matrix) PendingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for i := range m.cells {
		for j := range m.cells[i] {
			if m.cells[i][j].Status == types.CellPending {
				n++
			}
		}
	}
	return n
}

// Column returns the current descriptor of one column (its task may have
// been corrected after the first inference).
func (m *Matrix) Column(col int) types.Analyzer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.columns[col]
}

// Snapshot returns a deep copy safe for external readers.
func (m *Matrix) Snapshot() types.MatrixSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := types.MatrixSnapshot{
		Lines:   append([]string(nil), m.lines...),
		Columns: append([]types.Analyzer(nil), m.columns...),
		Cells:   make([][]types.Cell, len(m.cells)),
	}
	for i := range m.cells {
		row := make([]types.Cell, len(m.cells[i]))
		for j, c := range m.cells[i] {
			cc := c
			if c.Sentiment != nil {
				p := *c.Sentiment
				cc.Sentiment = &p
			}
			if c.Classification != nil {
				p := *c.Classification
				p.Distribution = copyDist(c.Classification.Distribution)
				cc.Classification = &p
			}
			if c.Raw != nil {
				cc.Raw = append([]types.LabelScore(nil), c.Raw...)
			}
			row[j] = cc
		}
		snap.Cells[i] = row
	}
	return snap
}

func copyDist(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
