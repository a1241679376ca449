package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"classd/internal/events"
	"classd/internal/host"
	"classd/internal/session"
	"classd/pkg/types"
)

// modelScript describes how the fake worker behaves for one remote model.
type modelScript struct {
	loadErr   error
	formatErr bool
	// classify maps input text to raw label scores; a nil entry fails
	// that line with an inference error.
	classify map[string][]host.LabelScore
	// gate, when set, blocks every Classify call until closed.
	gate chan struct{}
}

type fakeWorker struct {
	scripts map[string]*modelScript
	current string
	killed  bool
	unloads int
}

func (w *fakeWorker) Load(ctx context.Context, remoteID string) error {
	s, ok := w.scripts[remoteID]
	if !ok {
		return fmt.Errorf("unknown model %s", remoteID)
	}
	if s.formatErr {
		return host.ErrFormatUnsupported(remoteID)
	}
	if s.loadErr != nil {
		return s.loadErr
	}
	w.current = remoteID
	return nil
}

func (w *fakeWorker) Classify(ctx context.Context, text string) ([]host.LabelScore, error) {
	s := w.scripts[w.current]
	if s == nil {
		return nil, errors.New("no model loaded")
	}
	if s.gate != nil {
		<-s.gate
	}
	out, ok := s.classify[text]
	if !ok || out == nil {
		return nil, errors.New("worker crashed on input")
	}
	return out, nil
}

func (w *fakeWorker) Unload(ctx context.Context) error {
	w.unloads++
	w.current = ""
	return nil
}

func (w *fakeWorker) Kill() error {
	w.killed = true
	return nil
}

type fakeRuntime struct {
	scripts  map[string]*modelScript
	startErr error
	workers  []*fakeWorker
}

func (r *fakeRuntime) Start(ctx context.Context) (host.Worker, error) {
	if r.startErr != nil {
		return nil, r.startErr
	}
	w := &fakeWorker{scripts: r.scripts}
	r.workers = append(r.workers, w)
	return w, nil
}

func newEngine(rt *fakeRuntime) (*Engine, *events.MemoryPublisher) {
	pub := events.NewMemoryPublisher()
	c := host.NewController(rt, pub, zerolog.Nop())
	return New(Config{
		Hosts:     c,
		Sessions:  session.NewManager(zerolog.Nop()),
		Publisher: pub,
		Logger:    zerolog.Nop(),
	}), pub
}

func learned(id string) types.Analyzer {
	return types.Analyzer{ID: id, Kind: types.KindLearned, Task: types.TaskSentiment, RemoteID: "org/" + id}
}

func ruleBased(id string) types.Analyzer {
	return types.Analyzer{ID: id, Kind: types.KindRuleBased, Task: types.TaskSentiment}
}

func posNeg(pos, neg float64) []host.LabelScore {
	return []host.LabelScore{{Label: "POSITIVE", Score: pos}, {Label: "NEGATIVE", Score: neg}}
}

// Mixed batch: every cell completes, and the single learned model spawns
// exactly one host which is terminated before the run completes.
func TestRunMixedBatch(t *testing.T) {
	rt := &fakeRuntime{scripts: map[string]*modelScript{
		"org/sst2": {classify: map[string][]host.LabelScore{
			"i love this": posNeg(0.98, 0.02),
			"awful stuff": posNeg(0.03, 0.97),
		}},
	}}
	e, pub := newEngine(rt)

	lines := []string{"i love this", "awful stuff"}
	runID, err := e.Run(context.Background(), RunRequest{
		Lines:     lines,
		Analyzers: []types.Analyzer{ruleBased("lexicon-compound"), learned("sst2")},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run id")
	}
	if e.State() != StateComplete {
		t.Fatalf("state = %s, want complete", e.State())
	}

	snap, ok := e.Result()
	if !ok {
		t.Fatal("no result")
	}
	for i := range snap.Cells {
		for j, c := range snap.Cells[i] {
			if c.Status != types.CellComplete {
				t.Fatalf("cell [%d][%d] = %+v, want complete", i, j, c)
			}
			if c.Sentiment == nil {
				t.Fatalf("cell [%d][%d] has no sentiment payload", i, j)
			}
		}
	}
	if got := snap.Cells[0][1].Sentiment.Label; got != types.SentimentPositive {
		t.Fatalf("learned line 0 label = %s", got)
	}
	if got := snap.Cells[1][1].Sentiment.Label; got != types.SentimentNegative {
		t.Fatalf("learned line 1 label = %s", got)
	}

	if n := len(pub.Named("host_spawn")); n != 1 {
		t.Fatalf("spawns = %d, want 1", n)
	}
	if n := len(pub.Named("host_terminate")); n != 1 {
		t.Fatalf("terminates = %d, want 1", n)
	}
	if e.HostLive() {
		t.Fatal("host still live after run")
	}
}

// A model whose load fails marks its whole column load_failure but the
// run still completes, the host is still terminated, and other columns
// are untouched.
func TestRunModelLoadFailure(t *testing.T) {
	rt := &fakeRuntime{scripts: map[string]*modelScript{
		"org/broken": {loadErr: errors.New("weights corrupt")},
		"org/sst2": {classify: map[string][]host.LabelScore{
			"fine": posNeg(0.8, 0.2),
		}},
	}}
	e, pub := newEngine(rt)

	_, err := e.Run(context.Background(), RunRequest{
		Lines:     []string{"fine"},
		Analyzers: []types.Analyzer{learned("broken"), learned("sst2")},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	snap, _ := e.Result()
	c := snap.Cells[0][0]
	if c.Status != types.CellError || c.ErrKind != types.ErrKindLoadFailure {
		t.Fatalf("broken column cell = %+v", c)
	}
	if snap.Cells[0][1].Status != types.CellComplete {
		t.Fatalf("healthy column cell = %+v", snap.Cells[0][1])
	}
	if e.State() != StateComplete {
		t.Fatalf("state = %s", e.State())
	}
	// Each spawned host was terminated, including the one whose load failed.
	if s, term := len(pub.Named("host_spawn")), len(pub.Named("host_terminate")); s != term {
		t.Fatalf("spawns %d != terminates %d", s, term)
	}
	if e.HostLive() {
		t.Fatal("host leaked")
	}
}

// An unsupported model format is reported as format_mismatch, not a
// generic load failure.
func TestRunFormatMismatch(t *testing.T) {
	rt := &fakeRuntime{scripts: map[string]*modelScript{
		"org/gguf-only": {formatErr: true},
	}}
	e, _ := newEngine(rt)

	_, err := e.Run(context.Background(), RunRequest{
		Lines:     []string{"hello"},
		Analyzers: []types.Analyzer{learned("gguf-only")},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	snap, _ := e.Result()
	if k := snap.Cells[0][0].ErrKind; k != types.ErrKindFormatMismatch {
		t.Fatalf("err kind = %s, want format_mismatch", k)
	}
}

// A single line failing mid-column leaves the other lines complete and
// does not abort the column or leak the host.
func TestRunLineInferenceFailure(t *testing.T) {
	rt := &fakeRuntime{scripts: map[string]*modelScript{
		"org/sst2": {classify: map[string][]host.LabelScore{
			"first":  posNeg(0.9, 0.1),
			"second": nil, // crashes
			"third":  posNeg(0.2, 0.8),
		}},
	}}
	e, _ := newEngine(rt)

	_, err := e.Run(context.Background(), RunRequest{
		Lines:     []string{"first", "second", "third"},
		Analyzers: []types.Analyzer{learned("sst2")},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	snap, _ := e.Result()
	if snap.Cells[0][0].Status != types.CellComplete {
		t.Fatalf("line 0 = %+v", snap.Cells[0][0])
	}
	if c := snap.Cells[1][0]; c.Status != types.CellError || c.ErrKind != types.ErrKindInferenceFailure {
		t.Fatalf("line 1 = %+v", c)
	}
	if snap.Cells[2][0].Status != types.CellComplete {
		t.Fatalf("line 2 = %+v", snap.Cells[2][0])
	}
	if e.HostLive() {
		t.Fatal("host leaked")
	}
}

// Empty input is rejected before any host exists.
func TestRunEmptyInput(t *testing.T) {
	rt := &fakeRuntime{scripts: map[string]*modelScript{}}
	e, pub := newEngine(rt)

	_, err := e.Run(context.Background(), RunRequest{Analyzers: []types.Analyzer{learned("sst2")}})
	if !IsEmptyInput(err) {
		t.Fatalf("err = %v, want empty input", err)
	}
	if e.State() != StateComplete {
		t.Fatalf("state = %s", e.State())
	}
	if len(pub.Named("host_spawn")) != 0 {
		t.Fatal("host spawned for empty input")
	}

	_, err = e.Run(context.Background(), RunRequest{Lines: []string{"a line"}})
	if !IsEmptyInput(err) {
		t.Fatalf("empty analyzer selection: err = %v", err)
	}
}

// A model declared as sentiment that emits a large label set has its
// column corrected to classification, with the full distribution kept.
func TestRunTaskCorrection(t *testing.T) {
	emotions := make([]host.LabelScore, 28)
	for i := range emotions {
		emotions[i] = host.LabelScore{Label: fmt.Sprintf("emotion_%d", i), Score: 1.0 / 28}
	}
	emotions[7] = host.LabelScore{Label: "joy", Score: 0.73}
	rt := &fakeRuntime{scripts: map[string]*modelScript{
		"org/emotions": {classify: map[string][]host.LabelScore{
			"what a day": emotions,
		}},
	}}
	e, _ := newEngine(rt)

	_, err := e.Run(context.Background(), RunRequest{
		Lines:     []string{"what a day"},
		Analyzers: []types.Analyzer{learned("emotions")},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	snap, _ := e.Result()
	if got := snap.Columns[0].Task; got != types.TaskClassification {
		t.Fatalf("column task = %s, want classification", got)
	}
	c := snap.Cells[0][0]
	if c.Classification == nil {
		t.Fatalf("cell = %+v, want classification payload", c)
	}
	if c.Classification.TopLabel != "joy" {
		t.Fatalf("top label = %s", c.Classification.TopLabel)
	}
	if len(c.Classification.Distribution) != 28 {
		t.Fatalf("distribution size = %d", len(c.Classification.Distribution))
	}
}

// Output the worker cannot be normalized from is a cell-scoped parse
// failure, not a run failure.
func TestRunParseFailure(t *testing.T) {
	rt := &fakeRuntime{scripts: map[string]*modelScript{
		"org/odd": {classify: map[string][]host.LabelScore{
			"hm": {{Label: "banana", Score: 0.5}, {Label: "apple", Score: 0.5}},
		}},
	}}
	e, _ := newEngine(rt)

	_, err := e.Run(context.Background(), RunRequest{
		Lines:     []string{"hm"},
		Analyzers: []types.Analyzer{learned("odd")},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	snap, _ := e.Result()
	if k := snap.Cells[0][0].ErrKind; k != types.ErrKindParseFailure {
		t.Fatalf("err kind = %s, want parse_failure", k)
	}
	if e.State() != StateComplete {
		t.Fatalf("state = %s", e.State())
	}
}

// A second run submitted while one is active is rejected with
// AlreadyRunning and does not disturb the active run.
func TestRunAlreadyRunning(t *testing.T) {
	gate := make(chan struct{})
	rt := &fakeRuntime{scripts: map[string]*modelScript{
		"org/slow": {gate: gate, classify: map[string][]host.LabelScore{
			"waiting": posNeg(0.6, 0.4),
		}},
	}}
	e, _ := newEngine(rt)

	req := RunRequest{Lines: []string{"waiting"}, Analyzers: []types.Analyzer{learned("slow")}}
	if _, err := e.Start(context.Background(), req); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Wait until the run is past validation before submitting again.
	waitFor(t, func() bool { return e.State() != StateIdle && e.State() != StateValidatingInput })
	if _, err := e.Run(context.Background(), req); !IsAlreadyRunning(err) {
		t.Fatalf("second run err = %v, want already running", err)
	}

	close(gate)
	waitFor(t, func() bool { return e.State() == StateComplete })
	snap, _ := e.Result()
	if snap.Cells[0][0].Status != types.CellComplete {
		t.Fatalf("cell = %+v", snap.Cells[0][0])
	}
}

// keep_assets_loaded: the host survives across learned models and across
// runs, and a later run without the flag reuses it then tears it down.
func TestRunKeepAssetsLoaded(t *testing.T) {
	rt := &fakeRuntime{scripts: map[string]*modelScript{
		"org/a": {classify: map[string][]host.LabelScore{"x": posNeg(0.7, 0.3)}},
		"org/b": {classify: map[string][]host.LabelScore{"x": posNeg(0.4, 0.6)}},
	}}
	e, pub := newEngine(rt)

	req := RunRequest{
		Lines:            []string{"x"},
		Analyzers:        []types.Analyzer{learned("a"), learned("b")},
		KeepAssetsLoaded: true,
	}
	if _, err := e.Run(context.Background(), req); err != nil {
		t.Fatalf("run 1: %v", err)
	}
	if !e.HostLive() {
		t.Fatal("host not kept alive")
	}
	if n := len(pub.Named("host_spawn")); n != 1 {
		t.Fatalf("spawns after run 1 = %d, want 1", n)
	}

	if _, err := e.Run(context.Background(), req); err != nil {
		t.Fatalf("run 2: %v", err)
	}
	if n := len(pub.Named("host_spawn")); n != 1 {
		t.Fatalf("spawns after run 2 = %d, want 1 (reused)", n)
	}

	req.KeepAssetsLoaded = false
	if _, err := e.Run(context.Background(), req); err != nil {
		t.Fatalf("run 3: %v", err)
	}
	if e.HostLive() {
		t.Fatal("host not released once the flag is dropped")
	}
	// Without the flag teardown is per column again: the first column
	// reuses the kept host and terminates it, the second spawns fresh.
	if n := len(pub.Named("host_spawn")); n != 2 {
		t.Fatalf("spawns after run 3 = %d, want 2", n)
	}
	if n := len(pub.Named("host_terminate")); n != 2 {
		t.Fatalf("terminates after run 3 = %d, want 2", n)
	}
}

// Every host_spawn is matched by a host_terminate before the next spawn:
// at most one execution context exists at any moment.
func TestRunSingleHostInvariant(t *testing.T) {
	rt := &fakeRuntime{scripts: map[string]*modelScript{
		"org/a": {classify: map[string][]host.LabelScore{"x": posNeg(0.7, 0.3)}},
		"org/b": {classify: map[string][]host.LabelScore{"x": posNeg(0.4, 0.6)}},
		"org/c": {loadErr: errors.New("nope")},
	}}
	e, pub := newEngine(rt)

	_, err := e.Run(context.Background(), RunRequest{
		Lines:     []string{"x"},
		Analyzers: []types.Analyzer{learned("a"), learned("c"), learned("b")},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	live := 0
	for _, ev := range pub.Events() {
		switch ev.Name {
		case "host_spawn":
			live++
		case "host_terminate":
			live--
		}
		if live > 1 {
			t.Fatalf("two hosts live at once: %+v", pub.Events())
		}
	}
	if live != 0 {
		t.Fatalf("unbalanced spawn/terminate: %d", live)
	}
}

// Result snapshots are deep copies: mutating one does not leak back.
func TestResultSnapshotIsolation(t *testing.T) {
	rt := &fakeRuntime{scripts: map[string]*modelScript{
		"org/sst2": {classify: map[string][]host.LabelScore{
			"line": posNeg(0.9, 0.1),
		}},
	}}
	e, _ := newEngine(rt)

	_, err := e.Run(context.Background(), RunRequest{
		Lines:     []string{"line"},
		Analyzers: []types.Analyzer{learned("sst2")},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	snap, _ := e.Result()
	snap.Cells[0][0].Sentiment.Score = -42
	snap.Lines[0] = "mutated"

	again, _ := e.Result()
	if again.Cells[0][0].Sentiment.Score == -42 {
		t.Fatal("sentiment payload shared with caller")
	}
	if again.Lines[0] != "line" {
		t.Fatal("lines slice shared with caller")
	}
}

// A rule-based column whose scorer id is unknown fails column-wide
// without touching the learned half of the run.
func TestRunUnknownRuleScorer(t *testing.T) {
	rt := &fakeRuntime{scripts: map[string]*modelScript{}}
	e, pub := newEngine(rt)

	_, err := e.Run(context.Background(), RunRequest{
		Lines:     []string{"something"},
		Analyzers: []types.Analyzer{ruleBased("no-such-scorer")},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	snap, _ := e.Result()
	if k := snap.Cells[0][0].ErrKind; k != types.ErrKindLoadFailure {
		t.Fatalf("err kind = %s, want load_failure", k)
	}
	if len(pub.Named("host_spawn")) != 0 {
		t.Fatal("host spawned for rule-based run")
	}
}

// Progress counters are complete and monotone by the end of a run, and
// status reflects the run counters.
func TestProgressAndStatus(t *testing.T) {
	rt := &fakeRuntime{scripts: map[string]*modelScript{
		"org/sst2": {classify: map[string][]host.LabelScore{
			"a": posNeg(0.9, 0.1),
			"b": posNeg(0.1, 0.9),
		}},
	}}
	e, _ := newEngine(rt)

	if got := e.Progress().State; got != string(StateIdle) {
		t.Fatalf("initial state = %s", got)
	}

	_, err := e.Run(context.Background(), RunRequest{
		Lines:     []string{"a", "b"},
		Analyzers: []types.Analyzer{ruleBased("lexicon-compound"), learned("sst2")},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	p := e.Progress()
	if p.TotalItems != 4 || p.CompletedItems != 4 {
		t.Fatalf("progress = %d/%d, want 4/4", p.CompletedItems, p.TotalItems)
	}
	st := e.Status()
	if st.RunsTotal != 1 {
		t.Fatalf("runs total = %d", st.RunsTotal)
	}
	if st.HostSpawnsTotal != 1 {
		t.Fatalf("host spawns = %d", st.HostSpawnsTotal)
	}
	if st.HostLive {
		t.Fatal("host reported live after run")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
