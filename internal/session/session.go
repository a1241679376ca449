// Package session owns the load -> ready -> run -> dispose lifecycle of one
// learned model inside one runtime host, and normalizes heterogeneous model
// output shapes into the two result payload shapes.
package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"classd/internal/host"
	"classd/pkg/types"
)

// State is the lifecycle state of a session.
type State string

const (
	StateUnloaded    State = "unloaded"
	StateDownloading State = "downloading"
	StateLoaded      State = "loaded"
	StateDisposed    State = "disposed"
)

// Session is one learned model loaded into one host. A session cannot
// outlive its host: terminating the host implicitly disposes it.
type Session struct {
	ModelID string
	state   State
	hostRef *host.Handle
}

// State returns the session's lifecycle state.
func (s *Session) State() State { return s.state }

// Host returns the handle of the host this session lives in.
func (s *Session) Host() *host.Handle { return s.hostRef }

// Manager drives session lifecycles.
type Manager struct {
	log zerolog.Logger
	// disposeTimeout bounds best-effort native cleanup.
	disposeTimeout time.Duration
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{log: log, disposeTimeout: 5 * time.Second}
}

// Load fetches and loads the model into the host. On failure no partial
// session is left behind; the error is a load failure or, when the runtime
// cannot execute the asset, a format mismatch.
func (m *Manager) Load(ctx context.Context, h *host.Handle, d types.Analyzer) (*Session, error) {
	s := &Session{ModelID: d.ID, state: StateDownloading, hostRef: h}
	m.log.Info().Str("model", d.ID).Str("remote", d.RemoteID).Msg("session load")
	if err := h.Worker().Load(ctx, d.RemoteID); err != nil {
		if host.IsFormatUnsupported(err) {
			return nil, ErrFormatMismatch(err.Error())
		}
		return nil, ErrLoadFailure(err.Error())
	}
	s.state = StateLoaded
	return s, nil
}

// Infer runs one line through the loaded model and normalizes its native
// output shape. Unrecognized shapes fail with a parse failure rather than
// a fabricated neutral result.
func (m *Manager) Infer(ctx context.Context, s *Session, text string) (Output, error) {
	if s == nil || s.state != StateLoaded {
		return Output{}, ErrInferenceFailure("session not loaded")
	}
	raw, err := s.hostRef.Worker().Classify(ctx, text)
	if err != nil {
		return Output{}, ErrInferenceFailure(err.Error())
	}
	labels := make([]types.LabelScore, len(raw))
	for i, ls := range raw {
		labels[i] = types.LabelScore{Label: ls.Label, Score: ls.Score}
	}
	return Normalize(labels)
}

// Dispose performs best-effort native cleanup. The caller terminates the
// host afterwards regardless of the outcome.
func (m *Manager) Dispose(s *Session) {
	if s == nil || s.state == StateDisposed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.disposeTimeout)
	defer cancel()
	if err := s.hostRef.Worker().Unload(ctx); err != nil {
		m.log.Warn().Str("model", s.ModelID).Err(err).Msg("session dispose")
	}
	s.state = StateDisposed
}
