package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"classd/internal/events"
)

// Handle is the opaque reference to one execution context. States:
// Absent -> Spawned -> Terminated. Only the controller mutates it.
type Handle struct {
	id         string
	worker     Worker
	terminated bool
}

// ID returns the handle's identifier, used in logs and events.
func (h *Handle) ID() string { return h.id }

// Worker returns the live worker. Callers must not retain it past
// termination.
func (h *Handle) Worker() Worker { return h.worker }

// Controller creates and destroys execution contexts. At most one
// non-terminated context exists at any time.
type Controller struct {
	mu        sync.Mutex
	runtime   Runtime
	publisher events.Publisher
	log       zerolog.Logger

	live   *Handle
	spawns uint64
}

// NewController builds a Controller over the given runtime. A nil
// publisher drops events.
func NewController(rt Runtime, pub events.Publisher, log zerolog.Logger) *Controller {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Controller{runtime: rt, publisher: pub, log: log}
}

// Spawn creates a fresh execution context with no resident model state.
// Calling Spawn while a context is live is a caller error.
func (c *Controller) Spawn(ctx context.Context) (*Handle, error) {
	c.mu.Lock()
	if c.live != nil {
		c.mu.Unlock()
		return nil, ErrHostLive()
	}
	c.mu.Unlock()

	w, err := c.runtime.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("spawn host: %w", err)
	}
	h := &Handle{id: uuid.NewString(), worker: w}

	c.mu.Lock()
	if c.live != nil {
		// Lost the race to another spawner; undo ours.
		c.mu.Unlock()
		_ = w.Kill()
		return nil, ErrHostLive()
	}
	c.live = h
	c.spawns++
	c.mu.Unlock()

	c.log.Info().Str("host", h.id).Msg("host spawned")
	c.publisher.Publish(events.Event{Name: "host_spawn", Fields: map[string]any{"host": h.id}})
	return h, nil
}

// Terminate destroys the context unconditionally, releasing all memory it
// held. Safe to call with a nil or already-terminated handle so that
// error-recovery paths can call it unconditionally.
func (c *Controller) Terminate(h *Handle) error {
	if h == nil {
		return nil
	}
	c.mu.Lock()
	if h.terminated {
		c.mu.Unlock()
		return nil
	}
	h.terminated = true
	if c.live == h {
		c.live = nil
	}
	c.mu.Unlock()

	err := h.worker.Kill()
	if err != nil {
		c.log.Warn().Str("host", h.id).Err(err).Msg("host terminate")
	} else {
		c.log.Info().Str("host", h.id).Msg("host terminated")
	}
	c.publisher.Publish(events.Event{Name: "host_terminate", Fields: map[string]any{"host": h.id}})
	return err
}

// Live returns the currently live handle, or nil.
func (c *Controller) Live() *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// SpawnsTotal reports how many contexts have been created since start.
func (c *Controller) SpawnsTotal() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spawns
}
