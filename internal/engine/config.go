package engine

import (
	"time"

	"github.com/rs/zerolog"

	"classd/internal/events"
	"classd/internal/host"
	"classd/internal/session"
)

// Config encapsulates the engine's collaborators.
type Config struct {
	Hosts     *host.Controller
	Sessions  *session.Manager
	Publisher events.Publisher
	Logger    zerolog.Logger
}

// New constructs an Engine from Config. A nil publisher drops events.
func New(cfg Config) *Engine {
	pub := cfg.Publisher
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Engine{
		state:     StateIdle,
		hosts:     cfg.Hosts,
		sessions:  cfg.Sessions,
		publisher: pub,
		log:       cfg.Logger,
		progress:  newProgress(),
		startTime: time.Now(),
	}
}
