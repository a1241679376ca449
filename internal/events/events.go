// Package events carries lifecycle events emitted by the engine and the
// host controller. Tests subscribe with MemoryPublisher to assert ordering
// invariants (e.g. every spawn is paired with a terminate).
package events

// Event represents a lifecycle event.
// Minimal and stable: name + analyzer/model id and optional fields via key/values.
type Event struct {
	Name       string
	AnalyzerID string
	Fields     map[string]any
}

// Publisher receives events. Implementations should be lightweight and
// non-blocking; Publish must not panic.
type Publisher interface {
	Publish(Event)
}

// NopPublisher is the default; it drops events.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
