// Package registry maps tool slugs to renderable tools. Lookups of unmapped
// slugs resolve to an explicit not-found tool rather than nil.
package registry

import (
	"sort"
	"sync"
	"time"
)

// Registry holds the tools known to the site.
type Registry struct {
	tools    map[string]Tool
	mutex    sync.RWMutex
	watchers []chan Event
}

// Event reports a change to the registry.
type Event struct {
	Type      EventType
	Tool      Tool
	Timestamp time.Time
}

// EventType is the kind of registry change.
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

func (e EventType) String() string {
	switch e {
	case EventTypeAdded:
		return "added"
	case EventTypeUpdated:
		return "updated"
	case EventTypeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		tools:    make(map[string]Tool),
		watchers: make([]chan Event, 0),
	}
}

// Register adds or replaces the tool under its slug.
func (r *Registry) Register(tool Tool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := EventTypeAdded
	if _, exists := r.tools[tool.Slug()]; exists {
		eventType = EventTypeUpdated
	}

	r.tools[tool.Slug()] = tool
	r.notify(Event{Type: eventType, Tool: tool, Timestamp: time.Now()})
}

// Get returns the tool registered under slug.
func (r *Registry) Get(slug string) (Tool, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	tool, exists := r.tools[slug]
	return tool, exists
}

// Resolve returns the tool for slug, or a NotFoundTool when none is mapped.
func (r *Registry) Resolve(slug string) Tool {
	if tool, ok := r.Get(slug); ok {
		return tool
	}
	return NotFoundTool{slug: slug}
}

// All returns the registered tools sorted by slug.
func (r *Registry) All() []Tool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Slug() < result[j].Slug()
	})
	return result
}

// Remove deletes the tool under slug, if any.
func (r *Registry) Remove(slug string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	tool, exists := r.tools[slug]
	if !exists {
		return
	}

	delete(r.tools, slug)
	r.notify(Event{Type: EventTypeRemoved, Tool: tool, Timestamp: time.Now()})
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.tools)
}

// Watch returns a channel that receives registry events. Events are
// dropped for watchers that fall behind.
func (r *Registry) Watch() <-chan Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan Event, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes and closes a channel returned by Watch.
func (r *Registry) UnWatch(ch <-chan Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// notify must be called with the write lock held.
func (r *Registry) notify(event Event) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
		}
	}
}
