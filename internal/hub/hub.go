// Package hub fans recorded clipboard entries out to local subscribers.
// It is transport-agnostic: subscribers register, receive events through a
// non-blocking Send, and the recorder publishes each entry once it has been
// committed to history.
package hub

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Event announces a newly recorded clipboard entry.
type Event struct {
	ID        int64
	Timestamp time.Time
	Content   []byte
}

// Subscriber is anything that can receive events from the hub.
type Subscriber interface {
	ID() string
	// Send delivers an event. Must be non-blocking.
	Send(Event)
}

// Hub routes events to every registered subscriber.
type Hub struct {
	mu        sync.RWMutex
	subs      map[string]Subscriber
	latest    Event
	hasLatest bool
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[string]Subscriber)}
}

// Register adds a subscriber. A subscriber registered under an existing ID
// replaces the previous one.
func (h *Hub) Register(s Subscriber) {
	h.register(s, false)
}

// RegisterWithLatest adds a subscriber and first delivers the latest event,
// if any. No event published concurrently is missed or delivered out of
// order.
func (h *Hub) RegisterWithLatest(s Subscriber) {
	h.register(s, true)
}

func (h *Hub) register(s Subscriber, replay bool) {
	h.mu.Lock()
	h.subs[s.ID()] = s
	total := len(h.subs)
	if replay && h.hasLatest {
		// Send is non-blocking, so it is safe under the lock.
		s.Send(h.latest)
	}
	h.mu.Unlock()

	slog.Info("subscriber registered", "subscriber", s.ID(), "total", total)
}

// Unregister removes a subscriber.
func (h *Hub) Unregister(s Subscriber) {
	h.mu.Lock()
	delete(h.subs, s.ID())
	total := len(h.subs)
	h.mu.Unlock()

	slog.Info("subscriber unregistered", "subscriber", s.ID(), "total", total)
}

// Publish records ev as the latest event and delivers it to every
// subscriber.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	h.latest = ev
	h.hasLatest = true
	targets := make([]Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.Send(ev)
	}
}

// Latest returns the most recently published event.
func (h *Hub) Latest() (Event, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.hasLatest
}

// Subscribers returns the sorted IDs of all registered subscribers.
func (h *Hub) Subscribers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.subs))
	for id := range h.subs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
