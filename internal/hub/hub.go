// Package hub fans clipboard payloads out to subscribers.
// It is transport-agnostic: the watcher notifies the hub as its event.Sink,
// and subscribers (gRPC streams, WebSocket connections) register to receive
// payloads through a non-blocking Send.
package hub

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.klb.dev/clipwatch/internal/event"
)

// SubscriberInfo describes a registered subscriber for status output.
type SubscriberInfo struct {
	ID          string       `json:"id"`
	Transport   string       `json:"transport"`
	Addr        string       `json:"addr"`
	Accepts     []event.Kind `json:"accepts,omitempty"`
	ConnectedAt time.Time    `json:"connected_at"`
	LastSent    time.Time    `json:"last_sent,omitzero"`
	Dropped     uint64       `json:"dropped,omitempty"`
}

// Wants reports whether a subscriber with the given filter wants kind k.
// An empty filter accepts everything.
func (i SubscriberInfo) Wants(k event.Kind) bool {
	return len(i.Accepts) == 0 || slices.Contains(i.Accepts, k)
}

// Subscriber is anything that can receive payloads from the hub.
type Subscriber interface {
	ID() string
	Info() SubscriberInfo
	// Send delivers a payload to the subscriber. It runs under the hub lock:
	// it must not block or call back into the hub.
	Send(event.Payload)
}

// Stats is a snapshot of hub activity.
type Stats struct {
	Published   map[event.Kind]uint64
	LastChange  time.Time
	Subscribers int
}

// Hub routes payloads to every registered subscriber that accepts their kind.
type Hub struct {
	mu        sync.RWMutex
	subs      map[string]Subscriber
	latest    map[event.Kind]event.Payload
	published map[event.Kind]uint64
	changedAt time.Time
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{
		subs:      make(map[string]Subscriber),
		latest:    make(map[event.Kind]event.Payload),
		published: make(map[event.Kind]uint64),
	}
}

// Register adds a subscriber. When replay is set the latest payload of every
// accepted kind is delivered immediately, text before image. Replay and
// Notify deliver under the same lock, so a replayed payload never arrives
// after a newer live one.
func (h *Hub) Register(s Subscriber, replay bool) {
	info := s.Info()

	h.mu.Lock()
	h.subs[s.ID()] = s
	total := len(h.subs)
	if replay {
		for _, k := range []event.Kind{event.KindText, event.KindImage} {
			if p, ok := h.latest[k]; ok && info.Wants(k) {
				s.Send(p)
			}
		}
	}
	h.mu.Unlock()

	slog.Info("subscriber registered",
		"subscriber", s.ID(),
		"transport", info.Transport,
		"addr", info.Addr,
		"total", total,
	)
}

// Unregister removes a subscriber from the hub.
func (h *Hub) Unregister(s Subscriber) {
	h.mu.Lock()
	delete(h.subs, s.ID())
	total := len(h.subs)
	h.mu.Unlock()

	slog.Info("subscriber unregistered",
		"subscriber", s.ID(),
		"transport", s.Info().Transport,
		"total", total,
	)
}

// Notify implements event.Sink: it records p as the latest payload of its
// kind and fans it out in production order. Subscriber.Send never blocks, so
// delivery happens under the hub lock. A hub with no subscribers drops the
// payload.
func (h *Hub) Notify(p event.Payload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest[p.Kind] = p
	h.published[p.Kind]++
	h.changedAt = time.Now()

	for _, s := range h.subs {
		if s.Info().Wants(p.Kind) {
			s.Send(p)
		}
	}
}

// Latest returns the most recent payload of kind k.
func (h *Hub) Latest(k event.Kind) (event.Payload, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.latest[k]
	return p, ok
}

// Subscribers returns a snapshot of all subscriber metadata, ordered by
// connection time.
func (h *Hub) Subscribers() []SubscriberInfo {
	h.mu.RLock()
	out := make([]SubscriberInfo, 0, len(h.subs))
	for _, s := range h.subs {
		out = append(out, s.Info())
	}
	h.mu.RUnlock()

	slices.SortFunc(out, func(a, b SubscriberInfo) int {
		return a.ConnectedAt.Compare(b.ConnectedAt)
	})
	return out
}

// Stats returns publication counters.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	pub := make(map[event.Kind]uint64, len(h.published))
	for k, n := range h.published {
		pub[k] = n
	}
	return Stats{Published: pub, LastChange: h.changedAt, Subscribers: len(h.subs)}
}
