// CLAUDE:SUMMARY Session registry and fan-out: directed send, full broadcast, delta broadcast skipping the originator.
// Package hub tracks connected sessions and fans events out to them.
// Delivery is fire-and-forget: a Session's Send must never block, so a
// stalled consumer misses messages instead of stalling the sequencer.
package hub

import (
	"log/slog"
	"sync"
)

// Event is one server-to-client message.
type Event struct {
	Name string // "canvas-data", "stroke-added", "canvas-cleared", "error"
	Data any
}

// Session is one connected client. Send reports false when the event was
// dropped (buffer full or session closing); the hub does not retry.
type Session interface {
	ID() string
	Send(Event) bool
}

// Hub is the session registry plus broadcaster. Sessions are process-local
// and rebuilt from scratch on every restart.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]Session
	logger   *slog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// New creates an empty Hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		sessions: make(map[string]Session),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register adds a session. A session re-registering under the same id
// replaces the previous entry.
func (h *Hub) Register(s Session) {
	h.mu.Lock()
	h.sessions[s.ID()] = s
	n := len(h.sessions)
	h.mu.Unlock()
	h.logger.Debug("session registered", "session_id", s.ID(), "connected", n)
}

// Unregister removes a session by id. Unknown ids are ignored (transport
// disconnect and explicit detach may race).
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	_, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	n := len(h.sessions)
	h.mu.Unlock()
	if ok {
		h.logger.Debug("session unregistered", "session_id", id, "connected", n)
	}
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Send delivers an event to one session. Returns false when the session is
// unknown or its buffer rejected the event.
func (h *Hub) Send(id string, ev Event) bool {
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if !s.Send(ev) {
		h.logger.Warn("event dropped", "session_id", id, "event", ev.Name)
		return false
	}
	return true
}

// BroadcastExcept delivers an event to every session except origin. Used
// for delta broadcasts: the originator already applied the stroke locally
// and must not receive an echo.
func (h *Hub) BroadcastExcept(origin string, ev Event) int {
	return h.fanOut(ev, origin)
}

// Broadcast delivers an event to every session, originator included. Used
// for full broadcasts after destructive operations.
func (h *Hub) Broadcast(ev Event) int {
	return h.fanOut(ev, "")
}

// fanOut sends to all sessions except skip, returning the delivered count.
func (h *Hub) fanOut(ev Event, skip string) int {
	h.mu.RLock()
	targets := make([]Session, 0, len(h.sessions))
	for id, s := range h.sessions {
		if id == skip {
			continue
		}
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	sent := 0
	for _, s := range targets {
		if s.Send(ev) {
			sent++
		} else {
			h.logger.Warn("event dropped", "session_id", s.ID(), "event", ev.Name)
		}
	}
	return sent
}
