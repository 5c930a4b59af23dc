// Package hooks provides an event-driven hook system for tool calls and
// droplet provisioning lifecycle events.
package hooks

import (
	"context"
	"sync"

	"github.com/soyeahso/mcp-digitalocean/internal/logging"
)

// Event names for the hook system.
const (
	EventServerStart    = "server_start"
	EventServerStop     = "server_stop"
	EventToolCallStart  = "tool_call_start"
	EventToolCallEnd    = "tool_call_end"
	EventDropletCreated = "droplet_created"
	EventDropletDeleted = "droplet_deleted"

	// Provisioning waiter events.
	EventPollObserved      = "poll_observed"
	EventPollFailed        = "poll_failed"
	EventProvisionActive   = "provision_active"
	EventProvisionFailed   = "provision_failed"
	EventProvisionTimedOut = "provision_timed_out"
)

// AllEvents lists all known hook event names.
var AllEvents = []string{
	EventServerStart,
	EventServerStop,
	EventToolCallStart,
	EventToolCallEnd,
	EventDropletCreated,
	EventDropletDeleted,
	EventPollObserved,
	EventPollFailed,
	EventProvisionActive,
	EventProvisionFailed,
	EventProvisionTimedOut,
}

// Payload carries event data to hook handlers.
type Payload struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// Handler is a function that handles a hook event.
// Returning an error logs the failure but does not stop processing.
type Handler func(ctx context.Context, p Payload) error

// Manager manages hook registrations and dispatches events.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]namedHandler),
		log:      log.Sub("hooks"),
	}
}

// On registers a handler for the given event.
// The name identifies the handler for logging and debugging.
func (m *Manager) On(event, name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], namedHandler{name: name, handler: handler})
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

// Emit dispatches an event to all registered handlers synchronously.
// Handlers are called in registration order. Errors are logged but do not
// prevent subsequent handlers from running.
// A nil Manager drops the event.
func (m *Manager) Emit(ctx context.Context, event string, data map[string]any) {
	if m == nil {
		return
	}
	m.mu.RLock()
	handlers := make([]namedHandler, len(m.handlers[event]))
	copy(handlers, m.handlers[event])
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	payload := Payload{Event: event, Data: data}

	for _, h := range handlers {
		if err := h.handler(ctx, payload); err != nil {
			m.log.Warn().
				Err(err).
				Str("event", event).
				Str("handler", h.name).
				Msg("hook handler error")
		}
	}
}
