package sse

import (
	"log/slog"
	"sync"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/notification"
)

// Hub manages SSE subscribers and event broadcasting. Topics are
// tenant-scoped: a subscriber only ever sees its own tenant's events.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan notification.Event]struct{}
}

// NewHub creates a new SSE Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan notification.Event]struct{}),
	}
}

// Subscribe registers a new subscriber on a tenant topic and returns the
// event channel and cleanup function
func (h *Hub) Subscribe(tenantID string) (chan notification.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan notification.Event, 16)

	if h.subscribers[tenantID] == nil {
		h.subscribers[tenantID] = make(map[chan notification.Event]struct{})
	}
	h.subscribers[tenantID][ch] = struct{}{}

	cleanup := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers[tenantID], ch)
		close(ch)
		if len(h.subscribers[tenantID]) == 0 {
			delete(h.subscribers, tenantID)
		}
	}

	return ch, cleanup
}

// Publish sends an event to all subscribers of a tenant topic. Never
// blocks: a slow consumer's event is dropped and logged.
func (h *Hub) Publish(tenantID string, event notification.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[tenantID] {
		select {
		case ch <- event:
		default:
			slog.Warn("sse: dropping event for slow subscriber",
				"tenant_id", tenantID, "type", event.Type)
		}
	}
}

// SubscriberCount returns the number of active subscribers for a tenant
func (h *Hub) SubscriberCount(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[tenantID])
}

// TotalSubscribers returns the total number of active subscribers across
// all tenants
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}
