// Package messaging provides the notification bus implementations: an
// in-process typed bus for rendering collaborators and an optional
// EventBridge fan-out for external consumers.
package messaging

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/application/ports"
	"github.com/relight14/micropaymentcrawler-sub002/domain/events"
)

// MemoryBus is the in-process reactive notification bus. Delivery is
// synchronous and per-kind; no ordering is guaranteed between handlers
// subscribed to different kinds, and handlers may see redundant
// notifications, so they must be idempotent.
type MemoryBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[events.Kind]map[int]ports.EventHandler
	logger   *zap.Logger
}

// NewMemoryBus creates an empty bus.
func NewMemoryBus(logger *zap.Logger) *MemoryBus {
	return &MemoryBus{
		handlers: make(map[events.Kind]map[int]ports.EventHandler),
		logger:   logger,
	}
}

// Publish delivers the event to every subscriber of its kind.
func (b *MemoryBus) Publish(ctx context.Context, event events.Event) {
	b.mu.RLock()
	registered := b.handlers[event.EventKind()]
	snapshot := make([]ports.EventHandler, 0, len(registered))
	for _, handler := range registered {
		snapshot = append(snapshot, handler)
	}
	b.mu.RUnlock()

	b.logger.Debug("publishing event",
		zap.String("kind", string(event.EventKind())),
		zap.String("projectID", event.ProjectID()),
		zap.Int("subscribers", len(snapshot)),
	)

	for _, handler := range snapshot {
		handler(event)
	}
}

// Subscribe registers a handler for a kind and returns its removal function.
func (b *MemoryBus) Subscribe(kind events.Kind, handler ports.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[kind] == nil {
		b.handlers[kind] = make(map[int]ports.EventHandler)
	}
	id := b.nextID
	b.nextID++
	b.handlers[kind][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[kind], id)
	}
}

var _ ports.EventBus = (*MemoryBus)(nil)
