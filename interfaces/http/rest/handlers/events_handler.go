package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/application/ports"
	"github.com/relight14/micropaymentcrawler-sub002/domain/events"
)

// EventsHandler bridges the notification bus to rendering collaborators
// over Server-Sent Events. Each event kind becomes an SSE event name with a
// JSON payload; clients must tolerate redundant notifications.
type EventsHandler struct {
	bus    ports.EventBus
	logger *zap.Logger
}

// NewEventsHandler creates an SSE handler.
func NewEventsHandler(bus ports.EventBus, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{bus: bus, logger: logger}
}

// Stream subscribes the client to all event kinds until it disconnects.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Buffered so a slow client drops notifications instead of blocking
	// publishers; listeners are idempotent and can re-pull snapshots.
	delivery := make(chan events.Event, 64)

	kinds := []events.Kind{
		events.KindProjectSwitched,
		events.KindSourcesChanged,
		events.KindOutlineChanged,
		events.KindSaveFailed,
	}
	unsubscribes := make([]func(), 0, len(kinds))
	for _, kind := range kinds {
		unsubscribes = append(unsubscribes, h.bus.Subscribe(kind, func(event events.Event) {
			select {
			case delivery <- event:
			default:
				h.logger.Debug("dropping event for slow stream client",
					zap.String("kind", string(event.EventKind())),
				)
			}
		}))
	}
	defer func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-delivery:
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn("failed to marshal event for stream",
					zap.String("kind", string(event.EventKind())),
					zap.Error(err),
				)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.EventKind(), payload)
			flusher.Flush()
		}
	}
}
