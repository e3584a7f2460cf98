// ABOUTME: In-process fan-out of alert events to live subscribers.
// ABOUTME: Slow subscribers drop events instead of blocking the publisher.
package notify

import (
	"context"
	"sync"

	"github.com/harperreed/drivewatch/internal/models"
	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscriber channel size.
const DefaultBuffer = 16

// Hub broadcasts events to subscribers such as websocket clients.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan models.AlertEvent
	nextID int
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{subs: make(map[int]chan models.AlertEvent), logger: logger}
}

// Subscribe registers a listener. Call cancel to unregister and close the channel.
func (h *Hub) Subscribe(buffer int) (<-chan models.AlertEvent, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan models.AlertEvent, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish implements Publisher.
func (h *Hub) Publish(_ context.Context, ev models.AlertEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("dropping alert for slow subscriber",
				zap.Int("subscriber", id),
				zap.String("record_id", ev.RecordID.String()))
		}
	}
	return nil
}
