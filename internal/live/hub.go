// Package live fans feed events out to connected stream watchers.
package live

import (
	"sync"

	"example.com/feedboard/internal/events"
)

const subscriberBuffer = 16

// recentWindow bounds the duplicate-suppression memory. Duplicates can show
// up after a consumer group rebalance or when the seed entry is republished.
const recentWindow = 256

// Hub delivers feed events to subscribers. Sends never block: a subscriber
// that cannot keep up loses messages rather than stalling the fan-out.
type Hub struct {
	mu        sync.Mutex
	subs      map[chan events.EntryCreated]struct{}
	recentIDs []string
	recentSet map[string]struct{}
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subs:      make(map[chan events.EntryCreated]struct{}),
		recentSet: make(map[string]struct{}),
	}
}

// Subscribe registers a new watcher. The returned cancel function must be
// called when the watcher goes away.
func (h *Hub) Subscribe() (<-chan events.EntryCreated, func()) {
	ch := make(chan events.EntryCreated, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	subscribersGauge.Inc()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
			subscribersGauge.Dec()
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// SubscriberCount reports the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers the event to every subscriber. Events whose entry id was
// seen recently are dropped.
func (h *Hub) Publish(event events.EntryCreated) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, seen := h.recentSet[event.EntryID]; seen {
		duplicatesCounter.Inc()
		return
	}
	h.remember(event.EntryID)

	for ch := range h.subs {
		select {
		case ch <- event:
		default:
			droppedCounter.Inc()
		}
	}
	broadcastCounter.Inc()
}

func (h *Hub) remember(id string) {
	h.recentSet[id] = struct{}{}
	h.recentIDs = append(h.recentIDs, id)
	if len(h.recentIDs) > recentWindow {
		oldest := h.recentIDs[0]
		h.recentIDs = h.recentIDs[1:]
		delete(h.recentSet, oldest)
	}
}
