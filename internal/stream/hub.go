package stream

import "sync"

// Hub tracks live viewers per session so writers can wake them after a change.
// It carries no session data.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscriber]struct{}
}

type Subscriber struct {
	wake chan struct{}
}

// Wake fires when the session changed since the last receive. Notifications
// coalesce.
func (s *Subscriber) Wake() <-chan struct{} {
	return s.wake
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[*Subscriber]struct{})}
}

func (h *Hub) Subscribe(groupID string) *Subscriber {
	sub := &Subscriber{wake: make(chan struct{}, 1)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[groupID] == nil {
		h.subscribers[groupID] = make(map[*Subscriber]struct{})
	}
	h.subscribers[groupID][sub] = struct{}{}
	return sub
}

func (h *Hub) Unsubscribe(groupID string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[groupID] == nil {
		return
	}
	delete(h.subscribers[groupID], sub)
	if len(h.subscribers[groupID]) == 0 {
		delete(h.subscribers, groupID)
	}
}

func (h *Hub) Notify(groupID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers[groupID] {
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) Subscribers(groupID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[groupID])
}
