package realtime

import (
	"context"
	"sync"
	"sync/atomic"
)

const subscriberBuffer = 64

// Subscription receives the messages published to its targets.
type Subscription struct {
	C <-chan Message

	c       chan Message
	targets []Target
	hub     *Hub
	once    sync.Once
}

// Close detaches the subscription from the hub and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub fans messages out to in-process subscribers. A subscriber that does
// not keep up loses messages instead of slowing the publisher.
type Hub struct {
	mu      sync.RWMutex
	subs    map[Target]map[*Subscription]struct{}
	dropped atomic.Uint64
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[Target]map[*Subscription]struct{})}
}

// Subscribe registers interest in targets.
func (h *Hub) Subscribe(targets ...Target) *Subscription {
	c := make(chan Message, subscriberBuffer)
	s := &Subscription{C: c, c: c, targets: targets, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range targets {
		set, ok := h.subs[t]
		if !ok {
			set = make(map[*Subscription]struct{})
			h.subs[t] = set
		}
		set[s] = struct{}{}
	}
	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range s.targets {
		if set, ok := h.subs[t]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, t)
			}
		}
	}
	close(s.c)
}

// Publish implements Channel. It never blocks.
func (h *Hub) Publish(_ context.Context, target Target, event string, payload any) error {
	msg := Message{Target: target, Event: event, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[target] {
		select {
		case s.c <- msg:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// Subscribers returns the number of subscriptions on target.
func (h *Hub) Subscribers(target Target) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[target])
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

var _ Channel = (*Hub)(nil)
