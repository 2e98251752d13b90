// Package realtime fans plan progress out to connected clients, across
// server instances when a Redis broker is configured.
package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/p-n-ai/pai-planner/internal/studyplan"
)

const defaultBuffer = 16

// Subscription receives progress events for one user.
type Subscription struct {
	hub    *Hub
	id     uint64
	userID string
	ch     chan studyplan.ProgressEvent
}

// C returns the channel events are delivered on. It is closed by Close.
func (s *Subscription) C() <-chan studyplan.ProgressEvent {
	return s.ch
}

// Close removes the subscription from its hub. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Hub routes progress events to the subscriptions of the event's user.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool
}

// NewHub creates a hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[string]map[uint64]*Subscription),
		buffer: buffer,
	}
}

// Subscribe registers a new subscription for userID.
func (h *Hub) Subscribe(userID string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		hub:    h,
		id:     h.nextID,
		userID: userID,
		ch:     make(chan studyplan.ProgressEvent, h.buffer),
	}
	if h.closed {
		close(sub.ch)
		return sub
	}
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[uint64]*Subscription)
	}
	h.subs[userID][sub.id] = sub
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	users := h.subs[sub.userID]
	if _, ok := users[sub.id]; !ok {
		return
	}
	delete(users, sub.id)
	if len(users) == 0 {
		delete(h.subs, sub.userID)
	}
	close(sub.ch)
}

// Broadcast delivers event to every subscription of event.UserID and returns
// how many received it. A subscriber whose buffer is full misses the event.
func (h *Hub) Broadcast(event studyplan.ProgressEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, sub := range h.subs[event.UserID] {
		select {
		case sub.ch <- event:
			delivered++
		default:
			slog.Warn("progress subscriber is slow, dropping event",
				"user_id", event.UserID,
				"topic_id", event.TopicID,
			)
		}
	}
	return delivered
}

// Close ends every subscription. Later subscriptions start closed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for userID, users := range h.subs {
		for _, sub := range users {
			close(sub.ch)
		}
		delete(h.subs, userID)
	}
}

// Subscribers returns the number of live subscriptions for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// LocalBroker delivers progress straight to an in-process hub.
type LocalBroker struct {
	hub *Hub
}

func NewLocalBroker(hub *Hub) *LocalBroker {
	return &LocalBroker{hub: hub}
}

func (b *LocalBroker) NotifyProgress(_ context.Context, event studyplan.ProgressEvent) error {
	b.hub.Broadcast(event)
	return nil
}
