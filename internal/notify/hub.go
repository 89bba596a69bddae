package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/example/skillswap/internal/application"
)

const (
	defaultBuffer  = 32
	maxSubsPerUser = 12
	maxSubsOverall = 10000
)

// ErrSubscriptionLimit is returned when a hub cannot take another subscriber.
var ErrSubscriptionLimit = errors.New("notify: subscription limit reached")

type subscription struct {
	ch   chan []byte
	once sync.Once
}

func (s *subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// Hub is an in-process broker used when no Redis server is configured. It
// delivers each event to the live subscriptions of its recipients.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	total  int
	buffer int
	drops  func(userID string)
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscription]struct{}), buffer: defaultBuffer}
}

// OnDrop registers a callback invoked when a slow subscriber misses an event.
func (h *Hub) OnDrop(fn func(userID string)) {
	h.mu.Lock()
	h.drops = fn
	h.mu.Unlock()
}

// Publish implements application.EventPublisher. Delivery never blocks; a
// subscriber whose buffer is full misses the event.
func (h *Hub) Publish(ctx context.Context, event application.Event) error {
	payload, err := Encode(event)
	if err != nil {
		return err
	}
	h.Broadcast(payload, event.Recipients...)
	return nil
}

// Broadcast sends an encoded payload to every subscription of the users.
func (h *Hub) Broadcast(payload []byte, userIDs ...string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		for sub := range h.subs[userID] {
			select {
			case sub.ch <- payload:
			default:
				if h.drops != nil {
					h.drops(userID)
				}
			}
		}
	}
}

// Subscribe implements Subscriber. The subscription also ends when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, userID string) (<-chan []byte, func(), error) {
	h.mu.Lock()
	if h.total >= maxSubsOverall || len(h.subs[userID]) >= maxSubsPerUser {
		h.mu.Unlock()
		return nil, nil, ErrSubscriptionLimit
	}
	sub := &subscription{ch: make(chan []byte, h.buffer)}
	m, ok := h.subs[userID]
	if !ok {
		m = make(map[*subscription]struct{})
		h.subs[userID] = m
	}
	m[sub] = struct{}{}
	h.total++
	h.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			h.mu.Lock()
			if m, ok := h.subs[userID]; ok {
				if _, exists := m[sub]; exists {
					delete(m, sub)
					h.total--
				}
				if len(m) == 0 {
					delete(h.subs, userID)
				}
			}
			h.mu.Unlock()
			sub.close()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return sub.ch, cancel, nil
}

// Subscribers reports how many live subscriptions a user has.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
