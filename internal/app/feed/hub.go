package feed

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrSubscriberLagged closes a subscription whose buffer filled up. The
	// subscriber should resubscribe and reload its snapshot.
	ErrSubscriberLagged = errors.New("feed: subscriber fell behind")
	ErrHubClosed        = errors.New("feed: hub closed")
)

const DefaultBuffer = 64

// Event is one notification routed to a topic.
type Event struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Topic      string          `json:"topic"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Hub fans events out to in-process subscribers. Publish never blocks.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	closed bool
	logger *slog.Logger
}

func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers interest in topic. The returned subscription is already
// closed with ErrHubClosed when the hub has shut down.
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{hub: h, topic: topic, ch: make(chan Event, h.buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.err = ErrHubClosed
		sub.done = true
		close(sub.ch)
		return sub
	}
	set, ok := h.subs[topic]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[topic] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (h *Hub) Publish(ev Event) {
	var lagged []*Subscription
	h.mu.RLock()
	for sub := range h.subs[ev.Topic] {
		select {
		case sub.ch <- ev:
		default:
			lagged = append(lagged, sub)
		}
	}
	h.mu.RUnlock()
	for _, sub := range lagged {
		h.logger.Warn("feed subscriber lagged", "topic", sub.topic, "event", ev.Name)
		h.remove(sub, ErrSubscriberLagged)
	}
}

// Subscribers reports how many subscriptions are open on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for topic, set := range h.subs {
		for sub := range set {
			sub.finish(ErrHubClosed)
		}
		delete(h.subs, topic)
	}
}

func (h *Hub) remove(sub *Subscription, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[sub.topic]; ok {
		if _, present := set[sub]; present {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subs, sub.topic)
			}
		}
	}
	sub.finish(err)
}

// Subscription is a buffered view of one topic.
type Subscription struct {
	hub   *Hub
	topic string
	ch    chan Event

	// guarded by hub.mu
	done bool
	err  error
}

func (s *Subscription) Topic() string { return s.topic }

// Events is closed when the subscription ends.
func (s *Subscription) Events() <-chan Event { return s.ch }

func (s *Subscription) Cancel() {
	s.hub.remove(s, nil)
}

// Err returns why the subscription ended, nil after Cancel or while open.
func (s *Subscription) Err() error {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	return s.err
}

func (s *Subscription) finish(err error) {
	if s.done {
		return
	}
	s.done = true
	s.err = err
	close(s.ch)
}
