package memory

import (
	"context"
	"sync"

	"listening-quiz-service/internal/domain"
)

const subscriberBuffer = 16

// Hub fans room events out to in-process subscribers (websocket connections). It implements
// app.Broadcaster for single-instance deployments and is fed by the Redis relay otherwise.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[chan domain.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[chan domain.Event]struct{})}
}

// Publish builds the envelope and delivers it locally.
func (h *Hub) Publish(_ context.Context, topic, event string, payload any) error {
	evt, err := domain.NewEvent(topic, event, payload)
	if err != nil {
		return err
	}
	h.Deliver(evt)
	return nil
}

// Deliver hands evt to every subscriber of its topic without blocking. A subscriber that
// fell behind loses its oldest queued event.
func (h *Hub) Deliver(evt domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.topics[evt.Topic] {
		select {
		case ch <- evt:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}
}

// Subscribe returns a channel of events for topic.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *Hub) Subscribe(topic string) (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, subscriberBuffer)

	h.mu.Lock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[chan domain.Event]struct{})
	}
	h.topics[topic][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			subs := h.topics[topic]
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(h.topics, topic)
			}
		})
	}
	return ch, cancel
}

// Subscribers reports how many subscribers a topic has.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
