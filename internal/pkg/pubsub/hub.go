// Package pubsub provides the in-process topic hub that fans out order and
// rider events to subscribed real-time clients.
//
// Each subscriber owns a buffered channel. Publishing never blocks: when a
// subscriber's buffer is full the message is dropped for that subscriber
// only. Slow consumers lose messages instead of stalling the publisher.
package pubsub

import (
	"sync"
)

// Message is what subscribers receive: the topic it matched, the event
// name, and the event payload.
type Message struct {
	Topic   string
	Name    string
	Payload any
}

// Subscription is a live subscription to one or more topics.
// C delivers matching messages until Close.
type Subscription struct {
	C      <-chan Message
	ch     chan Message
	topics []string
	id     uint64
	hub    *Hub
	once   sync.Once
}

// Close cancels the subscription and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
		close(s.ch)
	})
}

// Hub is a topic registry guarded by an RWMutex. Topics are created on
// first subscribe and removed when their last subscriber leaves.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[uint64]*Subscription
	nextID      uint64
	buffer      int
}

// NewHub creates a Hub whose subscriber channels buffer up to buffer
// messages each.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subscribers: make(map[string]map[uint64]*Subscription),
		buffer:      buffer,
	}
}

// Subscribe registers for all given topics and returns the subscription.
// A message matching several of the subscription's topics is delivered
// once per matching topic.
func (h *Hub) Subscribe(topics ...string) *Subscription {
	ch := make(chan Message, h.buffer)
	sub := &Subscription{C: ch, ch: ch, topics: topics, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub.id = h.nextID
	for _, topic := range topics {
		if h.subscribers[topic] == nil {
			h.subscribers[topic] = make(map[uint64]*Subscription)
		}
		h.subscribers[topic][sub.id] = sub
	}

	return sub
}

// Publish delivers the message to every subscriber of its topic without
// blocking. Returns the number of subscribers that received it.
func (h *Hub) Publish(msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var delivered int
	for _, sub := range h.subscribers[msg.Topic] {
		select {
		case sub.ch <- msg:
			delivered++
		default:
		}
	}
	return delivered
}

// SubscriberCount returns how many subscriptions a topic currently has.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range sub.topics {
		delete(h.subscribers[topic], sub.id)
		if len(h.subscribers[topic]) == 0 {
			delete(h.subscribers, topic)
		}
	}
}
