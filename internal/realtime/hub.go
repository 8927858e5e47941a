package realtime

import (
	"sync"
)

const subscriptionBuffer = 16

// Hub is a topic-keyed publish/subscribe fan-out. Topics are scoped to one
// entity (a driver's location stream, a ride's status stream); filtering
// beyond the topic is the subscriber's responsibility.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscription is a cancellable handle on one topic. Events arrive on C;
// Cancel synchronously stops further delivery and closes C.
type Subscription struct {
	C chan Event

	topic string
	hub   *Hub
	once  sync.Once
}

func (s *Subscription) Topic() string {
	return s.topic
}

// Cancel removes the subscription from the hub and closes C. It holds the
// hub's write lock while doing so, which excludes in-flight Publish calls;
// after Cancel returns no further event is delivered.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		if subs, ok := s.hub.topics[s.topic]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.hub.topics, s.topic)
			}
		}
		close(s.C)
		s.hub.mu.Unlock()
	})
}

func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		C:     make(chan Event, subscriptionBuffer),
		topic: topic,
		hub:   h,
	}

	h.mu.Lock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Subscription]struct{})
	}
	h.topics[topic][sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Publish delivers the event to every current subscriber of the topic. A
// subscriber whose buffer is full misses the event rather than blocking the
// publisher; a topic with no subscribers is a no-op.
func (h *Hub) Publish(topic string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.topics[topic] {
		select {
		case sub.C <- event:
		default:
		}
	}
}

// DriverLocationTopic scopes location broadcasts to one driver.
func DriverLocationTopic(driverID string) string {
	return "driver:" + driverID + ":location"
}

// RideStatusTopic scopes status broadcasts to one ride.
func RideStatusTopic(rideID string) string {
	return "ride:" + rideID + ":status"
}
