package realtime

import (
	"sync"
)

// Session binds one verified identity and role to a live connection for its
// lifetime. It also owns the topic subscriptions taken out on the client's
// behalf, so the disconnect path can cancel them all.
type Session struct {
	UserID string
	Role   Role
	Conn   Conn

	mu   sync.Mutex
	subs map[string]*Subscription
}

func NewSession(userID string, role Role, conn Conn) *Session {
	return &Session{
		UserID: userID,
		Role:   role,
		Conn:   conn,
		subs:   make(map[string]*Subscription),
	}
}

// track records a subscription, replacing (and cancelling) any previous one
// for the same topic.
func (s *Session) track(sub *Subscription) {
	s.mu.Lock()
	prev := s.subs[sub.Topic()]
	s.subs[sub.Topic()] = sub
	s.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
}

func (s *Session) untrack(topic string) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := s.subs[topic]
	delete(s.subs, topic)
	return sub
}

func (s *Session) cancelAll() {
	s.mu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subs = make(map[string]*Subscription)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}
