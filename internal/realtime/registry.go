package realtime

import (
	"sync"
)

type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
)

// Conn is the transport side of a session: something events can be pushed
// to. The websocket client implements it; tests use in-memory fakes.
type Conn interface {
	Send(event Event) error
	Close() error
}

// Registry tracks the live session per identity and role. It is owned by
// the gateway instance and injected where needed, never a package global, so
// independent gateways (and tests) do not share connection state.
//
// Registration is last-connect-wins: a new connection for an identity
// supersedes the previous one. The superseded connection is not closed here;
// its own disconnect path runs later and, thanks to the handle check in
// Unregister, cannot evict the newer session.
type Registry struct {
	mu      sync.RWMutex
	riders  map[string]*Session
	drivers map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		riders:  make(map[string]*Session),
		drivers: make(map[string]*Session),
	}
}

func (r *Registry) Register(sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions(sess.Role)[sess.UserID] = sess
}

// Unregister removes the session only when it is still the registered one.
// A stale disconnect from a superseded connection is a no-op.
func (r *Registry) Unregister(sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.sessions(sess.Role)
	if current, ok := sessions[sess.UserID]; ok && current == sess {
		delete(sessions, sess.UserID)
		return true
	}
	return false
}

// Lookup finds the live session for an identity, checking riders first.
// Rider and driver ids come from disjoint id spaces, so the order is only a
// tie-break that can never matter in practice.
func (r *Registry) Lookup(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if sess, ok := r.riders[userID]; ok {
		return sess, true
	}
	if sess, ok := r.drivers[userID]; ok {
		return sess, true
	}
	return nil, false
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.riders) + len(r.drivers)
}

func (r *Registry) sessions(role Role) map[string]*Session {
	if role == RoleDriver {
		return r.drivers
	}
	return r.riders
}
